package firestorerepos

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core/course"
)

type (
	courseRepository struct {
		client *firestore.Client
	}

	courseDoc struct {
		Name        string `firestore:"name"`
		Description string `firestore:"description"`
		Stream      string `firestore:"stream"`
		Icon        string `firestore:"icon"`
	}

	pdfDoc struct {
		Name string `firestore:"name"`
		URL  string `firestore:"url"`
	}

	videoDoc struct {
		Title string `firestore:"title"`
		URL   string `firestore:"url"`
	}

	chapterDoc struct {
		Title           string     `firestore:"title"`
		Topics          []string   `firestore:"topics"`
		Order           int        `firestore:"order"`
		ImportantTopics []string   `firestore:"importantTopics"`
		PDFs            []pdfDoc   `firestore:"pdfs"`
		Videos          []videoDoc `firestore:"videos"`
	}
)

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(client *firestore.Client) course.Repository {
	return &courseRepository{client: client}
}

func toCourse(snap *firestore.DocumentSnapshot) (course.Course, error) {
	var doc courseDoc
	if err := snap.DataTo(&doc); err != nil {
		return course.Course{}, errors.Wrap(err, "decoding course")
	}
	return course.Course{
		ID:          snap.Ref.ID,
		Name:        doc.Name,
		Description: doc.Description,
		Stream:      doc.Stream,
		Icon:        doc.Icon,
	}, nil
}

func toChapter(courseID string, snap *firestore.DocumentSnapshot) (course.Chapter, error) {
	var doc chapterDoc
	if err := snap.DataTo(&doc); err != nil {
		return course.Chapter{}, errors.Wrap(err, "decoding chapter")
	}
	ch := course.Chapter{
		ID:              snap.Ref.ID,
		CourseID:        courseID,
		Title:           doc.Title,
		Topics:          doc.Topics,
		Order:           doc.Order,
		ImportantTopics: doc.ImportantTopics,
	}
	for _, p := range doc.PDFs {
		ch.PDFs = append(ch.PDFs, course.PDF{Name: p.Name, URL: p.URL})
	}
	for _, v := range doc.Videos {
		ch.Videos = append(ch.Videos, course.Video{Title: v.Title, URL: v.URL})
	}
	return ch, nil
}

// QueryCourses filtering on stream and ordering by name needs a composite index.
func (repo *courseRepository) QueryCourses(ctx context.Context, stream string, ordered bool) ([]course.Course, error) {
	q := repo.client.Collection(coursesColl).Query
	if stream != "" {
		q = q.Where("stream", "==", stream)
	}
	if ordered {
		q = q.OrderBy("name", firestore.Asc)
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, storeErr(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(snaps))
	for _, snap := range snaps {
		c, err := toCourse(snap)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	snap, err := repo.client.Collection(coursesColl).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, storeErr(err, "getting course")
	}
	return toCourse(snap)
}

func (repo *courseRepository) chapters(courseID string) *firestore.CollectionRef {
	return repo.client.Collection(coursesColl).Doc(courseID).Collection(chaptersColl)
}

func (repo *courseRepository) QueryChapters(ctx context.Context, courseID string) ([]course.Chapter, error) {
	snaps, err := repo.chapters(courseID).OrderBy("order", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, storeErr(err, "querying chapters")
	}
	chapters := make([]course.Chapter, 0, len(snaps))
	for _, snap := range snaps {
		ch, err := toChapter(courseID, snap)
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}
	return chapters, nil
}

func (repo *courseRepository) GetChapter(ctx context.Context, courseID, chapterID string) (course.Chapter, error) {
	snap, err := repo.chapters(courseID).Doc(chapterID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return course.Chapter{}, course.ErrChapterNotFound
		}
		return course.Chapter{}, storeErr(err, "getting chapter")
	}
	return toChapter(courseID, snap)
}
