package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studyspace/core/course"
)

const (
	courseColumns  = "id, name, description, stream, icon"
	chapterColumns = "course_id, id, title, topics, sort_order, important_topics, pdfs, videos"
)

type (
	courseRepository struct {
		db *sqlx.DB
	}

	chapterRow struct {
		CourseID        string    `db:"course_id"`
		ID              string    `db:"id"`
		Title           string    `db:"title"`
		Topics          null.JSON `db:"topics"`
		Order           int       `db:"sort_order"`
		ImportantTopics null.JSON `db:"important_topics"`
		PDFs            null.JSON `db:"pdfs"`
		Videos          null.JSON `db:"videos"`
	}
)

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (r chapterRow) chapter() (course.Chapter, error) {
	ch := course.Chapter{CourseID: r.CourseID, ID: r.ID, Title: r.Title, Order: r.Order}
	for _, fld := range []struct {
		col  null.JSON
		dest interface{}
	}{
		{r.Topics, &ch.Topics},
		{r.ImportantTopics, &ch.ImportantTopics},
		{r.PDFs, &ch.PDFs},
		{r.Videos, &ch.Videos},
	} {
		if !fld.col.Valid {
			continue
		}
		if err := fld.col.Unmarshal(fld.dest); err != nil {
			return course.Chapter{}, errors.Wrapf(err, "decoding chapter %s", r.ID)
		}
	}
	return ch, nil
}

// QueryCourses always orders in the database: postgres needs no index to sort.
func (repo *courseRepository) QueryCourses(ctx context.Context, stream string, _ bool) ([]course.Course, error) {
	courses := make([]course.Course, 0)
	q := `SELECT ` + courseColumns + ` FROM courses`
	args := make([]interface{}, 0, 1)
	if stream != "" {
		q += ` WHERE stream = $1`
		args = append(args, stream)
	}
	q += ` ORDER BY name ASC`
	if err := repo.db.SelectContext(ctx, &courses, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	var c course.Course
	q := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	if err := repo.db.GetContext(ctx, &c, q, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "selecting course")
	}
	return c, nil
}

func (repo *courseRepository) QueryChapters(ctx context.Context, courseID string) ([]course.Chapter, error) {
	var rows []chapterRow
	q := `SELECT ` + chapterColumns + ` FROM chapters WHERE course_id = $1 ORDER BY sort_order ASC, id ASC`
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "selecting chapters")
	}
	chapters := make([]course.Chapter, 0, len(rows))
	for _, r := range rows {
		ch, err := r.chapter()
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}
	return chapters, nil
}

func (repo *courseRepository) GetChapter(ctx context.Context, courseID, chapterID string) (course.Chapter, error) {
	var row chapterRow
	q := `SELECT ` + chapterColumns + ` FROM chapters WHERE course_id = $1 AND id = $2`
	if err := repo.db.GetContext(ctx, &row, q, courseID, chapterID); err != nil {
		return course.Chapter{}, trapNoRowsErr(err, course.ErrChapterNotFound, "selecting chapter")
	}
	return row.chapter()
}
