// Package course serves the read-only course catalog.
package course

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrChapterNotFound = errors.New("chapter not found")
)

const (
	untitledChapter = "Untitled Chapter"
	untitledPDF     = "Untitled PDF"
	untitledVideo   = "Untitled Video"
	missingURL      = "#"
)

type (
	Course struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Stream      string `json:"stream"`
		Icon        string `json:"icon,omitempty"`
	}

	PDF struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}

	Video struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}

	Chapter struct {
		ID              string   `json:"id"`
		CourseID        string   `json:"course_id"`
		Title           string   `json:"title"`
		Topics          []string `json:"topics"`
		Order           int      `json:"order"`
		ImportantTopics []string `json:"important_topics"`
		PDFs            []PDF    `json:"pdfs"`
		Videos          []Video  `json:"videos"`
	}

	Repository interface {
		// QueryCourses returns the courses of stream (all courses when stream is empty).
		// With ordered set they come sorted by name, which may fail with a
		// core.CodeMissingIndex StoreError on backends without a matching index.
		QueryCourses(ctx context.Context, stream string, ordered bool) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		QueryChapters(ctx context.Context, courseID string) ([]Chapter, error)
		GetChapter(ctx context.Context, courseID, chapterID string) (Chapter, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ListForStream returns the courses of stream ordered by name. An empty stream lists every course.
func (svc *Service) ListForStream(ctx context.Context, stream string) ([]Course, error) {
	stream = core.CleanString(stream)
	courses, err := svc.repo.QueryCourses(ctx, stream, true)
	if err == nil {
		return courses, nil
	}
	if !core.IsMissingIndex(err) {
		return nil, errors.Wrap(err, "querying courses")
	}

	svc.logger.Warn(fmt.Sprintf("course: missing index for stream %q, sorting in memory", stream))
	courses, err = svc.repo.QueryCourses(ctx, stream, false)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	sort.SliceStable(courses, func(i, j int) bool {
		return strings.ToLower(courses[i].Name) < strings.ToLower(courses[j].Name)
	})
	return courses, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Course, error) {
	if id == "" {
		return Course{}, ErrNotFound
	}
	return svc.repo.GetCourse(ctx, id)
}

// Chapters lists the chapters of a course by their order.
func (svc *Service) Chapters(ctx context.Context, courseID string) ([]Chapter, error) {
	if courseID == "" {
		return []Chapter{}, nil
	}
	chapters, err := svc.repo.QueryChapters(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying chapters")
	}
	for i := range chapters {
		chapters[i].normalize()
	}
	sort.SliceStable(chapters, func(i, j int) bool {
		if chapters[i].Order != chapters[j].Order {
			return chapters[i].Order < chapters[j].Order
		}
		return chapters[i].ID < chapters[j].ID
	})
	return chapters, nil
}

func (svc *Service) Chapter(ctx context.Context, courseID, chapterID string) (Chapter, error) {
	if courseID == "" || chapterID == "" {
		return Chapter{}, ErrChapterNotFound
	}
	ch, err := svc.repo.GetChapter(ctx, courseID, chapterID)
	if err != nil {
		return Chapter{}, err
	}
	ch.normalize()
	return ch, nil
}

// normalize fills the defaults of partially seeded chapters.
func (ch *Chapter) normalize() {
	if ch.Title == "" {
		ch.Title = untitledChapter
	}
	if ch.Topics == nil {
		ch.Topics = []string{}
	}
	if ch.ImportantTopics == nil {
		ch.ImportantTopics = []string{}
	}
	if ch.PDFs == nil {
		ch.PDFs = []PDF{}
	}
	for i := range ch.PDFs {
		if ch.PDFs[i].Name == "" {
			ch.PDFs[i].Name = untitledPDF
		}
		if ch.PDFs[i].URL == "" {
			ch.PDFs[i].URL = missingURL
		}
	}
	if ch.Videos == nil {
		ch.Videos = []Video{}
	}
	for i := range ch.Videos {
		if ch.Videos[i].Title == "" {
			ch.Videos[i].Title = untitledVideo
		}
		if ch.Videos[i].URL == "" {
			ch.Videos[i].URL = missingURL
		}
	}
}
