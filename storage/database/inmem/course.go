package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/studyspace/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

// AddCourse stores or replaces a catalog course.
func (db *DB) AddCourse(c course.Course) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.courses[c.ID] = &c
}

// AddChapter stores or replaces a chapter of ch.CourseID.
func (db *DB) AddChapter(ch course.Chapter) {
	db.mu.Lock()
	defer db.mu.Unlock()

	chapters, ok := db.chapters[ch.CourseID]
	if !ok {
		chapters = make(map[string]*course.Chapter)
		db.chapters[ch.CourseID] = chapters
	}
	chapters[ch.ID] = &ch
}

func (repo *courseRepository) QueryCourses(_ context.Context, stream string, ordered bool) ([]course.Course, error) {
	if stream != "" {
		if err := repo.db.checkIndex("querying courses", ordered); err != nil {
			return nil, err
		}
	}

	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		if stream == "" || c.Stream == stream {
			courses = append(courses, *c)
		}
	}
	if ordered {
		sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryChapters(_ context.Context, courseID string) ([]course.Chapter, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	chapters := make([]course.Chapter, 0, len(repo.db.chapters[courseID]))
	for _, ch := range repo.db.chapters[courseID] {
		chapters = append(chapters, copyChapter(*ch))
	}
	return chapters, nil
}

func (repo *courseRepository) GetChapter(_ context.Context, courseID, chapterID string) (course.Chapter, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if ch, ok := repo.db.chapters[courseID][chapterID]; ok {
		return copyChapter(*ch), nil
	}
	return course.Chapter{}, course.ErrChapterNotFound
}

func copyChapter(ch course.Chapter) course.Chapter {
	ch.Topics = append([]string(nil), ch.Topics...)
	ch.ImportantTopics = append([]string(nil), ch.ImportantTopics...)
	ch.PDFs = append([]course.PDF(nil), ch.PDFs...)
	ch.Videos = append([]course.Video(nil), ch.Videos...)
	return ch
}
