// Package inmemdb keeps every repository in process memory. It backs tests and
// the "memory" storage backend.
package inmemdb

import (
	"sync"

	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/account"
	"github.com/trezcool/studyspace/core/course"
	"github.com/trezcool/studyspace/core/profile"
	"github.com/trezcool/studyspace/core/space"
	"github.com/trezcool/studyspace/core/workspace"
)

type (
	DB struct {
		mu sync.RWMutex

		accounts   map[string]*account.Account // by uid
		profiles   map[string]*profile.Profile // by uid
		courses    map[string]*course.Course
		chapters   map[string]map[string]*course.Chapter // by course id, chapter id
		workspaces map[string]*workspace.Document        // by owner uid
		files      map[string]*workspace.FileRecord
		spaces     map[string]*space.Space
		ratings    map[string]map[string]*space.Rating // by space id, rater id

		// unindexed makes ordered queries fail like a document store without a composite index.
		unindexed bool
	}

	Option func(*DB)
)

// WithoutIndexes makes every ordered query fail with a core.CodeMissingIndex StoreError.
func WithoutIndexes() Option {
	return func(db *DB) { db.unindexed = true }
}

func Open(opts ...Option) *DB {
	db := &DB{
		accounts:   make(map[string]*account.Account),
		profiles:   make(map[string]*profile.Profile),
		courses:    make(map[string]*course.Course),
		chapters:   make(map[string]map[string]*course.Chapter),
		workspaces: make(map[string]*workspace.Document),
		files:      make(map[string]*workspace.FileRecord),
		spaces:     make(map[string]*space.Space),
		ratings:    make(map[string]map[string]*space.Rating),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

func (db *DB) checkIndex(op string, ordered bool) error {
	if ordered && db.unindexed {
		return core.NewStoreError(core.CodeMissingIndex, op, nil)
	}
	return nil
}
