// Package block implements the workspace block tree: an ordered forest of
// heterogeneous content blocks where folders hold one level of children.
package block

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Kind tags the variant of a Block.
type Kind string

const (
	KindFile            Kind = "file"
	KindLink            Kind = "link"
	KindText            Kind = "text"
	KindList            Kind = "list"
	KindImportantTopics Kind = "importantTopics"
	KindFolder          Kind = "folder"
)

var Kinds = []Kind{KindFile, KindLink, KindText, KindList, KindImportantTopics, KindFolder}

func (k Kind) Valid() bool {
	switch k {
	case KindFile, KindLink, KindText, KindList, KindImportantTopics, KindFolder:
		return true
	}
	return false
}

var (
	ErrUnknownKind   = errors.New("unknown block kind")
	ErrKindMismatch  = errors.New("content does not match block kind")
	ErrFileRequired  = errors.New("file blocks need an uploaded file")
	ErrBlockNotFound = errors.New("block not found")
)

// UploadedFile references a blob owned by the storage collaborator.
type UploadedFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Content is the kind-specific payload of a Block.
// It is implemented by File, Link, Text, List and Folder only.
type Content interface {
	Kind() Kind
	clone() Content
}

type (
	File struct {
		UploadedFile
	}

	Link struct {
		Title string
		URL   string
	}

	Text struct {
		Content string
	}

	// List backs both KindList and KindImportantTopics.
	List struct {
		Title     string
		Items     []string
		Important bool
	}

	Folder struct {
		Name     string
		Children []Block
	}
)

func (File) Kind() Kind   { return KindFile }
func (Link) Kind() Kind   { return KindLink }
func (Text) Kind() Kind   { return KindText }
func (Folder) Kind() Kind { return KindFolder }

func (l List) Kind() Kind {
	if l.Important {
		return KindImportantTopics
	}
	return KindList
}

func (f File) clone() Content { return f }
func (l Link) clone() Content { return l }
func (t Text) clone() Content { return t }

func (l List) clone() Content {
	items := make([]string, len(l.Items))
	copy(items, l.Items)
	l.Items = items
	return l
}

func (f Folder) clone() Content {
	f.Children = cloneBlocks(f.Children)
	return f
}

// Block is a single content node of a workspace.
type Block struct {
	ID        string
	CreatedAt time.Time
	Content   Content
}

func (b Block) Kind() Kind {
	if b.Content == nil {
		return ""
	}
	return b.Content.Kind()
}

// Clone returns a deep copy of b.
func (b Block) Clone() Block {
	if b.Content != nil {
		b.Content = b.Content.clone()
	}
	return b
}

// IsFolder reports whether b is a folder, returning its content.
func (b Block) IsFolder() (Folder, bool) {
	f, ok := b.Content.(Folder)
	return f, ok
}

func cloneBlocks(blocks []Block) []Block {
	cloned := make([]Block, len(blocks))
	for i, b := range blocks {
		cloned[i] = b.Clone()
	}
	return cloned
}

// DefaultContent returns the placeholder content a fresh block of kind starts with.
func DefaultContent(kind Kind) (Content, error) {
	switch kind {
	case KindText:
		return Text{Content: "Click to edit text"}, nil
	case KindLink:
		return Link{Title: "Click to edit link", URL: "https://"}, nil
	case KindList:
		return List{Title: "New List", Items: []string{"Click to edit item"}}, nil
	case KindImportantTopics:
		return List{Title: "IMPORTANT TOPICS", Items: []string{"Topic 1", "Topic 2", "Topic 3"}, Important: true}, nil
	case KindFolder:
		return Folder{Name: "New Folder", Children: []Block{}}, nil
	case KindFile:
		return nil, ErrFileRequired
	default:
		return nil, ErrUnknownKind
	}
}

// normalize returns c with nil sequences replaced by empty ones and list edits cleaned up.
func normalize(c Content) Content {
	switch v := c.(type) {
	case File, Link, Text:
		return v
	case List:
		v.Title = strings.TrimSpace(v.Title)
		items := make([]string, 0, len(v.Items))
		for _, item := range v.Items {
			if strings.TrimSpace(item) != "" {
				items = append(items, item)
			}
		}
		v.Items = items
		return v
	case Folder:
		v.Name = strings.TrimSpace(v.Name)
		if v.Children == nil {
			v.Children = []Block{}
		}
		return v
	default:
		return c
	}
}
