package block

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

var ErrDuplicateID = errors.New("duplicate block id")

// Tree is an ordered forest of blocks. Every block belongs to exactly one container:
// the root sequence or the children of one root-level folder.
//
// A Tree is not safe for concurrent use.
type Tree struct {
	blocks []Block
	newID  func() string
	now    func() time.Time
}

type Option func(*Tree)

// WithIDFunc sets the generator used for new block ids.
func WithIDFunc(f func() string) Option {
	return func(t *Tree) { t.newID = f }
}

// WithClock sets the clock used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tree) { t.now = now }
}

func NewTree(opts ...Option) *Tree {
	t := &Tree{
		blocks: []Block{},
		now:    func() time.Time { return time.Now().UTC() },
	}
	t.newID = t.timestampID
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// timestampID derives a block id from the current time in milliseconds.
func (t *Tree) timestampID() string {
	return strconv.FormatInt(t.now().UnixNano()/int64(time.Millisecond), 10)
}

// uniqueID returns candidate (or a generated id when empty), suffixed until no block uses it.
func (t *Tree) uniqueID(candidate string) string {
	if candidate == "" {
		candidate = t.newID()
	}
	id := candidate
	for n := 1; t.contains(id); n++ {
		id = candidate + "-" + strconv.Itoa(n)
	}
	return id
}

func (t *Tree) contains(id string) bool {
	_, _, ok := t.locate(id)
	return ok
}

// locate finds a block by id in the root sequence or one level deep in folders.
// parent is -1 for root-level blocks, otherwise the root index of the folder holding it.
func (t *Tree) locate(id string) (parent, idx int, ok bool) {
	for i, b := range t.blocks {
		if b.ID == id {
			return -1, i, true
		}
		if f, isFolder := b.IsFolder(); isFolder {
			for j, child := range f.Children {
				if child.ID == id {
					return i, j, true
				}
			}
		}
	}
	return 0, 0, false
}

func (t *Tree) get(parent, idx int) Block {
	if parent < 0 {
		return t.blocks[idx]
	}
	f, _ := t.blocks[parent].IsFolder()
	return f.Children[idx]
}

func (t *Tree) set(parent, idx int, b Block) {
	if parent < 0 {
		t.blocks[idx] = b
		return
	}
	f, _ := t.blocks[parent].IsFolder()
	f.Children[idx] = b
	t.blocks[parent].Content = f
}

// Load replaces the whole tree after checking the single-parent and one-level nesting rules.
func (t *Tree) Load(blocks []Block) error {
	if err := Validate(blocks); err != nil {
		return err
	}
	t.blocks = cloneBlocks(blocks)
	return nil
}

// Blocks returns a deep copy of the root sequence.
func (t *Tree) Blocks() []Block {
	return cloneBlocks(t.blocks)
}

// Find returns a copy of the block with the given id.
func (t *Tree) Find(id string) (Block, bool) {
	parent, idx, ok := t.locate(id)
	if !ok {
		return Block{}, false
	}
	return t.get(parent, idx).Clone(), true
}

// Create appends a new block of the given kind to the root sequence.
// A nil content starts the block with the kind's placeholder content.
// File blocks reuse their file id as block id unless it is already taken.
func (t *Tree) Create(kind Kind, c Content) (Block, error) {
	return t.CreateIn(Root, kind, c)
}

// CreateIn is Create appending to the given container. Folders can only be created at the root.
func (t *Tree) CreateIn(dst ContainerID, kind Kind, c Content) (Block, error) {
	if !kind.Valid() {
		return Block{}, errors.Wrapf(ErrUnknownKind, "creating %q block", kind)
	}
	items, err := t.items(dst)
	if err != nil {
		return Block{}, err
	}
	if kind == KindFolder && dst != Root {
		return Block{}, errors.Wrapf(ErrNestedFolder, "creating a folder in %q", dst)
	}
	if c == nil {
		if c, err = DefaultContent(kind); err != nil {
			return Block{}, errors.Wrapf(err, "creating %q block", kind)
		}
	}
	if c.Kind() != kind {
		return Block{}, errors.Wrapf(ErrKindMismatch, "creating %q block with %q content", kind, c.Kind())
	}

	var candidate string
	if f, ok := c.(File); ok {
		candidate = f.ID
	}
	if f, ok := c.(Folder); ok {
		// fresh folders start empty: children only arrive through Move or CreateIn
		f.Children = nil
		c = f
	}

	b := Block{
		ID:        t.uniqueID(candidate),
		CreatedAt: t.now(),
		Content:   normalize(c.clone()),
	}
	t.setItems(dst, insertAt(items, len(items), b))
	return b.Clone(), nil
}

// Update replaces the mutable fields of the block with the given id. The new content
// must be of the same kind. Updating a folder only renames it; its children are kept.
func (t *Tree) Update(id string, c Content) error {
	parent, idx, ok := t.locate(id)
	if !ok {
		return errors.Wrapf(ErrBlockNotFound, "updating %q", id)
	}
	b := t.get(parent, idx)
	if c == nil || c.Kind() != b.Kind() {
		return errors.Wrapf(ErrKindMismatch, "updating %q", id)
	}

	if f, isFolder := c.(Folder); isFolder {
		orig, _ := b.IsFolder()
		orig.Name = f.Name
		c = orig
	} else {
		c = c.clone()
	}
	b.Content = normalize(c)
	t.set(parent, idx, b)
	return nil
}

// Patch updates the block with the given id from a partial JSON encoding of it.
// Fields the patch does not carry keep their value.
func (t *Tree) Patch(id string, patch []byte) (Block, error) {
	parent, idx, ok := t.locate(id)
	if !ok {
		return Block{}, errors.Wrapf(ErrBlockNotFound, "updating %q", id)
	}
	c, err := PatchContent(t.get(parent, idx), patch)
	if err != nil {
		return Block{}, errors.Wrapf(err, "updating %q", id)
	}
	if err = t.Update(id, c); err != nil {
		return Block{}, err
	}
	return t.get(parent, idx).Clone(), nil
}

func (t *Tree) SetText(id, content string) error {
	return t.Update(id, Text{Content: content})
}

func (t *Tree) SetLink(id, title, url string) error {
	return t.Update(id, Link{Title: title, URL: url})
}

// SetList edits a List or ImportantTopics block, keeping its kind.
func (t *Tree) SetList(id, title string, items []string) error {
	b, ok := t.Find(id)
	if !ok {
		return errors.Wrapf(ErrBlockNotFound, "updating %q", id)
	}
	l, ok := b.Content.(List)
	if !ok {
		return errors.Wrapf(ErrKindMismatch, "updating %q", id)
	}
	return t.Update(id, List{Title: title, Items: items, Important: l.Important})
}

func (t *Tree) RenameFolder(id, name string) error {
	return t.Update(id, Folder{Name: name})
}

// Delete removes the block wherever it lives and returns it.
// Deleting a folder discards its children with it.
func (t *Tree) Delete(id string) (Block, bool) {
	parent, idx, ok := t.locate(id)
	if !ok {
		return Block{}, false
	}
	removed := t.get(parent, idx)
	if parent < 0 {
		t.blocks = removeAt(t.blocks, idx)
	} else {
		f, _ := t.blocks[parent].IsFolder()
		f.Children = removeAt(f.Children, idx)
		t.blocks[parent].Content = f
	}
	return removed, true
}

// Items returns a copy of the ordered blocks of a container.
// The root view holds every top-level block, folders included, and never their children.
func (t *Tree) Items(c ContainerID) ([]Block, error) {
	items, err := t.items(c)
	if err != nil {
		return nil, err
	}
	return cloneBlocks(items), nil
}

func (t *Tree) items(c ContainerID) ([]Block, error) {
	if c == Root {
		return t.blocks, nil
	}
	folderID, ok := c.FolderID()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownContainer, "reading %q", c)
	}
	for _, b := range t.blocks {
		if f, isFolder := b.IsFolder(); isFolder && b.ID == folderID {
			return f.Children, nil
		}
	}
	return nil, errors.Wrapf(ErrUnknownContainer, "reading %q", c)
}

func (t *Tree) setItems(c ContainerID, items []Block) {
	if c == Root {
		t.blocks = items
		return
	}
	folderID, _ := c.FolderID()
	for i, b := range t.blocks {
		if f, isFolder := b.IsFolder(); isFolder && b.ID == folderID {
			f.Children = items
			t.blocks[i].Content = f
			return
		}
	}
}

// Move relocates a block from src to dst at destIndex. The block is removed from src
// first, so destIndex is read against the destination after removal and is clamped to
// its bounds. Folders move with their children and cannot be moved into a folder.
func (t *Tree) Move(blockID string, src, dst ContainerID, destIndex int) error {
	srcItems, err := t.items(src)
	if err != nil {
		return err
	}
	if _, err = t.items(dst); err != nil {
		return err
	}

	idx := -1
	for i, b := range srcItems {
		if b.ID == blockID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.Wrapf(ErrBlockNotFound, "moving %q out of %q", blockID, src)
	}
	moving := srcItems[idx]
	if _, isFolder := moving.IsFolder(); isFolder && dst != Root {
		return errors.Wrapf(ErrNestedFolder, "moving %q into %q", blockID, dst)
	}

	t.setItems(src, removeAt(srcItems, idx))

	dstItems, _ := t.items(dst)
	if destIndex < 0 {
		destIndex = 0
	}
	if destIndex > len(dstItems) {
		destIndex = len(dstItems)
	}
	t.setItems(dst, insertAt(dstItems, destIndex, moving))
	return nil
}

// Serialize encodes the whole tree, kind tags included.
func (t *Tree) Serialize() (string, error) {
	return Serialize(t.blocks)
}

// Files lists every uploaded file referenced by b or, for a folder, by its children.
func Files(b Block) []UploadedFile {
	switch c := b.Content.(type) {
	case File:
		return []UploadedFile{c.UploadedFile}
	case Folder:
		var files []UploadedFile
		for _, child := range c.Children {
			files = append(files, Files(child)...)
		}
		return files
	}
	return nil
}

// Validate checks that ids are present and unique, every block has content and
// folders only sit at the root.
func Validate(blocks []Block) error {
	seen := make(map[string]bool)
	var walk func(bs []Block, nested bool) error
	walk = func(bs []Block, nested bool) error {
		for _, b := range bs {
			if b.ID == "" {
				return errors.New("block without id")
			}
			if b.Content == nil || !b.Kind().Valid() {
				return errors.Wrapf(ErrUnknownKind, "block %q", b.ID)
			}
			if seen[b.ID] {
				return errors.Wrapf(ErrDuplicateID, "block %q", b.ID)
			}
			seen[b.ID] = true

			if f, isFolder := b.IsFolder(); isFolder {
				if nested {
					return errors.Wrapf(ErrNestedFolder, "folder %q", b.ID)
				}
				if err := walk(f.Children, true); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(blocks, false)
}

func removeAt(blocks []Block, i int) []Block {
	out := make([]Block, 0, len(blocks)-1)
	out = append(out, blocks[:i]...)
	return append(out, blocks[i+1:]...)
}

func insertAt(blocks []Block, i int, b Block) []Block {
	out := make([]Block, 0, len(blocks)+1)
	out = append(out, blocks[:i]...)
	out = append(out, b)
	return append(out, blocks[i:]...)
}
