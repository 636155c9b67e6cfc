package block

import (
	"strconv"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestTree returns a tree with sequential ids ("1", "2", ...) and a fixed clock.
func newTestTree() *Tree {
	var seq int
	base := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	return NewTree(
		WithIDFunc(func() string {
			seq++
			return strconv.Itoa(seq)
		}),
		WithClock(func() time.Time { return base.Add(time.Duration(seq) * time.Second) }),
	)
}

func mustCreate(t *testing.T, tree *Tree, kind Kind, c Content) Block {
	t.Helper()
	b, err := tree.Create(kind, c)
	require.NoError(t, err)
	return b
}

func ids(blocks []Block) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.ID)
	}
	return out
}

func TestTree_Create(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		content Content
		want    Content
		wantErr error
	}{
		{name: "text default", kind: KindText, want: Text{Content: "Click to edit text"}},
		{name: "link default", kind: KindLink, want: Link{Title: "Click to edit link", URL: "https://"}},
		{name: "list default", kind: KindList, want: List{Title: "New List", Items: []string{"Click to edit item"}}},
		{
			name: "important topics default",
			kind: KindImportantTopics,
			want: List{Title: "IMPORTANT TOPICS", Items: []string{"Topic 1", "Topic 2", "Topic 3"}, Important: true},
		},
		{name: "folder default", kind: KindFolder, want: Folder{Name: "New Folder", Children: []Block{}}},
		{name: "text content", kind: KindText, content: Text{Content: "hi"}, want: Text{Content: "hi"}},
		{name: "folder children are dropped", kind: KindFolder, content: Folder{Name: "Notes", Children: []Block{{ID: "x"}}}, want: Folder{Name: "Notes", Children: []Block{}}},
		{name: "file without content", kind: KindFile, wantErr: ErrFileRequired},
		{name: "unknown kind", kind: "video", wantErr: ErrUnknownKind},
		{name: "kind mismatch", kind: KindLink, content: Text{Content: "hi"}, wantErr: ErrKindMismatch},
		{name: "list is not important topics", kind: KindImportantTopics, content: List{Title: "x"}, wantErr: ErrKindMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := newTestTree()
			got, err := tree.Create(tt.kind, tt.content)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				assert.Empty(t, tree.Blocks())
				return
			}
			assert.Equal(t, tt.want, got.Content)
			assert.Equal(t, tt.kind, got.Kind())
			assert.NotEmpty(t, got.ID)
			assert.False(t, got.CreatedAt.IsZero())
			assert.Equal(t, []string{got.ID}, ids(tree.Blocks()))
		})
	}
}

func TestTree_Create_fileIDs(t *testing.T) {
	tree := newTestTree()
	file := File{UploadedFile{ID: "drive-1", Name: "notes.pdf", URL: "https://drive.google.com/file/d/drive-1/view?usp=sharing"}}

	first := mustCreate(t, tree, KindFile, file)
	second := mustCreate(t, tree, KindFile, file)
	text := mustCreate(t, tree, KindText, nil)

	assert.Equal(t, "drive-1", first.ID)
	assert.Equal(t, "drive-1-1", second.ID)
	assert.Equal(t, "1", text.ID)
	assert.Equal(t, []string{"drive-1", "drive-1-1", "1"}, ids(tree.Blocks()))
}

func TestTree_Create_timestampIDs(t *testing.T) {
	now := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	tree := NewTree(WithClock(func() time.Time { return now }))

	a := mustCreate(t, tree, KindText, nil)
	b := mustCreate(t, tree, KindText, nil)

	ms := strconv.FormatInt(now.UnixNano()/int64(time.Millisecond), 10)
	assert.Equal(t, ms, a.ID)
	assert.Equal(t, ms+"-1", b.ID)
	assert.Equal(t, now, a.CreatedAt)
}

func TestTree_Update(t *testing.T) {
	tree := newTestTree()
	text := mustCreate(t, tree, KindText, nil)
	link := mustCreate(t, tree, KindLink, nil)
	list := mustCreate(t, tree, KindImportantTopics, nil)
	folder := mustCreate(t, tree, KindFolder, Folder{Name: "Notes"})
	child := mustCreate(t, tree, KindText, Text{Content: "inside"})
	require.NoError(t, tree.Move(child.ID, Root, FolderContainer(folder.ID), 0))

	tests := []struct {
		name    string
		update  func() error
		id      string
		want    Content
		wantErr error
	}{
		{name: "text", update: func() error { return tree.SetText(text.ID, "hello") }, id: text.ID, want: Text{Content: "hello"}},
		{name: "link", update: func() error { return tree.SetLink(link.ID, "Docs", "https://go.dev") }, id: link.ID, want: Link{Title: "Docs", URL: "https://go.dev"}},
		{
			name:   "list keeps kind and drops blank items",
			update: func() error { return tree.SetList(list.ID, "  Exams ", []string{"Graphs", " ", "", "Trees"}) },
			id:     list.ID,
			want:   List{Title: "Exams", Items: []string{"Graphs", "Trees"}, Important: true},
		},
		{
			name:   "folder rename keeps children",
			update: func() error { return tree.RenameFolder(folder.ID, "Lectures") },
			id:     folder.ID,
			want:   Folder{Name: "Lectures", Children: []Block{child}},
		},
		{name: "child of folder", update: func() error { return tree.SetText(child.ID, "edited") }, id: child.ID, want: Text{Content: "edited"}},
		{name: "unknown id", update: func() error { return tree.SetText("nope", "x") }, wantErr: ErrBlockNotFound},
		{name: "wrong kind", update: func() error { return tree.SetLink(text.ID, "x", "y") }, wantErr: ErrKindMismatch},
		{name: "list on text", update: func() error { return tree.SetList(text.ID, "x", nil) }, wantErr: ErrKindMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tree.Blocks()
			err := tt.update()
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("update error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				assert.Equal(t, before, tree.Blocks(), "failed updates must not change the tree")
				return
			}
			got, ok := tree.Find(tt.id)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Content)
		})
	}
}

func TestTree_Delete(t *testing.T) {
	tree := newTestTree()
	a := mustCreate(t, tree, KindText, nil)
	folder := mustCreate(t, tree, KindFolder, nil)
	b := mustCreate(t, tree, KindText, nil)
	require.NoError(t, tree.Move(b.ID, Root, FolderContainer(folder.ID), 0))

	removed, ok := tree.Delete(b.ID)
	require.True(t, ok)
	assert.Equal(t, b.ID, removed.ID)
	items, err := tree.Items(FolderContainer(folder.ID))
	require.NoError(t, err)
	assert.Empty(t, items)

	removed, ok = tree.Delete(a.ID)
	require.True(t, ok)
	assert.Equal(t, a.ID, removed.ID)
	assert.Equal(t, []string{folder.ID}, ids(tree.Blocks()))

	_, ok = tree.Delete("missing")
	assert.False(t, ok)
}

func TestTree_Delete_folderDestroysChildren(t *testing.T) {
	tree := newTestTree()
	folder := mustCreate(t, tree, KindFolder, nil)
	keep := mustCreate(t, tree, KindText, Text{Content: "stays"})

	const n = 5
	childIDs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		c := mustCreate(t, tree, KindText, Text{Content: strconv.Itoa(i)})
		require.NoError(t, tree.Move(c.ID, Root, FolderContainer(folder.ID), i))
		childIDs = append(childIDs, c.ID)
	}

	removed, ok := tree.Delete(folder.ID)
	require.True(t, ok)
	f, _ := removed.IsFolder()
	assert.Len(t, f.Children, n)

	assert.Equal(t, []string{keep.ID}, ids(tree.Blocks()))
	for _, id := range childIDs {
		_, found := tree.Find(id)
		assert.Falsef(t, found, "child %s must be gone, not promoted to root", id)
	}
}

func TestTree_Move(t *testing.T) {
	setup := func(t *testing.T) (*Tree, Block, Block) {
		tree := newTestTree()
		mustCreate(t, tree, KindText, nil)         // 1
		mustCreate(t, tree, KindText, nil)         // 2
		mustCreate(t, tree, KindText, nil)         // 3
		f1 := mustCreate(t, tree, KindFolder, nil) // 4
		f2 := mustCreate(t, tree, KindFolder, nil) // 5
		return tree, f1, f2
	}

	tests := []struct {
		name     string
		moves    func(tree *Tree, f1, f2 Block) error
		wantRoot []string
		wantF1   []string
		wantF2   []string
		wantErr  error
	}{
		{
			name:     "reorder forward",
			moves:    func(tree *Tree, _, _ Block) error { return tree.Move("1", Root, Root, 2) },
			wantRoot: []string{"2", "3", "1", "4", "5"},
		},
		{
			name:     "reorder backward",
			moves:    func(tree *Tree, _, _ Block) error { return tree.Move("3", Root, Root, 0) },
			wantRoot: []string{"3", "1", "2", "4", "5"},
		},
		{
			name:     "index past the end is clamped",
			moves:    func(tree *Tree, _, _ Block) error { return tree.Move("1", Root, Root, 99) },
			wantRoot: []string{"2", "3", "4", "5", "1"},
		},
		{
			name:     "negative index is clamped",
			moves:    func(tree *Tree, _, _ Block) error { return tree.Move("5", Root, Root, -3) },
			wantRoot: []string{"5", "1", "2", "3", "4"},
		},
		{
			name: "into folder",
			moves: func(tree *Tree, f1, _ Block) error {
				if err := tree.Move("2", Root, FolderContainer(f1.ID), 0); err != nil {
					return err
				}
				return tree.Move("1", Root, FolderContainer(f1.ID), 0)
			},
			wantRoot: []string{"3", "4", "5"},
			wantF1:   []string{"1", "2"},
		},
		{
			name: "between folders",
			moves: func(tree *Tree, f1, f2 Block) error {
				if err := tree.Move("2", Root, FolderContainer(f1.ID), 0); err != nil {
					return err
				}
				return tree.Move("2", FolderContainer(f1.ID), FolderContainer(f2.ID), 0)
			},
			wantRoot: []string{"1", "3", "4", "5"},
			wantF2:   []string{"2"},
		},
		{
			name: "out of folder",
			moves: func(tree *Tree, f1, _ Block) error {
				if err := tree.Move("3", Root, FolderContainer(f1.ID), 0); err != nil {
					return err
				}
				return tree.Move("3", FolderContainer(f1.ID), Root, 1)
			},
			wantRoot: []string{"1", "3", "2", "4", "5"},
		},
		{
			name:     "folder into folder is rejected",
			moves:    func(tree *Tree, f1, f2 Block) error { return tree.Move(f1.ID, Root, FolderContainer(f2.ID), 0) },
			wantRoot: []string{"1", "2", "3", "4", "5"},
			wantErr:  ErrNestedFolder,
		},
		{
			name:     "folder into itself is rejected",
			moves:    func(tree *Tree, f1, _ Block) error { return tree.Move(f1.ID, Root, FolderContainer(f1.ID), 0) },
			wantRoot: []string{"1", "2", "3", "4", "5"},
			wantErr:  ErrNestedFolder,
		},
		{
			name:     "block not in source",
			moves:    func(tree *Tree, f1, _ Block) error { return tree.Move("1", FolderContainer(f1.ID), Root, 0) },
			wantRoot: []string{"1", "2", "3", "4", "5"},
			wantErr:  ErrBlockNotFound,
		},
		{
			name:     "unknown destination",
			moves:    func(tree *Tree, _, _ Block) error { return tree.Move("1", Root, FolderContainer("1"), 0) },
			wantRoot: []string{"1", "2", "3", "4", "5"},
			wantErr:  ErrUnknownContainer,
		},
		{
			name:     "malformed container",
			moves:    func(tree *Tree, _, _ Block) error { return tree.Move("1", "sidebar", Root, 0) },
			wantRoot: []string{"1", "2", "3", "4", "5"},
			wantErr:  ErrUnknownContainer,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, f1, f2 := setup(t)
			err := tt.moves(tree, f1, f2)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("Move() error = %v, wantErr %v", err, tt.wantErr)
			}

			assert.Equal(t, tt.wantRoot, ids(tree.Blocks()))
			gotF1, err := tree.Items(FolderContainer(f1.ID))
			require.NoError(t, err)
			gotF2, err := tree.Items(FolderContainer(f2.ID))
			require.NoError(t, err)
			assert.Equal(t, append([]string{}, tt.wantF1...), ids(gotF1))
			assert.Equal(t, append([]string{}, tt.wantF2...), ids(gotF2))
		})
	}
}

func TestTree_Move_folderKeepsChildren(t *testing.T) {
	tree := newTestTree()
	folder := mustCreate(t, tree, KindFolder, Folder{Name: "Notes"})
	for i := 0; i < 3; i++ {
		c := mustCreate(t, tree, KindList, List{Title: strconv.Itoa(i), Items: []string{"a", "b"}})
		require.NoError(t, tree.Move(c.ID, Root, FolderContainer(folder.ID), i))
	}
	mustCreate(t, tree, KindText, nil)
	mustCreate(t, tree, KindText, nil)

	before, ok := tree.Find(folder.ID)
	require.True(t, ok)

	require.NoError(t, tree.Move(folder.ID, Root, Root, 2))

	after, ok := tree.Find(folder.ID)
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Equal(t, folder.ID, tree.Blocks()[2].ID)
}

func TestTree_scenario_moveTextIntoFolder(t *testing.T) {
	tree := newTestTree()
	notes := mustCreate(t, tree, KindFolder, Folder{Name: "Notes"})
	hi := mustCreate(t, tree, KindText, Text{Content: "hi"})

	require.NoError(t, tree.Move(hi.ID, Root, FolderContainer(notes.ID), 0))

	want := []Block{{
		ID:        notes.ID,
		CreatedAt: notes.CreatedAt,
		Content:   Folder{Name: "Notes", Children: []Block{hi}},
	}}
	assert.Equal(t, want, tree.Blocks())

	rootItems, err := tree.Items(Root)
	require.NoError(t, err)
	assert.Equal(t, want, rootItems)

	folderItems, err := tree.Items(FolderContainer(notes.ID))
	require.NoError(t, err)
	assert.Equal(t, []Block{hi}, folderItems)
}

func TestTree_Blocks_isACopy(t *testing.T) {
	tree := newTestTree()
	folder := mustCreate(t, tree, KindFolder, nil)
	child := mustCreate(t, tree, KindList, nil)
	require.NoError(t, tree.Move(child.ID, Root, FolderContainer(folder.ID), 0))

	snapshot := tree.Blocks()
	f, _ := snapshot[0].IsFolder()
	l := f.Children[0].Content.(List)
	l.Items[0] = "mutated"
	f.Children[0].ID = "mutated"

	got, ok := tree.Find(child.ID)
	require.True(t, ok)
	assert.Equal(t, "Click to edit item", got.Content.(List).Items[0])
}

func TestTree_Load(t *testing.T) {
	ts := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	text := func(id string) Block { return Block{ID: id, CreatedAt: ts, Content: Text{Content: id}} }
	folder := func(id string, children ...Block) Block {
		return Block{ID: id, CreatedAt: ts, Content: Folder{Name: id, Children: children}}
	}

	tests := []struct {
		name    string
		blocks  []Block
		wantErr error
	}{
		{name: "empty", blocks: []Block{}},
		{name: "valid", blocks: []Block{text("a"), folder("f", text("b"))}},
		{name: "duplicate at root", blocks: []Block{text("a"), text("a")}, wantErr: ErrDuplicateID},
		{name: "duplicate across containers", blocks: []Block{text("a"), folder("f", text("a"))}, wantErr: ErrDuplicateID},
		{name: "nested folder", blocks: []Block{folder("f", folder("g"))}, wantErr: ErrNestedFolder},
		{name: "missing content", blocks: []Block{{ID: "a"}}, wantErr: ErrUnknownKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := newTestTree()
			err := tree.Load(tt.blocks)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				assert.Equal(t, tt.blocks, tree.Blocks())
			} else {
				assert.Empty(t, tree.Blocks())
			}
		})
	}
}

func TestFiles(t *testing.T) {
	f1 := UploadedFile{ID: "f1", Name: "a.pdf", URL: "u1"}
	f2 := UploadedFile{ID: "f2", Name: "b.pdf", URL: "u2"}
	folder := Block{ID: "d", Content: Folder{Name: "d", Children: []Block{
		{ID: "f1", Content: File{f1}},
		{ID: "t", Content: Text{}},
		{ID: "f2", Content: File{f2}},
	}}}

	assert.Equal(t, []UploadedFile{f1, f2}, Files(folder))
	assert.Equal(t, []UploadedFile{f1}, Files(Block{ID: "f1", Content: File{f1}}))
	assert.Empty(t, Files(Block{ID: "t", Content: Text{}}))
}

func TestParseContainer(t *testing.T) {
	tests := []struct {
		in      string
		want    ContainerID
		wantErr bool
	}{
		{in: "root", want: Root},
		{in: "folder-123", want: FolderContainer("123")},
		{in: "folder-", wantErr: true},
		{in: "", wantErr: true},
		{in: "sidebar", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseContainer(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseContainer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseContainer() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTree_CreateIn(t *testing.T) {
	tests := []struct {
		name     string
		dst      func(folder Block) ContainerID
		kind     Kind
		content  Content
		want     Content
		wantErr  error
		wantRoot []string
		wantIn   []string
	}{
		{
			name:     "note into folder",
			dst:      func(folder Block) ContainerID { return FolderContainer(folder.ID) },
			kind:     KindText,
			want:     Text{Content: "Click to edit text"},
			wantRoot: []string{"1", "2"},
			wantIn:   []string{"3"},
		},
		{
			name:     "link into folder",
			dst:      func(folder Block) ContainerID { return FolderContainer(folder.ID) },
			kind:     KindLink,
			content:  Link{Title: "Go", URL: "https://go.dev"},
			want:     Link{Title: "Go", URL: "https://go.dev"},
			wantRoot: []string{"1", "2"},
			wantIn:   []string{"3"},
		},
		{
			name:     "root",
			dst:      func(Block) ContainerID { return Root },
			kind:     KindFolder,
			want:     Folder{Name: "New Folder", Children: []Block{}},
			wantRoot: []string{"1", "2", "3"},
			wantIn:   []string{},
		},
		{
			name:     "folder into folder is rejected",
			dst:      func(folder Block) ContainerID { return FolderContainer(folder.ID) },
			kind:     KindFolder,
			wantErr:  ErrNestedFolder,
			wantRoot: []string{"1", "2"},
			wantIn:   []string{},
		},
		{
			name:     "unknown folder",
			dst:      func(Block) ContainerID { return FolderContainer("1") },
			kind:     KindText,
			wantErr:  ErrUnknownContainer,
			wantRoot: []string{"1", "2"},
			wantIn:   []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := newTestTree()
			mustCreate(t, tree, KindText, nil)
			folder := mustCreate(t, tree, KindFolder, nil)

			got, err := tree.CreateIn(tt.dst(folder), tt.kind, tt.content)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("CreateIn() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				assert.Equal(t, tt.want, got.Content)
				found, ok := tree.Find(got.ID)
				require.True(t, ok)
				assert.Equal(t, got, found)
			}

			assert.Equal(t, tt.wantRoot, ids(tree.Blocks()))
			in, err := tree.Items(FolderContainer(folder.ID))
			require.NoError(t, err)
			assert.Equal(t, tt.wantIn, ids(in))
		})
	}
}

func TestTree_Patch(t *testing.T) {
	tests := []struct {
		name    string
		start   Content
		patch   string
		want    Content
		wantErr bool
		errIs   error
	}{
		{
			name:  "link title keeps url",
			start: Link{Title: "Go", URL: "https://go.dev"},
			patch: `{"type":"link","title":"Golang"}`,
			want:  Link{Title: "Golang", URL: "https://go.dev"},
		},
		{
			name:  "link url keeps title",
			start: Link{Title: "Go", URL: "https://go.dev"},
			patch: `{"url":"https://pkg.go.dev"}`,
			want:  Link{Title: "Go", URL: "https://pkg.go.dev"},
		},
		{
			name:  "list title keeps items",
			start: List{Title: "Todo", Items: []string{"a", "b"}},
			patch: `{"title":"Done"}`,
			want:  List{Title: "Done", Items: []string{"a", "b"}},
		},
		{
			name:  "list items",
			start: List{Title: "Todo", Items: []string{"a"}},
			patch: `{"items":["x","  ","y"]}`,
			want:  List{Title: "Todo", Items: []string{"x", "y"}},
		},
		{
			name:  "important topics stay important",
			start: List{Title: "IMPORTANT TOPICS", Items: []string{"t"}, Important: true},
			patch: `{"type":"importantTopics","items":["graphs"]}`,
			want:  List{Title: "IMPORTANT TOPICS", Items: []string{"graphs"}, Important: true},
		},
		{
			name:  "id and creation time are ignored",
			start: Text{Content: "a"},
			patch: `{"id":"other","createdAt":"2000-01-01T00:00:00Z","content":"b"}`,
			want:  Text{Content: "b"},
		},
		{
			name:  "empty patch",
			start: Text{Content: "a"},
			patch: `{}`,
			want:  Text{Content: "a"},
		},
		{
			name:    "other type",
			start:   Text{Content: "a"},
			patch:   `{"type":"link","title":"x"}`,
			wantErr: true,
			errIs:   ErrKindMismatch,
		},
		{
			name:    "not an object",
			start:   Text{Content: "a"},
			patch:   `["content"]`,
			wantErr: true,
		},
		{
			name:    "wrong field type",
			start:   Link{Title: "Go", URL: "https://go.dev"},
			patch:   `{"title":5}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := newTestTree()
			b := mustCreate(t, tree, tt.start.Kind(), tt.start)

			got, err := tree.Patch(b.ID, []byte(tt.patch))
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					assert.Equal(t, tt.errIs, errors.Cause(err))
				} else {
					var parseErr *ParseError
					assert.True(t, errors.As(err, &parseErr), "got %v", err)
				}
				found, _ := tree.Find(b.ID)
				assert.Equal(t, tt.start, found.Content, "a failed patch changes nothing")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, b.ID, got.ID)
			assert.Equal(t, b.CreatedAt, got.CreatedAt)
			assert.Equal(t, tt.want, got.Content)
		})
	}
}

func TestTree_Patch_folderKeepsChildren(t *testing.T) {
	tree := newTestTree()
	note := mustCreate(t, tree, KindText, nil)
	folder := mustCreate(t, tree, KindFolder, nil)
	require.NoError(t, tree.Move(note.ID, Root, FolderContainer(folder.ID), 0))

	got, err := tree.Patch(folder.ID, []byte(`{"name":" Week 1 ","children":[]}`))
	require.NoError(t, err)
	assert.Equal(t, Folder{Name: "Week 1", Children: []Block{note}}, got.Content)

	_, err = tree.Patch("missing", []byte(`{}`))
	assert.Equal(t, ErrBlockNotFound, errors.Cause(err))
}
