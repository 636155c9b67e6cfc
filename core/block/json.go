package block

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ParseError reports persisted block data that cannot be decoded.
// Callers treat it as "no workspace data".
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "parsing blocks: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

type header struct {
	ID        string    `json:"id"`
	Type      Kind      `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// wireBlock is the union of every kind's fields, used for decoding.
type wireBlock struct {
	header
	File     *UploadedFile `json:"file"`
	Title    string        `json:"title"`
	URL      string        `json:"url"`
	Content  string        `json:"content"`
	Items    []string      `json:"items"`
	Name     string        `json:"name"`
	Children []Block       `json:"children"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	h := header{ID: b.ID, Type: b.Kind(), CreatedAt: b.CreatedAt}

	switch c := b.Content.(type) {
	case File:
		return json.Marshal(struct {
			header
			File UploadedFile `json:"file"`
		}{h, c.UploadedFile})
	case Link:
		return json.Marshal(struct {
			header
			Title string `json:"title"`
			URL   string `json:"url"`
		}{h, c.Title, c.URL})
	case Text:
		return json.Marshal(struct {
			header
			Content string `json:"content"`
		}{h, c.Content})
	case List:
		items := c.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(struct {
			header
			Title string   `json:"title"`
			Items []string `json:"items"`
		}{h, c.Title, items})
	case Folder:
		children := c.Children
		if children == nil {
			children = []Block{}
		}
		return json.Marshal(struct {
			header
			Name     string  `json:"name"`
			Children []Block `json:"children"`
		}{h, c.Name, children})
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "encoding block %q", b.ID)
	}
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var w wireBlock
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var c Content
	switch w.Type {
	case KindFile:
		if w.File == nil {
			return errors.Wrapf(ErrFileRequired, "decoding block %q", w.ID)
		}
		c = File{UploadedFile: *w.File}
	case KindLink:
		c = Link{Title: w.Title, URL: w.URL}
	case KindText:
		c = Text{Content: w.Content}
	case KindList, KindImportantTopics:
		items := w.Items
		if items == nil {
			items = []string{}
		}
		c = List{Title: w.Title, Items: items, Important: w.Type == KindImportantTopics}
	case KindFolder:
		children := w.Children
		if children == nil {
			children = []Block{}
		}
		c = Folder{Name: w.Name, Children: children}
	default:
		return errors.Wrapf(ErrUnknownKind, "decoding block %q of type %q", w.ID, w.Type)
	}

	*b = Block{ID: w.ID, CreatedAt: w.CreatedAt, Content: c}
	return nil
}

// PatchContent returns the content of b with the fields present in patch, a JSON object
// in the block encoding, replaced. The id and creation time cannot be patched, and a
// type, if given, must be b's. A malformed patch yields a *ParseError.
func PatchContent(b Block, patch []byte) (Content, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return nil, &ParseError{Err: err}
	}
	if raw, ok := fields["type"]; ok {
		var kind Kind
		if err := json.Unmarshal(raw, &kind); err != nil {
			return nil, &ParseError{Err: err}
		}
		if kind != b.Kind() {
			return nil, errors.Wrapf(ErrKindMismatch, "patching %q block as %q", b.Kind(), kind)
		}
	}

	current, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	var merged map[string]json.RawMessage
	if err = json.Unmarshal(current, &merged); err != nil {
		return nil, err
	}
	for name, raw := range fields {
		switch name {
		case "id", "type", "createdAt":
			continue
		}
		merged[name] = raw
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	var patched Block
	if err = json.Unmarshal(data, &patched); err != nil {
		return nil, &ParseError{Err: err}
	}
	return patched.Content, nil
}

// Serialize encodes blocks as a JSON array.
func Serialize(blocks []Block) (string, error) {
	if blocks == nil {
		blocks = []Block{}
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		return "", errors.Wrap(err, "serializing blocks")
	}
	return string(data), nil
}

// Deserialize decodes the output of Serialize. An empty input is an empty workspace.
// Any malformed or invalid input yields a *ParseError.
func Deserialize(s string) ([]Block, error) {
	if strings.TrimSpace(s) == "" {
		return []Block{}, nil
	}
	var blocks []Block
	if err := json.Unmarshal([]byte(s), &blocks); err != nil {
		return nil, &ParseError{Err: err}
	}
	if blocks == nil {
		blocks = []Block{}
	}
	if err := Validate(blocks); err != nil {
		return nil, &ParseError{Err: err}
	}
	return blocks, nil
}
