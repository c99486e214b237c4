package blocks

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// wireBlock is the persisted shape of a block.
type wireBlock struct {
	ID      string          `json:"id"`
	Type    Type            `json:"type"`
	Content json.RawMessage `json:"content"`
	Order   int             `json:"order"`
}

type wireDocument struct {
	Blocks []wireBlock `json:"blocks"`
}

// MarshalJSON encodes the document as {"blocks": [...]}.
func (d Document) MarshalJSON() ([]byte, error) {
	w := wireDocument{Blocks: make([]wireBlock, 0, len(d.Blocks))}
	for _, b := range d.Blocks {
		raw, err := encodeContent(b.Content)
		if err != nil {
			return nil, fmt.Errorf("blocks: encode %s: %w", b.ID, err)
		}
		w.Blocks = append(w.Blocks, wireBlock{ID: b.ID, Type: b.Type, Content: raw, Order: b.Order})
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a document, dropping blocks it cannot represent.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, _, err := Parse(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

func encodeContent(c Content) ([]byte, error) {
	switch v := c.(type) {
	case Text:
		return json.Marshal(v.Body)
	case Media:
		return json.Marshal(v)
	case List:
		if v.Items == nil {
			v.Items = []string{}
		}
		return json.Marshal(v)
	case nil:
		return nil, fmt.Errorf("missing content")
	default:
		return nil, fmt.Errorf("unsupported content %T", c)
	}
}

// DecodeContent decodes the JSON content of one block of type t, in the same
// shape the document codec uses.
func DecodeContent(t Type, raw json.RawMessage) (Content, error) {
	c, err := decodeContent(t, raw)
	if err != nil {
		return nil, fmt.Errorf("blocks: decode %s content: %w", t, err)
	}
	return c, nil
}

func decodeContent(t Type, raw json.RawMessage) (Content, error) {
	switch t {
	case TypeText:
		var s string
		if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, err
			}
		}
		return Text{Body: s}, nil
	case TypeImage, TypeYouTube, TypeDrive:
		var m Media
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeList:
		var l List
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, err
		}
		if l.Items == nil {
			l.Items = []string{}
		}
		return l, nil
	}
	return nil, fmt.Errorf("unknown block type %q", t)
}

// Parse decodes a persisted document. Blocks of unknown type, or whose
// content does not decode for their type, are left out and their ids
// returned as dropped. Empty and null input yield an empty document. A
// document that was stringified into a text column is unwrapped first.
func Parse(data []byte) (Document, []string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Document{}, nil, nil
	}
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return Document{}, nil, fmt.Errorf("blocks: parse: %w", err)
		}
		return Parse([]byte(inner))
	}

	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return Document{}, nil, fmt.Errorf("blocks: parse: %w", err)
	}

	var (
		doc     Document
		dropped []string
	)
	for _, wb := range w.Blocks {
		if !wb.Type.Known() {
			dropped = append(dropped, wb.ID)
			continue
		}
		c, err := decodeContent(wb.Type, wb.Content)
		if err != nil {
			dropped = append(dropped, wb.ID)
			continue
		}
		doc.Blocks = append(doc.Blocks, Block{ID: wb.ID, Type: wb.Type, Content: c, Order: wb.Order})
	}
	sort.SliceStable(doc.Blocks, func(i, j int) bool { return doc.Blocks[i].Order < doc.Blocks[j].Order })
	return doc, dropped, nil
}

// Serialize returns the persisted JSON form of d.
func Serialize(d Document) ([]byte, error) {
	return d.MarshalJSON()
}

// Deserialize is Parse without the dropped ids.
func Deserialize(data []byte) (Document, error) {
	doc, _, err := Parse(data)
	return doc, err
}

// Value implements driver.Valuer so a Document fits a JSON column.
func (d Document) Value() (driver.Value, error) {
	data, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (d *Document) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*d = Document{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("blocks: cannot scan %T into Document", value)
	}
	doc, _, err := Parse(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}
