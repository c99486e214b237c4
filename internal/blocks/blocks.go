// Package blocks models a rich content field as an ordered document of typed
// blocks (text, image, embedded video, list) stored as a single JSON value.
package blocks

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Type tags a block's content variant.
type Type string

const (
	TypeText    Type = "text"
	TypeImage   Type = "image"
	TypeYouTube Type = "youtube"
	TypeDrive   Type = "drive"
	TypeList    Type = "list"
)

// Known reports whether t is a block type this package understands.
func (t Type) Known() bool {
	switch t {
	case TypeText, TypeImage, TypeYouTube, TypeDrive, TypeList:
		return true
	}
	return false
}

// Embed reports whether t is an embedded video type.
func (t Type) Embed() bool { return t == TypeYouTube || t == TypeDrive }

// Content is the payload of a block. It is implemented only by Text, Media
// and List.
type Content interface {
	isContent()
}

// Text is a plain text paragraph.
type Text struct {
	Body string
}

// Media is an image or an embedded video.
type Media struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
	Alt     string `json:"alt,omitempty"`
}

// List is a bulleted or numbered list.
type List struct {
	Ordered bool     `json:"ordered"`
	Items   []string `json:"items"`
}

func (Text) isContent()  {}
func (Media) isContent() {}
func (List) isContent()  {}

// Block is one independently editable unit of a document.
type Block struct {
	ID      string
	Type    Type
	Content Content
	Order   int
}

// Document is an ordered sequence of blocks owned by one entity field.
type Document struct {
	Blocks []Block
}

// Direction is the way Move shifts a block.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// fits checks that a content variant matches a block type.
func fits(t Type, c Content) bool {
	switch c.(type) {
	case Text:
		return t == TypeText
	case Media:
		return t == TypeImage || t == TypeYouTube || t == TypeDrive
	case List:
		return t == TypeList
	}
	return false
}

// Zero returns the empty content for a block type.
func Zero(t Type) (Content, error) {
	switch t {
	case TypeText:
		return Text{}, nil
	case TypeImage, TypeYouTube, TypeDrive:
		return Media{}, nil
	case TypeList:
		return List{Items: []string{}}, nil
	}
	return nil, fmt.Errorf("blocks: unknown block type %q", t)
}

// Len returns the number of blocks.
func (d *Document) Len() int { return len(d.Blocks) }

// Get returns the block with the given id.
func (d *Document) Get(id string) (Block, bool) {
	if i := d.index(id); i >= 0 {
		return d.Blocks[i], true
	}
	return Block{}, false
}

// Add appends a block with the next position and returns its id. A nil
// content starts the block empty.
func (d *Document) Add(t Type, c Content) (string, error) {
	if !t.Known() {
		return "", fmt.Errorf("blocks: unknown block type %q", t)
	}
	if c == nil {
		c, _ = Zero(t)
	}
	if !fits(t, c) {
		return "", fmt.Errorf("blocks: %T content does not fit a %s block", c, t)
	}
	d.sort()
	b := Block{ID: uuid.NewString(), Type: t, Content: c, Order: len(d.Blocks)}
	d.Blocks = append(d.Blocks, b)
	d.renormalize()
	return b.ID, nil
}

// Update replaces a block's content in place. It returns false and leaves
// the document untouched when the id is unknown or the content does not fit
// the block's type.
func (d *Document) Update(id string, c Content) bool {
	i := d.index(id)
	if i < 0 || c == nil || !fits(d.Blocks[i].Type, c) {
		return false
	}
	d.Blocks[i].Content = c
	return true
}

// Move swaps a block with its neighbour in the given direction. It is a
// no-op at either end of the document.
func (d *Document) Move(id string, dir Direction) bool {
	d.sort()
	i := d.index(id)
	if i < 0 {
		return false
	}
	j := i - 1
	if dir == Down {
		j = i + 1
	}
	if j < 0 || j >= len(d.Blocks) {
		return false
	}
	d.Blocks[i], d.Blocks[j] = d.Blocks[j], d.Blocks[i]
	d.renormalize()
	return true
}

// Remove deletes a block, keeping the relative order of the rest.
func (d *Document) Remove(id string) bool {
	d.sort()
	i := d.index(id)
	if i < 0 {
		return false
	}
	d.Blocks = append(d.Blocks[:i], d.Blocks[i+1:]...)
	d.renormalize()
	return true
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := Document{Blocks: make([]Block, len(d.Blocks))}
	for i, b := range d.Blocks {
		if l, ok := b.Content.(List); ok {
			l.Items = append([]string(nil), l.Items...)
			b.Content = l
		}
		out.Blocks[i] = b
	}
	return out
}

func (d *Document) index(id string) int {
	for i, b := range d.Blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (d *Document) sort() {
	sort.SliceStable(d.Blocks, func(i, j int) bool { return d.Blocks[i].Order < d.Blocks[j].Order })
}

func (d *Document) renormalize() {
	for i := range d.Blocks {
		d.Blocks[i].Order = i
	}
}
