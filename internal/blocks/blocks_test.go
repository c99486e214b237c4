package blocks

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMove_ImageUp(t *testing.T) {
	doc := Document{Blocks: []Block{
		{ID: "t", Type: TypeText, Content: Text{Body: "hello"}, Order: 0},
		{ID: "i", Type: TypeImage, Content: Media{URL: "x"}, Order: 1},
	}}

	require.True(t, doc.Move("i", Up))

	want := Document{Blocks: []Block{
		{ID: "i", Type: TypeImage, Content: Media{URL: "x"}, Order: 0},
		{ID: "t", Type: TypeText, Content: Text{Body: "hello"}, Order: 1},
	}}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestMove_Boundaries(t *testing.T) {
	doc := Document{}
	first, _ := doc.Add(TypeText, Text{Body: "a"})
	last, _ := doc.Add(TypeText, Text{Body: "b"})

	assert.False(t, doc.Move(first, Up))
	assert.False(t, doc.Move(last, Down))
	assert.False(t, doc.Move("missing", Up))
	assert.Equal(t, first, doc.Blocks[0].ID)
}

func TestAdd_AssignsNextPosition(t *testing.T) {
	doc := Document{}
	a, err := doc.Add(TypeText, Text{Body: "a"})
	require.NoError(t, err)
	b, err := doc.Add(TypeList, nil)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	blk, ok := doc.Get(b)
	require.True(t, ok)
	assert.Equal(t, 1, blk.Order)
	assert.Equal(t, List{Items: []string{}}, blk.Content)
}

func TestAdd_RejectsMismatch(t *testing.T) {
	doc := Document{}
	_, err := doc.Add(TypeImage, Text{Body: "nope"})
	assert.Error(t, err)
	_, err = doc.Add(Type("quote"), Text{})
	assert.Error(t, err)
	assert.Equal(t, 0, doc.Len())
}

func TestUpdate(t *testing.T) {
	doc := Document{}
	id, _ := doc.Add(TypeImage, Media{URL: "a.png"})
	doc.Add(TypeText, Text{Body: "after"})

	assert.True(t, doc.Update(id, Media{URL: "b.png", Caption: "new"}))
	blk, _ := doc.Get(id)
	assert.Equal(t, Media{URL: "b.png", Caption: "new"}, blk.Content)
	assert.Equal(t, TypeImage, blk.Type)
	assert.Equal(t, 0, blk.Order)

	assert.False(t, doc.Update("missing", Text{}))
	assert.False(t, doc.Update(id, List{}))
	blk, _ = doc.Get(id)
	assert.Equal(t, Media{URL: "b.png", Caption: "new"}, blk.Content)
}

func TestRemove_KeepsRelativeOrder(t *testing.T) {
	doc := Document{}
	a, _ := doc.Add(TypeText, Text{Body: "a"})
	b, _ := doc.Add(TypeText, Text{Body: "b"})
	c, _ := doc.Add(TypeText, Text{Body: "c"})

	require.True(t, doc.Remove(b))
	assert.False(t, doc.Remove(b))
	require.Equal(t, 2, doc.Len())
	assert.Equal(t, a, doc.Blocks[0].ID)
	assert.Equal(t, c, doc.Blocks[1].ID)
	assert.Equal(t, 0, doc.Blocks[0].Order)
	assert.Equal(t, 1, doc.Blocks[1].Order)
}

const wellFormed = `{"blocks":[
	{"id":"1","type":"text","content":"hello","order":0},
	{"id":"2","type":"image","content":{"url":"https://x/y.png","caption":"cap","alt":"y.png"},"order":1},
	{"id":"3","type":"youtube","content":{"url":"https://youtu.be/abc123","caption":""},"order":2},
	{"id":"4","type":"drive","content":{"url":"https://drive.google.com/file/d/FILE_1/view"},"order":3},
	{"id":"5","type":"list","content":{"ordered":true,"items":["a","b"]},"order":4}
]}`

func semantic(t *testing.T, data []byte) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func TestRoundTrip(t *testing.T) {
	doc, err := Deserialize([]byte(wellFormed))
	require.NoError(t, err)
	require.Equal(t, 5, doc.Len())

	out, err := Serialize(doc)
	require.NoError(t, err)

	// An empty caption is omitted on the way out, which is the only
	// normalisation applied.
	want := semantic(t, []byte(wellFormed))
	want.(map[string]any)["blocks"].([]any)[2].(map[string]any)["content"] = map[string]any{"url": "https://youtu.be/abc123"}
	if diff := cmp.Diff(want, semantic(t, out)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip_Exact(t *testing.T) {
	in := `{"blocks":[{"id":"b","type":"list","content":{"ordered":false,"items":[]},"order":0},{"id":"a","type":"text","content":"x","order":1}]}`
	doc, err := Deserialize([]byte(in))
	require.NoError(t, err)
	out, err := Serialize(doc)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestParse_DropsUnknownTypes(t *testing.T) {
	in := `{"blocks":[
		{"id":"1","type":"text","content":"one","order":0},
		{"id":"2","type":"quote","content":"wise words","order":1},
		{"id":"3","type":"text","content":"three","order":2}
	]}`
	doc, dropped, err := Parse([]byte(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"2"}, dropped)
	require.Equal(t, 2, doc.Len())
	assert.Equal(t, "1", doc.Blocks[0].ID)
	assert.Equal(t, "3", doc.Blocks[1].ID)
}

func TestParse_DropsUndecodableContent(t *testing.T) {
	in := `{"blocks":[{"id":"1","type":"image","content":"not an object","order":0}]}`
	doc, dropped, err := Parse([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())
	assert.Equal(t, []string{"1"}, dropped)
}

func TestParse_SortsByOrder(t *testing.T) {
	in := `{"blocks":[{"id":"b","type":"text","content":"b","order":5},{"id":"a","type":"text","content":"a","order":2}]}`
	doc, err := Deserialize([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, "a", doc.Blocks[0].ID)
	assert.Equal(t, 2, doc.Blocks[0].Order)
}

func TestParse_EmptyAndNull(t *testing.T) {
	for _, in := range []string{"", "null", "  ", `{"blocks":null}`} {
		doc, err := Deserialize([]byte(in))
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, 0, doc.Len())
	}
	out, err := Serialize(Document{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"blocks":[]}`, string(out))
}

func TestParse_Stringified(t *testing.T) {
	inner := `{"blocks":[{"id":"1","type":"text","content":"hi","order":0}]}`
	wrapped, _ := json.Marshal(inner)
	doc, err := Deserialize(wrapped)
	require.NoError(t, err)
	require.Equal(t, 1, doc.Len())
	assert.Equal(t, Text{Body: "hi"}, doc.Blocks[0].Content)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Deserialize([]byte(`{"blocks":`))
	assert.Error(t, err)
}

func TestScanValue(t *testing.T) {
	doc, err := Deserialize([]byte(wellFormed))
	require.NoError(t, err)

	v, err := doc.Value()
	require.NoError(t, err)

	var fromString Document
	require.NoError(t, fromString.Scan(v))
	var fromBytes Document
	require.NoError(t, fromBytes.Scan([]byte(v.(string))))
	var fromNil Document
	require.NoError(t, fromNil.Scan(nil))

	if diff := cmp.Diff(doc, fromString); diff != "" {
		t.Errorf("scan(string) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(doc, fromBytes); diff != "" {
		t.Errorf("scan([]byte) mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, fromNil.Len())
	assert.Error(t, fromNil.Scan(42))
}

func TestClone_IsDeep(t *testing.T) {
	doc := Document{}
	id, _ := doc.Add(TypeList, List{Items: []string{"a"}})
	cp := doc.Clone()
	doc.Update(id, List{Items: []string{"changed"}})

	blk, _ := cp.Get(id)
	assert.Equal(t, []string{"a"}, blk.Content.(List).Items)
}

func TestDecodeContent(t *testing.T) {
	c, err := DecodeContent(TypeText, json.RawMessage(`"hi"`))
	require.NoError(t, err)
	assert.Equal(t, Text{Body: "hi"}, c)

	c, err = DecodeContent(TypeYouTube, json.RawMessage(`{"url":"https://youtu.be/abc"}`))
	require.NoError(t, err)
	assert.Equal(t, Media{URL: "https://youtu.be/abc"}, c)

	c, err = DecodeContent(TypeList, json.RawMessage(`{"ordered":true}`))
	require.NoError(t, err)
	assert.Equal(t, List{Ordered: true, Items: []string{}}, c)

	_, err = DecodeContent(TypeText, json.RawMessage(`{"url":"x"}`))
	assert.ErrorContains(t, err, "decode text content")

	_, err = DecodeContent("video", json.RawMessage(`{}`))
	assert.Error(t, err)
}
