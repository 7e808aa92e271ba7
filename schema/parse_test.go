package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paths(items []Item) [][]string {
	out := make([][]string, len(items))
	for i, item := range items {
		out[i] = item.Path
	}
	return out
}

func TestParseItems_JSONText(t *testing.T) {
	src := `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"age": {"type": "integer"},
			"address": {
				"type": "object",
				"properties": {
					"zip": {"type": "string"},
					"city": {}
				}
			},
			"tags": {"type": "array", "items": {"type": "string"}}
		}
	}`

	items, err := ParseItems(src)
	require.NoError(t, err)

	// 保留文档中的属性顺序
	assert.Equal(t, [][]string{
		{"name"}, {"age"}, {"address", "zip"}, {"address", "city"}, {"tags"},
	}, paths(items))
	assert.Equal(t, "string", items[0].Type)
	assert.Equal(t, "integer", items[1].Type)
	assert.Equal(t, DefaultType, items[3].Type)
	assert.Equal(t, "array", items[4].Type)

	fromBytes, err := ParseItems([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, items, fromBytes)
}

func TestParseItems_JSONTextRefsAndUnions(t *testing.T) {
	// pydantic 风格: 嵌套模型通过 $defs 引用, Optional 字段使用 anyOf + null
	src := `{
		"$defs": {
			"Address": {
				"properties": {
					"street": {"type": "string"},
					"number": {"anyOf": [{"type": "integer"}, {"type": "null"}]}
				}
			}
		},
		"properties": {
			"home": {"$ref": "#/$defs/Address"},
			"work": {"allOf": [{"$ref": "#/$defs/Address"}]},
			"score": {"type": ["number", "null"]},
			"id": {"oneOf": [{"type": "string"}, {"type": "integer"}]}
		}
	}`

	items, err := ParseItems(src)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"home", "street"}, {"home", "number"},
		{"work", "street"}, {"work", "number"},
		{"score"}, {"id"},
	}, paths(items))
	assert.Equal(t, "integer", items[1].Type)
	assert.Equal(t, "number", items[4].Type)
	assert.Equal(t, "string | integer", items[5].Type)
}

func TestParseItems_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  any
	}{
		{name: "nil", src: nil},
		{name: "nil schema pointer", src: (*JSONSchema)(nil)},
		{name: "invalid json", src: `{"properties": `},
		{name: "json array root", src: `[1, 2]`},
		{name: "no properties", src: `{"type": "string"}`},
		{name: "empty properties", src: `{"properties": {}}`},
		{name: "remote ref", src: `{"properties": {"a": {"$ref": "http://example.com/s.json"}}}`},
		{name: "unresolved ref", src: `{"properties": {"a": {"$ref": "#/$defs/Missing"}}}`},
		{name: "recursive ref", src: `{"$defs": {"N": {"properties": {"next": {"$ref": "#/$defs/N"}}}}, "properties": {"root": {"$ref": "#/$defs/N"}}}`},
		{name: "unsupported source", src: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseItems(tt.src)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSchema)
		})
	}
}

func TestParseItems_EmptyNestedObjectIsLeaf(t *testing.T) {
	items, err := ParseItems(`{"properties": {"name": {"type": "string"}, "meta": {"type": "object", "properties": {}}}}`)
	require.NoError(t, err)
	assert.Equal(t, []Item{
		{Path: []string{"name"}, Type: "string"},
		{Path: []string{"meta"}, Type: "object"},
	}, items)

	root := NewObjectSchema().
		AddProperty("name", NewStringSchema()).
		AddProperty("meta", NewObjectSchema())
	fromSchema, err := ParseItems(root)
	require.NoError(t, err)
	assert.Equal(t, items, fromSchema)
}

func TestJSONSchema_WithDescription(t *testing.T) {
	root := NewObjectSchema().
		WithDescription("a person").
		AddProperty("name", NewStringSchema().WithDescription("full name"))

	assert.Equal(t, "a person", root.Description)
	assert.Equal(t, "full name", root.Properties["name"].Description)

	// 描述不影响字段展开
	items, err := ParseItems(root)
	require.NoError(t, err)
	assert.Equal(t, []Item{{Path: []string{"name"}, Type: "string"}}, items)
}

func TestParseItems_JSONSchema(t *testing.T) {
	address := NewObjectSchema().
		AddProperty("street", NewStringSchema()).
		AddProperty("number", NewTypedSchema("integer"))

	root := NewObjectSchema().
		AddProperty("name", NewStringSchema()).
		AddProperty("address", &JSONSchema{Ref: "#/$defs/Address"})
	root.Defs = map[string]*JSONSchema{"Address": address}

	items, err := ParseItems(root)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"name"}, {"address", "street"}, {"address", "number"}}, paths(items))
	assert.Equal(t, "integer", items[2].Type)

	// 值类型同样支持
	byValue, err := ParseItems(*root)
	require.NoError(t, err)
	assert.Equal(t, items, byValue)
}

func TestParseItems_JSONSchemaWithoutOrderIsSorted(t *testing.T) {
	root := &JSONSchema{
		Type: "object",
		Properties: map[string]*JSONSchema{
			"zeta":  {Type: "string"},
			"alpha": {Type: "boolean"},
			"mid":   nil,
		},
	}
	items, err := ParseItems(root)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"alpha"}, {"mid"}, {"zeta"}}, paths(items))
	assert.Equal(t, DefaultType, items[1].Type)
}

type person struct {
	Base
	Name     string    `json:"name"`
	Age      int       `json:"age,omitempty"`
	Height   float64   `json:"height"`
	Active   bool      `json:"active"`
	Tags     []string  `json:"tags"`
	Born     time.Time `json:"born"`
	Address  *address  `json:"address"`
	Ignored  string    `json:"-"`
	NoTag    string
	internal string
}

type Base struct {
	ID string `json:"id"`
}

type address struct {
	City string `json:"city"`
}

type loop struct {
	Next *loop `json:"next"`
}

func TestParseItems_Struct(t *testing.T) {
	items, err := ParseItems(&person{})
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"id"}, {"name"}, {"age"}, {"height"}, {"active"}, {"tags"}, {"born"}, {"address", "city"}, {"NoTag"},
	}, paths(items))

	types := make(map[string]string)
	for _, item := range items {
		types[item.DottedPath()] = item.Type
	}
	assert.Equal(t, "integer", types["age"])
	assert.Equal(t, "number", types["height"])
	assert.Equal(t, "boolean", types["active"])
	assert.Equal(t, "array", types["tags"])
	assert.Equal(t, "string", types["born"])
	assert.Equal(t, "string", types["address.city"])

	_, err = ParseItems(loop{})
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestItem_KeyAndDottedPath(t *testing.T) {
	item := Item{Path: []string{"b", "c"}, Type: "string"}
	assert.Equal(t, "c", item.Key())
	assert.Equal(t, "b.c", item.DottedPath())
	assert.Equal(t, "", Item{}.Key())
}
