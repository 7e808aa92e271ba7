package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestInsertIntoPath(t *testing.T) {
	doc := Document{}

	require.NoError(t, InsertIntoPath(doc, []string{"a"}, "1"))
	require.NoError(t, InsertIntoPath(doc, []string{"b", "c"}, "2"))
	require.NoError(t, InsertIntoPath(doc, []string{"b", "d"}, "3"))
	require.NoError(t, InsertIntoPath(doc, []string{"b", "e", "f"}, "4"))

	assert.Equal(t, "1", doc["a"])
	b, ok := doc["b"].(Document)
	require.True(t, ok)
	assert.Equal(t, "2", b["c"])
	assert.Equal(t, "3", b["d"])

	v, ok := Lookup(doc, []string{"b", "e", "f"})
	require.True(t, ok)
	assert.Equal(t, "4", v)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"1","b":{"c":"2","d":"3","e":{"f":"4"}}}`, string(data))
}

func TestInsertIntoPath_Errors(t *testing.T) {
	doc := Document{}
	require.NoError(t, InsertIntoPath(doc, []string{"a"}, "leaf"))
	require.NoError(t, InsertIntoPath(doc, []string{"b", "c"}, "x"))

	err := InsertIntoPath(doc, nil, "v")
	assert.ErrorIs(t, err, ErrEmptyPath)

	err = InsertIntoPath(doc, []string{"a", "child"}, "v")
	assert.ErrorIs(t, err, ErrPathConflict)
	assert.Equal(t, "leaf", doc["a"], "existing leaf must survive")

	err = InsertIntoPath(doc, []string{"b"}, "v")
	assert.ErrorIs(t, err, ErrPathConflict)
	_, ok := Lookup(doc, []string{"b", "c"})
	assert.True(t, ok, "existing branch must survive")

	assert.Error(t, InsertIntoPath(nil, []string{"a"}, "v"))
}

func TestInsertIntoPath_PlainMapBranch(t *testing.T) {
	doc := Document{"b": map[string]any{"c": "old"}}
	require.NoError(t, InsertIntoPath(doc, []string{"b", "d"}, "new"))

	inner := doc["b"].(map[string]any)
	assert.Equal(t, "old", inner["c"])
	assert.Equal(t, "new", inner["d"])
}

func TestLookup_Missing(t *testing.T) {
	doc := Document{"a": "1"}
	_, ok := Lookup(doc, []string{"a", "b"})
	assert.False(t, ok)
	_, ok = Lookup(doc, []string{"z"})
	assert.False(t, ok)
	_, ok = Lookup(doc, nil)
	assert.False(t, ok)
}

func TestProperty_InsertNeverOverwritesSiblings(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seg := rapid.StringMatching(`[a-c]`)
		// 叶子路径集合: 任意两条路径互不为前缀, 与 schema 展开结果一致
		n := rapid.IntRange(1, 20).Draw(rt, "n")
		var leaves [][]string
		for i := 0; i < n; i++ {
			depth := rapid.IntRange(1, 4).Draw(rt, "depth")
			path := make([]string, depth)
			for d := range path {
				path[d] = seg.Draw(rt, "seg")
			}
			if conflicts(leaves, path) {
				continue
			}
			leaves = append(leaves, path)
		}

		doc := Document{}
		for _, p := range leaves {
			if err := InsertIntoPath(doc, p, strings.Join(p, "/")); err != nil {
				rt.Fatalf("insert %v: %v", p, err)
			}
		}
		for _, p := range leaves {
			v, ok := Lookup(doc, p)
			if !ok || v != strings.Join(p, "/") {
				rt.Fatalf("path %v resolved to %v (found=%v)", p, v, ok)
			}
		}
	})
}

func conflicts(existing [][]string, path []string) bool {
	for _, e := range existing {
		if isPrefix(e, path) || isPrefix(path, e) {
			return true
		}
	}
	return false
}

func isPrefix(prefix, path []string) bool {
	if len(prefix) > len(path) {
		return false
	}
	for i := range prefix {
		if prefix[i] != path[i] {
			return false
		}
	}
	return true
}
