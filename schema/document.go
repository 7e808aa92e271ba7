package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Document 是嵌套输出文档, 值为 Document 或叶子值.
type Document map[string]any

// InsertIntoPath 将 value 写入 doc 中 path 指定的位置, 按需创建中间层.
// 已存在的兄弟分支不会被覆盖; 路径前缀已是叶子值或目标位置已是嵌套对象时返回 ErrPathConflict.
func InsertIntoPath(doc Document, path []string, value any) error {
	if doc == nil {
		return errors.New("insert into nil document")
	}
	if len(path) == 0 {
		return ErrEmptyPath
	}

	cur := doc
	for i, key := range path[:len(path)-1] {
		next, ok := cur[key]
		if !ok {
			child := Document{}
			cur[key] = child
			cur = child
			continue
		}
		child, ok := asDocument(next)
		if !ok {
			return fmt.Errorf("%w: %q already holds a value", ErrPathConflict, strings.Join(path[:i+1], "."))
		}
		cur = child
	}

	last := path[len(path)-1]
	if existing, ok := cur[last]; ok {
		if _, nested := asDocument(existing); nested {
			return fmt.Errorf("%w: %q is a nested object", ErrPathConflict, strings.Join(path, "."))
		}
	}
	cur[last] = value
	return nil
}

// Lookup 返回 path 处的值.
func Lookup(doc Document, path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	var cur any = doc
	for _, key := range path {
		d, ok := asDocument(cur)
		if !ok {
			return nil, false
		}
		cur, ok = d[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asDocument(v any) (Document, bool) {
	switch d := v.(type) {
	case Document:
		return d, true
	case map[string]any:
		return Document(d), true
	}
	return nil, false
}
