package schema

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// 单条路径上允许解析的 $ref 层数上限, 超出视为循环引用.
const maxRefDepth = 32

// ParseItems 将 schema 来源展开为按遍历顺序排列的叶子字段.
func ParseItems(src any) ([]Item, error) {
	var (
		items []Item
		err   error
	)
	switch s := src.(type) {
	case nil:
		return nil, fmt.Errorf("%w: schema is nil", ErrInvalidSchema)
	case string:
		items, err = parseJSONText(s)
	case []byte:
		items, err = parseJSONText(string(s))
	case *JSONSchema:
		if s == nil {
			return nil, fmt.Errorf("%w: schema is nil", ErrInvalidSchema)
		}
		items, err = parseJSONSchema(s)
	case JSONSchema:
		items, err = parseJSONSchema(&s)
	default:
		items, err = parseStruct(src)
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: schema has no fields", ErrInvalidSchema)
	}
	return items, nil
}

func appendPath(path []string, key string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = key
	return out
}

// =============================================================================
// JSON 文本
// =============================================================================

func parseJSONText(text string) ([]Item, error) {
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("%w: not a valid JSON document", ErrInvalidSchema)
	}
	root := gjson.Parse(text)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: root must be a JSON object", ErrInvalidSchema)
	}
	w := &jsonWalker{root: root}
	if err := w.walk(root, nil, 0); err != nil {
		return nil, err
	}
	return w.items, nil
}

type jsonWalker struct {
	root  gjson.Result
	items []Item
}

func (w *jsonWalker) walk(node gjson.Result, path []string, depth int) error {
	node, depth, err := w.resolve(node, depth)
	if err != nil {
		return err
	}

	// 空 properties 的对象按叶子处理, 与 JSONSchema 结构体一致
	if props := node.Get("properties"); props.IsObject() && len(props.Map()) > 0 {
		var walkErr error
		props.ForEach(func(key, value gjson.Result) bool {
			walkErr = w.walk(value, appendPath(path, key.String()), depth)
			return walkErr == nil
		})
		return walkErr
	}

	if len(path) == 0 {
		return fmt.Errorf("%w: root must declare properties", ErrInvalidSchema)
	}
	hint, err := w.typeHint(node, depth)
	if err != nil {
		return err
	}
	w.items = append(w.items, Item{Path: path, Type: hint})
	return nil
}

// resolve 展开 $ref 与单元素 allOf.
func (w *jsonWalker) resolve(node gjson.Result, depth int) (gjson.Result, int, error) {
	for {
		if depth > maxRefDepth {
			return node, depth, fmt.Errorf("%w: reference depth exceeds %d", ErrInvalidSchema, maxRefDepth)
		}
		if ref := node.Get("$ref"); ref.Exists() {
			target, err := w.lookupRef(ref.String())
			if err != nil {
				return node, depth, err
			}
			node = target
			depth++
			continue
		}
		if allOf := node.Get("allOf"); allOf.IsArray() {
			if parts := allOf.Array(); len(parts) == 1 {
				node = parts[0]
				depth++
				continue
			}
		}
		return node, depth, nil
	}
}

func (w *jsonWalker) lookupRef(ref string) (gjson.Result, error) {
	if !strings.HasPrefix(ref, "#/") {
		return gjson.Result{}, fmt.Errorf("%w: only local references are supported, got %q", ErrInvalidSchema, ref)
	}
	cur := w.root
	for _, seg := range strings.Split(strings.TrimPrefix(ref, "#/"), "/") {
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
		cur = cur.Get(escapeGJSON(seg))
		if !cur.Exists() {
			return gjson.Result{}, fmt.Errorf("%w: unresolved reference %q", ErrInvalidSchema, ref)
		}
	}
	return cur, nil
}

func (w *jsonWalker) typeHint(node gjson.Result, depth int) (string, error) {
	node, depth, err := w.resolve(node, depth)
	if err != nil {
		return "", err
	}
	typ := node.Get("type")
	switch {
	case typ.IsArray():
		var names []string
		for _, t := range typ.Array() {
			if t.String() != "null" {
				names = append(names, t.String())
			}
		}
		return joinTypes(names), nil
	case typ.Exists():
		return typ.String(), nil
	}

	for _, kw := range []string{"anyOf", "oneOf"} {
		variants := node.Get(kw)
		if !variants.IsArray() {
			continue
		}
		var names []string
		for _, v := range variants.Array() {
			name, err := w.typeHint(v, depth)
			if err != nil {
				return "", err
			}
			if name != "null" {
				names = append(names, name)
			}
		}
		return joinTypes(names), nil
	}
	return DefaultType, nil
}

func escapeGJSON(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', '$':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func joinTypes(names []string) string {
	if len(names) == 0 {
		return DefaultType
	}
	return strings.Join(names, " | ")
}

// =============================================================================
// JSONSchema 结构体
// =============================================================================

func parseJSONSchema(root *JSONSchema) ([]Item, error) {
	w := &schemaWalker{root: root}
	if err := w.walk(root, nil, 0); err != nil {
		return nil, err
	}
	return w.items, nil
}

type schemaWalker struct {
	root  *JSONSchema
	items []Item
}

func (w *schemaWalker) walk(node *JSONSchema, path []string, depth int) error {
	node, depth, err := w.resolve(node, depth)
	if err != nil {
		return err
	}

	if len(node.Properties) > 0 {
		for _, name := range orderedProperties(node) {
			if err := w.walk(node.Properties[name], appendPath(path, name), depth); err != nil {
				return err
			}
		}
		return nil
	}

	if len(path) == 0 {
		return fmt.Errorf("%w: root must declare properties", ErrInvalidSchema)
	}
	hint, err := w.typeHint(node, depth)
	if err != nil {
		return err
	}
	w.items = append(w.items, Item{Path: path, Type: hint})
	return nil
}

func (w *schemaWalker) resolve(node *JSONSchema, depth int) (*JSONSchema, int, error) {
	for {
		if node == nil {
			return &JSONSchema{}, depth, nil
		}
		if depth > maxRefDepth {
			return node, depth, fmt.Errorf("%w: reference depth exceeds %d", ErrInvalidSchema, maxRefDepth)
		}
		if node.Ref != "" {
			target, err := w.lookupRef(node.Ref)
			if err != nil {
				return node, depth, err
			}
			node = target
			depth++
			continue
		}
		if len(node.AllOf) == 1 {
			node = node.AllOf[0]
			depth++
			continue
		}
		return node, depth, nil
	}
}

func (w *schemaWalker) lookupRef(ref string) (*JSONSchema, error) {
	var defs map[string]*JSONSchema
	var name string
	switch {
	case strings.HasPrefix(ref, "#/$defs/"):
		defs, name = w.root.Defs, strings.TrimPrefix(ref, "#/$defs/")
	case strings.HasPrefix(ref, "#/definitions/"):
		defs, name = w.root.Definitions, strings.TrimPrefix(ref, "#/definitions/")
	default:
		return nil, fmt.Errorf("%w: unsupported reference %q", ErrInvalidSchema, ref)
	}
	target, ok := defs[name]
	if !ok || target == nil {
		return nil, fmt.Errorf("%w: unresolved reference %q", ErrInvalidSchema, ref)
	}
	return target, nil
}

func (w *schemaWalker) typeHint(node *JSONSchema, depth int) (string, error) {
	node, depth, err := w.resolve(node, depth)
	if err != nil {
		return "", err
	}
	if node.Type != "" {
		return node.Type, nil
	}
	for _, variants := range [][]*JSONSchema{node.AnyOf, node.OneOf} {
		if len(variants) == 0 {
			continue
		}
		var names []string
		for _, v := range variants {
			name, err := w.typeHint(v, depth)
			if err != nil {
				return "", err
			}
			if name != "null" {
				names = append(names, name)
			}
		}
		return joinTypes(names), nil
	}
	return DefaultType, nil
}

func orderedProperties(s *JSONSchema) []string {
	names := make([]string, 0, len(s.Properties))
	seen := make(map[string]struct{}, len(s.Properties))
	for _, name := range s.PropertyOrder {
		if _, ok := s.Properties[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	var rest []string
	for name := range s.Properties {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// =============================================================================
// Go 结构体
// =============================================================================

var timeType = reflect.TypeOf(time.Time{})

func parseStruct(v any) ([]Item, error) {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: unsupported schema source %T", ErrInvalidSchema, v)
	}
	var items []Item
	if err := walkStruct(t, nil, make(map[reflect.Type]bool), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func walkStruct(t reflect.Type, path []string, visiting map[reflect.Type]bool, out *[]Item) error {
	if visiting[t] {
		return fmt.Errorf("%w: recursive type %s", ErrInvalidSchema, t)
	}
	visiting[t] = true
	defer delete(visiting, t)

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}

		// 与 encoding/json 一致: 无标签的嵌入结构体字段提升到外层
		if f.Anonymous && tag == "" && ft.Kind() == reflect.Struct {
			if err := walkStruct(ft, path, visiting, out); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() {
			continue
		}

		name := strings.Split(tag, ",")[0]
		if name == "" {
			name = f.Name
		}
		fieldPath := appendPath(path, name)

		if ft.Kind() == reflect.Struct && ft != timeType {
			if err := walkStruct(ft, fieldPath, visiting, out); err != nil {
				return err
			}
			continue
		}
		*out = append(*out, Item{Path: fieldPath, Type: goTypeHint(ft)})
	}
	return nil
}

func goTypeHint(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return "string"
		}
		return "array"
	case reflect.Map:
		return "object"
	default:
		return DefaultType
	}
}
