package prompts

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrUnknownPlaceholder = errors.New("unknown template placeholder")
	ErrMalformedTemplate  = errors.New("malformed template")
)

// Format 按名称替换模板中的 {name} 占位符.
func Format(template string, args map[string]any) (string, error) {
	var sb strings.Builder
	sb.Grow(len(template))

	err := scan(template, func(literal string) {
		sb.WriteString(literal)
	}, func(name string) error {
		v, ok := args[name]
		if !ok {
			return fmt.Errorf("%w: {%s}", ErrUnknownPlaceholder, name)
		}
		sb.WriteString(fmt.Sprint(v))
		return nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Placeholders 返回模板中出现的占位符名称, 按首次出现顺序去重.
func Placeholders(template string) ([]string, error) {
	var names []string
	seen := make(map[string]struct{})
	err := scan(template, func(string) {}, func(name string) error {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// scan 遍历模板, 对字面量与占位符分别回调.
func scan(template string, literal func(string), field func(string) error) error {
	start := 0
	for i := 0; i < len(template); {
		r, size := utf8.DecodeRuneInString(template[i:])
		switch r {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				literal(template[start:i] + "{")
				i += 2
				start = i
				continue
			}
			end := strings.IndexAny(template[i+1:], "{}")
			if end < 0 || template[i+1+end] != '}' {
				return fmt.Errorf("%w: unmatched '{' at offset %d", ErrMalformedTemplate, i)
			}
			name := template[i+1 : i+1+end]
			if err := checkFieldName(name, i); err != nil {
				return err
			}
			literal(template[start:i])
			if err := field(name); err != nil {
				return err
			}
			i += end + 2
			start = i
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				literal(template[start:i] + "}")
				i += 2
				start = i
				continue
			}
			return fmt.Errorf("%w: single '}' at offset %d", ErrMalformedTemplate, i)
		default:
			i += size
		}
	}
	literal(template[start:])
	return nil
}

func checkFieldName(name string, offset int) error {
	if strings.ContainsAny(name, ":!") {
		return fmt.Errorf("%w: format spec in {%s} at offset %d is not supported", ErrMalformedTemplate, name, offset)
	}
	if name == "" {
		return fmt.Errorf("%w: positional field {} at offset %d", ErrUnknownPlaceholder, offset)
	}
	if name[0] >= '0' && name[0] <= '9' {
		return fmt.Errorf("%w: positional field {%s} at offset %d", ErrUnknownPlaceholder, name, offset)
	}
	return nil
}
