package schema

import (
	"errors"
	"strings"
)

var (
	ErrInvalidSchema = errors.New("invalid schema")
	ErrInvalidDAG    = errors.New("invalid dependency graph")
	ErrEmptyPath     = errors.New("empty path")
	ErrPathConflict  = errors.New("path conflict")
)

// DefaultType 未声明类型的叶子字段使用的类型提示.
const DefaultType = "string"

// Item 是 schema 中的单个叶子字段.
type Item struct {
	Path []string `json:"path"`
	Type string   `json:"type"`
}

// Key 返回字段路径的最后一段.
func (i Item) Key() string {
	if len(i.Path) == 0 {
		return ""
	}
	return i.Path[len(i.Path)-1]
}

// DottedPath 返回以点号连接的完整路径.
func (i Item) DottedPath() string {
	return strings.Join(i.Path, ".")
}

// Batch 是一次推理调用中一起处理的字段集合.
type Batch struct {
	Index int    `json:"index"`
	Items []Item `json:"items"`
}
