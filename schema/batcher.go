package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Batcher 根据 schema、依赖图与批大小生成批次计划.
//
// 无依赖图时按 schema 顺序每 batchSize 个字段切分一批; 有依赖图时先按
// 拓扑层级分组, 字段的全部依赖都位于更早的批次中, 再在层内按批大小切分.
type Batcher struct {
	items     []Item
	batches   []Batch
	batchSize int
}

// NewBatcher 创建批次计划. src 原样交给 ParseItems 解析.
//
// dag 的键与值可以是点号路径("b.c")、子树前缀("b", 表示其下全部字段)
// 或唯一的末段键名("c").
func NewBatcher(src any, dag map[string][]string, batchSize int) (*Batcher, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	items, err := ParseItems(src)
	if err != nil {
		return nil, err
	}
	levels, err := layer(items, dag)
	if err != nil {
		return nil, err
	}
	return &Batcher{
		items:     items,
		batches:   plan(items, levels, batchSize),
		batchSize: batchSize,
	}, nil
}

// Items 返回 schema 展开后的全部叶子字段.
func (b *Batcher) Items() []Item { return b.items }

// Batches 返回按执行顺序排列的批次.
func (b *Batcher) Batches() []Batch { return b.batches }

// BatchSize 返回批大小上限.
func (b *Batcher) BatchSize() int { return b.batchSize }

func plan(items []Item, levels []int, batchSize int) []Batch {
	maxLevel := 0
	for _, l := range levels {
		if l > maxLevel {
			maxLevel = l
		}
	}

	var batches []Batch
	for level := 0; level <= maxLevel; level++ {
		var current []Item
		for i, item := range items {
			if levels[i] != level {
				continue
			}
			current = append(current, item)
			if len(current) == batchSize {
				batches = append(batches, Batch{Index: len(batches), Items: current})
				current = nil
			}
		}
		if len(current) > 0 {
			batches = append(batches, Batch{Index: len(batches), Items: current})
		}
	}
	return batches
}

// layer 计算每个字段的拓扑层级: 无依赖为 0, 否则为依赖最大层级 + 1.
func layer(items []Item, dag map[string][]string) ([]int, error) {
	levels := make([]int, len(items))
	if len(dag) == 0 {
		return levels, nil
	}

	idx := newItemIndex(items)
	deps := make([][]int, len(items))

	keys := make([]string, 0, len(dag))
	for k := range dag {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		targets, err := idx.resolve(key)
		if err != nil {
			return nil, err
		}
		for _, dep := range dag[key] {
			sources, err := idx.resolve(dep)
			if err != nil {
				return nil, err
			}
			for _, t := range targets {
				deps[t] = append(deps[t], sources...)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(items))

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: cycle through %q", ErrInvalidDAG, items[i].DottedPath())
		}
		state[i] = visiting
		level := 0
		for _, d := range deps[i] {
			if err := visit(d); err != nil {
				return err
			}
			if levels[d]+1 > level {
				level = levels[d] + 1
			}
		}
		levels[i] = level
		state[i] = done
		return nil
	}

	for i := range items {
		if state[i] == unvisited {
			if err := visit(i); err != nil {
				return nil, err
			}
		}
	}
	return levels, nil
}

type itemIndex struct {
	items  []Item
	byPath map[string]int
}

func newItemIndex(items []Item) *itemIndex {
	byPath := make(map[string]int, len(items))
	for i, item := range items {
		byPath[item.DottedPath()] = i
	}
	return &itemIndex{items: items, byPath: byPath}
}

// resolve 依次按完整路径、子树前缀、末段键名匹配字段.
func (x *itemIndex) resolve(key string) ([]int, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: empty field key", ErrInvalidDAG)
	}
	if i, ok := x.byPath[key]; ok {
		return []int{i}, nil
	}

	var matched []int
	prefix := key + "."
	for i, item := range x.items {
		if strings.HasPrefix(item.DottedPath(), prefix) {
			matched = append(matched, i)
		}
	}
	if len(matched) > 0 {
		return matched, nil
	}

	for i, item := range x.items {
		if item.Key() == key {
			matched = append(matched, i)
		}
	}
	switch len(matched) {
	case 0:
		return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidDAG, key)
	case 1:
		return matched, nil
	default:
		return nil, fmt.Errorf("%w: field key %q is ambiguous, use the dotted path", ErrInvalidDAG, key)
	}
}
