package tokenizer

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Tokenizer 是统一的 token 计数接口.
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// MaxTokens 返回模型的最大上下文长度.
	MaxTokens() int

	// Name 返回分词器的名称.
	Name() string
}

// 分词器类型
const (
	KindEstimator = "estimator"
	KindTiktoken  = "tiktoken"
)

// New 按类型创建分词器, kind 为空时使用估算器.
func New(kind, model string) (Tokenizer, error) {
	switch strings.ToLower(kind) {
	case "", KindEstimator:
		return NewEstimatorTokenizer(model, 0), nil
	case KindTiktoken:
		return NewTiktokenTokenizer(model)
	default:
		return nil, fmt.Errorf("unknown tokenizer kind %q", kind)
	}
}

// CountAll 返回一批文本的 token 总数.
func CountAll(t Tokenizer, texts []string) (int, error) {
	total := 0
	for _, text := range texts {
		n, err := t.CountTokens(text)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// 全局分词器注册表.
var (
	modelTokenizers   = make(map[string]Tokenizer)
	modelTokenizersMu sync.RWMutex
)

// RegisterTokenizer 为给定的模型名称注册分词器.
func RegisterTokenizer(model string, t Tokenizer) {
	modelTokenizersMu.Lock()
	defer modelTokenizersMu.Unlock()
	modelTokenizers[model] = t
}

// GetTokenizer 返回为给定模型注册的分词器,
// 精确匹配失败时选择最长的已注册前缀.
func GetTokenizer(model string) (Tokenizer, error) {
	modelTokenizersMu.RLock()
	defer modelTokenizersMu.RUnlock()

	if t, ok := modelTokenizers[model]; ok {
		return t, nil
	}

	prefixes := make([]string, 0, len(modelTokenizers))
	for prefix := range modelTokenizers {
		if strings.HasPrefix(model, prefix) {
			prefixes = append(prefixes, prefix)
		}
	}
	if len(prefixes) > 0 {
		sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
		return modelTokenizers[prefixes[0]], nil
	}

	return nil, fmt.Errorf("no tokenizer registered for model: %s", model)
}

// GetTokenizerOrEstimator 返回该模型的注册分词器,
// 未注册时回退到通用估算器。
func GetTokenizerOrEstimator(model string) Tokenizer {
	t, err := GetTokenizer(model)
	if err != nil {
		return NewEstimatorTokenizer(model, 0)
	}
	return t
}
