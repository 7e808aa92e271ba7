package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/BaSui01/madlibs/llm"
)

// KeyStrategy 缓存键生成策略接口
type KeyStrategy interface {
	// GenerateKey 为单个提示词生成缓存键
	GenerateKey(model, prompt string, params *llm.SamplingParams) string

	// Name 返回策略名称（用于日志和调试）
	Name() string
}

// HashKeyStrategy 对 模型 + 采样参数 + 提示词 整体 Hash
type HashKeyStrategy struct {
	prefix string
}

// NewHashKeyStrategy 创建 Hash 策略, prefix 为空时使用 "madlibs:gen:"
func NewHashKeyStrategy(prefix string) *HashKeyStrategy {
	if prefix == "" {
		prefix = "madlibs:gen:"
	}
	return &HashKeyStrategy{prefix: prefix}
}

// Name 返回策略名称
func (s *HashKeyStrategy) Name() string {
	return "hash"
}

// GenerateKey 生成 Hash 缓存键
func (s *HashKeyStrategy) GenerateKey(model, prompt string, params *llm.SamplingParams) string {
	data, err := json.Marshal(struct {
		Model  string              `json:"model"`
		Params *llm.SamplingParams `json:"params"`
		Prompt string              `json:"prompt"`
	}{model, params, prompt})
	if err != nil {
		// fallback: 使用 fmt.Sprintf 生成确定性字符串避免 key 碰撞
		data = []byte(fmt.Sprintf("%s|%+v|%s", model, params, prompt))
	}
	hash := sha256.Sum256(data)
	return s.prefix + hex.EncodeToString(hash[:16])
}
