// Package tokenizer 提供统一的 Token 计数接口，
// 支持 tiktoken 计数与 CJK 估算器，用于估算每批提示词的 token 用量。
package tokenizer
