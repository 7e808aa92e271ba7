package llm

import (
	"context"
	"errors"
	"time"
)

// 统一的推理错误码，用于对齐 HTTP 状态与可重试性。
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "LLM_INVALID_REQUEST"      // 参数/格式错误
	ErrUnauthorized        ErrorCode = "LLM_UNAUTHORIZED"         // 未授权或密钥失效
	ErrForbidden           ErrorCode = "LLM_FORBIDDEN"            // 权限拒绝
	ErrModelNotFound       ErrorCode = "LLM_MODEL_NOT_FOUND"      // 引擎未加载该模型
	ErrRateLimited         ErrorCode = "LLM_RATE_LIMITED"         // 上游限流
	ErrQuotaExceeded       ErrorCode = "LLM_QUOTA_EXCEEDED"       // 额度/配额用尽
	ErrModelOverloaded     ErrorCode = "LLM_MODEL_OVERLOADED"     // 模型过载
	ErrUpstreamTimeout     ErrorCode = "LLM_UPSTREAM_TIMEOUT"     // 上游超时
	ErrUpstreamError       ErrorCode = "LLM_UPSTREAM_ERROR"       // 上游 5xx/网络错误/响应异常
	ErrProviderUnavailable ErrorCode = "LLM_PROVIDER_UNAVAILABLE" // 引擎不可用
)

type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// IsCode 判断 err 链中是否存在指定错误码的 *Error.
func IsCode(err error, code ErrorCode) bool {
	var llmErr *Error
	return errors.As(err, &llmErr) && llmErr.Code == code
}

// HealthStatus 表示推理引擎健康检查结果。
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
	Models  []string      `json:"models,omitempty"`
}

// CompletionOutput 是单个候选输出.
type CompletionOutput struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// RequestOutput 是单个提示词的生成结果, Outputs 按候选序号排列.
type RequestOutput struct {
	RequestID string             `json:"request_id,omitempty"`
	Prompt    string             `json:"prompt"`
	Outputs   []CompletionOutput `json:"outputs"`
}

// FirstText 返回第一个候选的文本.
func (o RequestOutput) FirstText() (string, bool) {
	if len(o.Outputs) == 0 {
		return "", false
	}
	return o.Outputs[0].Text, true
}

// Engine 定义推理引擎接口。
// Generate 在一次调用中提交全部提示词, 返回结果与 prompts 一一对应且顺序一致。
type Engine interface {
	// Generate 批量生成, 同步阻塞直到全部提示词完成
	Generate(ctx context.Context, prompts []string, params *SamplingParams) ([]RequestOutput, error)

	// HealthCheck 执行轻量级健康检查
	HealthCheck(ctx context.Context) (*HealthStatus, error)

	// Name 返回引擎标识
	Name() string

	// Model 返回引擎加载的模型标识
	Model() string
}
