package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/BaSui01/madlibs/llm"
)

// MapHTTPError 将 HTTP 状态码映射为带有合适重试标记的 llm.Error
func MapHTTPError(status int, msg string, provider string) *llm.Error {
	switch status {
	case http.StatusUnauthorized:
		return &llm.Error{
			Code:       llm.ErrUnauthorized,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case http.StatusForbidden:
		return &llm.Error{
			Code:       llm.ErrForbidden,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case http.StatusNotFound:
		// vLLM 对未加载的模型返回 404
		return &llm.Error{
			Code:       llm.ErrModelNotFound,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case http.StatusTooManyRequests:
		return &llm.Error{
			Code:       llm.ErrRateLimited,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	case http.StatusBadRequest:
		// 检查配额/信用关键字
		msgLower := strings.ToLower(msg)
		if strings.Contains(msgLower, "quota") ||
			strings.Contains(msgLower, "credit") {
			return &llm.Error{
				Code:       llm.ErrQuotaExceeded,
				Message:    msg,
				HTTPStatus: status,
				Provider:   provider,
			}
		}
		return &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &llm.Error{
			Code:       llm.ErrUpstreamTimeout,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return &llm.Error{
			Code:       llm.ErrProviderUnavailable,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	case 529:
		return &llm.Error{
			Code:       llm.ErrModelOverloaded,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	default:
		return &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  status >= 500,
			Provider:   provider,
		}
	}
}

// ReadErrorMessage 读取响应体中的错误消息
// 兼容 OpenAI 的嵌套格式与 vLLM 的顶层格式，失败则回退到原始文本
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
		Message string `json:"message"`
		Type    string `json:"type"`
	}

	if err := json.Unmarshal(data, &errResp); err == nil {
		msg, typ := errResp.Error.Message, errResp.Error.Type
		if msg == "" {
			msg, typ = errResp.Message, errResp.Type
		}
		if msg != "" {
			if typ != "" {
				return fmt.Sprintf("%s (type: %s)", msg, typ)
			}
			return msg
		}
	}

	// 回退到原始文本
	return strings.TrimSpace(string(data))
}

// OpenAI 兼容 completions API 的请求/响应类型, vLLM 服务端使用同一格式.

// CompletionRequest 表示 /v1/completions 请求, Prompt 为批量提示词.
type CompletionRequest struct {
	Model             string   `json:"model"`
	Prompt            []string `json:"prompt"`
	MaxTokens         int      `json:"max_tokens,omitempty"`
	N                 int      `json:"n,omitempty"`
	BestOf            *int     `json:"best_of,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TopP              *float64 `json:"top_p,omitempty"`
	TopK              *int     `json:"top_k,omitempty"`
	MinP              *float64 `json:"min_p,omitempty"`
	PresencePenalty   *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty  *float64 `json:"frequency_penalty,omitempty"`
	RepetitionPenalty *float64 `json:"repetition_penalty,omitempty"`
	Seed              *int     `json:"seed,omitempty"`
	Stop              []string `json:"stop,omitempty"`
	StopTokenIDs      []int    `json:"stop_token_ids,omitempty"`
	IgnoreEOS         bool     `json:"ignore_eos,omitempty"`
	MinTokens         int      `json:"min_tokens,omitempty"`
	Logprobs          *int     `json:"logprobs,omitempty"`
	SkipSpecialTokens *bool    `json:"skip_special_tokens,omitempty"`
	Stream            bool     `json:"stream"`
}

// NewCompletionRequest 将采样参数转换为 completions 请求.
func NewCompletionRequest(model string, prompts []string, params *llm.SamplingParams) CompletionRequest {
	req := CompletionRequest{
		Model:  model,
		Prompt: prompts,
	}
	if params == nil {
		return req
	}
	req.MaxTokens = params.MaxTokens
	req.N = params.N
	req.BestOf = params.BestOf
	req.Temperature = params.Temperature
	req.TopP = params.TopP
	req.TopK = params.TopK
	req.MinP = params.MinP
	req.PresencePenalty = params.PresencePenalty
	req.FrequencyPenalty = params.FrequencyPenalty
	req.RepetitionPenalty = params.RepetitionPenalty
	req.Seed = params.Seed
	req.Stop = params.Stop
	req.StopTokenIDs = params.StopTokenIDs
	req.IgnoreEOS = params.IgnoreEOS
	req.MinTokens = params.MinTokens
	req.Logprobs = params.Logprobs
	req.SkipSpecialTokens = params.SkipSpecialTokens
	return req
}

// CompletionChoice 表示 completions 响应中的单个选项.
// 批量提示词时 Index = 提示词序号 * n + 候选序号.
type CompletionChoice struct {
	Index        int     `json:"index"`
	Text         string  `json:"text"`
	FinishReason *string `json:"finish_reason"`
}

// CompletionUsage 表示 token 用量.
type CompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse 表示 /v1/completions 响应.
type CompletionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   *CompletionUsage   `json:"usage,omitempty"`
}

// ModelList 表示 /v1/models 响应.
type ModelList struct {
	Object string `json:"object"`
	Data   []struct {
		ID      string `json:"id"`
		OwnedBy string `json:"owned_by,omitempty"`
		MaxLen  int    `json:"max_model_len,omitempty"`
	} `json:"data"`
}

// BearerTokenHeaders 构建标准 JSON 请求头, apiKey 为空时不设置 Authorization.
func BearerTokenHeaders(r *http.Request, apiKey string) {
	if apiKey != "" {
		r.Header.Set("Authorization", "Bearer "+apiKey)
	}
	r.Header.Set("Content-Type", "application/json")
}

// SafeCloseBody 关闭响应体并忽略错误.
func SafeCloseBody(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}
