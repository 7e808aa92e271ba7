package vllm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/BaSui01/madlibs/internal/ctxkeys"
	"github.com/BaSui01/madlibs/internal/tlsutil"
	"github.com/BaSui01/madlibs/llm"
	"github.com/BaSui01/madlibs/llm/providers"
	"go.uber.org/zap"
)

const providerName = "vllm"

// Config 描述 vLLM 服务端连接参数.
type Config struct {
	providers.BaseProviderConfig `yaml:",inline"`

	// EndpointPath completions 路径, 默认 "/v1/completions"
	EndpointPath string `json:"endpoint_path,omitempty" yaml:"endpoint_path,omitempty"`

	// ModelsEndpoint 模型列表路径, 默认 "/v1/models"
	ModelsEndpoint string `json:"models_endpoint,omitempty" yaml:"models_endpoint,omitempty"`

	TLS tlsutil.ClientOptions `json:"-" yaml:"-"`
}

// DefaultConfig 返回本地 vLLM 服务的默认配置.
func DefaultConfig() Config {
	return Config{
		BaseProviderConfig: providers.BaseProviderConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 60 * time.Second,
		},
		EndpointPath:   "/v1/completions",
		ModelsEndpoint: "/v1/models",
	}
}

// Engine 是 vLLM HTTP 推理引擎.
type Engine struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

var _ llm.Engine = (*Engine)(nil)

// New 创建 vLLM 引擎. 零值字段使用 DefaultConfig 中的默认值.
func New(cfg Config, logger *zap.Logger) (*Engine, error) {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = def.EndpointPath
	}
	if cfg.ModelsEndpoint == "" {
		cfg.ModelsEndpoint = def.ModelsEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := tlsutil.NewHTTPClient(cfg.Timeout, cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("vllm http client: %w", err)
	}
	return &Engine{
		cfg:    cfg,
		client: client,
		logger: logger.With(zap.String("component", "engine"), zap.String("provider", providerName)),
	}, nil
}

func (e *Engine) Name() string  { return providerName }
func (e *Engine) Model() string { return e.cfg.Model }

func (e *Engine) endpoint(path string) string {
	return fmt.Sprintf("%s%s", strings.TrimRight(e.cfg.BaseURL, "/"), path)
}

// Generate 以一次 completions 请求提交整批提示词.
func (e *Engine) Generate(ctx context.Context, prompts []string, params *llm.SamplingParams) ([]llm.RequestOutput, error) {
	if len(prompts) == 0 {
		return []llm.RequestOutput{}, nil
	}
	if params == nil {
		params = &llm.SamplingParams{}
	}
	if len(params.LogitsProcessors) > 0 {
		return nil, &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    fmt.Sprintf("logits processors are not supported by the vLLM HTTP server (got %d)", len(params.LogitsProcessors)),
			HTTPStatus: http.StatusBadRequest,
			Provider:   providerName,
		}
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if e.cfg.Model == "" {
		return nil, &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    "vllm: model is not configured",
			HTTPStatus: http.StatusBadRequest,
			Provider:   providerName,
		}
	}

	payload, err := json.Marshal(providers.NewCompletionRequest(e.cfg.Model, prompts, params))
	if err != nil {
		return nil, &llm.Error{Code: llm.ErrInvalidRequest, Message: err.Error(), HTTPStatus: http.StatusBadRequest, Provider: providerName}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint(e.cfg.EndpointPath), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	providers.BearerTokenHeaders(httpReq, e.cfg.APIKey)
	requestID := ctxkeys.RequestID(ctx)
	if requestID != "" {
		httpReq.Header.Set("X-Request-Id", requestID)
	}

	start := time.Now()
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, providerName)
	}

	var cr providers.CompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    fmt.Sprintf("decode completions response: %v", err),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Provider:   providerName,
		}
	}

	outputs, err := groupChoices(cr, prompts, params.Candidates())
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("request_id", cr.ID),
		zap.String("client_request_id", requestID),
		zap.Int("prompts", len(prompts)),
		zap.Duration("latency", time.Since(start)),
	}
	if cr.Usage != nil {
		fields = append(fields,
			zap.Int("prompt_tokens", cr.Usage.PromptTokens),
			zap.Int("completion_tokens", cr.Usage.CompletionTokens))
	}
	e.logger.Debug("completions request finished", fields...)
	return outputs, nil
}

// groupChoices 将扁平的 choices 按 index / n 归属到各提示词.
func groupChoices(cr providers.CompletionResponse, prompts []string, n int) ([]llm.RequestOutput, error) {
	if len(cr.Choices) != len(prompts)*n {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    fmt.Sprintf("vllm returned %d choices for %d prompts (n=%d)", len(cr.Choices), len(prompts), n),
			HTTPStatus: http.StatusBadGateway,
			Provider:   providerName,
		}
	}

	choices := append([]providers.CompletionChoice(nil), cr.Choices...)
	sort.SliceStable(choices, func(i, j int) bool { return choices[i].Index < choices[j].Index })

	outputs := make([]llm.RequestOutput, len(prompts))
	for i, prompt := range prompts {
		outputs[i] = llm.RequestOutput{
			RequestID: fmt.Sprintf("%s-%d", cr.ID, i),
			Prompt:    prompt,
			Outputs:   make([]llm.CompletionOutput, 0, n),
		}
	}
	for pos, c := range choices {
		if c.Index != pos {
			return nil, &llm.Error{
				Code:       llm.ErrUpstreamError,
				Message:    fmt.Sprintf("vllm returned non-contiguous choice index %d", c.Index),
				HTTPStatus: http.StatusBadGateway,
				Provider:   providerName,
			}
		}
		out := llm.CompletionOutput{Index: c.Index % n, Text: c.Text}
		if c.FinishReason != nil {
			out.FinishReason = *c.FinishReason
		}
		outputs[c.Index/n].Outputs = append(outputs[c.Index/n].Outputs, out)
	}
	return outputs, nil
}

func transportError(ctx context.Context, err error) *llm.Error {
	if ctx.Err() != nil || isTimeout(err) {
		return &llm.Error{
			Code:       llm.ErrUpstreamTimeout,
			Message:    err.Error(),
			HTTPStatus: http.StatusGatewayTimeout,
			Retryable:  true,
			Provider:   providerName,
		}
	}
	return &llm.Error{
		Code:       llm.ErrUpstreamError,
		Message:    err.Error(),
		HTTPStatus: http.StatusBadGateway,
		Retryable:  true,
		Provider:   providerName,
	}
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	t, ok := err.(timeout)
	return ok && t.Timeout()
}

// ListModels 返回服务端已加载的模型.
func (e *Engine) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint(e.cfg.ModelsEndpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	providers.BearerTokenHeaders(httpReq, e.cfg.APIKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, providerName)
	}

	var list providers.ModelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Provider:   providerName,
		}
	}
	models := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		models = append(models, m.ID)
	}
	return models, nil
}

// HealthCheck 通过模型列表接口检查服务端可达性.
func (e *Engine) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	models, err := e.ListModels(ctx)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, err
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency, Models: models}, nil
}

// EnsureModel 确认配置的模型已被服务端加载.
func (e *Engine) EnsureModel(ctx context.Context) error {
	models, err := e.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		if m == e.cfg.Model {
			return nil
		}
	}
	return &llm.Error{
		Code:       llm.ErrModelNotFound,
		Message:    fmt.Sprintf("model %q is not served (available: %s)", e.cfg.Model, strings.Join(models, ", ")),
		HTTPStatus: http.StatusNotFound,
		Provider:   providerName,
	}
}
