// MockEngine 是 llm.Engine 的测试模拟实现。
//
// 支持按提示词应答、多候选与错误注入场景，并记录每次调用。
package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/madlibs/llm"
)

// MockEngineCall 记录单次 Generate 调用
type MockEngineCall struct {
	Prompts []string
	Params  *llm.SamplingParams
	Error   error
}

// MockEngine 是 llm.Engine 的模拟实现
type MockEngine struct {
	mu sync.Mutex

	// 响应配置
	name      string
	model     string
	response  string
	responder func(prompt string) string
	err       error
	health    *llm.HealthStatus
	healthErr error

	// 行为控制
	failAfter int // 在第 N 次调用后失败
	delay     time.Duration

	// 调用记录
	calls []MockEngineCall
}

var _ llm.Engine = (*MockEngine)(nil)

// NewMockEngine 创建新的 MockEngine
func NewMockEngine() *MockEngine {
	return &MockEngine{
		name:     "mock",
		model:    "mock-model",
		response: "mock",
		health:   &llm.HealthStatus{Healthy: true, Latency: time.Millisecond, Models: []string{"mock-model"}},
	}
}

// WithModel 设置模型标识
func (m *MockEngine) WithModel(model string) *MockEngine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
	return m
}

// WithResponse 设置所有提示词的固定输出
func (m *MockEngine) WithResponse(text string) *MockEngine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = text
	return m
}

// WithResponder 按提示词生成输出, 优先于 WithResponse
func (m *MockEngine) WithResponder(fn func(prompt string) string) *MockEngine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = fn
	return m
}

// WithError 设置返回错误
func (m *MockEngine) WithError(err error) *MockEngine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithFailAfter 设置在第 N 次调用后失败
func (m *MockEngine) WithFailAfter(n int) *MockEngine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// WithDelay 设置每次调用的延迟, 期间响应 ctx 取消
func (m *MockEngine) WithDelay(d time.Duration) *MockEngine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithHealth 设置健康检查结果
func (m *MockEngine) WithHealth(status *llm.HealthStatus, err error) *MockEngine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.health = status
	m.healthErr = err
	return m
}

func (m *MockEngine) Name() string { return m.name }

func (m *MockEngine) Model() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

// HealthCheck 返回预设的健康状态
func (m *MockEngine) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health, m.healthErr
}

// Generate 为每个提示词生成 params.Candidates() 个候选
func (m *MockEngine) Generate(ctx context.Context, prompts []string, params *llm.SamplingParams) ([]llm.RequestOutput, error) {
	m.mu.Lock()
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	call := MockEngineCall{Prompts: append([]string(nil), prompts...), Params: params}

	if m.failAfter > 0 && len(m.calls) >= m.failAfter {
		call.Error = errors.New("mock engine: configured to fail after N calls")
		m.calls = append(m.calls, call)
		return nil, call.Error
	}
	if m.err != nil {
		call.Error = m.err
		m.calls = append(m.calls, call)
		return nil, m.err
	}
	if err := ctx.Err(); err != nil {
		call.Error = err
		m.calls = append(m.calls, call)
		return nil, err
	}

	n := params.Candidates()
	outputs := make([]llm.RequestOutput, len(prompts))
	for i, p := range prompts {
		text := m.response
		if m.responder != nil {
			text = m.responder(p)
		}
		outs := make([]llm.CompletionOutput, n)
		for j := range outs {
			outs[j] = llm.CompletionOutput{Index: j, Text: text, FinishReason: "stop"}
		}
		outputs[i] = llm.RequestOutput{
			RequestID: fmt.Sprintf("mock-%d-%d", len(m.calls), i),
			Prompt:    p,
			Outputs:   outs,
		}
	}
	m.calls = append(m.calls, call)
	return outputs, nil
}

// Calls 返回调用记录的副本
func (m *MockEngine) Calls() []MockEngineCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockEngineCall(nil), m.calls...)
}

// CallCount 返回 Generate 调用次数
func (m *MockEngine) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset 清空调用记录
func (m *MockEngine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
