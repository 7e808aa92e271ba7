package structured

import (
	"maps"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/madlibs/internal/metrics"
	"github.com/BaSui01/madlibs/llm"
	"github.com/BaSui01/madlibs/llm/tokenizer"
)

// 生成参数默认值
const (
	DefaultBatchSize              = 4
	DefaultMaxNewTokens           = 20
	DefaultSinglePassMaxNewTokens = 256
)

// =============================================================================
// Model 选项
// =============================================================================

// ModelOption 配置 Model.
type ModelOption func(*Model)

// WithLogger 设置日志器.
func WithLogger(logger *zap.Logger) ModelOption {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics 设置指标收集器.
func WithMetrics(c *metrics.Collector) ModelOption {
	return func(m *Model) { m.metrics = c }
}

// WithTokenizer 设置用于估算提示词 token 数的分词器.
func WithTokenizer(t tokenizer.Tokenizer) ModelOption {
	return func(m *Model) { m.tokenizer = t }
}

// WithTracer 设置 tracer.
func WithTracer(t trace.Tracer) ModelOption {
	return func(m *Model) {
		if t != nil {
			m.tracer = t
		}
	}
}

// =============================================================================
// 单次调用选项
// =============================================================================

// GenerateOption 配置单次 Generate / DefaultGenerate 调用.
type GenerateOption func(*generateOptions)

type generateOptions struct {
	template        string
	batchSize       int
	maxNewTokens    int
	constrained     bool
	dag             map[string][]string
	samplingKwargs  map[string]any
	templateSet     bool
	maxNewTokensSet bool
}

func newGenerateOptions(opts []GenerateOption) *generateOptions {
	o := &generateOptions{
		batchSize:   DefaultBatchSize,
		constrained: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// templateOr 返回调用方设置的模板, 未设置时返回 def.
func (o *generateOptions) templateOr(def string) string {
	if o.templateSet {
		return o.template
	}
	return def
}

func (o *generateOptions) maxNewTokensOr(def int) int {
	if o.maxNewTokensSet {
		return o.maxNewTokens
	}
	return def
}

// samplingParams 由关键字参数构造采样参数, max_tokens 总是取 maxNewTokens.
func (o *generateOptions) samplingParams(maxNewTokens int, constrained bool) (*llm.SamplingParams, error) {
	params, err := llm.NewSamplingParams(o.samplingKwargs)
	if err != nil {
		return nil, err
	}
	params.MaxTokens = maxNewTokens
	if constrained {
		// TODO: 按 schema 类型约束 logits, 目前只挂一个空列表
		params.LogitsProcessors = []llm.LogitsProcessor{}
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// WithTemplate 设置提示词模板. 默认 prompts.DefaultPrompt 或 prompts.SinglePassPrompt.
func WithTemplate(template string) GenerateOption {
	return func(o *generateOptions) {
		o.template = template
		o.templateSet = true
	}
}

// WithBatchSize 设置每批字段数.
func WithBatchSize(n int) GenerateOption {
	return func(o *generateOptions) { o.batchSize = n }
}

// WithMaxNewTokens 设置每次生成的最大 token 数.
func WithMaxNewTokens(n int) GenerateOption {
	return func(o *generateOptions) {
		o.maxNewTokens = n
		o.maxNewTokensSet = true
	}
}

// WithConstrainedSampling 设置是否请求约束采样.
func WithConstrainedSampling(enabled bool) GenerateOption {
	return func(o *generateOptions) { o.constrained = enabled }
}

// WithDAG 设置字段依赖图, 键为点号路径或末段字段名.
func WithDAG(dag map[string][]string) GenerateOption {
	return func(o *generateOptions) { o.dag = dag }
}

// WithSamplingKwargs 合并采样关键字参数, 名称与 vLLM SamplingParams 一致.
func WithSamplingKwargs(kwargs map[string]any) GenerateOption {
	return func(o *generateOptions) {
		if len(kwargs) == 0 {
			return
		}
		if o.samplingKwargs == nil {
			o.samplingKwargs = make(map[string]any, len(kwargs))
		}
		maps.Copy(o.samplingKwargs, kwargs)
	}
}

// WithSamplingKwarg 设置单个采样关键字参数.
func WithSamplingKwarg(name string, value any) GenerateOption {
	return WithSamplingKwargs(map[string]any{name: value})
}
