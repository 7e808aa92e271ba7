package structured

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/madlibs/internal/ctxkeys"
	"github.com/BaSui01/madlibs/internal/metrics"
	"github.com/BaSui01/madlibs/internal/telemetry"
	"github.com/BaSui01/madlibs/llm"
	"github.com/BaSui01/madlibs/llm/providers/vllm"
	"github.com/BaSui01/madlibs/llm/tokenizer"
	"github.com/BaSui01/madlibs/prompts"
	"github.com/BaSui01/madlibs/schema"
)

// 生成模式, 用作指标标签
const (
	ModeFields     = "fields"
	ModeSinglePass = "single_pass"
)

// Model 包装一个已加载模型的推理引擎, 提供逐字段与单次两种生成方式.
type Model struct {
	engine    llm.Engine
	logger    *zap.Logger
	metrics   *metrics.Collector
	tokenizer tokenizer.Tokenizer
	tracer    trace.Tracer
}

// NewModel 使用任意 llm.Engine 创建 Model.
func NewModel(engine llm.Engine, opts ...ModelOption) *Model {
	m := &Model{
		engine: engine,
		logger: zap.NewNop(),
		tracer: telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(zap.String("component", "structured"))
	return m
}

// NewVLLMModel 创建连接 vLLM 服务的 Model, modelID 直接作为引擎的模型标识.
func NewVLLMModel(modelID string, cfg vllm.Config, logger *zap.Logger, opts ...ModelOption) (*Model, error) {
	cfg.Model = modelID
	engine, err := vllm.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create vllm engine: %w", err)
	}
	opts = append([]ModelOption{
		WithLogger(logger),
		WithTokenizer(tokenizer.GetTokenizerOrEstimator(modelID)),
	}, opts...)
	return NewModel(engine, opts...), nil
}

// Engine 返回底层推理引擎.
func (m *Model) Engine() llm.Engine { return m.engine }

// GeneratePrompt 用用户提示词, 字段名 (路径末段) 和字段类型填充模板.
func (m *Model) GeneratePrompt(prompt string, item schema.Item, template string) (string, error) {
	return prompts.Format(template, map[string]any{
		prompts.KeyPrompt: prompt,
		prompts.KeyKey:    item.Key(),
		prompts.KeyType:   item.Type,
	})
}

// Generate 逐字段抽取 src 描述的 schema.
// 字段按批处理, 每批一次引擎调用; 每个输出取第一个候选, 去除首尾空白后插入 item 路径.
// 任一批失败即中止并返回错误.
func (m *Model) Generate(ctx context.Context, prompt string, src any, opts ...GenerateOption) (schema.Document, error) {
	o := newGenerateOptions(opts)
	template := o.templateOr(prompts.DefaultPrompt)
	start := time.Now()

	traceID := uuid.NewString()
	ctx = ctxkeys.WithTraceID(ctx, traceID)
	logger := m.logger.With(zap.String("trace_id", traceID))

	doc, err := m.generate(ctx, logger, prompt, src, template, o)
	m.metrics.RecordGeneration(ModeFields, time.Since(start), err)
	if err != nil {
		logger.Warn("generation failed", zap.Error(err))
		return nil, err
	}

	logger.Debug("generation completed", zap.Duration("duration", time.Since(start)))
	return doc, nil
}

func (m *Model) generate(ctx context.Context, logger *zap.Logger, prompt string, src any, template string, o *generateOptions) (schema.Document, error) {
	batcher, err := schema.NewBatcher(src, o.dag, o.batchSize)
	if err != nil {
		return nil, fmt.Errorf("plan batches: %w", err)
	}

	params, err := o.samplingParams(o.maxNewTokensOr(DefaultMaxNewTokens), o.constrained)
	if err != nil {
		return nil, fmt.Errorf("build sampling params: %w", err)
	}

	batches := batcher.Batches()
	logger.Debug("generation started",
		zap.Int("fields", len(batcher.Items())),
		zap.Int("batches", len(batches)),
		zap.Int("batch_size", o.batchSize),
		zap.Bool("constrained", o.constrained),
	)

	doc := schema.Document{}
	for _, batch := range batches {
		if err := m.runBatch(ctx, logger, prompt, template, batch, params, doc); err != nil {
			return nil, err
		}
	}
	m.metrics.RecordFields(m.engine.Model(), len(batcher.Items()))
	return doc, nil
}

// runBatch 提交一批字段并把结果写入 doc.
func (m *Model) runBatch(ctx context.Context, logger *zap.Logger, prompt, template string, batch schema.Batch, params *llm.SamplingParams, doc schema.Document) (err error) {
	ctx = ctxkeys.WithBatchIndex(ctx, batch.Index)
	ctx, span := m.tracer.Start(ctx, "madlibs.batch", trace.WithAttributes(
		attribute.Int("madlibs.batch.index", batch.Index),
		attribute.Int("madlibs.batch.size", len(batch.Items)),
		attribute.String("madlibs.engine", m.engine.Name()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	batchPrompts := make([]string, len(batch.Items))
	for i, item := range batch.Items {
		p, err := m.GeneratePrompt(prompt, item, template)
		if err != nil {
			return fmt.Errorf("format prompt for %q: %w", item.DottedPath(), err)
		}
		batchPrompts[i] = p
	}

	outputs, err := m.infer(ctx, batchPrompts, params)
	if err != nil {
		return fmt.Errorf("batch %d: %w", batch.Index, err)
	}

	for i, item := range batch.Items {
		text, _ := outputs[i].FirstText()
		if err := schema.InsertIntoPath(doc, item.Path, strings.TrimSpace(text)); err != nil {
			return fmt.Errorf("batch %d: insert %q: %w", batch.Index, item.DottedPath(), err)
		}
	}

	logger.Debug("batch completed",
		zap.Int("batch", batch.Index),
		zap.Int("items", len(batch.Items)),
	)
	return nil
}

// DefaultGenerate 把整个 schema 嵌入单个提示词, 一次引擎调用, 返回第一个候选的原始文本.
func (m *Model) DefaultGenerate(ctx context.Context, prompt string, src any, opts ...GenerateOption) (string, error) {
	o := newGenerateOptions(opts)
	template := o.templateOr(prompts.SinglePassPrompt)
	start := time.Now()

	text, err := m.defaultGenerate(ctx, prompt, src, template, o)
	m.metrics.RecordGeneration(ModeSinglePass, time.Since(start), err)
	if err != nil {
		m.logger.Warn("single pass generation failed", zap.Error(err))
		return "", err
	}
	return text, nil
}

func (m *Model) defaultGenerate(ctx context.Context, prompt string, src any, template string, o *generateOptions) (string, error) {
	rendered, err := renderSchema(src)
	if err != nil {
		return "", err
	}

	full, err := prompts.Format(template, map[string]any{
		prompts.KeyPrompt: prompt,
		prompts.KeySchema: rendered,
	})
	if err != nil {
		return "", fmt.Errorf("format prompt: %w", err)
	}

	params, err := o.samplingParams(o.maxNewTokensOr(DefaultSinglePassMaxNewTokens), false)
	if err != nil {
		return "", fmt.Errorf("build sampling params: %w", err)
	}

	ctx, span := m.tracer.Start(ctx, "madlibs.single_pass", trace.WithAttributes(
		attribute.String("madlibs.engine", m.engine.Name()),
	))
	defer span.End()

	outputs, err := m.infer(ctx, []string{full}, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	text, _ := outputs[0].FirstText()
	return text, nil
}

// infer 执行一次引擎调用并校验结果数量与提示词一一对应.
func (m *Model) infer(ctx context.Context, batchPrompts []string, params *llm.SamplingParams) ([]llm.RequestOutput, error) {
	promptTokens := 0
	if m.tokenizer != nil {
		if n, err := tokenizer.CountAll(m.tokenizer, batchPrompts); err == nil {
			promptTokens = n
		}
	}

	start := time.Now()
	outputs, err := m.engine.Generate(ctx, batchPrompts, params)
	if err == nil {
		err = checkOutputs(m.engine.Name(), len(batchPrompts), outputs)
	}
	m.metrics.RecordBatch(m.engine.Name(), m.engine.Model(), len(batchPrompts), promptTokens, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return outputs, nil
}

func checkOutputs(provider string, want int, outputs []llm.RequestOutput) error {
	if len(outputs) != want {
		return &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    fmt.Sprintf("engine returned %d outputs for %d prompts", len(outputs), want),
			HTTPStatus: http.StatusBadGateway,
			Provider:   provider,
		}
	}
	for i, out := range outputs {
		if len(out.Outputs) == 0 {
			return &llm.Error{
				Code:       llm.ErrUpstreamError,
				Message:    fmt.Sprintf("engine returned no candidates for prompt %d", i),
				HTTPStatus: http.StatusBadGateway,
				Provider:   provider,
			}
		}
	}
	return nil
}

// renderSchema 返回嵌入单次提示词的 schema 文本. 字符串原样使用, 其余编码为 JSON.
func renderSchema(src any) (string, error) {
	switch s := src.(type) {
	case nil:
		return "", fmt.Errorf("%w: schema is required", schema.ErrInvalidSchema)
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	data, err := json.MarshalIndent(src, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: render schema: %v", schema.ErrInvalidSchema, err)
	}
	return string(data), nil
}
