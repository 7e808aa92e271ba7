package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BaSui01/madlibs/internal/metrics"
	"github.com/BaSui01/madlibs/llm"
	"go.uber.org/zap"
)

// Store 远端结果存储, 由 internal/cache.Manager 实现.
type Store interface {
	GetMany(ctx context.Context, keys []string) ([][]byte, error)
	SetMany(ctx context.Context, values map[string][]byte, ttl time.Duration) error
}

// Config 缓存配置
type Config struct {
	LocalMaxSize int           // 本地缓存最大条目数
	LocalTTL     time.Duration // 本地缓存 TTL
	RemoteTTL    time.Duration // 远端缓存 TTL
	EnableLocal  bool          // 是否启用本地缓存
	EnableRemote bool          // 是否启用远端缓存
	KeyPrefix    string        // 缓存键前缀
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		LocalMaxSize: 1000,
		LocalTTL:     10 * time.Minute,
		RemoteTTL:    24 * time.Hour,
		EnableLocal:  true,
		EnableRemote: true,
		KeyPrefix:    "madlibs:gen:",
	}
}

// Engine 为 llm.Engine 增加按提示词的结果缓存.
// 整批全部命中时不调用下游引擎; 否则整批以一次调用转发并回写缓存.
type Engine struct {
	inner    llm.Engine
	store    Store
	local    *LRUCache
	config   *Config
	strategy KeyStrategy
	metrics  *metrics.Collector
	logger   *zap.Logger
}

var _ llm.Engine = (*Engine)(nil)

// Option 配置缓存引擎
type Option func(*Engine)

// WithMetrics 记录命中与未命中
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// WithKeyStrategy 替换缓存键策略
func WithKeyStrategy(s KeyStrategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// NewEngine 创建缓存引擎, store 为 nil 时仅使用本地缓存
func NewEngine(inner llm.Engine, store Store, config *Config, logger *zap.Logger, opts ...Option) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		inner:    inner,
		store:    store,
		config:   config,
		strategy: NewHashKeyStrategy(config.KeyPrefix),
		logger:   logger.With(zap.String("component", "engine_cache")),
	}
	if config.EnableLocal {
		e.local = NewLRUCache(config.LocalMaxSize, config.LocalTTL)
	}
	if !config.EnableRemote {
		e.store = nil
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger.Info("engine cache enabled",
		zap.String("strategy", e.strategy.Name()),
		zap.Bool("local", e.local != nil),
		zap.Bool("remote", e.store != nil))
	return e
}

func (e *Engine) Name() string  { return e.inner.Name() }
func (e *Engine) Model() string { return e.inner.Model() }

func (e *Engine) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return e.inner.HealthCheck(ctx)
}

// cacheable 进程内 logits processor 无法参与键计算, 请求了约束采样处理器时跳过缓存
func cacheable(params *llm.SamplingParams) bool {
	return params == nil || len(params.LogitsProcessors) == 0
}

// Generate 先查缓存, 未全部命中时整批调用下游引擎
func (e *Engine) Generate(ctx context.Context, prompts []string, params *llm.SamplingParams) ([]llm.RequestOutput, error) {
	if len(prompts) == 0 || !cacheable(params) {
		return e.inner.Generate(ctx, prompts, params)
	}

	keys := make([]string, len(prompts))
	for i, p := range prompts {
		keys[i] = e.strategy.GenerateKey(e.inner.Model(), p, params)
	}

	outputs, complete := e.lookup(ctx, keys, prompts)
	if complete {
		e.logger.Debug("batch served from cache", zap.Int("prompts", len(prompts)))
		return outputs, nil
	}

	fresh, err := e.inner.Generate(ctx, prompts, params)
	if err != nil {
		return nil, err
	}
	e.save(ctx, keys, fresh)
	return fresh, nil
}

func (e *Engine) lookup(ctx context.Context, keys, prompts []string) ([]llm.RequestOutput, bool) {
	outputs := make([]llm.RequestOutput, len(keys))
	found := make([]bool, len(keys))
	var pending []int

	for i, key := range keys {
		if e.local != nil {
			if entry, ok := e.local.Get(key); ok && entry.Output.Prompt == prompts[i] {
				outputs[i] = cloneOutput(entry.Output)
				found[i] = true
				e.metrics.RecordCacheHit("local")
				continue
			}
			e.metrics.RecordCacheMiss("local")
		}
		pending = append(pending, i)
	}

	if len(pending) > 0 && e.store != nil {
		remoteKeys := make([]string, len(pending))
		for j, i := range pending {
			remoteKeys[j] = keys[i]
		}
		vals, err := e.store.GetMany(ctx, remoteKeys)
		if err != nil {
			e.logger.Warn("remote cache lookup failed", zap.Error(err))
			vals = nil
		}
		for j, i := range pending {
			if j >= len(vals) || vals[j] == nil {
				e.metrics.RecordCacheMiss("redis")
				continue
			}
			var entry CacheEntry
			if err := json.Unmarshal(vals[j], &entry); err != nil || entry.Output.Prompt != prompts[i] {
				e.metrics.RecordCacheMiss("redis")
				continue
			}
			outputs[i] = entry.Output
			found[i] = true
			e.metrics.RecordCacheHit("redis")
			if e.local != nil {
				e.local.Set(keys[i], &CacheEntry{Output: cloneOutput(entry.Output), CreatedAt: entry.CreatedAt})
			}
		}
	}

	for _, ok := range found {
		if !ok {
			return nil, false
		}
	}
	return outputs, true
}

func (e *Engine) save(ctx context.Context, keys []string, outputs []llm.RequestOutput) {
	if len(outputs) != len(keys) {
		return
	}
	now := time.Now()
	var remote map[string][]byte
	if e.store != nil {
		remote = make(map[string][]byte, len(keys))
	}
	for i, out := range outputs {
		entry := &CacheEntry{Output: cloneOutput(out), CreatedAt: now}
		if e.local != nil {
			e.local.Set(keys[i], entry)
		}
		if remote != nil {
			data, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			remote[keys[i]] = data
		}
	}
	if remote != nil {
		if err := e.store.SetMany(ctx, remote, e.config.RemoteTTL); err != nil {
			e.logger.Warn("remote cache write failed", zap.Error(err))
		}
	}
}

func cloneOutput(o llm.RequestOutput) llm.RequestOutput {
	o.Outputs = append([]llm.CompletionOutput(nil), o.Outputs...)
	return o
}
