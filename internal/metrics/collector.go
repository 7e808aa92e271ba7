// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector 指标收集器. nil *Collector 上的方法均为空操作.
type Collector struct {
	// 推理批次指标
	batchesTotal      *prometheus.CounterVec
	batchPrompts      *prometheus.HistogramVec
	inferenceDuration *prometheus.HistogramVec
	promptTokens      *prometheus.CounterVec

	// 生成调用指标
	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	fieldsExtracted    *prometheus.CounterVec

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到默认 Registry
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

// NewCollectorWithRegistry 创建指标收集器并注册到指定 Registry
func NewCollectorWithRegistry(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.batchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_batches_total",
			Help:      "Total number of batches submitted to the inference engine",
		},
		[]string{"engine", "model", "status"},
	)

	c.batchPrompts = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_batch_prompts",
			Help:      "Number of prompts per inference batch",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"engine", "model"},
	)

	c.inferenceDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Inference engine call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"engine", "model"},
	)

	c.promptTokens = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompt_tokens_total",
			Help:      "Estimated number of prompt tokens submitted",
		},
		[]string{"engine", "model"},
	)

	c.generationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Total number of generate calls",
		},
		[]string{"mode", "status"}, // mode: fields, single_pass
	)

	c.generationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "End-to-end generate call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"mode"},
	)

	c.fieldsExtracted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fields_extracted_total",
			Help:      "Total number of schema fields filled by structured generation",
		},
		[]string{"model"},
	)

	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	c.logger.Debug("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordBatch 记录一次推理批次
func (c *Collector) RecordBatch(engine, model string, prompts, promptTokens int, duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.batchesTotal.WithLabelValues(engine, model, status(err)).Inc()
	c.batchPrompts.WithLabelValues(engine, model).Observe(float64(prompts))
	c.inferenceDuration.WithLabelValues(engine, model).Observe(duration.Seconds())
	if promptTokens > 0 {
		c.promptTokens.WithLabelValues(engine, model).Add(float64(promptTokens))
	}
}

// RecordGeneration 记录一次生成调用
func (c *Collector) RecordGeneration(mode string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.generationsTotal.WithLabelValues(mode, status(err)).Inc()
	c.generationDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordFields 记录结构化生成填充的字段数
func (c *Collector) RecordFields(model string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.fieldsExtracted.WithLabelValues(model).Add(float64(n))
}

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cacheType string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cacheType string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
