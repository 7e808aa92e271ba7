package metrics

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector.batchesTotal)
	assert.NotNil(t, collector.inferenceDuration)
	assert.NotNil(t, collector.generationsTotal)
	assert.NotNil(t, collector.cacheHits)
}

func TestCollector_RecordBatch(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordBatch("vllm", "m", 4, 120, 200*time.Millisecond, nil)
	collector.RecordBatch("vllm", "m", 2, 0, time.Second, errors.New("boom"))

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.batchesTotal.WithLabelValues("vllm", "m", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.batchesTotal.WithLabelValues("vllm", "m", "error")))
	assert.Equal(t, float64(120), testutil.ToFloat64(collector.promptTokens.WithLabelValues("vllm", "m")))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.inferenceDuration))
}

func TestCollector_RecordGeneration(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordGeneration("fields", time.Second, nil)
	collector.RecordGeneration("single_pass", time.Second, nil)
	collector.RecordGeneration("fields", time.Second, errors.New("x"))
	collector.RecordFields("m", 3)
	collector.RecordFields("m", 0)

	assert.Equal(t, 3, testutil.CollectAndCount(collector.generationsTotal))
	assert.Equal(t, float64(3), testutil.ToFloat64(collector.fieldsExtracted.WithLabelValues("m")))
}

func TestCollector_RecordCache(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordCacheHit("local")
	collector.RecordCacheHit("local")
	collector.RecordCacheMiss("redis")

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.cacheHits.WithLabelValues("local")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.cacheMisses.WithLabelValues("redis")))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var collector *Collector
	assert.NotPanics(t, func() {
		collector.RecordBatch("vllm", "m", 1, 1, time.Millisecond, nil)
		collector.RecordGeneration("fields", time.Millisecond, nil)
		collector.RecordFields("m", 1)
		collector.RecordCacheHit("local")
		collector.RecordCacheMiss("local")
	})
}

func TestNewCollectorWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewCollectorWithRegistry("madlibs", reg, nil)
	collector.RecordCacheHit("redis")

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "madlibs_cache_hits_total")

	// same namespace on a fresh registry must not panic
	assert.NotPanics(t, func() {
		NewCollectorWithRegistry("madlibs", prometheus.NewRegistry(), nil)
	})
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				collector.RecordBatch("vllm", "m", 1, 1, time.Millisecond, nil)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	assert.Equal(t, float64(1000), testutil.ToFloat64(collector.batchesTotal.WithLabelValues("vllm", "m", "success")))
}
