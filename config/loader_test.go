// 配置加载器与默认配置测试。
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// 引擎
	assert.Equal(t, "http://localhost:8000", cfg.Engine.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.Engine.Timeout)
	assert.Empty(t, cfg.Engine.Model)

	// 生成参数
	assert.Equal(t, 4, cfg.Generation.BatchSize)
	assert.Equal(t, 20, cfg.Generation.MaxNewTokens)
	assert.Equal(t, 256, cfg.Generation.SinglePassMaxNewTokens)
	assert.True(t, cfg.Generation.UseConstrainedSampling)

	// 缓存默认关闭
	assert.False(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Cache.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)

	assert.Equal(t, "estimator", cfg.Tokenizer.Kind)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "madlibs", cfg.Metrics.Namespace)
	assert.False(t, cfg.Telemetry.Enabled)

	require.NoError(t, cfg.Validate())
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 4, cfg.Generation.BatchSize)
	assert.Equal(t, "http://localhost:8000", cfg.Engine.BaseURL)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	yamlContent := `
engine:
  base_url: "http://gpu-box:8000"
  model: "mistralai/Mistral-7B-Instruct-v0.2"
  timeout: 2m
generation:
  batch_size: 8
  max_new_tokens: 32
  sampling:
    temperature: 0.2
    top_k: 40
cache:
  enabled: true
  redis:
    enabled: true
    addr: "redis:6379"
log:
  level: debug
  output_paths: ["stdout"]
`
	path := filepath.Join(t.TempDir(), "madlibs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "http://gpu-box:8000", cfg.Engine.BaseURL)
	assert.Equal(t, "mistralai/Mistral-7B-Instruct-v0.2", cfg.Engine.Model)
	assert.Equal(t, 2*time.Minute, cfg.Engine.Timeout)
	assert.Equal(t, 8, cfg.Generation.BatchSize)
	assert.Equal(t, 32, cfg.Generation.MaxNewTokens)
	// 未设置的字段保留默认值
	assert.Equal(t, 256, cfg.Generation.SinglePassMaxNewTokens)
	assert.True(t, cfg.Generation.UseConstrainedSampling)

	require.Len(t, cfg.Generation.Sampling, 2)
	assert.Equal(t, 0.2, cfg.Generation.Sampling["temperature"])
	assert.Equal(t, 40, cfg.Generation.Sampling["top_k"])

	assert.True(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Cache.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"stdout"}, cfg.Log.OutputPaths)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Generation.BatchSize)
}

func TestLoader_RequireConfigFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := NewLoader().WithConfigPath(missing).RequireConfigFile().Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
	assert.Contains(t, err.Error(), missing)

	path := filepath.Join(t.TempDir(), "madlibs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generation:\n  batch_size: 2\n"), 0o644))
	cfg, err := NewLoader().WithConfigPath(path).RequireConfigFile().Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Generation.BatchSize)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [unclosed"), 0o644))

	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from file")
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "madlibs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generation:\n  batch_size: 8\n"), 0o644))

	t.Setenv("MADLIBS_GENERATION_BATCH_SIZE", "2")
	t.Setenv("MADLIBS_ENGINE_MODEL", "facebook/opt-125m")
	t.Setenv("MADLIBS_ENGINE_TIMEOUT", "5s")
	t.Setenv("MADLIBS_GENERATION_USE_CONSTRAINED_SAMPLING", "false")
	t.Setenv("MADLIBS_CACHE_REDIS_DB", "3")
	t.Setenv("MADLIBS_TELEMETRY_SAMPLE_RATE", "0.5")
	t.Setenv("MADLIBS_LOG_OUTPUT_PATHS", "stdout, /tmp/madlibs.log")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Generation.BatchSize)
	assert.Equal(t, "facebook/opt-125m", cfg.Engine.Model)
	assert.Equal(t, 5*time.Second, cfg.Engine.Timeout)
	assert.False(t, cfg.Generation.UseConstrainedSampling)
	assert.Equal(t, 3, cfg.Cache.Redis.DB)
	assert.Equal(t, 0.5, cfg.Telemetry.SampleRate)
	assert.Equal(t, []string{"stdout", "/tmp/madlibs.log"}, cfg.Log.OutputPaths)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("ML_ENGINE_BASE_URL", "http://other:9000")

	cfg, err := NewLoader().WithEnvPrefix("ML").Load()
	require.NoError(t, err)
	assert.Equal(t, "http://other:9000", cfg.Engine.BaseURL)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("MADLIBS_GENERATION_BATCH_SIZE", "lots")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MADLIBS_GENERATION_BATCH_SIZE")
}

func TestLoader_Validators(t *testing.T) {
	sentinel := errors.New("model required")

	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			if c.Engine.Model == "" {
				return sentinel
			}
			return nil
		}).
		Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)

	t.Setenv("MADLIBS_ENGINE_MODEL", "m")
	cfg, err := NewLoader().WithValidator(func(c *Config) error { return c.Validate() }).Load()
	require.NoError(t, err)
	assert.Equal(t, "m", cfg.Engine.Model)
}

func TestMustLoad_Panics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [1, 2"), 0o644))

	assert.Panics(t, func() { MustLoad(path) })
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MADLIBS_METRICS_ENABLED", "true")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Metrics.Enabled)
}

// --- Validate 测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty base url", func(c *Config) { c.Engine.BaseURL = "" }, "engine.base_url"},
		{"zero timeout", func(c *Config) { c.Engine.Timeout = 0 }, "engine.timeout"},
		{"zero batch size", func(c *Config) { c.Generation.BatchSize = 0 }, "batch_size"},
		{"zero max tokens", func(c *Config) { c.Generation.MaxNewTokens = 0 }, "max new tokens"},
		{"redis without addr", func(c *Config) { c.Cache.Redis.Enabled = true; c.Cache.Redis.Addr = "" }, "cache.redis.addr"},
		{"unknown tokenizer", func(c *Config) { c.Tokenizer.Kind = "sentencepiece" }, "tokenizer kind"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log level"},
		{"sample rate", func(c *Config) { c.Telemetry.SampleRate = 2 }, "sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
