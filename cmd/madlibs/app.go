package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/madlibs/config"
	rediscache "github.com/BaSui01/madlibs/internal/cache"
	"github.com/BaSui01/madlibs/internal/metrics"
	"github.com/BaSui01/madlibs/internal/server"
	"github.com/BaSui01/madlibs/internal/telemetry"
	"github.com/BaSui01/madlibs/internal/tlsutil"
	"github.com/BaSui01/madlibs/llm"
	llmcache "github.com/BaSui01/madlibs/llm/cache"
	"github.com/BaSui01/madlibs/llm/providers"
	"github.com/BaSui01/madlibs/llm/providers/vllm"
	"github.com/BaSui01/madlibs/llm/tokenizer"
	"github.com/BaSui01/madlibs/prompts"
	"github.com/BaSui01/madlibs/structured"
)

// app 持有一次命令执行所需的全部组件
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	vllm   *vllm.Engine
	model  *structured.Model

	closers []func(context.Context) error
}

// loadConfig 加载并校验配置, 命令行覆盖项在校验前生效
func loadConfig(path string, override func(*config.Config)) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path).RequireConfigFile()
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func engineConfig(cfg config.EngineConfig) vllm.Config {
	return vllm.Config{
		BaseProviderConfig: providers.BaseProviderConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		},
		TLS: tlsutil.ClientOptions{
			CAFile:             cfg.CAFile,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}
}

// newVLLMEngine 创建 vLLM 引擎. 未配置模型时使用服务端的第一个模型.
func newVLLMEngine(ctx context.Context, cfg config.EngineConfig, logger *zap.Logger) (*vllm.Engine, error) {
	engine, err := vllm.New(engineConfig(cfg), logger)
	if err != nil {
		return nil, err
	}
	if cfg.Model != "" {
		if cfg.CheckModel {
			if err := engine.EnsureModel(ctx); err != nil {
				return nil, err
			}
		}
		return engine, nil
	}

	models, err := engine.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve model: %w", err)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("resolve model: server reports no models")
	}
	cfg.Model = models[0]
	logger.Info("using served model", zap.String("model", cfg.Model))
	return vllm.New(engineConfig(cfg), logger)
}

// newApp 按配置装配引擎、缓存、指标与遥测
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := initLogger(cfg.Log)
	a := &app{cfg: cfg, logger: logger}

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	} else {
		a.closers = append(a.closers, otelProviders.Shutdown)
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		collector = metrics.NewCollectorWithRegistry(cfg.Metrics.Namespace, reg, logger)
		if cfg.Metrics.Addr != "" {
			srvCfg := server.DefaultConfig()
			srvCfg.Addr = cfg.Metrics.Addr
			srv := server.NewManager(server.NewMetricsHandler(reg), srvCfg, logger)
			if err := srv.Start(); err != nil {
				a.close()
				return nil, fmt.Errorf("start metrics server: %w", err)
			}
			a.closers = append(a.closers, srv.Shutdown)
		}
	}

	a.vllm, err = newVLLMEngine(ctx, cfg.Engine, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	var engine llm.Engine = a.vllm
	if cfg.Cache.Enabled {
		engine, err = a.withCache(engine, collector)
		if err != nil {
			a.close()
			return nil, err
		}
	}

	tok, err := tokenizer.New(cfg.Tokenizer.Kind, a.vllm.Model())
	if err != nil {
		a.close()
		return nil, err
	}

	a.model = structured.NewModel(engine,
		structured.WithLogger(logger),
		structured.WithMetrics(collector),
		structured.WithTokenizer(tok),
		structured.WithTracer(telemetry.Tracer()),
	)
	return a, nil
}

func (a *app) withCache(engine llm.Engine, collector *metrics.Collector) (llm.Engine, error) {
	c := a.cfg.Cache
	cacheCfg := &llmcache.Config{
		LocalMaxSize: c.LocalMaxSize,
		LocalTTL:     c.LocalTTL,
		RemoteTTL:    c.Redis.TTL,
		EnableLocal:  c.LocalMaxSize > 0,
		EnableRemote: c.Redis.Enabled,
		KeyPrefix:    c.KeyPrefix,
	}

	var store llmcache.Store
	if c.Redis.Enabled {
		mgr, err := rediscache.NewManager(rediscache.Config{
			Addr:       c.Redis.Addr,
			Password:   c.Redis.Password,
			DB:         c.Redis.DB,
			DefaultTTL: c.Redis.TTL,
			MaxRetries: rediscache.DefaultConfig().MaxRetries,
			PoolSize:   c.Redis.PoolSize,
			TLS:        c.Redis.TLS,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return mgr.Close() })
		store = mgr
	}

	return llmcache.NewEngine(engine, store, cacheCfg, a.logger, llmcache.WithMetrics(collector)), nil
}

// close 按注册的逆序释放资源
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("shutdown failed", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}

// generateOptions 合并配置与命令行参数
func (a *app) generateOptions(g *generateFlags, singlePass bool) ([]structured.GenerateOption, error) {
	gen := a.cfg.Generation
	var opts []structured.GenerateOption

	templateFile := gen.TemplateFile
	maxNewTokens := gen.MaxNewTokens
	if singlePass {
		templateFile = gen.SinglePassTemplateFile
		maxNewTokens = gen.SinglePassMaxNewTokens
	}
	if g.templateFile != "" {
		templateFile = g.templateFile
	}
	if templateFile != "" {
		data, err := os.ReadFile(templateFile)
		if err != nil {
			return nil, fmt.Errorf("read template file: %w", err)
		}
		if err := a.checkTemplate(string(data), singlePass); err != nil {
			return nil, fmt.Errorf("template %s: %w", templateFile, err)
		}
		opts = append(opts, structured.WithTemplate(string(data)))
	}

	if g.set["max-new-tokens"] {
		maxNewTokens = g.maxNewTokens
	}
	opts = append(opts, structured.WithMaxNewTokens(maxNewTokens))

	kwargs := make(map[string]any, len(gen.Sampling)+len(g.sampling))
	maps.Copy(kwargs, gen.Sampling)
	maps.Copy(kwargs, g.sampling)
	opts = append(opts, structured.WithSamplingKwargs(kwargs))

	if !singlePass {
		batchSize := gen.BatchSize
		if g.set["batch-size"] {
			batchSize = g.batchSize
		}
		constrained := gen.UseConstrainedSampling
		if g.set["constrained"] {
			constrained = g.constrained
		}
		dag, err := loadDAG(g.dagPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			structured.WithBatchSize(batchSize),
			structured.WithConstrainedSampling(constrained),
			structured.WithDAG(dag),
		)
	}
	return opts, nil
}

// checkTemplate 在发起推理前校验模板占位符
func (a *app) checkTemplate(template string, singlePass bool) error {
	allowed := []string{prompts.KeyPrompt, prompts.KeyKey, prompts.KeyType}
	if singlePass {
		allowed = []string{prompts.KeyPrompt, prompts.KeySchema}
	}
	names, err := prompts.Placeholders(template)
	if err != nil {
		return err
	}
	for _, name := range names {
		if !slices.Contains(allowed, name) {
			return fmt.Errorf("%w: {%s} (allowed: %v)", prompts.ErrUnknownPlaceholder, name, allowed)
		}
	}
	if !slices.Contains(names, prompts.KeyPrompt) {
		a.logger.Warn("template does not reference {prompt}")
	}
	return nil
}

// =============================================================================
// 🧩 子命令
// =============================================================================

func runExtract(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	return runGenerate("extract", args, stdin, stdout, stderr)
}

func runSingle(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	return runGenerate("single", args, stdin, stdout, stderr)
}

func runGenerate(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs, g := newGenerateFlags(name)
	fs.SetOutput(stderr)
	if err := g.parse(fs, args); err != nil {
		return err
	}

	cfg, err := loadConfig(g.configPath, func(c *config.Config) {
		if g.model != "" {
			c.Engine.Model = g.model
		}
		if g.baseURL != "" {
			c.Engine.BaseURL = g.baseURL
		}
	})
	if err != nil {
		return err
	}

	prompt, err := g.readPrompt(stdin)
	if err != nil {
		return err
	}
	schemaText, err := os.ReadFile(g.schemaPath)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	singlePass := name == "single"
	opts, err := a.generateOptions(g, singlePass)
	if err != nil {
		return err
	}

	if singlePass {
		text, err := a.model.DefaultGenerate(ctx, prompt, string(schemaText), opts...)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, text)
		return err
	}

	doc, err := a.model.Generate(ctx, prompt, string(schemaText), opts...)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func runHealth(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	model := fs.String("model", "", "Model that must be served (overrides config)")
	baseURL := fs.String("base-url", "", "vLLM server URL (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath, func(c *config.Config) {
		if *model != "" {
			c.Engine.Model = *model
		}
		if *baseURL != "" {
			c.Engine.BaseURL = *baseURL
		}
	})
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	engine, err := vllm.New(engineConfig(cfg.Engine), logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Engine.Timeout)
	defer cancel()

	status, err := engine.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if cfg.Engine.Model != "" {
		if err := engine.EnsureModel(ctx); err != nil {
			return err
		}
	}

	fmt.Fprintf(stdout, "OK (%s) models: %v\n", status.Latency.Round(time.Millisecond), status.Models)
	return nil
}
