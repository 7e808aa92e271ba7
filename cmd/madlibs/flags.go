package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// kwargFlags 收集可重复的 --set name=value 采样参数, 值按 YAML 标量/列表解析
type kwargFlags map[string]any

func (k kwargFlags) String() string {
	parts := make([]string, 0, len(k))
	for name, v := range k {
		parts = append(parts, fmt.Sprintf("%s=%v", name, v))
	}
	return strings.Join(parts, ",")
}

func (k kwargFlags) Set(s string) error {
	name, raw, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return fmt.Errorf("parse value of %s: %w", name, err)
	}
	if v == nil {
		v = raw
	}
	k[name] = v
	return nil
}

// generateFlags 是 extract 与 single 共用的参数
type generateFlags struct {
	configPath   string
	schemaPath   string
	prompt       string
	promptFile   string
	templateFile string
	dagPath      string
	model        string
	baseURL      string
	batchSize    int
	maxNewTokens int
	constrained  bool
	sampling     kwargFlags

	set map[string]bool
}

func newGenerateFlags(name string) (*flag.FlagSet, *generateFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	g := &generateFlags{sampling: kwargFlags{}, set: map[string]bool{}}

	fs.StringVar(&g.configPath, "config", "", "Path to config file (YAML)")
	fs.StringVar(&g.schemaPath, "schema", "", "Path to JSON Schema file")
	fs.StringVar(&g.prompt, "prompt", "", "Input text")
	fs.StringVar(&g.promptFile, "prompt-file", "", "Read input text from file ('-' for stdin)")
	fs.StringVar(&g.templateFile, "template-file", "", "Prompt template file")
	fs.StringVar(&g.model, "model", "", "Model served by vLLM (overrides config)")
	fs.StringVar(&g.baseURL, "base-url", "", "vLLM server URL (overrides config)")
	fs.IntVar(&g.maxNewTokens, "max-new-tokens", 0, "Max tokens per generation (overrides config)")
	fs.Var(g.sampling, "set", "Sampling parameter name=value (repeatable)")
	if name == "extract" {
		fs.StringVar(&g.dagPath, "dag", "", "Field dependency graph (YAML map of field -> dependencies)")
		fs.IntVar(&g.batchSize, "batch-size", 0, "Fields per batch (overrides config)")
		fs.BoolVar(&g.constrained, "constrained", true, "Request constrained sampling")
	}
	return fs, g
}

func (g *generateFlags) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) { g.set[f.Name] = true })

	if g.schemaPath == "" {
		return fmt.Errorf("--schema is required")
	}
	if g.prompt == "" && g.promptFile == "" {
		return fmt.Errorf("one of --prompt or --prompt-file is required")
	}
	return nil
}

// readPrompt 返回输入文本, --prompt-file 优先
func (g *generateFlags) readPrompt(stdin io.Reader) (string, error) {
	if g.promptFile == "" {
		return g.prompt, nil
	}
	if g.promptFile == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read prompt from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(g.promptFile)
	if err != nil {
		return "", fmt.Errorf("read prompt file: %w", err)
	}
	return string(data), nil
}

// loadDAG 读取 YAML 格式的字段依赖图
func loadDAG(path string) (map[string][]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dag file: %w", err)
	}
	var dag map[string][]string
	if err := yaml.Unmarshal(data, &dag); err != nil {
		return nil, fmt.Errorf("parse dag file: %w", err)
	}
	return dag, nil
}
