package llm

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
)

// LogitsProcessor 在采样前改写 logits, 用于约束解码.
type LogitsProcessor interface {
	Name() string
	Process(tokenIDs []int, logits []float32) []float32
}

// SamplingParams 控制引擎的生成行为. 指针字段为 nil 时使用引擎默认值.
type SamplingParams struct {
	N                 int      `json:"n,omitempty"`
	BestOf            *int     `json:"best_of,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TopP              *float64 `json:"top_p,omitempty"`
	TopK              *int     `json:"top_k,omitempty"`
	MinP              *float64 `json:"min_p,omitempty"`
	PresencePenalty   *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty  *float64 `json:"frequency_penalty,omitempty"`
	RepetitionPenalty *float64 `json:"repetition_penalty,omitempty"`
	Seed              *int     `json:"seed,omitempty"`
	Stop              []string `json:"stop,omitempty"`
	StopTokenIDs      []int    `json:"stop_token_ids,omitempty"`
	IgnoreEOS         bool     `json:"ignore_eos,omitempty"`
	MinTokens         int      `json:"min_tokens,omitempty"`
	MaxTokens         int      `json:"max_tokens,omitempty"`
	Logprobs          *int     `json:"logprobs,omitempty"`
	SkipSpecialTokens *bool    `json:"skip_special_tokens,omitempty"`

	// LogitsProcessors 非 nil 表示请求了约束采样
	LogitsProcessors []LogitsProcessor `json:"-"`
}

// Candidates 返回每个提示词的候选数量.
func (p *SamplingParams) Candidates() int {
	if p == nil || p.N <= 0 {
		return 1
	}
	return p.N
}

// Validate 校验参数取值范围.
func (p *SamplingParams) Validate() error {
	var errs []string
	if p.N < 0 {
		errs = append(errs, "n must be positive")
	}
	if p.BestOf != nil && *p.BestOf < p.Candidates() {
		errs = append(errs, "best_of must be >= n")
	}
	if p.Temperature != nil && *p.Temperature < 0 {
		errs = append(errs, "temperature must be non-negative")
	}
	if p.TopP != nil && (*p.TopP <= 0 || *p.TopP > 1) {
		errs = append(errs, "top_p must be in (0, 1]")
	}
	if p.MinP != nil && (*p.MinP < 0 || *p.MinP > 1) {
		errs = append(errs, "min_p must be in [0, 1]")
	}
	if p.RepetitionPenalty != nil && *p.RepetitionPenalty <= 0 {
		errs = append(errs, "repetition_penalty must be positive")
	}
	if p.MaxTokens < 1 {
		errs = append(errs, fmt.Sprintf("max_tokens must be at least 1, got %d", p.MaxTokens))
	}
	if p.MinTokens < 0 || (p.MinTokens > p.MaxTokens && p.MaxTokens > 0) {
		errs = append(errs, "min_tokens must be in [0, max_tokens]")
	}
	if len(errs) > 0 {
		return &Error{
			Code:       ErrInvalidRequest,
			Message:    "invalid sampling params: " + strings.Join(errs, "; "),
			HTTPStatus: http.StatusBadRequest,
		}
	}
	return nil
}

type kwargSetter func(p *SamplingParams, v any) error

var samplingKwargs = map[string]kwargSetter{
	"n":                  intField(func(p *SamplingParams, v int) { p.N = v }),
	"best_of":            intField(func(p *SamplingParams, v int) { p.BestOf = &v }),
	"temperature":        floatField(func(p *SamplingParams, v float64) { p.Temperature = &v }),
	"top_p":              floatField(func(p *SamplingParams, v float64) { p.TopP = &v }),
	"top_k":              intField(func(p *SamplingParams, v int) { p.TopK = &v }),
	"min_p":              floatField(func(p *SamplingParams, v float64) { p.MinP = &v }),
	"presence_penalty":   floatField(func(p *SamplingParams, v float64) { p.PresencePenalty = &v }),
	"frequency_penalty":  floatField(func(p *SamplingParams, v float64) { p.FrequencyPenalty = &v }),
	"repetition_penalty": floatField(func(p *SamplingParams, v float64) { p.RepetitionPenalty = &v }),
	"seed":               intField(func(p *SamplingParams, v int) { p.Seed = &v }),
	"ignore_eos":         boolField(func(p *SamplingParams, v bool) { p.IgnoreEOS = v }),
	"min_tokens":         intField(func(p *SamplingParams, v int) { p.MinTokens = v }),
	"max_tokens":         intField(func(p *SamplingParams, v int) { p.MaxTokens = v }),
	"logprobs":           intField(func(p *SamplingParams, v int) { p.Logprobs = &v }),
	"skip_special_tokens": boolField(func(p *SamplingParams, v bool) {
		p.SkipSpecialTokens = &v
	}),
	"stop":           stringsField(func(p *SamplingParams, v []string) { p.Stop = v }),
	"stop_token_ids": intsField(func(p *SamplingParams, v []int) { p.StopTokenIDs = v }),
}

// SamplingKwargNames 返回支持的关键字参数名称.
func SamplingKwargNames() []string {
	names := make([]string, 0, len(samplingKwargs))
	for name := range samplingKwargs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewSamplingParams 由关键字参数构造采样参数, 未知名称或类型不符时返回 ErrInvalidRequest.
func NewSamplingParams(kwargs map[string]any) (*SamplingParams, error) {
	p := &SamplingParams{}
	names := make([]string, 0, len(kwargs))
	for name := range kwargs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		set, ok := samplingKwargs[name]
		if !ok {
			return nil, invalidKwarg("unexpected sampling keyword argument %q", name)
		}
		if err := set(p, kwargs[name]); err != nil {
			return nil, invalidKwarg("sampling keyword argument %q: %v", name, err)
		}
	}
	return p, nil
}

func invalidKwarg(format string, args ...any) error {
	return &Error{
		Code:       ErrInvalidRequest,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: http.StatusBadRequest,
	}
}

func intField(set func(*SamplingParams, int)) kwargSetter {
	return func(p *SamplingParams, v any) error {
		i, err := toInt(v)
		if err != nil {
			return err
		}
		set(p, i)
		return nil
	}
}

func floatField(set func(*SamplingParams, float64)) kwargSetter {
	return func(p *SamplingParams, v any) error {
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		set(p, f)
		return nil
	}
}

func boolField(set func(*SamplingParams, bool)) kwargSetter {
	return func(p *SamplingParams, v any) error {
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		set(p, b)
		return nil
	}
}

func stringsField(set func(*SamplingParams, []string)) kwargSetter {
	return func(p *SamplingParams, v any) error {
		switch s := v.(type) {
		case string:
			set(p, []string{s})
		case []string:
			set(p, append([]string(nil), s...))
		case []any:
			out := make([]string, 0, len(s))
			for _, e := range s {
				str, ok := e.(string)
				if !ok {
					return fmt.Errorf("expected string element, got %T", e)
				}
				out = append(out, str)
			}
			set(p, out)
		default:
			return fmt.Errorf("expected string or list of strings, got %T", v)
		}
		return nil
	}
}

func intsField(set func(*SamplingParams, []int)) kwargSetter {
	return func(p *SamplingParams, v any) error {
		switch s := v.(type) {
		case []int:
			set(p, append([]int(nil), s...))
		case []any:
			out := make([]int, 0, len(s))
			for _, e := range s {
				i, err := toInt(e)
				if err != nil {
					return err
				}
				out = append(out, i)
			}
			set(p, out)
		default:
			return fmt.Errorf("expected list of integers, got %T", v)
		}
		return nil
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case float64:
		// YAML/JSON 解码得到的整数值
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
