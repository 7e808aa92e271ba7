package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEstimatorTokenizer_CountTokens(t *testing.T) {
	est := NewEstimatorTokenizer("llama", 0)
	assert.Equal(t, 4096, est.MaxTokens())
	assert.Equal(t, KindEstimator, est.Name())

	tests := []struct {
		text string
		want int
	}{
		{text: "", want: 0},
		{text: "a", want: 1},
		{text: "abcdefgh", want: 2},
		{text: "你好世界", want: 2},
	}
	for _, tt := range tests {
		got, err := est.CountTokens(tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "text %q", tt.text)
	}
}

// Appending text never reduces the estimate.
func TestEstimatorTokenizer_Monotonic(t *testing.T) {
	est := NewEstimatorTokenizer("m", 0)
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.String().Draw(rt, "a")
		b := rapid.String().Draw(rt, "b")
		na, _ := est.CountTokens(a)
		nab, _ := est.CountTokens(a + b)
		if nab < na {
			rt.Fatalf("count(%q)=%d < count(%q)=%d", a+b, nab, a, na)
		}
	})
}

func TestNew(t *testing.T) {
	tok, err := New("", "m")
	require.NoError(t, err)
	assert.Equal(t, KindEstimator, tok.Name())

	tok, err = New("TIKTOKEN", "gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, KindTiktoken, tok.Name())
	assert.Equal(t, "o200k_base", tok.(*TiktokenTokenizer).Encoding())
	assert.Equal(t, 128000, tok.MaxTokens())

	_, err = New("sentencepiece", "m")
	assert.Error(t, err)
}

func TestNewTiktokenTokenizer_DefaultEncoding(t *testing.T) {
	tok, err := NewTiktokenTokenizer("meta-llama/Meta-Llama-3-8B-Instruct")
	require.NoError(t, err)
	assert.Equal(t, "cl100k_base", tok.Encoding())
	assert.Equal(t, 8192, tok.MaxTokens())
}

func TestCountAll(t *testing.T) {
	est := NewEstimatorTokenizer("m", 0)
	total, err := CountAll(est, []string{"abcdefgh", "", "a"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestRegistry(t *testing.T) {
	short := NewEstimatorTokenizer("short", 100)
	long := NewEstimatorTokenizer("long", 200)
	RegisterTokenizer("qwen", short)
	RegisterTokenizer("qwen2.5", long)

	got, err := GetTokenizer("qwen")
	require.NoError(t, err)
	assert.Same(t, short, got)

	got, err = GetTokenizer("qwen2.5-7b-instruct")
	require.NoError(t, err)
	assert.Same(t, long, got)

	_, err = GetTokenizer("mistral-7b")
	assert.Error(t, err)
	assert.Equal(t, KindEstimator, GetTokenizerOrEstimator("mistral-7b").Name())
}
