package providers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BaSui01/madlibs/llm"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		msg           string
		expectedCode  llm.ErrorCode
		expectedRetry bool
	}{
		{name: "401", status: http.StatusUnauthorized, msg: "bad key", expectedCode: llm.ErrUnauthorized},
		{name: "403", status: http.StatusForbidden, msg: "denied", expectedCode: llm.ErrForbidden},
		{name: "404 model", status: http.StatusNotFound, msg: "The model `x` does not exist.", expectedCode: llm.ErrModelNotFound},
		{name: "429", status: http.StatusTooManyRequests, msg: "slow down", expectedCode: llm.ErrRateLimited, expectedRetry: true},
		{name: "400 plain", status: http.StatusBadRequest, msg: "max_tokens must be at least 1", expectedCode: llm.ErrInvalidRequest},
		{name: "400 quota", status: http.StatusBadRequest, msg: "Quota exhausted", expectedCode: llm.ErrQuotaExceeded},
		{name: "408", status: http.StatusRequestTimeout, msg: "timeout", expectedCode: llm.ErrUpstreamTimeout, expectedRetry: true},
		{name: "504", status: http.StatusGatewayTimeout, msg: "timeout", expectedCode: llm.ErrUpstreamTimeout, expectedRetry: true},
		{name: "502", status: http.StatusBadGateway, msg: "bad gateway", expectedCode: llm.ErrProviderUnavailable, expectedRetry: true},
		{name: "503", status: http.StatusServiceUnavailable, msg: "loading", expectedCode: llm.ErrProviderUnavailable, expectedRetry: true},
		{name: "529", status: 529, msg: "overloaded", expectedCode: llm.ErrModelOverloaded, expectedRetry: true},
		{name: "500", status: http.StatusInternalServerError, msg: "boom", expectedCode: llm.ErrUpstreamError, expectedRetry: true},
		{name: "418", status: http.StatusTeapot, msg: "teapot", expectedCode: llm.ErrUpstreamError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(tt.status, tt.msg, "vllm")
			assert.Equal(t, tt.expectedCode, err.Code)
			assert.Equal(t, tt.expectedRetry, err.Retryable)
			assert.Equal(t, tt.status, err.HTTPStatus)
			assert.Equal(t, tt.msg, err.Message)
			assert.Equal(t, "vllm", err.Provider)
		})
	}
}

// Status, message and provider always survive the mapping.
func TestMapHTTPError_PreservesFields(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("fields preserved and 5xx retryable", prop.ForAll(
		func(status int, msg string) bool {
			err := MapHTTPError(status, msg, "vllm")
			if err.HTTPStatus != status || err.Message != msg || err.Provider != "vllm" {
				return false
			}
			if status >= 500 && !err.Retryable {
				return false
			}
			return true
		},
		gen.IntRange(400, 599),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestReadErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "openai nested",
			body: `{"error":{"message":"Invalid key","type":"auth_error"}}`,
			want: "Invalid key (type: auth_error)",
		},
		{
			name: "vllm top level",
			body: `{"object":"error","message":"The model does not exist.","type":"NotFoundError","code":404}`,
			want: "The model does not exist. (type: NotFoundError)",
		},
		{
			name: "message only",
			body: `{"message":"bad"}`,
			want: "bad",
		},
		{
			name: "plain text",
			body: "Internal Server Error\n",
			want: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReadErrorMessage(strings.NewReader(tt.body)))
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("broken") }

func TestReadErrorMessage_ReadFailure(t *testing.T) {
	assert.Equal(t, "failed to read error response", ReadErrorMessage(failingReader{}))
}

func TestNewCompletionRequest(t *testing.T) {
	temp := 0.0
	seed := 3
	params := &llm.SamplingParams{
		MaxTokens:        20,
		Temperature:      &temp,
		Seed:             &seed,
		Stop:             []string{"\n"},
		LogitsProcessors: []llm.LogitsProcessor{},
	}

	req := NewCompletionRequest("m", []string{"a", "b"}, params)
	data, err := json.Marshal(req)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, "m", wire["model"])
	assert.Equal(t, []any{"a", "b"}, wire["prompt"])
	assert.Equal(t, float64(20), wire["max_tokens"])
	assert.Equal(t, float64(0), wire["temperature"])
	assert.Equal(t, float64(3), wire["seed"])
	assert.Equal(t, false, wire["stream"])
	assert.NotContains(t, wire, "top_p")
	assert.NotContains(t, wire, "n")
	assert.NotContains(t, wire, "logits_processors")
}

func TestNewCompletionRequest_NilParams(t *testing.T) {
	req := NewCompletionRequest("m", []string{"a"}, nil)
	assert.Equal(t, CompletionRequest{Model: "m", Prompt: []string{"a"}}, req)
}

func TestBearerTokenHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/v1/completions", nil)
	BearerTokenHeaders(r, "")
	assert.Empty(t, r.Header.Get("Authorization"))
	assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

	BearerTokenHeaders(r, "sk-test")
	assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
}
