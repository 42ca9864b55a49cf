package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsProvider(t *testing.T) {
	tests := []struct {
		name string
		cfg  *ProviderConfig
		want string
	}{
		{name: "nil config defaults to ollama", cfg: nil, want: "ollama"},
		{name: "ollama by name", cfg: DefaultConfig("ollama"), want: "ollama"},
		{name: "lmstudio by name", cfg: DefaultConfig("lmstudio"), want: "lmstudio"},
		{name: "unknown name falls back to ollama", cfg: &ProviderConfig{Name: "mystery"}, want: "ollama"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	ollama := DefaultConfig("ollama")
	assert.Equal(t, "http://localhost:11434", ollama.Endpoint)
	assert.Equal(t, "llama3.2", ollama.Model)
	assert.Equal(t, 2, ollama.MaxRetries)
	assert.Equal(t, 60*time.Second, ollama.Timeout)

	lmstudio := DefaultConfig("lmstudio")
	assert.Equal(t, "http://localhost:1234", lmstudio.Endpoint)
	assert.Equal(t, "local-model", lmstudio.Model)
}

func TestHTTPErrorMessage(t *testing.T) {
	err := &HTTPError{StatusCode: 404, Message: "model not found"}
	assert.Equal(t, "llm: http 404: model not found", err.Error())
}

// TestNoRetryOnClientError verifies 4xx responses fail immediately instead
// of burning retry attempts.
func TestNoRetryOnClientError(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad request"))
	}))
	defer server.Close()

	provider := NewOllamaProvider(&ProviderConfig{
		Endpoint:   server.URL,
		Model:      "test-model",
		MaxRetries: 2,
	})

	_, err := provider.Generate(context.Background(), &GenerateRequest{Prompt: "hi"})
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, "bad request", httpErr.Message)

	assert.Equal(t, int32(1), requests.Load(), "client errors must not be retried")
}

// TestServerErrorExhaustsAttempts verifies the wrapped error after the final
// failed attempt.
func TestServerErrorExhaustsAttempts(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("backend down"))
	}))
	defer server.Close()

	provider := NewOllamaProvider(&ProviderConfig{
		Endpoint:   server.URL,
		Model:      "test-model",
		MaxRetries: 0,
	})

	_, err := provider.Generate(context.Background(), &GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed after 1 attempts")

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)

	assert.Equal(t, int32(1), requests.Load())
}

// TestBackoffHonorsContext verifies cancellation interrupts the backoff
// sleep instead of waiting it out.
func TestBackoffHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewOllamaProvider(&ProviderConfig{
		Endpoint:   server.URL,
		Model:      "test-model",
		MaxRetries: 3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := provider.Generate(ctx, &GenerateRequest{Prompt: "hi"})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, time.Second, "backoff should abort as soon as the context expires")
}

func TestReadLimitedBody(t *testing.T) {
	var requests atomic.Int32
	big := make([]byte, MaxErrorBodySize*2)
	for i := range big {
		big[i] = 'x'
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write(big)
	}))
	defer server.Close()

	provider := NewOllamaProvider(&ProviderConfig{
		Endpoint: server.URL,
		Model:    "test-model",
	})

	_, err := provider.Generate(context.Background(), &GenerateRequest{Prompt: "hi"})
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Len(t, httpErr.Message, MaxErrorBodySize, "error body must be truncated")
}
