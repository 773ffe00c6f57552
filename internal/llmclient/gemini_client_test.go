package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/config"
)

func testLLMConfig(endpoint string) config.LLMConfig {
	return config.LLMConfig{
		Provider:    config.ProviderGemini,
		Model:       "gemini-2.0-flash",
		APIKey:      "test-key",
		Endpoint:    endpoint,
		APITimeout:  5 * time.Second,
		Temperature: 0.0,
		MaxTokens:   1024,
	}
}

func geminiResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"parts": []map[string]any{{"text": text}},
					"role":  "model",
				},
				"finishReason": "STOP",
			},
		},
	}
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	cfg := testLLMConfig("")
	cfg.APIKey = ""
	_, err := NewGeminiClient(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestInfer_Success(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var payload geminiRequestPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload.Contents, 1)
		gotPrompt = payload.Contents[0].Parts[0].Text

		_ = json.NewEncoder(w).Encode(geminiResponse(`{"steps": []}`))
	}))
	defer server.Close()

	client, err := NewGeminiClient(testLLMConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	out, err := client.Infer(context.Background(), "plan a login")
	require.NoError(t, err)
	assert.Equal(t, `{"steps": []}`, out)
	assert.Equal(t, "plan a login", gotPrompt)
}

func TestInfer_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(geminiResponse("recovered"))
	}))
	defer server.Close()

	client, err := NewGeminiClient(testLLMConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	out, err := client.Infer(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestInfer_PermanentErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewGeminiClient(testLLMConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.Infer(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load(), "4xx responses must not be retried")
}

func TestInfer_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	client, err := NewGeminiClient(testLLMConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.Infer(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestNewClient_Factory(t *testing.T) {
	cfg := testLLMConfig("http://localhost:1")
	client, err := NewClient(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, client)

	cfg.Provider = "mystery"
	_, err = NewClient(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}
