package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regimen-health/regimen/internal/config"
	apperrors "github.com/regimen-health/regimen/internal/errors"
)

func chatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func testProvider(baseURL string) config.Provider {
	return config.Provider{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "gpt-4o",
	}
}

func TestJSONChat(t *testing.T) {
	var gotReq ChatRequest
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": `{"suggestions": []}`}},
			},
		})
	})

	c := NewClient(testProvider(srv.URL))
	content, err := c.JSONChat(context.Background(), "system prompt", "user message")
	require.NoError(t, err)
	assert.Equal(t, `{"suggestions": []}`, content)

	require.NotNil(t, gotReq.ResponseFormat)
	assert.Equal(t, "json_object", gotReq.ResponseFormat.Type)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
}

func TestChatCompletionNoAPIKey(t *testing.T) {
	c := NewClient(config.Provider{BaseURL: "http://localhost:1"})
	_, err := c.ChatCompletion(context.Background(), ChatRequest{})
	assert.Equal(t, apperrors.ErrProviderNotConfigured, err)
}

func TestChatCompletionRateLimited(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	c := NewClient(testProvider(srv.URL))
	_, err := c.ChatCompletion(context.Background(), ChatRequest{})
	assert.Equal(t, apperrors.ErrRateLimited.Code, apperrors.GetCode(err))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := NewClient(testProvider(srv.URL))
	for i := 0; i < 3; i++ {
		_, err := c.ChatCompletion(context.Background(), ChatRequest{})
		require.Error(t, err)
	}

	// Circuit is open now; the failure is reported without hitting the server.
	_, err := c.ChatCompletion(context.Background(), ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrProviderUnavailable.Code, apperrors.GetCode(err))
}

func TestJSONChatEmptyChoices(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	})

	c := NewClient(testProvider(srv.URL))
	_, err := c.JSONChat(context.Background(), "s", "u")
	assert.Error(t, err)
}
