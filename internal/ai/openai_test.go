package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"feedjam/internal/enrich"
	"feedjam/internal/model"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, content string, seen *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *OpenAIClient {
	t.Helper()
	c, err := NewOpenAI(Config{APIKey: "test", Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestProcessBatch(t *testing.T) {
	var req openai.ChatCompletionRequest
	srv := completionServer(t, `{"results":[
		{"index":2,"title":null,"summary":"Second summary."},
		{"index":1,"title":"Shorter title","summary":" First summary. "},
		{"index":9,"title":"stray","summary":"stray"}
	]}`, &req)
	c := newTestClient(t, srv)

	got, err := c.ProcessBatch(context.Background(), []enrich.ContentItem{
		{Title: "A very long original title", Content: "Body one"},
		{Title: "Second"},
		{Title: "Third"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[int]model.Enrichment{
		0: {Title: "Shorter title", Summary: "First summary."},
		1: {Summary: "Second summary."},
	}, got)

	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
	require.Len(t, req.Messages, 2)
	assert.Contains(t, req.Messages[1].Content, "[1] Title: A very long original title\nContent: Body one")
	assert.Contains(t, req.Messages[1].Content, "[3] Title: Third")
}

func TestProcessBatchRejectsMalformedJSON(t *testing.T) {
	srv := completionServer(t, `not json`, nil)
	c := newTestClient(t, srv)
	_, err := c.ProcessBatch(context.Background(), []enrich.ContentItem{{Title: "x"}})
	assert.Error(t, err)
}

func TestProcessBatchSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv)
	_, err := c.ProcessBatch(context.Background(), []enrich.ContentItem{{Title: "x"}})
	assert.Error(t, err)
}

func TestNewOpenAIRequiresModel(t *testing.T) {
	_, err := NewOpenAI(Config{APIKey: "k"})
	assert.Error(t, err)
}

func TestOpenAIClientIsAProvider(t *testing.T) {
	var _ enrich.Provider = (*OpenAIClient)(nil)
}
