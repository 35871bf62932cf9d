package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"feedjam/internal/enrich"
	"feedjam/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements enrich.Provider using the Chat Completions API
// in JSON mode, one request per batch.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string // optional
	Timeout time.Duration
}

func NewOpenAI(cfg Config) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("openai model must be specified")
	}
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cc), model: cfg.Model, timeout: timeout}, nil
}

const systemPrompt = `You are a content analysis assistant. You analyze articles and provide structured information about them. Always respond with valid JSON.`

const batchPrompt = `Analyze these articles and return a JSON response.

Articles:
%s

For each article, provide:
- index: the number shown in brackets before the article.
- title: a cleaned, concise title (max 80 characters). If the original title is already short and clear, return null.
- summary: a concise 1-2 sentence summary (max 250 characters). Focus on the key insight or news. Be direct, no filler phrases like "This article discusses...".

Return JSON in this exact format:
{"results": [{"index": 1, "title": "..." or null, "summary": "..."}]}

Analyze %d articles.`

type batchResponse struct {
	Results []struct {
		Index   int     `json:"index"`
		Title   *string `json:"title"`
		Summary *string `json:"summary"`
	} `json:"results"`
}

func formatItems(items []enrich.ContentItem) string {
	b := &strings.Builder{}
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(b, "[%d] Title: %s", i+1, it.Title)
		if it.Content != "" {
			fmt.Fprintf(b, "\nContent: %s", it.Content)
		}
	}
	return b.String()
}

// ProcessBatch asks for a title and summary per item. Results are keyed by
// position in items; entries the model skipped or numbered out of range
// are absent.
func (o *OpenAIClient) ProcessBatch(ctx context.Context, items []enrich.ContentItem) (map[int]model.Enrichment, error) {
	if len(items) == 0 {
		return map[int]model.Enrichment{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(batchPrompt, formatItems(items), len(items))},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion: no choices")
	}

	var parsed batchResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("decode batch response: %w", err)
	}
	out := make(map[int]model.Enrichment, len(parsed.Results))
	for _, r := range parsed.Results {
		i := r.Index - 1
		if i < 0 || i >= len(items) {
			slog.Warn("openai: result index out of range", "index", r.Index, "batch", len(items))
			continue
		}
		var e model.Enrichment
		if r.Title != nil {
			e.Title = strings.TrimSpace(*r.Title)
		}
		if r.Summary != nil {
			e.Summary = strings.TrimSpace(*r.Summary)
		}
		out[i] = e
	}
	if missing := len(items) - len(out); missing > 0 {
		slog.Warn("openai: batch response missing results", "missing", missing, "batch", len(items))
	}
	return out, nil
}
