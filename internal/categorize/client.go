// Package categorize enriches stored articles with AI-assigned
// categories. It is a best-effort collaborator invoked separately from
// fetching; the fetch pipeline never writes the fields it owns.
package categorize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newshub/internal/model"
)

// Result is one categorization outcome.
type Result struct {
	NewsCategory string `json:"newsCategory"`
	TechCategory string `json:"techCategory"`
}

// Client assigns categories to a single article.
type Client interface {
	Categorize(ctx context.Context, article model.Article) (Result, error)
}

const systemPrompt = `You are a news categorizer. Given an article title and snippet,
respond with a JSON object {"newsCategory": "...", "techCategory": "..."}.
newsCategory is one of: World, Business, Technology, Science, Politics, Sports, Entertainment, Other.
techCategory is one of: AI/ML, Security, Cloud, DevTools, Hardware, Web, Other — or "" when the article is not about technology.
Respond with the JSON object only.`

// APIClient implements Client against an OpenAI-compatible chat
// completions endpoint.
type APIClient struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewAPIClient builds a client for the given endpoint and model.
func NewAPIClient(endpoint, apiModel, apiKey string) *APIClient {
	return &APIClient{
		endpoint: endpoint,
		model:    apiModel,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Categorize posts the article to the chat endpoint and parses the JSON
// object from the reply.
func (c *APIClient) Categorize(ctx context.Context, article model.Article) (Result, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return Result{}, fmt.Errorf("api client misconfigured")
	}

	user := fmt.Sprintf("Title: %s\nSnippet: %s", article.Title, article.DescriptionSnippet)
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": user},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("categorize request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Result{}, fmt.Errorf("api error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return Result{}, fmt.Errorf("empty response")
	}

	return parseResult(cr.Choices[0].Message.Content)
}

// parseResult extracts the JSON object from a model reply, tolerating
// surrounding prose or code fences.
func parseResult(content string) (Result, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("no JSON object in response")
	}
	var res Result
	if err := json.Unmarshal([]byte(content[start:end+1]), &res); err != nil {
		return Result{}, fmt.Errorf("parse result: %w", err)
	}
	if res.NewsCategory == "" {
		return Result{}, fmt.Errorf("response missing newsCategory")
	}
	return res, nil
}
