package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"senkyo/internal/config"
	"senkyo/internal/logger"
	"senkyo/internal/refdata"
)

// systemPersona is the fixed instruction sent with every search request.
const systemPersona = "あなたは日本の選挙情報を分析するアシスタントです。最新のニュースや世論調査の情報を検索し、選挙の情勢を分析してください。" +
	"候補者名、政党、選挙区の情報を可能な限り詳しく報告してください。" +
	"NHK、朝日新聞、読売新聞、毎日新聞、日本経済新聞など、信頼できる報道機関の情報を優先してください。"

// Result is the free-text news payload returned by the search service.
// Content is unstructured; it is passed as context to the prediction
// generator without further validation.
type Result struct {
	Content   string    `json:"content"`
	Sources   []string  `json:"sources"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// StatusError reports a failed exchange with the news service: a non-2xx
// status, or a 2xx response whose body could not be used.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("news service returned status %d: %s", e.StatusCode, e.Body)
}

// Client wraps the Perplexity chat-completions API as a search-augmented
// news source.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewClient creates a news retrieval client. A missing API key is a
// configuration error: there is no fallback for news retrieval itself.
func NewClient(cfg config.Perplexity) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("perplexity API key is required. Set PERPLEXITY_API_KEY or perplexity.api_key in the config file")
	}

	timeout := 60 * time.Second
	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err == nil {
			timeout = d
		}
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// BuildQuery returns the search query for a prefecture, or the national
// query when pref is nil. The cache is keyed by this exact string.
func BuildQuery(pref *refdata.Prefecture) string {
	if pref != nil {
		return fmt.Sprintf("2026年2月 第51回衆議院選挙 %s 選挙区別 候補者一覧 情勢 世論調査 出典の報道機関を明記", pref.Name)
	}
	return "2026年2月8日 第51回衆議院選挙 全国情勢 各党支持率 主要候補者 最新世論調査"
}

// FetchNews retrieves recent election news and poll data for a prefecture
// (or nationwide when pref is nil) from the search service.
func (c *Client) FetchNews(ctx context.Context, pref *refdata.Prefecture) (*Result, error) {
	query := BuildQuery(pref)
	return c.Search(ctx, query)
}

// Search sends one query to the chat-completions endpoint and returns the
// free-text answer plus its citations.
func (c *Client) Search(ctx context.Context, query string) (*Result, error) {
	reqBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPersona},
			{"role": "user", "content": query},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode news request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create news request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute news request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Citations []string `json:"citations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: "malformed news response: " + err.Error()}
	}

	content := ""
	if len(apiResponse.Choices) > 0 {
		content = apiResponse.Choices[0].Message.Content
	}
	if content == "" {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: "empty content in news response"}
	}

	logger.Info("news search completed", "query", query, "sources", len(apiResponse.Citations))

	return &Result{
		Content:   content,
		Sources:   apiResponse.Citations,
		FetchedAt: time.Now().UTC(),
	}, nil
}
