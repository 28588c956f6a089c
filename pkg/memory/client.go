package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"ai-livestream-be/internal/pkg/logger"
)

// Client talks to a Mem0-compatible long-term memory API. A nil-safe
// degraded mode (no API key) turns every call into a logged no-op so a
// missing key never crashes a session.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     logger.ILogger

	initOnce sync.Once
	enabled  bool
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type addRequest struct {
	Messages []message              `json:"messages"`
	UserId   string                 `json:"user_id"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type searchRequest struct {
	Query   string                 `json:"query"`
	Filters map[string]interface{} `json:"filters"`
	Limit   int                    `json:"limit"`
}

// Record is one stored memory as returned by search.
type Record struct {
	Id       string                 `json:"id"`
	Memory   string                 `json:"memory"`
	Score    float64                `json:"score,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func NewClient(apiKey string, log logger.ILogger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: "https://api.mem0.ai",
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// NewClientWithBaseURL is used by tests to point at a fake server.
func NewClientWithBaseURL(apiKey, baseURL string, log logger.ILogger) *Client {
	c := NewClient(apiKey, log)
	c.baseURL = baseURL
	return c
}

func (c *Client) ready() bool {
	c.initOnce.Do(func() {
		c.enabled = c.apiKey != ""
		if !c.enabled {
			c.log.Warn("Mem0", "MEM0_API_KEY not configured - memory storage disabled", nil)
		}
	})
	return c.enabled
}

// Add stores one memory record scoped to userId.
func (c *Client) Add(ctx context.Context, content, userId string, metadata map[string]interface{}) error {
	if !c.ready() {
		return nil
	}

	reqBody := addRequest{
		Messages: []message{{Role: "user", Content: content}},
		UserId:   userId,
		Metadata: metadata,
	}
	var resp json.RawMessage
	if err := c.post(ctx, "/v1/memories/", reqBody, &resp); err != nil {
		return fmt.Errorf("mem0 add: %w", err)
	}
	return nil
}

// Search retrieves up to limit memories matching query within userId's scope.
func (c *Client) Search(ctx context.Context, query, userId string, limit int) ([]Record, error) {
	if !c.ready() {
		return nil, nil
	}

	reqBody := searchRequest{
		Query:   query,
		Filters: map[string]interface{}{"AND": []map[string]interface{}{{"user_id": userId}}},
		Limit:   limit,
	}
	var records []Record
	if err := c.post(ctx, "/v2/memories/search/", reqBody, &records); err != nil {
		return nil, fmt.Errorf("mem0 search: %w", err)
	}
	return records, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Token %s", c.apiKey))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	if out != nil && len(bodyBytes) > 0 {
		if err := json.Unmarshal(bodyBytes, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
