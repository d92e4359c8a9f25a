package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"browserx/internal/application/port/output"
)

var _ output.WebSearcher = (*Client)(nil)

const DefaultBaseURL = "https://api.tavily.com"

var ErrNoAPIKey = errors.New("tavily api key is not set")

type Config struct {
	APIKey      string
	BaseURL     string
	SearchDepth string
	MaxResults  int
	Timeout     time.Duration
}

func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:      apiKey,
		BaseURL:     DefaultBaseURL,
		SearchDepth: "advanced",
		MaxResults:  5,
		Timeout:     60 * time.Second,
	}
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type searchRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// Search returns the results as indented JSON.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNoAPIKey
	}
	if strings.TrimSpace(query) == "" {
		return "", errors.New("empty query")
	}

	body, err := json.Marshal(searchRequest{
		Query:       query,
		SearchDepth: c.cfg.SearchDepth,
		MaxResults:  c.cfg.MaxResults,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/search", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read tavily response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tavily returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var out searchResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode tavily response: %w", err)
	}

	pretty, err := json.MarshalIndent(out.Results, "", "  ")
	if err != nil {
		return "", err
	}
	return string(pretty), nil
}
