package firecrawl

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

var _ output.PageScraper = (*Client)(nil)

const DefaultBaseURL = "https://api.firecrawl.dev"

var (
	ErrNoAPIKey   = errors.New("firecrawl api key is not set")
	ErrNoMarkdown = errors.New("firecrawl did not return valid markdown content")
)

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func New(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
}

// Scrape returns the main content of url as markdown.
func (c *Client) Scrape(ctx context.Context, url string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	body, err := json.Marshal(scrapeRequest{URL: url, Formats: []string{"markdown"}, OnlyMainContent: true})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("firecrawl request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read firecrawl response: %w", err)
	}

	var out scrapeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("firecrawl returned %s", resp.Status)
		}
		return "", fmt.Errorf("failed to decode firecrawl response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || (!out.Success && out.Error != "") {
		return "", fmt.Errorf("firecrawl returned %s: %s", resp.Status, out.Error)
	}
	if strings.TrimSpace(out.Data.Markdown) == "" {
		return "", ErrNoMarkdown
	}
	return out.Data.Markdown, nil
}
