package readable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"browserx/internal/application/port/output"
)

var _ output.PageScraper = (*Scraper)(nil)

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxBody          = 8 << 20
)

var ErrNoContent = errors.New("page has no readable content")

// Scraper fetches a URL and extracts its main article text. It needs no API
// key and serves firecrawl_scrape when Firecrawl is not configured.
type Scraper struct {
	http      *http.Client
	userAgent string
	maxChars  int
}

func New(timeout time.Duration, maxChars int) *Scraper {
	return &Scraper{
		http:      &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
		maxChars:  maxChars,
	}
}

func (s *Scraper) Scrape(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s returned %s", rawURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	page := string(body)

	var text string
	article, err := readability.FromReader(strings.NewReader(page), u)
	if err == nil {
		text = strings.TrimSpace(article.TextContent)
		if title := strings.TrimSpace(article.Title); title != "" && text != "" {
			text = "# " + title + "\n\n" + text
		}
	}
	if text == "" {
		text = PlainText(page)
	}
	if text == "" {
		return "", ErrNoContent
	}

	if s.maxChars > 0 && len([]rune(text)) > s.maxChars {
		text = string([]rune(text)[:s.maxChars])
	}
	return text, nil
}
