package output

import "context"

type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

type PageScraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}
