package action

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
)

const (
	SummaryApology     = "Sorry, I was unable to summarize the text."
	ComposePlaceholder = "[Unable to generate text]"
)

var errNotConfigured = errors.New("not configured")

type ScrapeTextHandler struct{}

func (ScrapeTextHandler) Kind() entity.ActionKind { return entity.ActionScrapeText }
func (ScrapeTextHandler) Usage() string {
	return `{"action": "scrape_text", "bx_id": "<id>"} - read the visible text of an element`
}

func (ScrapeTextHandler) Handle(ctx context.Context, env *output.ActionEnv, cmd entity.Command) (entity.ActionResult, error) {
	if _, ok := env.Index.Lookup(cmd.ElementID); !ok {
		return entity.Failure(notFound(cmd.ElementID)), nil
	}

	env.Printf("Action: Scraping text from element %s", cmd.ElementID)
	text, err := env.Browser.ElementText(ctx, env.Index, cmd.ElementID)
	if err != nil {
		return entity.ActionResult{}, fmt.Errorf("scrape %s: %w", cmd.ElementID, err)
	}
	text = strings.TrimSpace(text)
	env.Session.Scraped = text
	if text == "" {
		return entity.Success(fmt.Sprintf("Element %s has no visible text.", cmd.ElementID)), nil
	}
	env.Printf("   ... Scraped Text: %q", entity.Truncate(text, 100))
	return entity.Success(text), nil
}

type SummarizeHandler struct{}

func (SummarizeHandler) Kind() entity.ActionKind { return entity.ActionSummarize }
func (SummarizeHandler) Usage() string {
	return `{"action": "summarize", "bx_id": "<optional id>"} - summarize an element's text, or the last scraped text, against the goal`
}

func (SummarizeHandler) Handle(ctx context.Context, env *output.ActionEnv, cmd entity.Command) (entity.ActionResult, error) {
	var (
		text string
		err  error
	)
	switch {
	case cmd.ElementID != "":
		if _, ok := env.Index.Lookup(cmd.ElementID); !ok {
			return entity.Failure(notFound(cmd.ElementID)), nil
		}
		env.Printf("Action: Summarizing text from element %s", cmd.ElementID)
		text, err = env.Browser.ElementText(ctx, env.Index, cmd.ElementID)
	case env.Session.Scraped != "":
		env.Printf("Action: Summarizing the last scraped text")
		text = env.Session.Scraped
	default:
		env.Printf("Action: Summarizing the visible page text")
		text, err = env.Browser.PageText(ctx)
	}
	if err != nil {
		return entity.ActionResult{}, fmt.Errorf("read text to summarize: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return entity.Failure("There is no text to summarize. Scrape an element first."), nil
	}

	env.Printf("   ... Text is %d characters long. Summarizing...", len(text))
	if env.TextGen == nil {
		return entity.Success(SummaryApology), nil
	}
	summary, err := env.TextGen.Summarize(ctx, env.Session.Goal, text)
	if err != nil || strings.TrimSpace(summary) == "" {
		if env.Logger != nil {
			env.Logger.Warn("Summarization failed", "error", err)
		}
		return entity.Success(SummaryApology), nil
	}
	env.Printf("   ... Summary: %q", entity.Truncate(summary, 150))
	return entity.Success(summary), nil
}

type ComposeTextHandler struct{}

func (ComposeTextHandler) Kind() entity.ActionKind { return entity.ActionComposeText }
func (ComposeTextHandler) Usage() string {
	return `{"action": "compose_text", "bx_id": "<id>", "description": "..."} - write prose from a description and type it into an element`
}

func (ComposeTextHandler) Handle(ctx context.Context, env *output.ActionEnv, cmd entity.Command) (entity.ActionResult, error) {
	if _, ok := env.Index.Lookup(cmd.ElementID); !ok {
		return entity.Failure(notFound(cmd.ElementID)), nil
	}

	description := cmd.Description
	if description == "" {
		description = cmd.Text
	}
	env.Printf("Action: Composing text for element %s", cmd.ElementID)

	text := ComposePlaceholder
	if env.TextGen != nil {
		generated, err := env.TextGen.Compose(ctx, env.Session.Goal, description)
		switch {
		case err != nil:
			if env.Logger != nil {
				env.Logger.Warn("Text composition failed", "error", err)
			}
		case strings.TrimSpace(generated) != "":
			text = strings.TrimSpace(generated)
		}
	}

	if err := env.Browser.Type(ctx, env.Index, cmd.ElementID, text); err != nil {
		return entity.ActionResult{}, fmt.Errorf("type composed text into %s: %w", cmd.ElementID, err)
	}
	return entity.Success(fmt.Sprintf("Typed composed text into element %s: %s", cmd.ElementID, text)), nil
}

type TavilySearchHandler struct{}

func (TavilySearchHandler) Kind() entity.ActionKind { return entity.ActionTavilySearch }
func (TavilySearchHandler) Usage() string {
	return `{"action": "tavily_search", "query": "..."} - web search without leaving the page; returns the top results`
}

func (TavilySearchHandler) Handle(ctx context.Context, env *output.ActionEnv, cmd entity.Command) (entity.ActionResult, error) {
	if env.Search == nil {
		return entity.ActionResult{}, fmt.Errorf("tavily_search: %w", errNotConfigured)
	}
	env.Printf("Action: Performing Tavily search for %q", cmd.Query)
	out, err := env.Search.Search(ctx, cmd.Query)
	if err != nil {
		return entity.ActionResult{}, fmt.Errorf("tavily search failed: %w", err)
	}
	env.Session.Scraped = out
	return entity.Success(out), nil
}

type FirecrawlScrapeHandler struct{}

func (FirecrawlScrapeHandler) Kind() entity.ActionKind { return entity.ActionFirecrawlScrape }
func (FirecrawlScrapeHandler) Usage() string {
	return `{"action": "firecrawl_scrape", "url": "..."} - fetch the main content of a URL as markdown without navigating`
}

func (FirecrawlScrapeHandler) Handle(ctx context.Context, env *output.ActionEnv, cmd entity.Command) (entity.ActionResult, error) {
	if env.Scraper == nil {
		return entity.ActionResult{}, fmt.Errorf("firecrawl_scrape: %w", errNotConfigured)
	}
	url := normalizeURL(cmd.URL)
	env.Printf("Action: Performing Firecrawl scrape for %q", url)
	out, err := env.Scraper.Scrape(ctx, url)
	if err != nil {
		return entity.ActionResult{}, fmt.Errorf("firecrawl scrape failed: %w", err)
	}
	env.Session.Scraped = out
	return entity.Success(out), nil
}
