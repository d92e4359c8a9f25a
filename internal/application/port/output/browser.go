package output

import (
	"context"

	"browserx/internal/domain/entity"
)

// ClickOutcome reports side effects of a click that the caller must know about.
type ClickOutcome struct {
	// NewTab is set when the click opened a tab and the adapter switched to it.
	NewTab bool
	URL    string
}

type BrowserPort interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL() string
	Title() string

	// ExtractElements clears identifiers of earlier generations, labels the
	// visible elements of the page and returns the new index.
	ExtractElements(ctx context.Context) (*entity.ElementIndex, error)
	Screenshot(ctx context.Context) (*entity.Screenshot, error)

	Click(ctx context.Context, idx *entity.ElementIndex, bxID string) (ClickOutcome, error)
	ClickAt(ctx context.Context, x, y float64) error
	Type(ctx context.Context, idx *entity.ElementIndex, bxID, text string) error
	PressEnter(ctx context.Context) error
	PressEscape(ctx context.Context) error
	Scroll(ctx context.Context, direction string) error
	ElementText(ctx context.Context, idx *entity.ElementIndex, bxID string) (string, error)
	PageText(ctx context.Context) (string, error)

	// WaitForNavigation blocks until the active page starts a new document
	// or ctx is done.
	WaitForNavigation(ctx context.Context) error
	SaveScreenshot(ctx context.Context, path string) error

	Close() error
}

type BrowserLauncher interface {
	Launch(ctx context.Context) (BrowserPort, error)
}

type Annotator interface {
	Annotate(shot *entity.Screenshot, elements []entity.PageElement) (*entity.Screenshot, error)
}
