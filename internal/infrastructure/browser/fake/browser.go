// Package fake is an in-memory BrowserPort for exercising the agent without
// a real Chromium.
package fake

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
)

var _ output.BrowserPort = (*Browser)(nil)
var _ output.BrowserLauncher = (*Launcher)(nil)

var ErrStale = errors.New("element identifier is not from the current generation")

type Element struct {
	Tag  string
	Role string
	Text string
	X, Y float64
	// OpensTab makes a click open a new tab at this URL.
	OpensTab string
	// NavigatesTo makes a click load this URL in the current tab.
	NavigatesTo string
}

type Page struct {
	Title    string
	Text     string
	Elements []Element
}

type Browser struct {
	mu sync.Mutex

	pages   map[string]*Page
	tabs    []string
	active  int
	gen     int64
	nav     chan string
	typed   map[string]string
	keys    []string
	shots   []string
	scrolls []string
	closed  int

	ClickErr    error
	NavigateErr error
	// EmptyExtractions makes the next n extractions return no elements.
	EmptyExtractions int
}

func New(pages map[string]*Page) *Browser {
	if pages == nil {
		pages = map[string]*Page{}
	}
	return &Browser{
		pages: pages,
		tabs:  []string{"about:blank"},
		nav:   make(chan string, 1),
		typed: map[string]string{},
	}
}

func (b *Browser) page(url string) *Page {
	p, ok := b.pages[url]
	if !ok {
		p = &Page{}
		b.pages[url] = p
	}
	return p
}

func (b *Browser) Navigate(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.NavigateErr != nil {
		return b.NavigateErr
	}
	b.tabs[b.active] = url
	return nil
}

func (b *Browser) CurrentURL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tabs[b.active]
}

func (b *Browser) Title() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page(b.tabs[b.active]).Title
}

func (b *Browser) ExtractElements(_ context.Context) (*entity.ElementIndex, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	if b.EmptyExtractions > 0 {
		b.EmptyExtractions--
		return entity.NewElementIndex(b.gen, nil), nil
	}
	p := b.page(b.tabs[b.active])
	elements := make([]entity.PageElement, 0, len(p.Elements))
	for i, el := range p.Elements {
		role := el.Role
		if role == "" {
			role = entity.RoleNotApplicable
		}
		elements = append(elements, entity.PageElement{
			BxID: fmt.Sprintf("bx-%d", i),
			X:    el.X,
			Y:    el.Y,
			Text: entity.Truncate(el.Text, entity.MaxElementText),
			Tag:  el.Tag,
			Role: role,
		})
	}
	return entity.NewElementIndex(b.gen, elements), nil
}

func (b *Browser) Screenshot(_ context.Context) (*entity.Screenshot, error) {
	return &entity.Screenshot{Data: []byte("jpeg"), Format: "jpeg", Width: 1280, Height: 720}, nil
}

func (b *Browser) resolve(idx *entity.ElementIndex, bxID string) (Element, error) {
	if idx == nil || idx.Generation != b.gen {
		return Element{}, ErrStale
	}
	var pos int
	if _, err := fmt.Sscanf(bxID, "bx-%d", &pos); err != nil {
		return Element{}, fmt.Errorf("element %s not found", bxID)
	}
	p := b.page(b.tabs[b.active])
	if pos < 0 || pos >= len(p.Elements) {
		return Element{}, fmt.Errorf("element %s not found", bxID)
	}
	return p.Elements[pos], nil
}

func (b *Browser) Click(_ context.Context, idx *entity.ElementIndex, bxID string) (output.ClickOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ClickErr != nil {
		return output.ClickOutcome{}, b.ClickErr
	}
	el, err := b.resolve(idx, bxID)
	if err != nil {
		return output.ClickOutcome{}, err
	}
	switch {
	case el.OpensTab != "":
		b.tabs = append(b.tabs, el.OpensTab)
		b.active = len(b.tabs) - 1
		return output.ClickOutcome{NewTab: true, URL: el.OpensTab}, nil
	case el.NavigatesTo != "":
		b.tabs[b.active] = el.NavigatesTo
	}
	return output.ClickOutcome{URL: b.tabs[b.active]}, nil
}

func (b *Browser) ClickAt(_ context.Context, _, _ float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ClickErr
}

func (b *Browser) Type(_ context.Context, idx *entity.ElementIndex, bxID, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.resolve(idx, bxID); err != nil {
		return err
	}
	b.typed[bxID] = text
	return nil
}

func (b *Browser) PressEnter(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, "Enter")
	return nil
}

func (b *Browser) PressEscape(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, "Escape")
	return nil
}

func (b *Browser) Scroll(_ context.Context, direction string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scrolls = append(b.scrolls, direction)
	return nil
}

func (b *Browser) ElementText(_ context.Context, idx *entity.ElementIndex, bxID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	el, err := b.resolve(idx, bxID)
	if err != nil {
		return "", err
	}
	return el.Text, nil
}

func (b *Browser) PageText(_ context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page(b.tabs[b.active]).Text, nil
}

// WaitForNavigation blocks until TriggerNavigation is called or ctx is done.
func (b *Browser) WaitForNavigation(ctx context.Context) error {
	select {
	case url := <-b.nav:
		b.mu.Lock()
		b.tabs[b.active] = url
		b.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Browser) TriggerNavigation(url string) {
	b.nav <- url
}

func (b *Browser) SaveScreenshot(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shots = append(b.shots, path)
	return nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return nil
}

func (b *Browser) Closed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Browser) Typed(bxID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.typed[bxID]
}

func (b *Browser) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.keys...)
}

func (b *Browser) Scrolls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.scrolls...)
}

func (b *Browser) Screenshots() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.shots...)
}

func (b *Browser) Tabs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.tabs...)
}

// Launcher hands out a prepared Browser.
type Launcher struct {
	Browser *Browser
	Err     error
}

func (l *Launcher) Launch(_ context.Context) (output.BrowserPort, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Browser, nil
}
