package rod

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browserx/internal/domain/entity"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Headless)
	assert.Equal(t, time.Duration(defaultSlowMotion), cfg.SlowMotion)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.Equal(t, defaultNavigationTimeout, cfg.NavigationTimeout)
	assert.False(t, cfg.NoSandbox, "Should be secure by default")
	assert.Empty(t, cfg.UserDataDir)
}

func TestDecodeElements(t *testing.T) {
	long := strings.Repeat("é", 200)
	raw := `[{"bx_id":"bx-0","x":10,"y":20,"text":"  Sign in ","tag":"button","role":""},` +
		`{"bx_id":"bx-1","x":0,"y":0,"text":"` + long + `","tag":"div","role":"tab"}]`

	elements, err := decodeElements(raw)
	require.NoError(t, err)
	require.Len(t, elements, 2)

	assert.Equal(t, "Sign in", elements[0].Text)
	assert.Equal(t, entity.RoleNotApplicable, elements[0].Role)
	assert.Equal(t, 10.0, elements[0].X)
	assert.Equal(t, "tab", elements[1].Role)
	assert.Equal(t, entity.MaxElementText, len([]rune(elements[1].Text)))
}

func TestDecodeElements_Invalid(t *testing.T) {
	_, err := decodeElements("not json")
	assert.Error(t, err)
}

func TestNavigatedAway(t *testing.T) {
	assert.False(t, navigatedAway(nil))
	assert.False(t, navigatedAway(errors.New("boom")))
	assert.True(t, navigatedAway(errors.New("{-32000 Execution context was destroyed. }")))
	assert.True(t, navigatedAway(errors.New("Cannot find context with specified id")))
}

func newTestServer() *httptest.Server {
	pages := map[string]string{
		"/basic":       BasicHTML,
		"/form":        FormHTML,
		"/interactive": InteractiveHTML,
		"/hidden":      HiddenHTML,
		"/newtab":      NewTabHTML,
		"/scroll":      ScrollableHTML,
		"/covered":     CoveredHTML,
		"/keys":        KeysHTML,
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
}

func newTestAdapter(t *testing.T, opts ...func(*BrowserConfig)) *BrowserAdapter {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	cfg := DefaultConfig()
	cfg.Headless = true
	cfg.NoSandbox = os.Getenv("CI") != ""
	for _, opt := range opts {
		opt(&cfg)
	}

	adapter, err := NewBrowserAdapter(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter
}

func TestBrowserAdapter_NavigateAndRead(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	b := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, b.Navigate(ctx, srv.URL+"/basic"))
	assert.Equal(t, srv.URL+"/basic", b.CurrentURL())
	assert.Equal(t, "Test Page", b.Title())

	text, err := b.PageText(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "hello@example.com")
}

func TestBrowserAdapter_ExtractElements(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	b := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, b.Navigate(ctx, srv.URL+"/hidden"))
	idx, err := b.ExtractElements(ctx)
	require.NoError(t, err)

	var texts []string
	for _, el := range idx.Elements {
		texts = append(texts, el.Text)
	}
	assert.Contains(t, texts, "Visible")
	assert.Contains(t, texts, "Next page")
	assert.Contains(t, texts, "Section heading")
	assert.NotContains(t, texts, "Display none")
	assert.NotContains(t, texts, "Hidden")
	assert.NotContains(t, texts, "Zero")
	assert.NotContains(t, texts, "Aria hidden")

	first := idx.Elements[0]
	assert.Equal(t, "bx-0", first.BxID)
	assert.Equal(t, "button", first.Tag)
	assert.Equal(t, entity.RoleNotApplicable, first.Role)
}

func TestBrowserAdapter_StaleIdentifiersAreRejected(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	b := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, b.Navigate(ctx, srv.URL+"/interactive"))
	old, err := b.ExtractElements(ctx)
	require.NoError(t, err)
	fresh, err := b.ExtractElements(ctx)
	require.NoError(t, err)
	assert.Greater(t, fresh.Generation, old.Generation)

	shortCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err = b.Click(shortCtx, old, "bx-0")
	assert.Error(t, err, "ids of an earlier generation must not resolve")

	_, err = b.Click(ctx, fresh, "bx-0")
	require.NoError(t, err)
	text, err := b.PageText(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "Clicked!")
}

func TestBrowserAdapter_ExtractionIsRepeatable(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	b := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, b.Navigate(ctx, srv.URL+"/hidden"))
	first, err := b.ExtractElements(ctx)
	require.NoError(t, err)
	second, err := b.ExtractElements(ctx)
	require.NoError(t, err)

	require.Positive(t, first.Len())
	assert.Equal(t, first.Len(), second.Len())
	assert.Equal(t, first.Signature(), second.Signature())
	for i := range first.Elements {
		assert.Equal(t, first.Elements[i].BxID, second.Elements[i].BxID)
		assert.Equal(t, first.Elements[i].Tag, second.Elements[i].Tag)
		assert.Equal(t, first.Elements[i].Role, second.Elements[i].Role)
		assert.Equal(t, first.Elements[i].Text, second.Elements[i].Text)
	}
}

func TestBrowserAdapter_ClickCoveredElementIsForced(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	b := newTestAdapter(t, func(cfg *BrowserConfig) { cfg.Timeout = 2 * time.Second })
	ctx := context.Background()

	require.NoError(t, b.Navigate(ctx, srv.URL+"/covered"))
	idx, err := b.ExtractElements(ctx)
	require.NoError(t, err)

	var accept string
	for _, el := range idx.Elements {
		if el.Text == "Accept" {
			accept = el.BxID
		}
	}
	require.NotEmpty(t, accept)

	_, err = b.Click(ctx, idx, accept)
	require.NoError(t, err)
	text, err := b.PageText(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "Accepted!")
}

func TestBrowserAdapter_PressKeys(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	b := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, b.Navigate(ctx, srv.URL+"/keys"))
	require.NoError(t, b.PressEnter(ctx))
	require.NoError(t, b.PressEscape(ctx))

	text, err := b.PageText(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "Enter;Escape;")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, b.PressEnter(cancelled))
}

func TestBrowserAdapter_Type(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	b := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, b.Navigate(ctx, srv.URL+"/form"))
	idx, err := b.ExtractElements(ctx)
	require.NoError(t, err)

	var username, submit string
	for _, el := range idx.Elements {
		switch el.Text {
		case "Username":
			username = el.BxID
		case "Submit":
			submit = el.BxID
		}
	}
	require.NotEmpty(t, username)
	require.NotEmpty(t, submit)

	require.NoError(t, b.Type(ctx, idx, username, "alice"))
	_, err = b.Click(ctx, idx, submit)
	require.NoError(t, err)

	text, err := b.PageText(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "alice")
	assert.NotContains(t, text, "oldalice")
}

func TestBrowserAdapter_ClickOpensTab(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	b := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, b.Navigate(ctx, srv.URL+"/newtab"))
	idx, err := b.ExtractElements(ctx)
	require.NoError(t, err)

	outcome, err := b.Click(ctx, idx, "bx-0")
	require.NoError(t, err)
	assert.True(t, outcome.NewTab)
	assert.Equal(t, srv.URL+"/basic", outcome.URL)
	assert.Equal(t, "Test Page", b.Title())
}

func TestBrowserAdapter_Scroll(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	b := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, b.Navigate(ctx, srv.URL+"/scroll"))
	require.NoError(t, b.Scroll(ctx, "down"))

	page, err := b.active()
	require.NoError(t, err)
	y := page.MustEval(`() => window.scrollY`).Int()
	assert.Equal(t, 560, y)

	require.NoError(t, b.Scroll(ctx, "up"))
	assert.Equal(t, 0, page.MustEval(`() => window.scrollY`).Int())

	assert.Error(t, b.Scroll(ctx, "sideways"))
}

func TestBrowserAdapter_Screenshots(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	b := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, b.Navigate(ctx, srv.URL+"/basic"))
	shot, err := b.Screenshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", shot.Format)
	assert.Equal(t, 1280, shot.Width)
	assert.NotEmpty(t, shot.Data)

	path := filepath.Join(t.TempDir(), "error-screenshot.png")
	require.NoError(t, b.SaveScreenshot(ctx, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestBrowserAdapter_WaitForNavigation(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()
	b := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, b.Navigate(ctx, srv.URL+"/basic"))

	done := make(chan error, 1)
	go func() { done <- b.WaitForNavigation(ctx) }()

	time.Sleep(200 * time.Millisecond)
	page, err := b.active()
	require.NoError(t, err)
	page.MustEval(`(u) => { window.location.href = u }`, srv.URL+"/form")

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("navigation was not observed")
	}
}

func TestBrowserAdapter_WaitForNavigationCancelled(t *testing.T) {
	b := newTestAdapter(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, b.WaitForNavigation(ctx), context.DeadlineExceeded)
}

func TestBrowserAdapter_Close(t *testing.T) {
	b := newTestAdapter(t)
	assert.True(t, b.IsReady())

	require.NoError(t, b.Close())
	assert.False(t, b.IsReady())
	assert.NoError(t, b.Close(), "closing twice is a no-op")
	assert.ErrorIs(t, b.Navigate(context.Background(), "about:blank"), ErrClosed)
}
