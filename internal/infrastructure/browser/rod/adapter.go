package rod

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/rod/lib/utils"
	"github.com/ysmood/gson"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
)

var (
	_ output.BrowserPort     = (*BrowserAdapter)(nil)
	_ output.BrowserLauncher = (*Launcher)(nil)
)

const (
	defaultTimeout           = 10 * time.Second
	defaultNavigationTimeout = 30 * time.Second
	defaultSlowMotion        = 0
	idleTimeout              = 2 * time.Second
	tabPollInterval          = 150 * time.Millisecond
	tabPolls                 = 6
)

var ErrClosed = errors.New("browser is closed")

type BrowserAdapter struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	closed   bool

	// persistent profiles survive Close
	persistent bool
	generation atomic.Int64

	timeout           time.Duration
	navigationTimeout time.Duration
	viewportWidth     int
	logger            output.LoggerPort
}

type BrowserConfig struct {
	Headless          bool
	SlowMotion        time.Duration
	Timeout           time.Duration
	NavigationTimeout time.Duration
	NoSandbox         bool
	DevTools          bool
	// UserDataDir keeps cookies and logins between runs when set.
	UserDataDir    string
	Bin            string
	ViewportWidth  int
	ViewportHeight int
	Logger         output.LoggerPort
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:          false,
		SlowMotion:        defaultSlowMotion,
		Timeout:           defaultTimeout,
		NavigationTimeout: defaultNavigationTimeout,
		ViewportWidth:     1280,
		ViewportHeight:    800,
	}
}

func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig) (*BrowserAdapter, error) {
	if ctx != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}

	l := launcher.New().
		Headless(cfg.Headless).
		Devtools(cfg.DevTools).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain")
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url).SlowMotion(cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := firstPage(browser)
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, err
	}

	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.ViewportWidth,
			Height:            cfg.ViewportHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil && cfg.Logger != nil {
			cfg.Logger.Warn("Failed to set viewport", "error", err)
		}
	}

	return &BrowserAdapter{
		browser:           browser,
		launcher:          l,
		page:              page,
		persistent:        cfg.UserDataDir != "",
		timeout:           cfg.Timeout,
		navigationTimeout: cfg.NavigationTimeout,
		viewportWidth:     cfg.ViewportWidth,
		logger:            cfg.Logger,
	}, nil
}

// firstPage reuses the tab a persistent profile opens with.
func firstPage(browser *rod.Browser) (*rod.Page, error) {
	pages, err := browser.Pages()
	if err == nil && len(pages) > 0 {
		return pages.First(), nil
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return page, nil
}

type Launcher struct {
	Config BrowserConfig
}

func NewLauncher(cfg BrowserConfig) *Launcher {
	return &Launcher{Config: cfg}
}

func (l *Launcher) Launch(ctx context.Context) (output.BrowserPort, error) {
	return NewBrowserAdapter(ctx, l.Config)
}

func (b *BrowserAdapter) active() (*rod.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	return b.page, nil
}

func (b *BrowserAdapter) IsReady() bool {
	page, err := b.active()
	return err == nil && page != nil
}

func (b *BrowserAdapter) Navigate(ctx context.Context, url string) error {
	page, err := b.active()
	if err != nil {
		return err
	}

	p := page.Context(ctx).Timeout(b.navigationTimeout)
	err = p.Navigate(url)
	if err == nil {
		err = p.WaitLoad()
	}
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		b.warn("Page did not fully load, continuing", "url", url)
		return nil
	}
	return fmt.Errorf("navigation failed: %w", err)
}

func (b *BrowserAdapter) CurrentURL() string {
	page, err := b.active()
	if err != nil {
		return ""
	}
	info, err := page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (b *BrowserAdapter) Title() string {
	page, err := b.active()
	if err != nil {
		return ""
	}
	info, err := page.Info()
	if err != nil {
		return ""
	}
	return info.Title
}

func (b *BrowserAdapter) ExtractElements(ctx context.Context) (*entity.ElementIndex, error) {
	page, err := b.active()
	if err != nil {
		return nil, err
	}

	gen := b.generation.Add(1)
	res, err := page.Context(ctx).Timeout(b.timeout).Eval(extractJS,
		gen, entity.ElementIDAttr, entity.ElementGenAttr, entity.MaxElementText)
	if err != nil {
		if navigatedAway(err) {
			b.debug("Page changed during extraction", "generation", gen)
			return entity.NewElementIndex(gen, nil), nil
		}
		return nil, fmt.Errorf("element extraction failed: %w", err)
	}

	elements, err := decodeElements(res.Value.Str())
	if err != nil {
		return nil, fmt.Errorf("failed to decode elements: %w", err)
	}
	return entity.NewElementIndex(gen, elements), nil
}

func (b *BrowserAdapter) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	page, err := b.active()
	if err != nil {
		return nil, err
	}

	imgBytes, err := page.Context(ctx).Timeout(b.timeout).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(80),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	// Labels are placed in CSS pixels.
	if b.viewportWidth > 0 && img.Bounds().Dx() > b.viewportWidth {
		img = imaging.Resize(img, b.viewportWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}

	return &entity.Screenshot{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

func (b *BrowserAdapter) element(ctx context.Context, idx *entity.ElementIndex, bxID string) (*rod.Element, error) {
	page, err := b.active()
	if err != nil {
		return nil, err
	}
	if _, ok := idx.Lookup(bxID); !ok {
		return nil, fmt.Errorf("element %s is not on the current page", bxID)
	}
	el, err := page.Context(ctx).Timeout(b.timeout).Element(idx.Selector(bxID))
	if err != nil {
		return nil, fmt.Errorf("element not found: %s: %w", bxID, err)
	}
	// the lookup deadline must not carry over to the operations on el
	return el.CancelTimeout(), nil
}

func (b *BrowserAdapter) Click(ctx context.Context, idx *entity.ElementIndex, bxID string) (output.ClickOutcome, error) {
	el, err := b.element(ctx, idx, bxID)
	if err != nil {
		return output.ClickOutcome{}, err
	}

	before := b.targets()

	// Click waits for the element to become interactable, which a covering
	// overlay prevents; the forced click then gets a deadline of its own.
	if err := b.bounded(el, func(e *rod.Element) error {
		return e.Click(proto.InputMouseButtonLeft, 1)
	}); err != nil {
		if ctx.Err() != nil {
			return output.ClickOutcome{}, ctx.Err()
		}
		b.debug("Click failed, forcing it", "bx_id", bxID, "error", err)
		ferr := b.bounded(el, func(e *rod.Element) error {
			_, err := e.Eval(`() => this.click()`)
			return err
		})
		if ferr != nil {
			return output.ClickOutcome{}, fmt.Errorf("click failed: %w", errors.Join(err, ferr))
		}
	}

	return b.afterClick(ctx, before)
}

// bounded runs fn on el under a fresh adapter timeout.
func (b *BrowserAdapter) bounded(el *rod.Element, fn func(*rod.Element) error) error {
	timed := el.Timeout(b.timeout)
	defer timed.CancelTimeout()
	return fn(timed)
}

func (b *BrowserAdapter) ClickAt(ctx context.Context, x, y float64) error {
	page, err := b.active()
	if err != nil {
		return err
	}
	p := page.Context(ctx)
	if err := p.Mouse.MoveTo(proto.Point{X: x, Y: y}); err != nil {
		return fmt.Errorf("mouse move failed: %w", err)
	}
	if err := p.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	_ = p.WaitIdle(idleTimeout)
	return nil
}

func (b *BrowserAdapter) targets() map[proto.TargetTargetID]bool {
	seen := make(map[proto.TargetTargetID]bool)
	pages, err := b.browser.Pages()
	if err != nil {
		return seen
	}
	for _, p := range pages {
		seen[p.TargetID] = true
	}
	return seen
}

// afterClick switches to a tab the click opened, otherwise waits for the
// page to settle.
func (b *BrowserAdapter) afterClick(ctx context.Context, before map[proto.TargetTargetID]bool) (output.ClickOutcome, error) {
	for i := 0; i < tabPolls; i++ {
		pages, err := b.browser.Pages()
		if err == nil {
			for _, p := range pages {
				if before[p.TargetID] {
					continue
				}
				return b.switchTo(ctx, p)
			}
		}
		select {
		case <-ctx.Done():
			return output.ClickOutcome{}, ctx.Err()
		case <-time.After(tabPollInterval):
		}
	}

	page, err := b.active()
	if err != nil {
		return output.ClickOutcome{}, err
	}
	_ = page.Context(ctx).WaitIdle(idleTimeout)
	return output.ClickOutcome{}, nil
}

func (b *BrowserAdapter) switchTo(ctx context.Context, p *rod.Page) (output.ClickOutcome, error) {
	if _, err := p.Activate(); err != nil {
		return output.ClickOutcome{}, fmt.Errorf("failed to activate new tab: %w", err)
	}
	_ = p.Context(ctx).Timeout(b.navigationTimeout).WaitLoad()

	b.mu.Lock()
	b.page = p
	b.mu.Unlock()

	url := ""
	if info, err := p.Info(); err == nil {
		url = info.URL
	}
	b.debug("Switched to new tab", "url", url)
	return output.ClickOutcome{NewTab: true, URL: url}, nil
}

func (b *BrowserAdapter) Type(ctx context.Context, idx *entity.ElementIndex, bxID, text string) error {
	el, err := b.element(ctx, idx, bxID)
	if err != nil {
		return err
	}

	err = b.bounded(el, func(e *rod.Element) error {
		if err := e.SelectAllText(); err == nil {
			_ = e.Input("")
		}
		return e.Input(text)
	})
	if err != nil {
		return fmt.Errorf("input failed: %w", err)
	}
	return nil
}

// press dispatches a key down and up on a page bound to ctx. page.Keyboard
// keeps the context of the page it was created with, so it is not used here.
func (b *BrowserAdapter) press(ctx context.Context, key input.Key) error {
	page, err := b.active()
	if err != nil {
		return err
	}
	p := page.Context(ctx).Timeout(b.timeout)
	defer p.CancelTimeout()

	if err := key.Encode(proto.InputDispatchKeyEventTypeKeyDown, 0).Call(p); err != nil {
		return err
	}
	if err := key.Encode(proto.InputDispatchKeyEventTypeKeyUp, 0).Call(p); err != nil {
		return err
	}
	_ = page.Context(ctx).WaitIdle(time.Second)
	return nil
}

func (b *BrowserAdapter) PressEnter(ctx context.Context) error {
	if err := b.press(ctx, input.Enter); err != nil {
		return fmt.Errorf("failed to press Enter: %w", err)
	}
	return nil
}

func (b *BrowserAdapter) PressEscape(ctx context.Context) error {
	if err := b.press(ctx, input.Escape); err != nil {
		return fmt.Errorf("failed to press Escape: %w", err)
	}
	return nil
}

func (b *BrowserAdapter) Scroll(ctx context.Context, direction string) error {
	direction = strings.ToLower(strings.TrimSpace(direction))
	if direction != "up" && direction != "down" {
		return fmt.Errorf("unknown scroll direction: %s", direction)
	}

	page, err := b.active()
	if err != nil {
		return err
	}
	if _, err := page.Context(ctx).Eval(scrollJS, direction); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	_ = page.Context(ctx).WaitIdle(800 * time.Millisecond)
	return nil
}

func (b *BrowserAdapter) ElementText(ctx context.Context, idx *entity.ElementIndex, bxID string) (string, error) {
	el, err := b.element(ctx, idx, bxID)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (b *BrowserAdapter) PageText(ctx context.Context) (string, error) {
	page, err := b.active()
	if err != nil {
		return "", err
	}
	res, err := page.Context(ctx).Timeout(b.timeout).Eval(pageTextJS)
	if err != nil {
		return "", fmt.Errorf("failed to read page text: %w", err)
	}
	return strings.TrimSpace(res.Value.Str()), nil
}

func (b *BrowserAdapter) WaitForNavigation(ctx context.Context) error {
	page, err := b.active()
	if err != nil {
		return err
	}
	wait := page.Context(ctx).WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	wait()
	return ctx.Err()
}

func (b *BrowserAdapter) SaveScreenshot(ctx context.Context, path string) error {
	page, err := b.active()
	if err != nil {
		return err
	}
	data, err := page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	return utils.OutputFile(path, data)
}

func (b *BrowserAdapter) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		if !b.persistent {
			b.launcher.Cleanup()
		}
	}
	return err
}

func (b *BrowserAdapter) debug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *BrowserAdapter) warn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}
