package session

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// ChromeDriver connects to the remote browser through a chromedp remote allocator.
type ChromeDriver struct {
	opts Options
}

func NewChromeDriver(opts Options) *ChromeDriver {
	return &ChromeDriver{opts: opts}
}

func (d *ChromeDriver) Open(ctx context.Context) (Session, error) {
	u, err := ControlURL(d.opts.Endpoint, d.opts.Token)
	if err != nil {
		return nil, err
	}

	// The tab outlives individual calls; each call runs under its own ctx.
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(context.WithoutCancel(ctx), u, chromedp.NoModifyURL)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// The first Run attaches to the browser and creates the tab. It must run
	// on tabCtx itself, so ctx is honoured by abandoning the attach instead.
	attached := make(chan error, 1)
	go func() { attached <- chromedp.Run(tabCtx) }()

	select {
	case err := <-attached:
		if err != nil {
			cancelTab()
			cancelAlloc()
			return nil, fmt.Errorf("connect remote browser: %w", err)
		}
	case <-ctx.Done():
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("connect remote browser: %w", ctx.Err())
	}

	return &ChromeSession{tab: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc, opts: d.opts}, nil
}

// ChromeSession is one chromedp tab on the remote browser.
type ChromeSession struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	opts        Options
}

// run executes actions in the tab, bounded by ctx's deadline and cancellation.
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tab)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	return chromedp.Run(runCtx, actions...)
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (s *ChromeSession) WaitElement(ctx context.Context, selector string) error {
	waitCtx, cancel := elementContext(ctx, s.opts.ElementTimeout)
	defer cancel()

	if err := s.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("element not found: %s: %w", selector, err)
	}
	return nil
}

func (s *ChromeSession) Fill(ctx context.Context, selector, value string) error {
	if err := s.run(ctx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (s *ChromeSession) Press(ctx context.Context, selector string, key Key) error {
	k, ok := chromeKeys[key]
	if !ok {
		return fmt.Errorf("unsupported key: %s", key)
	}
	if err := s.run(ctx, chromedp.SendKeys(selector, k, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("press %s on %s: %w", key, selector, err)
	}
	return nil
}

func (s *ChromeSession) Content(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read page content: %w", err)
	}
	return html, nil
}

func (s *ChromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

// Close closes the tab, then drops the connection to the remote browser.
func (s *ChromeSession) Close() error {
	s.cancelTab()
	s.cancelAlloc()
	return nil
}

var chromeKeys = map[Key]string{
	KeyEnter: kb.Enter,
}
