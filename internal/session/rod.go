package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// RodDriver connects to the remote browser with go-rod.
type RodDriver struct {
	opts Options
}

func NewRodDriver(opts Options) *RodDriver {
	return &RodDriver{opts: opts}
}

// Open connects to the remote browser and creates a blank page
func (d *RodDriver) Open(ctx context.Context) (Session, error) {
	u, err := ControlURL(d.opts.Endpoint, d.opts.Token)
	if err != nil {
		return nil, err
	}

	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect remote browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &RodSession{browser: browser, page: page, opts: d.opts}, nil
}

// RodSession wraps the Rod browser and page of one attempt
type RodSession struct {
	browser *rod.Browser
	page    *rod.Page
	opts    Options
}

func (s *RodSession) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (s *RodSession) WaitElement(ctx context.Context, selector string) error {
	_, err := s.element(ctx, selector)
	return err
}

// element looks selector up within the element timeout and binds the result to ctx.
func (s *RodSession) element(ctx context.Context, selector string) (*rod.Element, error) {
	waitCtx, cancel := elementContext(ctx, s.opts.ElementTimeout)
	defer cancel()

	el, err := s.page.Context(waitCtx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element not found: %s: %w", selector, err)
	}
	return el.Context(ctx), nil
}

func (s *RodSession) Fill(ctx context.Context, selector, value string) error {
	el, err := s.element(ctx, selector)
	if err != nil {
		return err
	}

	// Clear existing text
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select text in %s: %w", selector, err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (s *RodSession) Press(ctx context.Context, selector string, key Key) error {
	k, ok := rodKeys[key]
	if !ok {
		return fmt.Errorf("unsupported key: %s", key)
	}
	el, err := s.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Type(k); err != nil {
		return fmt.Errorf("press %s on %s: %w", key, selector, err)
	}
	return nil
}

func (s *RodSession) Content(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("read page content: %w", err)
	}
	return html, nil
}

func (s *RodSession) Screenshot(ctx context.Context) ([]byte, error) {
	return s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// Close cleans up page and browser resources
func (s *RodSession) Close() error {
	var errs []error
	if s.page != nil {
		errs = append(errs, s.page.Close())
	}
	if s.browser != nil {
		errs = append(errs, s.browser.Close())
	}
	return errors.Join(errs...)
}

var rodKeys = map[Key]input.Key{
	KeyEnter: input.Enter,
}
