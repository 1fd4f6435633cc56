package session

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/v0xg/registrycheck/internal/config"
)

// Key is a keystroke that can be sent to an element
type Key string

const (
	KeyEnter Key = "Enter"
)

// Session is one remote browser page. Close must be called on every path.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// WaitElement blocks until selector exists in the page.
	WaitElement(ctx context.Context, selector string) error
	// Fill replaces the value of the input matched by selector.
	Fill(ctx context.Context, selector, value string) error
	Press(ctx context.Context, selector string, key Key) error
	// Content returns the rendered HTML of the current page.
	Content(ctx context.Context) (string, error)
	// Screenshot returns a PNG of the viewport.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Driver opens fresh sessions against the remote browser service.
type Driver interface {
	Open(ctx context.Context) (Session, error)
}

// Options configures a remote driver
type Options struct {
	Endpoint string
	Token    string
	// ElementTimeout bounds WaitElement when ctx has no earlier deadline.
	ElementTimeout time.Duration
}

// OptionsFrom maps the browser section of the config.
func OptionsFrom(cfg config.BrowserConfig) Options {
	return Options{
		Endpoint:       cfg.Endpoint,
		Token:          cfg.Token,
		ElementTimeout: cfg.ElementTimeout,
	}
}

// NewDriver returns the driver named by cfg.Driver. The token is required.
func NewDriver(cfg config.BrowserConfig) (Driver, error) {
	if cfg.Token == "" {
		return nil, config.ErrMissingAPIKey
	}
	opts := OptionsFrom(cfg)
	switch cfg.Driver {
	case "", "rod":
		return NewRodDriver(opts), nil
	case "chromedp":
		return NewChromeDriver(opts), nil
	default:
		return nil, fmt.Errorf("unknown browser driver: %s (supported: rod, chromedp)", cfg.Driver)
	}
}

// ControlURL appends the token to the CDP websocket endpoint.
func ControlURL(endpoint, token string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid browser endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("browser endpoint must be ws:// or wss://, got %q", endpoint)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func elementContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
