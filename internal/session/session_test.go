package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/registrycheck/internal/config"
)

func TestControlURL(t *testing.T) {
	got, err := ControlURL(config.DefaultEndpoint, "abc/123")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "wss", u.Scheme)
	assert.Equal(t, "production-sfo.browserless.io", u.Host)
	assert.Equal(t, "/chromium", u.Path)
	assert.Equal(t, "abc/123", u.Query().Get("token"))
}

func TestControlURL_KeepsExistingQuery(t *testing.T) {
	got, err := ControlURL("ws://localhost:3000/?stealth=true&token=old", "new")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "true", u.Query().Get("stealth"))
	assert.Equal(t, "new", u.Query().Get("token"))
}

func TestControlURL_RejectsHTTP(t *testing.T) {
	_, err := ControlURL("https://production-sfo.browserless.io", "t")
	assert.Error(t, err)

	_, err = ControlURL("://bad", "t")
	assert.Error(t, err)
}

func TestNewDriver(t *testing.T) {
	_, err := NewDriver(config.BrowserConfig{Driver: "rod"})
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)

	d, err := NewDriver(config.BrowserConfig{Driver: "rod", Token: "t", Endpoint: config.DefaultEndpoint})
	require.NoError(t, err)
	assert.IsType(t, &RodDriver{}, d)

	d, err = NewDriver(config.BrowserConfig{Driver: "chromedp", Token: "t", Endpoint: config.DefaultEndpoint})
	require.NoError(t, err)
	assert.IsType(t, &ChromeDriver{}, d)

	_, err = NewDriver(config.BrowserConfig{Driver: "selenium", Token: "t"})
	assert.ErrorContains(t, err, "unknown browser driver")
}

func TestOpen_BadEndpointFailsBeforeDialing(t *testing.T) {
	opts := Options{Endpoint: "http://not-a-websocket", Token: "t"}

	_, err := NewRodDriver(opts).Open(context.Background())
	assert.ErrorContains(t, err, "ws://")

	_, err = NewChromeDriver(opts).Open(context.Background())
	assert.ErrorContains(t, err, "ws://")
}

func TestElementContext(t *testing.T) {
	ctx, cancel := elementContext(context.Background(), time.Second)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.True(t, ok)

	ctx2, cancel2 := elementContext(context.Background(), 0)
	defer cancel2()
	_, ok = ctx2.Deadline()
	assert.False(t, ok)
}

func TestChromeDriver_OpenHonoursContext(t *testing.T) {
	// Accepts the connection but never completes the websocket handshake.
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(ts.Close)
	t.Cleanup(func() { close(release) })

	d := NewChromeDriver(Options{
		Endpoint: "ws" + strings.TrimPrefix(ts.URL, "http"),
		Token:    "t",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	sess, err := d.Open(ctx)
	assert.Nil(t, sess)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
