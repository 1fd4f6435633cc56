package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearTokenEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BROWSERLESS_API_KEY", "")
	t.Setenv("REGCHECK_BROWSER_TOKEN", "")
}

func TestLoad_Defaults(t *testing.T) {
	clearTokenEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "rod", cfg.Browser.Driver)
	assert.Equal(t, DefaultEndpoint, cfg.Browser.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, 3*time.Second, cfg.Browser.SettleDelay)
	assert.Equal(t, DefaultRegistryURL, cfg.Target.URL)
	assert.Equal(t, "#username", cfg.Target.UsernameSelector)
	assert.Equal(t, "#password", cfg.Target.PasswordSelector)
	assert.True(t, cfg.Preview.Enabled)
	assert.Equal(t, uint(480), cfg.Preview.MaxWidth)
	assert.Empty(t, cfg.Triage.Provider)
	assert.Equal(t, ":8501", cfg.Server.Addr)

	assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
}

func TestLoad_TokenFromEnv(t *testing.T) {
	clearTokenEnv(t)
	t.Setenv("BROWSERLESS_API_KEY", "secret-token")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.Browser.Token)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ConfigFile(t *testing.T) {
	clearTokenEnv(t)

	path := filepath.Join(t.TempDir(), "registrycheck.yaml")
	content := `
browser:
  driver: chromedp
  token: from-file
  settle_delay: 1500ms
preview:
  enabled: false
logger:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "chromedp", cfg.Browser.Driver)
	assert.Equal(t, "from-file", cfg.Browser.Token)
	assert.Equal(t, 1500*time.Millisecond, cfg.Browser.SettleDelay)
	assert.False(t, cfg.Preview.Enabled)
	assert.Equal(t, "debug", cfg.Logger.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Browser.NavigationTimeout)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Browser: BrowserConfig{Driver: "rod", Token: "t"},
			Target:  TargetConfig{URL: DefaultRegistryURL},
		}
	}

	assert.NoError(t, base().Validate())

	c := base()
	c.Browser.Token = "   "
	assert.ErrorIs(t, c.Validate(), ErrMissingAPIKey)

	c = base()
	c.Browser.Driver = "selenium"
	assert.ErrorContains(t, c.Validate(), "unknown browser driver")

	c = base()
	c.Target.URL = ""
	assert.Error(t, c.Validate())
}
