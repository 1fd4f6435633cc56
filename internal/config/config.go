package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingAPIKey is returned when no token for the remote browser service
// is configured. Nothing may be navigated without it.
var ErrMissingAPIKey = errors.New("missing BROWSERLESS_API_KEY: remote browser token is required")

const (
	// DefaultRegistryURL is the TAXISnet registry-info login page.
	DefaultRegistryURL = "https://www1.aade.gr/taxisnet/info/protected/displayRegistryInfo.htm"
	// DefaultEndpoint is the browserless CDP websocket without the token.
	DefaultEndpoint = "wss://production-sfo.browserless.io/chromium"
)

// Config holds every setting the tool reads from file, env or flags.
type Config struct {
	Browser BrowserConfig `mapstructure:"browser"`
	Target  TargetConfig  `mapstructure:"target"`
	Preview PreviewConfig `mapstructure:"preview"`
	Triage  TriageConfig  `mapstructure:"triage"`
	Logger  LoggerConfig  `mapstructure:"logger"`
	Server  ServerConfig  `mapstructure:"server"`
}

// BrowserConfig describes the remote browser and the fixed timings of an attempt.
type BrowserConfig struct {
	Driver            string        `mapstructure:"driver"` // rod, chromedp
	Endpoint          string        `mapstructure:"endpoint"`
	Token             string        `mapstructure:"token"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	ElementTimeout    time.Duration `mapstructure:"element_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
}

// TargetConfig is the DOM contract with the registry portal.
type TargetConfig struct {
	URL              string `mapstructure:"url"`
	UsernameSelector string `mapstructure:"username_selector"`
	PasswordSelector string `mapstructure:"password_selector"`
}

type PreviewConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	MaxWidth uint `mapstructure:"max_width"`
}

// TriageConfig enables LLM annotation of unrecognised pages. An empty
// Provider disables it.
type TriageConfig struct {
	Provider string `mapstructure:"provider"` // claude, openai
	Model    string `mapstructure:"model"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console, json
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	ExportDir string `mapstructure:"export_dir"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("browser.driver", "rod")
	v.SetDefault("browser.endpoint", DefaultEndpoint)
	v.SetDefault("browser.token", "")
	v.SetDefault("browser.navigation_timeout", 30*time.Second)
	v.SetDefault("browser.element_timeout", 15*time.Second)
	v.SetDefault("browser.settle_delay", 3*time.Second)

	v.SetDefault("target.url", DefaultRegistryURL)
	v.SetDefault("target.username_selector", "#username")
	v.SetDefault("target.password_selector", "#password")

	v.SetDefault("preview.enabled", true)
	v.SetDefault("preview.max_width", 480)

	v.SetDefault("triage.provider", "")
	v.SetDefault("triage.model", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("server.addr", ":8501")
	v.SetDefault("server.export_dir", "")
}

// NewViper returns a viper instance wired for registrycheck: defaults, an
// optional config file, REGCHECK_* env vars and BROWSERLESS_API_KEY.
// A .env file in the working directory is loaded first when present.
func NewViper(cfgFile string) (*viper.Viper, error) {
	// Silently ignore a missing .env
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("registrycheck")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("REGCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("browser.token", "REGCHECK_BROWSER_TOKEN", "BROWSERLESS_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind token env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return v, nil
}

// FromViper decodes v into a Config.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Load is NewViper followed by FromViper.
func Load(cfgFile string) (*Config, error) {
	v, err := NewViper(cfgFile)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// Validate reports configuration errors that must stop a batch before any
// navigation is attempted.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Browser.Token) == "" {
		return ErrMissingAPIKey
	}
	switch c.Browser.Driver {
	case "rod", "chromedp":
	default:
		return fmt.Errorf("unknown browser driver: %s (supported: rod, chromedp)", c.Browser.Driver)
	}
	if c.Target.URL == "" {
		return errors.New("target.url must not be empty")
	}
	return nil
}
