package proxy

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied when neither config file, environment nor flags say
// otherwise. The request timeout is generous because local inference
// servers can take minutes on long completions.
const (
	DefaultListenAddr  = ":5000"
	DefaultUpstreamURL = "http://localhost:8000/v1"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
	DefaultStaticDir   = "static"

	defaultRequestTimeout = 5 * time.Minute
	defaultProbeTimeout   = 5 * time.Second

	// Connection pool bounds for the shared upstream client.
	maxConnsPerHost     = 100
	maxIdleConnsPerHost = 20
)

// Config is the proxy server configuration. It is assembled once at
// startup and treated as immutable afterwards.
type Config struct {
	// Address to listen on (e.g., ":5000")
	ListenAddr string `toml:"listen"`

	// Upstream inference server base URL (e.g., "http://localhost:8000/v1")
	UpstreamURL string `toml:"upstream"`

	// API key for the upstream; the Authorization header is only sent
	// when this is non-empty.
	APIKey string `toml:"api_key"`

	// Model identifier. Empty means auto-detect via the startup probe.
	Model string `toml:"model"`

	// Sampling defaults used when a request omits the field.
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`

	// Directory the browser UI is served from.
	StaticDir string `toml:"static_dir"`

	// Whole-call timeout for upstream requests.
	RequestTimeout time.Duration `toml:"-"`

	// Timeout for the one-shot startup model probe.
	ProbeTimeout time.Duration `toml:"-"`
}

// DefaultConfig returns a Config populated with the built-in defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:     DefaultListenAddr,
		UpstreamURL:    DefaultUpstreamURL,
		Temperature:    DefaultTemperature,
		MaxTokens:      DefaultMaxTokens,
		StaticDir:      DefaultStaticDir,
		RequestTimeout: defaultRequestTimeout,
		ProbeTimeout:   defaultProbeTimeout,
	}
}

// LoadFile overlays values from a TOML config file onto c. Fields the
// file does not set keep their current values.
func (c *Config) LoadFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("load config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays values from the process environment onto c. The
// variable names match the original browser-chat deployment, so an
// existing .env keeps working.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.UpstreamURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		c.StaticDir = v
	}
	if v := os.Getenv("TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse TEMPERATURE %q: %w", v, err)
		}
		c.Temperature = t
	}
	if v := os.Getenv("MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse MAX_TOKENS %q: %w", v, err)
		}
		c.MaxTokens = n
	}
	return nil
}

// Validate checks the assembled configuration before the proxy starts.
func (c *Config) Validate() error {
	if c.UpstreamURL == "" {
		return fmt.Errorf("upstream URL must not be empty")
	}
	if !strings.HasPrefix(c.UpstreamURL, "http://") && !strings.HasPrefix(c.UpstreamURL, "https://") {
		return fmt.Errorf("upstream URL %q must start with http:// or https://", c.UpstreamURL)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// completionsURL returns the upstream chat completions endpoint.
func (c *Config) completionsURL() string {
	return strings.TrimRight(c.UpstreamURL, "/") + "/chat/completions"
}

// modelsURL returns the upstream model list endpoint.
func (c *Config) modelsURL() string {
	return strings.TrimRight(c.UpstreamURL, "/") + "/models"
}
