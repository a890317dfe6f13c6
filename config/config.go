// Package config provides configuration management for the sift gateway.
// It covers the HTTP server, the chat-completion upstream, the search
// upstream and its credential pool, logging, and route definitions.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxSearchKeys is the largest search credential pool the gateway accepts.
const MaxSearchKeys = 5

// Config represents the complete server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Completion CompletionConfig `yaml:"completion"`
	Search     SearchConfig     `yaml:"search"`
	Logging    LoggingConfig    `yaml:"logging"`
	Routes     []RouteConfig    `yaml:"routes"`
}

// ServerConfig holds server-specific configuration for the HTTP server.
// It defines timeouts, limits, and operational parameters.
type ServerConfig struct {
	// Port specifies the HTTP server port (default: 8080)
	Port int `yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body (default: 30s)
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// Upstream calls inherit this bound; the gateway sets none of its own.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values (default: 1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// ShutdownTimeout specifies how long to wait for the server to shutdown
	// gracefully before forcing termination (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// CORS controls cross-origin headers for browser clients.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// CompletionConfig describes the OpenAI-compatible chat completion upstream.
type CompletionConfig struct {
	// APIKey authenticates against the completion API. When empty every
	// query request fails with a configuration error.
	APIKey string `yaml:"api_key"`

	// BaseURL is the OpenAI-compatible API root (default: Groq).
	BaseURL string `yaml:"base_url"`

	// Model is sent with every completion request.
	Model string `yaml:"model"`

	// MaxPromptTokens rejects rendered prompts above this many tokens
	// before calling upstream. Zero disables the check.
	MaxPromptTokens int `yaml:"max_prompt_tokens"`

	// Prompts overrides the built-in prompt specs, keyed by query type.
	Prompts map[string]PromptOverride `yaml:"prompts,omitempty"`
}

// PromptOverride replaces parts of a built-in prompt spec. Zero fields keep
// the built-in value. Templates use text/template syntax with {{.Query}}.
type PromptOverride struct {
	Template    string   `yaml:"template,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	MaxTokens   int      `yaml:"max_tokens,omitempty"`
}

// SearchConfig describes the Custom Search upstream and its credential pool.
type SearchConfig struct {
	// APIKeys is the ordered credential pool. Blank entries are skipped
	// when the pool is built, so positions may be left empty.
	APIKeys []string `yaml:"api_keys"`

	// EngineID is the search-scope identifier (cx) shared by all keys.
	EngineID string `yaml:"engine_id"`

	// Endpoint overrides the API root, mainly for tests.
	Endpoint string `yaml:"endpoint,omitempty"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	// Level sets logging verbosity: debug, info, warn, error
	Level string `yaml:"level"`

	// Format specifies log output format: json or text
	Format string `yaml:"format"`
}

// RouteConfig mounts a named handler on a path.
type RouteConfig struct {
	// Path is the URL path to match
	Path string `yaml:"path"`

	// Handler is one of: query, search, health, metrics
	Handler string `yaml:"handler"`

	// Aliases are additional paths served by the same handler.
	Aliases []string `yaml:"aliases,omitempty"`
}

var knownHandlers = map[string]bool{
	"query":   true,
	"search":  true,
	"health":  true,
	"metrics": true,
}

// DefaultConfig returns a configuration that works against the public Groq
// and Google endpoints once credentials are supplied.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    45 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
			},
		},
		Completion: CompletionConfig{
			BaseURL: "https://api.groq.com/openai/v1/",
			Model:   "llama-3.3-70b-versatile",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Routes: []RouteConfig{
			{
				Path:    "/v1/query",
				Handler: "query",
				Aliases: []string{"/.netlify/functions/ai-query"},
			},
			{
				Path:    "/v1/search",
				Handler: "search",
				Aliases: []string{"/.netlify/functions/google-search"},
			},
			{
				Path:    "/health",
				Handler: "health",
			},
			{
				Path:    "/metrics",
				Handler: "metrics",
			},
		},
	}
}

// LoadFile loads configuration from a YAML file
func LoadFile(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// envRef matches ${VAR} and ${VAR:-default}. Bare $VAR is left alone so
// keys and prompt templates may contain a literal dollar sign.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}\n]*))?\}`)

// expandEnvVars resolves ${VAR} and ${VAR:-default} references in a single
// pass. Substituted values are not expanded again.
//
// Example Transformations:
//   - "${GROQ_API_KEY}" → "gsk_..."
//   - "${PORT:-8080}" → "8080" (if PORT is unset)
func expandEnvVars(s string) (string, error) {
	// Anything outside a match still shaped like a reference was never
	// closed or does not name a valid variable.
	for _, rest := range envRef.Split(s, -1) {
		if strings.Contains(rest, "${") {
			return "", fmt.Errorf("invalid syntax: unterminated variable reference")
		}
	}

	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		if val := os.Getenv(m[1]); val != "" {
			return val
		}
		return m[2]
	}), nil
}

// Load loads configuration from an io.Reader. The YAML is decoded on top of
// DefaultConfig, then environment fallbacks are applied and the result is
// validated.
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expandedData, err := expandEnvVars(string(data))
	if err != nil {
		return nil, fmt.Errorf("expand environment variables: %w", err)
	}

	config := DefaultConfig()

	dec := yaml.NewDecoder(strings.NewReader(expandedData))
	if err := dec.Decode(config); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	config.ApplyEnv(os.Getenv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid. Missing credentials are
// not a validation failure: they surface per request as configuration
// errors so the server can still start and report health.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("negative read timeout: %v", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("negative write timeout: %v", c.Server.WriteTimeout)
	}
	if c.Server.MaxHeaderBytes < 0 {
		return fmt.Errorf("negative max header bytes: %d", c.Server.MaxHeaderBytes)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("negative shutdown timeout: %v", c.Server.ShutdownTimeout)
	}

	if c.Completion.Model == "" {
		return fmt.Errorf("empty completion model")
	}
	if err := validateURL(c.Completion.BaseURL); err != nil {
		return fmt.Errorf("invalid completion base_url: %w", err)
	}
	if c.Completion.MaxPromptTokens < 0 {
		return fmt.Errorf("negative max prompt tokens: %d", c.Completion.MaxPromptTokens)
	}
	for kind, p := range c.Completion.Prompts {
		if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 1) {
			return fmt.Errorf("prompt %s: temperature %v out of range [0,1]", kind, *p.Temperature)
		}
		if p.MaxTokens < 0 {
			return fmt.Errorf("prompt %s: negative max tokens: %d", kind, p.MaxTokens)
		}
	}

	if len(c.Search.APIKeys) > MaxSearchKeys {
		return fmt.Errorf("too many search api keys: %d (max %d)", len(c.Search.APIKeys), MaxSearchKeys)
	}
	if c.Search.Endpoint != "" {
		if err := validateURL(c.Search.Endpoint); err != nil {
			return fmt.Errorf("invalid search endpoint: %w", err)
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if len(c.Routes) == 0 {
		return fmt.Errorf("no routes configured")
	}
	for i, route := range c.Routes {
		if route.Path == "" {
			return fmt.Errorf("empty path in route %d", i)
		}
		if route.Handler == "" {
			return fmt.Errorf("empty handler in route %d", i)
		}
		if !knownHandlers[route.Handler] {
			return fmt.Errorf("unknown handler %q in route %d", route.Handler, i)
		}
	}

	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
