package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadValidConfig(t *testing.T) {
	yamlConfig := `
server:
  port: 9090
  read_timeout: 45s
  write_timeout: 45s
  max_header_bytes: 2097152
  shutdown_timeout: 45s

completion:
  api_key: gsk-test
  base_url: https://api.groq.com/openai/v1/
  model: llama-3.1-8b-instant
  max_prompt_tokens: 512
  prompts:
    answer:
      max_tokens: 800

search:
  api_keys: [key-a, "", key-c]
  engine_id: cx-123

logging:
  level: debug
  format: json

routes:
  - path: /v1/query
    handler: query
  - path: /health
    handler: health
`

	config, err := Load(strings.NewReader(yamlConfig))
	if err != nil {
		t.Fatalf("Failed to load valid config: %v", err)
	}

	if config.Server.Port != 9090 {
		t.Errorf("unexpected port: got %d, want %d", config.Server.Port, 9090)
	}
	if config.Server.ReadTimeout != 45*time.Second {
		t.Errorf("unexpected read timeout: got %v, want %v", config.Server.ReadTimeout, 45*time.Second)
	}

	if config.Completion.Model != "llama-3.1-8b-instant" {
		t.Errorf("unexpected model: got %s, want %s", config.Completion.Model, "llama-3.1-8b-instant")
	}
	if config.Completion.MaxPromptTokens != 512 {
		t.Errorf("unexpected max prompt tokens: got %d, want %d", config.Completion.MaxPromptTokens, 512)
	}
	if got := config.Completion.Prompts["answer"].MaxTokens; got != 800 {
		t.Errorf("unexpected answer max tokens override: got %d, want %d", got, 800)
	}

	if len(config.Search.APIKeys) != 3 {
		t.Errorf("unexpected number of search keys: got %d, want %d", len(config.Search.APIKeys), 3)
	}
	if config.Search.EngineID != "cx-123" {
		t.Errorf("unexpected engine id: got %s, want %s", config.Search.EngineID, "cx-123")
	}

	if config.Logging.Level != "debug" {
		t.Errorf("unexpected log level: got %s, want %s", config.Logging.Level, "debug")
	}

	if len(config.Routes) != 2 {
		t.Errorf("unexpected number of routes: got %d, want %d", len(config.Routes), 2)
	}
}

func TestLoadEmptyConfigUsesDefaults(t *testing.T) {
	config, err := Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Failed to load empty config: %v", err)
	}
	if config.Completion.Model != "llama-3.3-70b-versatile" {
		t.Errorf("unexpected default model: got %s", config.Completion.Model)
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config string
		want   string
	}{
		{
			name: "invalid port",
			config: `
server:
  port: -1
`,
			want: "invalid port",
		},
		{
			name: "invalid log level",
			config: `
logging:
  level: invalid
`,
			want: "invalid log level",
		},
		{
			name: "empty model",
			config: `
completion:
  model: ""
`,
			want: "empty completion model",
		},
		{
			name: "bad base url",
			config: `
completion:
  base_url: "ftp://example.com"
`,
			want: "invalid completion base_url",
		},
		{
			name: "temperature out of range",
			config: `
completion:
  prompts:
    safety:
      temperature: 1.5
`,
			want: "out of range",
		},
		{
			name: "too many search keys",
			config: `
search:
  api_keys: [a, b, c, d, e, f]
`,
			want: "too many search api keys",
		},
		{
			name: "empty route path",
			config: `
routes:
  - path: ""
    handler: query
`,
			want: "empty path",
		},
		{
			name: "empty route table",
			config: `
routes: []
`,
			want: "no routes configured",
		},
		{
			name: "unknown handler",
			config: `
routes:
  - path: /x
    handler: completion
`,
			want: "unknown handler",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.config))
			if err == nil {
				t.Error("expected error, got nil")
			} else if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("unexpected error: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Server.Port != 8080 {
		t.Errorf("unexpected default port: got %d, want %d", config.Server.Port, 8080)
	}
	if config.Completion.BaseURL != "https://api.groq.com/openai/v1/" {
		t.Errorf("unexpected default base url: got %s", config.Completion.BaseURL)
	}
	if config.Logging.Format != "json" {
		t.Errorf("unexpected default log format: got %s, want %s", config.Logging.Format, "json")
	}
	if len(config.Routes) != 4 {
		t.Errorf("unexpected number of default routes: got %d, want %d", len(config.Routes), 4)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestExampleConfigLoads(t *testing.T) {
	t.Setenv(EnvPort, "")
	t.Setenv(EnvCompletionAPIKey, "")

	cfg, err := LoadFile("../sift.example.yaml")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Completion.MaxPromptTokens != 2048 {
		t.Errorf("MaxPromptTokens = %d, want 2048", cfg.Completion.MaxPromptTokens)
	}
	if len(cfg.Routes) != 4 {
		t.Errorf("len(Routes) = %d, want 4", len(cfg.Routes))
	}
}
