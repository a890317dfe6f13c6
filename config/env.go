package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variables consulted when the YAML leaves a value empty.
// The names match the serverless functions this gateway replaces, so
// existing secrets keep working.
const (
	EnvCompletionAPIKey = "GROQ_API_KEY"
	EnvSearchEngineID   = "GOOGLE_CX"
	EnvPort             = "SIFT_PORT"
)

// SearchKeyEnv returns the variable holding the n-th (1-based) search key.
func SearchKeyEnv(n int) string {
	return fmt.Sprintf("GOOGLE_API_KEY_%d", n)
}

// ApplyEnv fills empty credential fields from the environment; credentials
// set in the YAML always win. SIFT_PORT is the exception: when set it
// overrides the configured port, so a platform-assigned port is honored.
// getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.Completion.APIKey == "" {
		c.Completion.APIKey = getenv(EnvCompletionAPIKey)
	}

	if c.Search.EngineID == "" {
		c.Search.EngineID = getenv(EnvSearchEngineID)
	}

	if !hasAny(c.Search.APIKeys) {
		keys := make([]string, 0, MaxSearchKeys)
		for n := 1; n <= MaxSearchKeys; n++ {
			keys = append(keys, getenv(SearchKeyEnv(n)))
		}
		if hasAny(keys) {
			c.Search.APIKeys = keys
		}
	}

	if v := getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func hasAny(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
