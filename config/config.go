package config

import (
	"os"

	"github.com/subosito/gotenv"
)

// Provider holds the credential and optional base URL override for one
// backend.
type Provider struct {
	APIKey  string
	BaseURL string
}

// Config carries everything the server reads from the environment. It is
// loaded once at startup; the registry and handlers never consult the
// environment afterwards.
type Config struct {
	Port     string
	ProxyURL string

	DeepSeek Provider
	OpenAI   Provider
	Gemini   Provider
	Claude   Provider
	Qwen     Provider
}

// Load reads .env (if present) and the process environment into a Config.
func Load() Config {
	gotenv.Load()

	return Config{
		Port:     envOr("PORT", "3001"),
		ProxyURL: firstOf(os.Getenv("HTTPS_PROXY"), os.Getenv("HTTP_PROXY")),
		DeepSeek: Provider{
			APIKey:  os.Getenv("DEEPSEEK_API_KEY"),
			BaseURL: os.Getenv("DEEPSEEK_BASE_URL"),
		},
		OpenAI: Provider{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		},
		Gemini: Provider{APIKey: os.Getenv("GOOGLE_API_KEY")},
		Claude: Provider{APIKey: os.Getenv("ANTHROPIC_API_KEY")},
		Qwen:   Provider{APIKey: os.Getenv("ALIBABA_API_KEY")},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
