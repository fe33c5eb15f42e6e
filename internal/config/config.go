package config

import "os"

// Config carries the runtime settings of the service. Values come from the
// environment (a .env file is loaded at startup when present).
type Config struct {
	// Listen is the HTTP listen address.
	Listen string

	// BaseURL is the externally visible origin, used to build the OAuth
	// redirect URL.
	BaseURL string

	// Timezone is the fixed IANA zone all wall-clock interpretation uses.
	// The service deliberately offers no per-user timezone selection.
	Timezone string

	GoogleClientID     string
	GoogleClientSecret string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	LogLevel string
}

// FromEnv reads the configuration, applying defaults where the environment
// is silent.
func FromEnv() Config {
	return Config{
		Listen:             envOr("LISTEN_ADDR", ":8080"),
		BaseURL:            envOr("BASE_URL", "http://localhost:8080"),
		Timezone:           envOr("TIMEZONE", "Asia/Seoul"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:        os.Getenv("OPENAI_MODEL"),
		LogLevel:           envOr("LOG_LEVEL", "info"),
	}
}

// RedirectURL is where Google sends the user back after consent.
func (c Config) RedirectURL() string {
	return c.BaseURL + "/auth/callback"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
