package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Backends. Keys left empty disable the backend.
	OllamaBaseURL string
	OllamaModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	GroqAPIKey    string
	GroqModel     string
	GeminiAPIKey  string
	GeminiModel   string
	TesseractLang string

	DefaultModel       string
	DefaultReviewModel string

	RecognizeTimeout time.Duration
	RetryTimeout     time.Duration
	ReviewTimeout    time.Duration

	CacheTTL time.Duration
	RedisURL string // empty = in-memory cache

	DatabaseDSN  string        // empty = no workflow log
	RetentionAge time.Duration // zero = keep forever

	TelegramToken string
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("bad duration in env %s: %q", k, v)
	}
	return d
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8000"),

		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llava:latest"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o"),
		GroqAPIKey:    os.Getenv("GROQ_API_KEY"),
		GroqModel:     getEnv("GROQ_MODEL", "llama-3.2-90b-vision-preview"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		TesseractLang: getEnv("TESSERACT_LANG", "eng"),

		DefaultModel:       getEnv("DEFAULT_MODEL", "llava:latest"),
		DefaultReviewModel: getEnv("DEFAULT_REVIEW_MODEL", "gpt-4o"),

		RecognizeTimeout: getDuration("RECOGNIZE_TIMEOUT", 30*time.Second),
		RetryTimeout:     getDuration("RETRY_TIMEOUT", 10*time.Second),
		ReviewTimeout:    getDuration("REVIEW_TIMEOUT", 30*time.Second),

		CacheTTL: getDuration("CACHE_TTL", time.Hour),
		RedisURL: os.Getenv("REDIS_URL"),

		DatabaseDSN:  os.Getenv("DATABASE_DSN"),
		RetentionAge: getDuration("RETENTION_AGE", 0),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}
}

// MustTelegramToken is used by the bot entry point, where the token is not
// optional.
func (c *Config) MustTelegramToken() string {
	if c.TelegramToken == "" {
		return mustEnv("TELEGRAM_BOT_TOKEN")
	}
	return c.TelegramToken
}
