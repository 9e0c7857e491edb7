package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the server configuration, read once at startup.
type Config struct {
	HTTPPort      string
	PublicBaseURL string
	UploadDir     string
	MaxUploadMB   int64

	RendererURL     string
	RendererToken   string
	RendererTimeout time.Duration

	PollInterval    time.Duration
	PollMaxAttempts int

	CatalogPath     string
	DefaultTemplate string

	RedisAddr    string
	JobStatusTTL time.Duration
	DatabaseURL  string

	SuggestProvider string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	GeminiAPIKey    string
	GeminiModel     string

	CORSAllowedOrigins []string
}

// Load reads an optional .env file and then the process environment.
// RENDERER_API_TOKEN is the only required value.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port := getEnv("HTTP_PORT", "5000")
	cfg := &Config{
		HTTPPort:        port,
		PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadMB:     int64(getEnvInt("MAX_UPLOAD_MB", 64)),
		RendererURL:     strings.TrimRight(getEnv("RENDERER_API_URL", "https://api.placid.app/api/rest/images"), "/"),
		RendererToken:   strings.TrimSpace(os.Getenv("RENDERER_API_TOKEN")),
		RendererTimeout: time.Duration(getEnvInt("RENDERER_TIMEOUT_SECONDS", 30)) * time.Second,
		PollInterval:    time.Duration(getEnvInt("POLL_INTERVAL_MS", 2000)) * time.Millisecond,
		PollMaxAttempts: getEnvInt("POLL_MAX_ATTEMPTS", 30),
		CatalogPath:     strings.TrimSpace(os.Getenv("CATALOG_PATH")),
		DefaultTemplate: getEnv("DEFAULT_TEMPLATE", "feed_1_red"),
		RedisAddr:       strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		JobStatusTTL:    time.Duration(getEnvInt("JOB_STATUS_TTL_MINUTES", 60)) * time.Minute,
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SuggestProvider: strings.ToLower(getEnv("SUGGEST_PROVIDER", "static")),
		OpenAIAPIKey:    strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GeminiAPIKey:    strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		CORSAllowedOrigins: getEnvCSV("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5000",
			"http://localhost:5173",
		}),
	}

	if cfg.RendererToken == "" {
		return nil, fmt.Errorf("RENDERER_API_TOKEN is required")
	}
	if cfg.PollMaxAttempts < 1 {
		cfg.PollMaxAttempts = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxUploadMB < 1 {
		cfg.MaxUploadMB = 64
	}

	switch cfg.SuggestProvider {
	case "static":
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when SUGGEST_PROVIDER=openai")
		}
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when SUGGEST_PROVIDER=gemini")
		}
	default:
		return nil, fmt.Errorf("unknown SUGGEST_PROVIDER: %s", cfg.SuggestProvider)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvCSV(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	out := make([]string, 0)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
