// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	DBPath         string
	AllowedOrigins []string
	EncryptionKey  string

	SessionTimeout       time.Duration
	SessionSweepInterval time.Duration
	HistoryLimit         int

	AuditRetention time.Duration

	HH              HHConfig
	LLM             LLMConfig
	RateLimit       RateLimitConfig
	Timeout         TimeoutConfig
	ConversationLog ConversationLogConfig
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// HHConfig holds OAuth and REST settings for the job-board API.
type HHConfig struct {
	ClientID        string
	ClientSecret    string
	AuthURL         string
	TokenURL        string
	RedirectURL     string
	APIBaseURL      string
	UserAgent       string
	ClientCacheSize int
	RequestTimeout  time.Duration
}

// LLMConfig holds settings for the chat-completion provider.
type LLMConfig struct {
	BaseURL            string
	APIKey             string
	Model              string
	Temperature        float64
	RequestTimeout     time.Duration
	HumanizerFallback  string
	InsecureSkipVerify bool
}

// RateLimitConfig controls per-user chat throttling.
type RateLimitConfig struct {
	RequestsPerWindow  int
	WindowDuration     time.Duration
	MaxRequestBodySize int64
}

// TimeoutConfig groups server-side timeouts.
type TimeoutConfig struct {
	HealthCheck time.Duration
	Shutdown    time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8000"),
		DBPath:         getEnv("DB_PATH", "./data/hh_assistant.db"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		EncryptionKey:  getEnv("ENCRYPTION_KEY", ""),

		SessionTimeout:       getEnvDuration("SESSION_TIMEOUT", 24*time.Hour),
		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
		HistoryLimit:         getEnvInt("HISTORY_LIMIT", 10),

		AuditRetention: getEnvDuration("AUDIT_RETENTION", 7*24*time.Hour),

		HH: HHConfig{
			ClientID:        getEnv("HH_CLIENT_ID", ""),
			ClientSecret:    getEnv("HH_CLIENT_SECRET", ""),
			AuthURL:         getEnv("HH_AUTH_URL", "https://hh.ru/oauth/authorize"),
			TokenURL:        getEnv("HH_TOKEN_URL", "https://hh.ru/oauth/token"),
			RedirectURL:     getEnv("HH_REDIRECT_URL", "http://localhost:8000/auth/callback"),
			APIBaseURL:      getEnv("HH_API_BASE_URL", "https://api.hh.ru"),
			UserAgent:       getEnv("HH_USER_AGENT", "HH-AI-Agent/1.0"),
			ClientCacheSize: getEnvInt("HH_CLIENT_CACHE_SIZE", 100),
			RequestTimeout:  getEnvDuration("HH_TIMEOUT", 30*time.Second),
		},
		LLM: LLMConfig{
			BaseURL:            getEnv("LLM_BASE_URL", "https://gigachat.devices.sberbank.ru/api/v1"),
			APIKey:             getEnv("LLM_API_KEY", ""),
			Model:              getEnv("LLM_MODEL", "GigaChat"),
			Temperature:        getEnvFloat("LLM_TEMPERATURE", 0.7),
			RequestTimeout:     getEnvDuration("LLM_TIMEOUT", 2*time.Minute),
			HumanizerFallback:  getEnv("HUMANIZER_FALLBACK", "Не удалось преобразовать ответ в человекочитаемый формат."),
			InsecureSkipVerify: getEnvBool("LLM_INSECURE_SKIP_VERIFY", false),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow:  getEnvInt("RATE_LIMIT_REQUESTS", 20),
			WindowDuration:     getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
			MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		},
		Timeout: TimeoutConfig{
			HealthCheck: getEnvDuration("HEALTH_CHECK_TIMEOUT", 5*time.Second),
			Shutdown:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	var missing []string
	if c.HH.ClientID == "" {
		missing = append(missing, "HH_CLIENT_ID")
	}
	if c.HH.ClientSecret == "" {
		missing = append(missing, "HH_CLIENT_SECRET")
	}
	if c.LLM.APIKey == "" {
		missing = append(missing, "LLM_API_KEY")
	}
	if c.EncryptionKey == "" {
		missing = append(missing, "ENCRYPTION_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be > 0")
	}
	if c.SessionSweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be > 0")
	}
	if c.HistoryLimit < 2 {
		return fmt.Errorf("HISTORY_LIMIT must be >= 2")
	}
	if c.HH.ClientCacheSize <= 0 {
		return fmt.Errorf("HH_CLIENT_CACHE_SIZE must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.RateLimit.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	return nil
}

// ChatWriteTimeout bounds the HTTP write deadline for one chat turn. A turn
// can make up to three LLM calls (selection, a writing tool, humanizing) and
// up to three job-board calls (token check, refresh, tool dispatch).
func (c *Config) ChatWriteTimeout() time.Duration {
	return 3*c.LLM.RequestTimeout + 3*c.HH.RequestTimeout
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
