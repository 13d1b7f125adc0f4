package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis (distributed rate limiting; empty addr falls back to in-memory)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceIDPro    string
	FrontendURL         string

	// AI gateway (OpenAI-compatible chat completions)
	AIAPIKey      string
	AIAPIURL      string
	AIModelLegacy string
	AIModel       string
	AITimeout     time.Duration

	// Quotas
	FreeDailyLimit    int
	ProPerMinuteLimit int

	// Email (Resend-style HTTP API)
	EmailAPIKey  string
	EmailAPIURL  string
	EmailFrom    string
	EmailTimeout time.Duration

	// Server
	Port        string
	CORSOrigins []string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "captureai"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       parseInt(getEnv("REDIS_DB", "0"), 0),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceIDPro:    getEnv("STRIPE_PRICE_ID_PRO", ""),
		FrontendURL:         strings.TrimRight(getEnv("FRONTEND_URL", "https://captureai.app"), "/"),

		AIAPIKey:      getEnv("AI_API_KEY", ""),
		AIAPIURL:      getEnv("AI_API_URL", "https://api.openai.com/v1/chat/completions"),
		AIModelLegacy: getEnv("AI_MODEL_LEGACY", "gpt-4o-mini"),
		AIModel:       getEnv("AI_MODEL", "gpt-5-nano"),
		AITimeout:     parseDuration(getEnv("AI_TIMEOUT", "60s"), 60*time.Second),

		FreeDailyLimit:    parseInt(getEnv("FREE_DAILY_LIMIT", "10"), 10),
		ProPerMinuteLimit: parseInt(getEnv("PRO_PER_MINUTE_LIMIT", "30"), 30),

		EmailAPIKey:  getEnv("EMAIL_API_KEY", ""),
		EmailAPIURL:  getEnv("EMAIL_API_URL", "https://api.resend.com/emails"),
		EmailFrom:    getEnv("EMAIL_FROM", "CaptureAI <keys@captureai.app>"),
		EmailTimeout: parseDuration(getEnv("EMAIL_TIMEOUT", "5s"), 5*time.Second),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "https://captureai.app,https://www.captureai.app")),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
