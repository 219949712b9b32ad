package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs from the environment so main
// stays lean.
type Config struct {
	Addr        string
	DatabaseURL string

	Redis RedisConfig

	RateLimit RateLimitConfig

	// Tier thresholds are the inclusive lower bounds of each priority band.
	TierHotMin  int
	TierWarmMin int
	TierCoolMin int

	Notify NotifyConfig

	// AdminAPIKeys authorize the admin surface. Comma-separated in the env.
	AdminAPIKeys []string
}

// RedisConfig configures the optional Redis-backed rate limit store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RateLimitConfig bounds public submissions per source IP.
type RateLimitConfig struct {
	Count  int
	Window time.Duration
}

// NotifyConfig configures outbound notification transports.
type NotifyConfig struct {
	SlackWebhookURL string
	SMTPAddr        string
	EmailFrom       string
	SalesEmail      string

	KafkaBrokers  []string
	SequenceTopic string

	AttemptTimeout time.Duration
	MaxAttempts    int

	// FollowupAfter is how long a hot lead may sit in "new" before the
	// reminder sweep alerts on it.
	FollowupAfter time.Duration
	SweepInterval time.Duration
}

// FromEnv builds the config from environment variables with development
// defaults. Production overrides everything.
func FromEnv() Config {
	return Config{
		Addr:        envString("LEADGATE_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		RateLimit: RateLimitConfig{
			Count:  envInt("RATE_LIMIT_COUNT", 5),
			Window: envDuration("RATE_LIMIT_WINDOW", time.Hour),
		},
		TierHotMin:  envInt("TIER_HOT_MIN", 80),
		TierWarmMin: envInt("TIER_WARM_MIN", 60),
		TierCoolMin: envInt("TIER_COOL_MIN", 40),
		Notify: NotifyConfig{
			SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
			SMTPAddr:        os.Getenv("SMTP_ADDR"),
			EmailFrom:       envString("EMAIL_FROM", "pilots@leadgate.local"),
			SalesEmail:      envString("SALES_EMAIL", "sales@leadgate.local"),
			KafkaBrokers:    envList("KAFKA_BROKERS"),
			SequenceTopic:   envString("KAFKA_SEQUENCE_TOPIC", "leadgate.nurture-sequence"),
			AttemptTimeout:  envDuration("NOTIFY_ATTEMPT_TIMEOUT", 10*time.Second),
			MaxAttempts:     envInt("NOTIFY_MAX_ATTEMPTS", 3),
			FollowupAfter:   envDuration("FOLLOWUP_AFTER", 24*time.Hour),
			SweepInterval:   envDuration("FOLLOWUP_SWEEP_INTERVAL", time.Hour),
		},
		AdminAPIKeys: envList("ADMIN_API_KEYS"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
