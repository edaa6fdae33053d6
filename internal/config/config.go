package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AuthToken       string

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Bus (Kafka)
	KafkaBrokers []string
	Channels     []string // registered channel tags, open set

	// Cache (Redis)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Identity — stable per process, used for outbox/recovery CAS claims.
	WorkerID string

	// Retry / backoff
	MaxRetryCount int
	RetryBaseMS   int64
	RetryCapMS    int64

	// Outbox publisher
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTimeout time.Duration
	OutboxWorkers      int

	// Channel consumer
	ProcessingTTLSeconds   int
	IdempotencyTTLSeconds  int
	RateLimitTokens        map[string]int
	RateLimitRefillPerSec  map[string]int

	// Delayed pipeline
	DelayedPollInterval time.Duration
	DelayedBatchSize    int
	DelayedClaimTTL     time.Duration
	MaxPollerRetries    int

	// Recovery cron
	RecoveryPollInterval       time.Duration
	ProcessingStuckThreshold   time.Duration
	PendingStuckThreshold      time.Duration
	RecoveryBatchSize          int

	// Cleanup retention (contract only — enforced by the out-of-scope cron,
	// but the value lives here so the core and the cleanup job agree on it)
	CleanupOutboxRetention       time.Duration
	CleanupStatusOutboxRetention time.Duration
	CleanupAlertRetention        time.Duration

	// Webhook delivery
	WebhookTimeout     time.Duration
	WebhookMaxRetries  int
	ChannelWebhookURLs map[string]string // per-channel provider endpoint
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	channels := splitCSV(getEnv("CHANNELS", "email,sms,push"))

	defaultWebhookBase := getEnv("WEBHOOK_BASE_URL", "http://localhost:9100/deliver")

	rateTokens := map[string]int{}
	rateRefill := map[string]int{}
	webhookURLs := map[string]string{}
	for _, ch := range channels {
		upper := strings.ToUpper(ch)
		rateTokens[ch] = getInt(upper+"_RATE_LIMIT_TOKENS", 100)
		rateRefill[ch] = getInt(upper+"_RATE_LIMIT_REFILL_RATE", 100)
		webhookURLs[ch] = getEnv(upper+"_WEBHOOK_URL", defaultWebhookBase+"/"+ch)
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		AuthToken:       getEnv("AUTH_TOKEN", ""),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		KafkaBrokers: splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
		Channels:     channels,

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		WorkerID: workerIdentity(),

		MaxRetryCount: getInt("MAX_RETRY_COUNT", 5),
		RetryBaseMS:   getInt64("RETRY_BACKOFF_BASE_MS", 5000),
		RetryCapMS:    getInt64("RETRY_BACKOFF_CAP_MS", 60000),

		OutboxPollInterval: getDuration("OUTBOX_POLL_INTERVAL_MS_D", 500*time.Millisecond),
		OutboxBatchSize:    getInt("OUTBOX_BATCH_SIZE", 200),
		OutboxClaimTimeout: getDuration("OUTBOX_CLAIM_TIMEOUT_MS_D", 30*time.Second),
		OutboxWorkers:      getInt("OUTBOX_WORKERS", 4),

		ProcessingTTLSeconds:  getInt("PROCESSING_TTL_SECONDS", 60),
		IdempotencyTTLSeconds: getInt("IDEMPOTENCY_TTL_SECONDS", 86400),
		RateLimitTokens:       rateTokens,
		RateLimitRefillPerSec: rateRefill,

		DelayedPollInterval: getDuration("DELAYED_POLL_INTERVAL_MS_D", 1*time.Second),
		DelayedBatchSize:    getInt("DELAYED_BATCH_SIZE", 100),
		DelayedClaimTTL:     getDuration("DELAYED_CLAIM_TTL_MS_D", 30*time.Second),
		MaxPollerRetries:    getInt("MAX_POLLER_RETRIES", 5),

		RecoveryPollInterval:     getDuration("RECOVERY_POLL_INTERVAL_MS_D", 30*time.Second),
		ProcessingStuckThreshold: getDuration("PROCESSING_STUCK_THRESHOLD_MS_D", 5*time.Minute),
		PendingStuckThreshold:    getDuration("PENDING_STUCK_THRESHOLD_MS_D", 10*time.Minute),
		RecoveryBatchSize:        getInt("RECOVERY_BATCH_SIZE", 200),

		CleanupOutboxRetention:       getDuration("CLEANUP_OUTBOX_RETENTION_MS_D", 24*time.Hour),
		CleanupStatusOutboxRetention: getDuration("CLEANUP_STATUS_OUTBOX_RETENTION_MS_D", 24*time.Hour),
		CleanupAlertRetention:        getDuration("CLEANUP_ALERT_RETENTION_MS_D", 7*24*time.Hour),

		WebhookTimeout:     getDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		WebhookMaxRetries:  getInt("WEBHOOK_MAX_RETRIES", 3),
		ChannelWebhookURLs: webhookURLs,
	}, nil
}

// workerIdentity returns a stable identity for this process: hostname+pid,
// adequate for CAS claim stamping and stale-claim detection without
// external coordination.
func workerIdentity() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
