// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"wallet-ledger/internal/commission"
	"wallet-ledger/internal/idempotency"
	"wallet-ledger/internal/ledger"
	"wallet-ledger/internal/notification"
	"wallet-ledger/internal/notification/channels"
	"wallet-ledger/pkg/cache"
	"wallet-ledger/pkg/db"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort        string
	LogLevel          string
	ProcessingTimeout time.Duration
	StorageDriver     string
	DefaultTimezone   string
	SystemCurrency    string
	RuleCacheTTL      time.Duration
	WebhookTimeout    time.Duration

	DB          db.Config
	AutoMigrate bool // apply embedded migrations at startup
	Redis       cache.RedisConfig
	Kafka       channels.KafkaConfig
	SMTP        channels.SMTPConfig

	Ledger       ledger.Config
	Idempotency  idempotency.Config
	Notification notification.Config
	Commission   commission.Config
	Workers      WorkerConfig

	ReferenceFile string
	Reference     *Reference
}

// WorkerConfig sizes the background pool.
type WorkerConfig struct {
	Size          int
	QueueCapacity int
	SweepInterval time.Duration
}

// RedisEnabled reports whether a Redis address is configured.
func (c *AppConfig) RedisEnabled() bool { return c.Redis.Addr != "" }

// KafkaEnabled reports whether Kafka brokers are configured.
func (c *AppConfig) KafkaEnabled() bool { return len(c.Kafka.Brokers) > 0 }

// SMTPEnabled reports whether an SMTP host is configured.
func (c *AppConfig) SMTPEnabled() bool { return c.SMTP.Host != "" }

type envReader struct {
	errs []string
}

func (r *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (r *envReader) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("invalid %s: %v", key, err))
		return def
	}
	return n
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("invalid %s: %v", key, err))
		return def
	}
	return d
}

func (r *envReader) boolean(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("invalid %s: %v", key, err))
		return def
	}
	return b
}

func (r *envReader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadConfig loads configuration from environment variables, after reading an
// optional .env file. Reference data comes from the embedded defaults,
// overridden by REFERENCE_DATA_FILE when set.
func LoadConfig() (*AppConfig, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	r := &envReader{}
	ledgerDefaults := ledger.DefaultConfig()
	idemDefaults := idempotency.DefaultConfig()
	notifDefaults := notification.DefaultConfig()
	commDefaults := commission.DefaultConfig()

	cfg := &AppConfig{
		ServerPort:        r.str("SERVER_PORT", "8080"),
		LogLevel:          r.str("LOG_LEVEL", "info"),
		ProcessingTimeout: r.duration("PROCESSING_TIMEOUT", 15*time.Second),
		StorageDriver:     strings.ToLower(r.str("STORAGE_DRIVER", DriverPostgres)),
		DefaultTimezone:   r.str("DEFAULT_TIMEZONE", "UTC"),
		SystemCurrency:    strings.ToUpper(r.str("SYSTEM_CURRENCY", "USD")),
		RuleCacheTTL:      r.duration("RULE_CACHE_TTL", 5*time.Minute),
		WebhookTimeout:    r.duration("WEBHOOK_TIMEOUT", 10*time.Second),
		DB: db.Config{
			Host:            r.str("DB_HOST", "localhost"),
			Port:            r.int("DB_PORT", 5432),
			User:            r.str("DB_USER", "user"),
			Password:        r.str("DB_PASSWORD", "password"),
			DBName:          r.str("DB_NAME", "walletdb"),
			SSLMode:         r.str("DB_SSLMODE", "disable"),
			MaxOpenConns:    r.int("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    r.int("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: r.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		AutoMigrate: r.boolean("DB_AUTO_MIGRATE", false),
		Redis: cache.RedisConfig{
			Addr:     r.str("REDIS_ADDR", ""),
			Password: r.str("REDIS_PASSWORD", ""),
			DB:       r.int("REDIS_DB", 0),
		},
		Kafka: channels.KafkaConfig{
			Brokers: r.list("KAFKA_BROKERS"),
			Topic:   r.str("KAFKA_MESSAGE_TOPIC", "outbound-messages"),
		},
		SMTP: channels.SMTPConfig{
			Host:     r.str("SMTP_HOST", ""),
			Port:     r.int("SMTP_PORT", 587),
			Username: r.str("SMTP_USERNAME", ""),
			Password: r.str("SMTP_PASSWORD", ""),
			From:     r.str("SMTP_FROM", "no-reply@wallet.local"),
		},
		Ledger: ledger.Config{
			MaxAttempts:   r.int("LEDGER_MAX_ATTEMPTS", ledgerDefaults.MaxAttempts),
			BaseBackoff:   r.duration("LEDGER_BASE_BACKOFF", ledgerDefaults.BaseBackoff),
			MaxBackoff:    r.duration("LEDGER_MAX_BACKOFF", ledgerDefaults.MaxBackoff),
			CommitTimeout: r.duration("LEDGER_COMMIT_TIMEOUT", ledgerDefaults.CommitTimeout),
		},
		Idempotency: idempotency.Config{
			Retention:    r.duration("IDEMPOTENCY_RETENTION", idemDefaults.Retention),
			InFlightTTL:  r.duration("IDEMPOTENCY_IN_FLIGHT_TTL", idemDefaults.InFlightTTL),
			WaitTimeout:  r.duration("IDEMPOTENCY_WAIT_TIMEOUT", idemDefaults.WaitTimeout),
			PollInterval: r.duration("IDEMPOTENCY_POLL_INTERVAL", idemDefaults.PollInterval),
		},
		Notification: notification.Config{
			MaxAttempts:    r.int("NOTIFY_MAX_ATTEMPTS", notifDefaults.MaxAttempts),
			BaseBackoff:    r.duration("NOTIFY_BASE_BACKOFF", notifDefaults.BaseBackoff),
			MaxBackoff:     r.duration("NOTIFY_MAX_BACKOFF", notifDefaults.MaxBackoff),
			Lease:          r.duration("NOTIFY_LEASE", notifDefaults.Lease),
			AttemptTimeout: r.duration("NOTIFY_ATTEMPT_TIMEOUT", notifDefaults.AttemptTimeout),
			RetryInterval:  r.duration("NOTIFY_RETRY_INTERVAL", notifDefaults.RetryInterval),
			BatchSize:      r.int("NOTIFY_BATCH_SIZE", notifDefaults.BatchSize),
		},
		Commission: commission.Config{
			MaxAttempts:   r.int("COMMISSION_MAX_ATTEMPTS", commDefaults.MaxAttempts),
			BaseBackoff:   r.duration("COMMISSION_BASE_BACKOFF", commDefaults.BaseBackoff),
			MaxBackoff:    r.duration("COMMISSION_MAX_BACKOFF", commDefaults.MaxBackoff),
			SweepLookback: r.duration("COMMISSION_SWEEP_LOOKBACK", commDefaults.SweepLookback),
			SweepBatch:    r.int("COMMISSION_SWEEP_BATCH", commDefaults.SweepBatch),
		},
		Workers: WorkerConfig{
			Size:          r.int("WORKER_POOL_SIZE", 8),
			QueueCapacity: r.int("WORKER_QUEUE_CAPACITY", 1024),
			SweepInterval: r.duration("SWEEP_INTERVAL", time.Minute),
		},
		ReferenceFile: r.str("REFERENCE_DATA_FILE", ""),
	}

	if len(r.errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(r.errs, "; "))
	}
	if cfg.StorageDriver != DriverPostgres && cfg.StorageDriver != DriverMemory {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q: want %s or %s", cfg.StorageDriver, DriverPostgres, DriverMemory)
	}
	if cfg.ProcessingTimeout <= 0 {
		return nil, fmt.Errorf("invalid PROCESSING_TIMEOUT: must be positive")
	}

	ref, err := LoadReference(cfg.ReferenceFile)
	if err != nil {
		return nil, err
	}
	cfg.Reference = ref
	return cfg, nil
}
