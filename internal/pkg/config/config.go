package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	PostgresURL         string        `env:"POSTGRES_URL,required"`
	RedisAddr           string        `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	AuditStream         string        `env:"AUDIT_STREAM" envDefault:"audit_events"`
	AuditConsumerGroup  string        `env:"AUDIT_CONSUMER_GROUP" envDefault:"audit-sinkers"`
	AuditWALDir         string        `env:"AUDIT_WAL_DIR" envDefault:"./audit-wal"`
	AuditWALSegmentSize int64         `env:"AUDIT_WAL_SEGMENT_SIZE_BYTES" envDefault:"33554432"`   // 32MB
	AuditWALMaxDiskSize int64         `env:"AUDIT_WAL_MAX_DISK_SIZE_BYTES" envDefault:"268435456"` // 256MB
	RedactionFields     string        `env:"AUDIT_REDACTION_FIELDS" envDefault:"email,biometricTemplate,cardFingerprint,last4"`
	TenantKeyCacheTTL   time.Duration `env:"TENANT_KEY_CACHE_TTL" envDefault:"5m"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RedactionFieldList splits the configured redaction fields.
func (c *Config) RedactionFieldList() []string {
	fields := strings.Split(c.RedactionFields, ",")
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
