// Package config loads runtime configuration from BALLOT_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"ballotledger/pkg/domain"
	platformstrings "ballotledger/pkg/platform/strings"
)

const (
	EnvDevelopment = "development"

	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"

	devSigningKey = "dev-secret-key-change-in-production"
	masked        = "*** Masked ***"
)

// DatabaseConfig configures the Postgres connection pool.
type DatabaseConfig struct {
	URL             string        `envconfig:"URL"`
	MaxOpenConns    int           `default:"10" envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `default:"5" envconfig:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `default:"30m" envconfig:"CONN_MAX_LIFETIME"`
}

// RedisConfig configures the Redis client.
type RedisConfig struct {
	URL          string        `envconfig:"URL"`
	PoolSize     int           `default:"10" envconfig:"POOL_SIZE"`
	MinIdleConns int           `default:"2" envconfig:"MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `default:"5s" envconfig:"DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `default:"3s" envconfig:"READ_TIMEOUT"`
	WriteTimeout time.Duration `default:"3s" envconfig:"WRITE_TIMEOUT"`
	// TxRetries bounds optimistic WATCH retries per election mutation.
	TxRetries int    `default:"32" envconfig:"TX_RETRIES"`
	KeyPrefix string `default:"ballot" envconfig:"KEY_PREFIX"`
}

// KafkaConfig configures the audit outbox relay.
type KafkaConfig struct {
	Brokers           []string      `envconfig:"BROKERS"`
	Topic             string        `default:"ballot.audit" envconfig:"TOPIC"`
	Partitions        int32         `default:"1" envconfig:"PARTITIONS"`
	ReplicationFactor int16         `default:"1" envconfig:"REPLICATION_FACTOR"`
	RelayInterval     time.Duration `default:"1s" envconfig:"RELAY_INTERVAL"`
	RelayBatchSize    int           `default:"100" envconfig:"RELAY_BATCH_SIZE"`
}

// Config is used to hold all runtime configuration.
type Config struct {
	Server struct {
		Addr            string        `default:":8080" envconfig:"ADDR"`
		Env             string        `default:"development" envconfig:"ENV"`
		RequestTimeout  time.Duration `default:"30s" envconfig:"REQUEST_TIMEOUT"`
		ShutdownTimeout time.Duration `default:"10s" envconfig:"SHUTDOWN_TIMEOUT"`
	}
	Log struct {
		Level  string `default:"info" envconfig:"LEVEL"`
		Format string `default:"json" envconfig:"FORMAT"`
	}
	Election struct {
		// Admin is the account that owns a freshly created election.
		Admin    string `envconfig:"ADMIN"`
		SeedFile string `envconfig:"SEED_FILE"`
	}
	Auth struct {
		JWTSigningKey string        `envconfig:"JWT_SIGNING_KEY"`
		JWTIssuer     string        `default:"ballotledger" envconfig:"JWT_ISSUER"`
		JWTAudience   string        `default:"ballotledger-api" envconfig:"JWT_AUDIENCE"`
		TokenTTL      time.Duration `default:"1h" envconfig:"TOKEN_TTL"`
		AdminAPIToken string        `envconfig:"ADMIN_API_TOKEN"`
	}
	Storage struct {
		Backend string `default:"memory" envconfig:"BACKEND"`
	}
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	RateLimit struct {
		VotesPerSecond float64       `default:"1" envconfig:"VOTES_PER_SECOND"`
		Burst          int           `default:"5" envconfig:"BURST"`
		IdleTTL        time.Duration `default:"10m" envconfig:"IDLE_TTL"`
		Disabled       bool          `envconfig:"DISABLED"`
	}
}

// Environment returns configuration sourced from BALLOT_* variables, e.g.
// BALLOT_SERVER_ADDR or BALLOT_DATABASE_URL.
func Environment() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("BALLOT", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Kafka.Brokers = platformstrings.CompactTrimmed(cfg.Kafka.Brokers)
	if cfg.Auth.JWTSigningKey == "" && cfg.IsDevelopment() {
		cfg.Auth.JWTSigningKey = devSigningKey
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == EnvDevelopment
}

// Validate checks cross-field requirements envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("BALLOT_DATABASE_URL is required for the postgres backend"))
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("BALLOT_REDIS_URL is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.Auth.JWTSigningKey == "" {
		errs = append(errs, errors.New("BALLOT_AUTH_JWT_SIGNING_KEY is required outside development"))
	}
	if c.Election.Admin != "" {
		if _, err := domain.ParseAccount(c.Election.Admin); err != nil {
			errs = append(errs, fmt.Errorf("BALLOT_ELECTION_ADMIN: %w", err))
		}
	}
	if len(c.Kafka.Brokers) > 0 && c.Storage.Backend != BackendPostgres {
		errs = append(errs, errors.New("the audit relay needs the postgres backend"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// SafeConfig masks sensitive config values
func SafeConfig(cfg Config) *Config {
	cfgSafe := cfg

	if len(cfgSafe.Auth.JWTSigningKey) > 0 {
		cfgSafe.Auth.JWTSigningKey = masked
	}
	if len(cfgSafe.Auth.AdminAPIToken) > 0 {
		cfgSafe.Auth.AdminAPIToken = masked
	}
	if len(cfgSafe.Database.URL) > 0 {
		cfgSafe.Database.URL = masked
	}
	if len(cfgSafe.Redis.URL) > 0 {
		cfgSafe.Redis.URL = masked
	}

	return &cfgSafe
}
