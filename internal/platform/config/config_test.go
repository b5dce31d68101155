package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironmentDefaults(t *testing.T) {
	cfg, err := Environment()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, devSigningKey, cfg.Auth.JWTSigningKey)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "ballot.audit", cfg.Kafka.Topic)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.Equal(t, 32, cfg.Redis.TxRetries)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("BALLOT_SERVER_ADDR", ":9090")
	t.Setenv("BALLOT_STORAGE_BACKEND", "redis")
	t.Setenv("BALLOT_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("BALLOT_ELECTION_ADMIN", "0xABCDEFabcdef0123456789abcdef0123456789AB")
	t.Setenv("BALLOT_RATELIMIT_VOTES_PER_SECOND", "2.5")

	cfg, err := Environment()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.InDelta(t, 2.5, cfg.RateLimit.VotesPerSecond, 0.0001)
}

func TestEnvironmentCompactsBrokerList(t *testing.T) {
	t.Setenv("BALLOT_STORAGE_BACKEND", "postgres")
	t.Setenv("BALLOT_DATABASE_URL", "postgres://ballot@localhost/ballot")
	t.Setenv("BALLOT_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,kafka-1:9092")

	cfg, err := Environment()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		var c Config
		c.Storage.Backend = BackendMemory
		c.Auth.JWTSigningKey = "k"
		c.Log.Format = "json"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid memory config", mutate: func(*Config) {}},
		{name: "postgres needs url", mutate: func(c *Config) { c.Storage.Backend = BackendPostgres }, wantErr: "BALLOT_DATABASE_URL"},
		{name: "redis needs url", mutate: func(c *Config) { c.Storage.Backend = BackendRedis }, wantErr: "BALLOT_REDIS_URL"},
		{name: "unknown backend", mutate: func(c *Config) { c.Storage.Backend = "etcd" }, wantErr: "unknown storage backend"},
		{name: "signing key required", mutate: func(c *Config) { c.Auth.JWTSigningKey = "" }, wantErr: "JWT_SIGNING_KEY"},
		{name: "admin must be an address", mutate: func(c *Config) { c.Election.Admin = "alice" }, wantErr: "BALLOT_ELECTION_ADMIN"},
		{name: "relay requires postgres", mutate: func(c *Config) { c.Kafka.Brokers = []string{"localhost:9092"} }, wantErr: "postgres backend"},
		{name: "unknown log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSafeConfigMasksSecrets(t *testing.T) {
	var c Config
	c.Auth.JWTSigningKey = "secret"
	c.Auth.AdminAPIToken = "token"
	c.Database.URL = "postgres://u:p@db/ballot"

	safe := SafeConfig(c)
	assert.Equal(t, masked, safe.Auth.JWTSigningKey)
	assert.Equal(t, masked, safe.Auth.AdminAPIToken)
	assert.Equal(t, masked, safe.Database.URL)
	assert.Empty(t, safe.Redis.URL)
	assert.Equal(t, "secret", c.Auth.JWTSigningKey, "original must stay untouched")
}
