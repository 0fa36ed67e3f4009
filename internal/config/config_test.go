package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/ffengine/internal/config"
)

// validConfig returns a Config that passes Validate().
func validConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestConfig_Validate_Defaults(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"invalid log level", func(c *config.Config) { c.Log.Level = "trace" }, "log.level"},
		{"invalid log format", func(c *config.Config) { c.Log.Format = "text" }, "log.format"},
		{"metrics without namespace", func(c *config.Config) {
			c.Metrics.Enabled = true
			c.Metrics.Namespace = ""
		}, "metrics.namespace"},
		{"unknown backend", func(c *config.Config) { c.Storage.Backend = "s3" }, "storage.backend"},
		{"badger without dir", func(c *config.Config) {
			c.Storage.Backend = "badger"
			c.Storage.Badger.Dir = ""
		}, "storage.badger.dir"},
		{"sentinel without master", func(c *config.Config) {
			c.Storage.Backend = "redis"
			c.Storage.Redis.Mode = "sentinel"
		}, "master_name"},
		{"cluster without addrs", func(c *config.Config) {
			c.Storage.Backend = "redis"
			c.Storage.Redis.Mode = "cluster"
		}, "cluster_addrs"},
		{"negative redis db", func(c *config.Config) {
			c.Storage.Backend = "redis"
			c.Storage.Redis.DB = -1
		}, "storage.redis.db"},
		{"minio without endpoint", func(c *config.Config) { c.Storage.Backend = "minio" }, "storage.minio.endpoint"},
		{"kafka without brokers", func(c *config.Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = nil
		}, "kafka.brokers"},
		{"unknown engine mode", func(c *config.Config) { c.Engine.Mode = "intra" }, "engine.mode"},
		{"non-positive cutoff", func(c *config.Config) { c.Engine.Cutoff = -1 }, "engine.cutoff"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestConfig_Validate_BackendsAccepted(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Storage.Backend = "badger"
	cfg.Storage.Badger.InMemory = true
	cfg.Storage.Badger.Dir = ""
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.Storage.Backend = "minio"
	cfg.Storage.MinIO.Endpoint = "localhost:9000"
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.Storage.Backend = "redis"
	cfg.Kafka.Enabled = true
	assert.NoError(t, cfg.Validate())
}

//Personal.AI order the ending
