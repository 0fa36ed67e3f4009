// Package config defines the engine's configuration structures.  No I/O or
// parsing logic lives in this file, only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Addr                 string `mapstructure:"addr"`
	Path                 string `mapstructure:"path"`
	Namespace            string `mapstructure:"namespace"`
	Subsystem            string `mapstructure:"subsystem"`
	EnableGoMetrics      bool   `mapstructure:"enable_go_metrics"`
	EnableProcessMetrics bool   `mapstructure:"enable_process_metrics"`
}

// BadgerConfig holds the local snapshot store parameters.
type BadgerConfig struct {
	Dir        string        `mapstructure:"dir"`
	InMemory   bool          `mapstructure:"in_memory"`
	SyncWrites bool          `mapstructure:"sync_writes"`
	GCInterval time.Duration `mapstructure:"gc_interval"` // zero disables value-log GC
}

// RedisConfig holds the remote snapshot store parameters.
type RedisConfig struct {
	Mode          string        `mapstructure:"mode"` // "standalone" | "sentinel" | "cluster"
	Addr          string        `mapstructure:"addr"`
	MasterName    string        `mapstructure:"master_name"`
	SentinelAddrs []string      `mapstructure:"sentinel_addrs"`
	ClusterAddrs  []string      `mapstructure:"cluster_addrs"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	PoolSize      int           `mapstructure:"pool_size"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// MinIOConfig holds the object-storage snapshot store parameters.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	ExpiryDays      int    `mapstructure:"expiry_days"`
}

// StorageConfig selects where session snapshots are kept.
type StorageConfig struct {
	Backend string       `mapstructure:"backend"` // "none" | "badger" | "redis" | "minio"
	Badger  BadgerConfig `mapstructure:"badger"`
	Redis   RedisConfig  `mapstructure:"redis"`
	MinIO   MinIOConfig  `mapstructure:"minio"`
}

// KafkaConfig holds change-event publishing parameters.
type KafkaConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	GroupID           string   `mapstructure:"group_id"`
	Acks              string   `mapstructure:"acks"`
	Compression       string   `mapstructure:"compression"`
	AutoCreateTopics  bool     `mapstructure:"auto_create_topics"`
	NumPartitions     int      `mapstructure:"num_partitions"`
	ReplicationFactor int      `mapstructure:"replication_factor"`
	DeadLetterTopic   string   `mapstructure:"dead_letter_topic"`
	SASLEnabled       bool     `mapstructure:"sasl_enabled"`
	SASLMechanism     string   `mapstructure:"sasl_mechanism"`
	SASLUsername      string   `mapstructure:"sasl_username"`
	SASLPassword      string   `mapstructure:"sasl_password"`
	TLSEnabled        bool     `mapstructure:"tls_enabled"`
	TLSCAFile         string   `mapstructure:"tls_ca_file"`
}

// EngineConfig holds defaults applied to forcefields built from system
// descriptions.
type EngineConfig struct {
	Source          string             `mapstructure:"source"`
	Mode            string             `mapstructure:"mode"` // "inter" | "intergroup"
	Cutoff          float64            `mapstructure:"cutoff"`
	CoulombConstant float64            `mapstructure:"coulomb_constant"`
	Parameters      map[string]float64 `mapstructure:"parameters"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Storage StorageConfig `mapstructure:"storage"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Engine  EngineConfig  `mapstructure:"engine"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config and
// returns the first problem found.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Addr == "" {
			return fmt.Errorf("config: metrics.addr is required when metrics are enabled")
		}
		if c.Metrics.Namespace == "" {
			return fmt.Errorf("config: metrics.namespace is required when metrics are enabled")
		}
	}

	switch c.Storage.Backend {
	case "none":
	case "badger":
		if c.Storage.Badger.Dir == "" && !c.Storage.Badger.InMemory {
			return fmt.Errorf("config: storage.badger.dir is required unless in_memory is set")
		}
	case "redis":
		switch c.Storage.Redis.Mode {
		case "standalone":
			if c.Storage.Redis.Addr == "" {
				return fmt.Errorf("config: storage.redis.addr is required")
			}
		case "sentinel":
			if c.Storage.Redis.MasterName == "" || len(c.Storage.Redis.SentinelAddrs) == 0 {
				return fmt.Errorf("config: storage.redis.master_name and sentinel_addrs are required in sentinel mode")
			}
		case "cluster":
			if len(c.Storage.Redis.ClusterAddrs) == 0 {
				return fmt.Errorf("config: storage.redis.cluster_addrs is required in cluster mode")
			}
		default:
			return fmt.Errorf("config: storage.redis.mode %q is invalid; expected standalone|sentinel|cluster", c.Storage.Redis.Mode)
		}
		if c.Storage.Redis.DB < 0 {
			return fmt.Errorf("config: storage.redis.db must be ≥ 0, got %d", c.Storage.Redis.DB)
		}
	case "minio":
		if c.Storage.MinIO.Endpoint == "" {
			return fmt.Errorf("config: storage.minio.endpoint is required")
		}
		if c.Storage.MinIO.ExpiryDays < 0 {
			return fmt.Errorf("config: storage.minio.expiry_days must be ≥ 0, got %d", c.Storage.MinIO.ExpiryDays)
		}
	default:
		return fmt.Errorf("config: storage.backend %q is invalid; expected none|badger|redis|minio", c.Storage.Backend)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required")
		}
		if c.Kafka.NumPartitions < 1 || c.Kafka.ReplicationFactor < 1 {
			return fmt.Errorf("config: kafka.num_partitions and replication_factor must be ≥ 1")
		}
	}

	switch c.Engine.Mode {
	case "inter", "intergroup":
	default:
		return fmt.Errorf("config: engine.mode %q is invalid; expected inter|intergroup", c.Engine.Mode)
	}
	if !(c.Engine.Cutoff > 0) {
		return fmt.Errorf("config: engine.cutoff must be positive, got %g", c.Engine.Cutoff)
	}

	return nil
}

//Personal.AI order the ending
