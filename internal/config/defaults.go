package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsAddr      = ":9090"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "ffengine"

	DefaultStorageBackend = "none"
	DefaultBadgerDir      = "./data/snapshots"

	DefaultRedisMode      = "standalone"
	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "ffengine:snapshot:"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaTopic   = "ffengine.changes"
	DefaultKafkaGroupID = "ffengine"

	DefaultEngineSource          = "ffengine"
	DefaultEngineMode            = "inter"
	DefaultEngineCutoff          = 15.0
	DefaultEngineCoulombConstant = 332.0637
)

// ApplyDefaults fills every zero-value field in cfg with its default.
// Fields already set are left unchanged so that explicit configuration
// always wins.  It must run before Validate.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// ── Storage ───────────────────────────────────────────────────────────────
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.Badger.Dir == "" && !cfg.Storage.Badger.InMemory {
		cfg.Storage.Badger.Dir = DefaultBadgerDir
	}
	if cfg.Storage.Redis.Mode == "" {
		cfg.Storage.Redis.Mode = DefaultRedisMode
	}
	if cfg.Storage.Redis.Addr == "" {
		cfg.Storage.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Storage.Redis.KeyPrefix == "" {
		cfg.Storage.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Storage.Redis.DialTimeout == 0 {
		cfg.Storage.Redis.DialTimeout = 5 * time.Second
	}
	// DB and TTL are left alone: zero is a meaningful explicit value for both.

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.NumPartitions == 0 {
		cfg.Kafka.NumPartitions = 6
	}
	if cfg.Kafka.ReplicationFactor == 0 {
		cfg.Kafka.ReplicationFactor = 1
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	if cfg.Engine.Source == "" {
		cfg.Engine.Source = DefaultEngineSource
	}
	if cfg.Engine.Mode == "" {
		cfg.Engine.Mode = DefaultEngineMode
	}
	if cfg.Engine.Cutoff == 0 {
		cfg.Engine.Cutoff = DefaultEngineCutoff
	}
	if cfg.Engine.CoulombConstant == 0 {
		cfg.Engine.CoulombConstant = DefaultEngineCoulombConstant
	}
}

//Personal.AI order the ending
