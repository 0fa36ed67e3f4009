package cli

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/turtacn/ffengine/internal/application/session"
	"github.com/turtacn/ffengine/internal/config"
	"github.com/turtacn/ffengine/internal/infrastructure/database/redis"
	"github.com/turtacn/ffengine/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ffengine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ffengine/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ffengine/internal/infrastructure/storage/badger"
	"github.com/turtacn/ffengine/internal/infrastructure/storage/minio"
)

// Runtime holds the wired infrastructure one command runs against.
type Runtime struct {
	Config   *config.Config
	Logger   logging.Logger
	Metrics  *prometheus.EngineMetrics
	Sessions *session.Manager

	closers []func() error
}

// NewRuntime opens the configured snapshot store and event publisher and
// builds a session manager over them.  Close releases everything.
func NewRuntime(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Logger: logger}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Metrics.Namespace,
		Subsystem:            cfg.Metrics.Subsystem,
		EnableGoMetrics:      cfg.Metrics.EnableGoMetrics,
		EnableProcessMetrics: cfg.Metrics.EnableProcessMetrics,
	}, logger)
	if err != nil {
		return nil, err
	}
	rt.Metrics = prometheus.NewEngineMetrics(collector)
	if cfg.Metrics.Enabled {
		rt.serveMetrics(collector)
	}

	opts := []session.Option{session.WithLogger(logger), session.WithMetrics(rt.Metrics)}

	store, err := rt.openStore(ctx)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	if store != nil {
		opts = append(opts, session.WithStore(store))
	}

	if cfg.Kafka.Enabled {
		if cfg.Kafka.AutoCreateTopics {
			if err := ensureTopics(ctx, cfg.Kafka, logger); err != nil {
				_ = rt.Close()
				return nil, err
			}
		}
		pub, err := kafka.NewPublisher(producerConfig(cfg), logger.Named("kafka"))
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, pub.Close)
		opts = append(opts, session.WithPublisher(pub))
	}

	rt.Sessions = session.NewManager(opts...)
	return rt, nil
}

func (rt *Runtime) openStore(ctx context.Context) (session.SnapshotStore, error) {
	sc := rt.Config.Storage
	switch sc.Backend {
	case "badger":
		s, err := badger.Open(badger.Config{
			Dir:        sc.Badger.Dir,
			InMemory:   sc.Badger.InMemory,
			SyncWrites: sc.Badger.SyncWrites,
			GCInterval: sc.Badger.GCInterval,
		}, rt.Logger)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, s.Close)
		return s, nil
	case "redis":
		client, err := redis.NewClient(&redis.RedisConfig{
			Mode:          sc.Redis.Mode,
			Addr:          sc.Redis.Addr,
			MasterName:    sc.Redis.MasterName,
			SentinelAddrs: sc.Redis.SentinelAddrs,
			ClusterAddrs:  sc.Redis.ClusterAddrs,
			Username:      sc.Redis.Username,
			Password:      sc.Redis.Password,
			DB:            sc.Redis.DB,
			PoolSize:      sc.Redis.PoolSize,
			DialTimeout:   sc.Redis.DialTimeout,
		}, rt.Logger)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, client.Close)
		return redis.NewSnapshotStore(client, rt.Logger,
			redis.WithPrefix(sc.Redis.KeyPrefix),
			redis.WithTTL(sc.Redis.TTL)), nil
	case "minio":
		client, err := minio.NewMinIOClient(ctx, &minio.MinIOConfig{
			Endpoint:        sc.MinIO.Endpoint,
			AccessKeyID:     sc.MinIO.AccessKeyID,
			SecretAccessKey: sc.MinIO.SecretAccessKey,
			UseSSL:          sc.MinIO.UseSSL,
			Region:          sc.MinIO.Region,
			Bucket:          sc.MinIO.Bucket,
			Prefix:          sc.MinIO.Prefix,
			ExpiryDays:      sc.MinIO.ExpiryDays,
		}, rt.Logger)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, client.Close)
		return minio.NewSnapshotStore(client, rt.Logger), nil
	}
	return nil, nil
}

func (rt *Runtime) serveMetrics(collector prometheus.MetricsCollector) {
	mux := http.NewServeMux()
	mux.Handle(rt.Config.Metrics.Path, collector.Handler())
	srv := &http.Server{Addr: rt.Config.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			rt.Logger.Error("metrics server failed", logging.Err(err))
		}
	}()
	rt.closers = append(rt.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
	rt.Logger.Info("metrics endpoint listening",
		logging.String("addr", rt.Config.Metrics.Addr),
		logging.String("path", rt.Config.Metrics.Path))
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	rt.closers = nil
	return stderrors.Join(errs...)
}

func ensureTopics(ctx context.Context, kc config.KafkaConfig, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(kc.Brokers, securityConfig(kc), logger)
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureTopics(ctx, kafka.DefaultTopics(kc.NumPartitions, kc.ReplicationFactor))
}

func securityConfig(kc config.KafkaConfig) kafka.SecurityConfig {
	return kafka.SecurityConfig{
		SASLEnabled:   kc.SASLEnabled,
		SASLMechanism: kc.SASLMechanism,
		SASLUsername:  kc.SASLUsername,
		SASLPassword:  kc.SASLPassword,
		TLSEnabled:    kc.TLSEnabled,
		TLSCAFile:     kc.TLSCAFile,
	}
}

func producerConfig(cfg *config.Config) kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:          cfg.Kafka.Brokers,
		Topic:            cfg.Kafka.Topic,
		Source:           cfg.Engine.Source,
		Acks:             cfg.Kafka.Acks,
		CompressionCodec: cfg.Kafka.Compression,
		Security:         securityConfig(cfg.Kafka),
	}
}

func consumerConfig(cfg *config.Config) kafka.ConsumerConfig {
	return kafka.ConsumerConfig{
		Brokers:  cfg.Kafka.Brokers,
		GroupID:  cfg.Kafka.GroupID,
		Topic:    cfg.Kafka.Topic,
		Security: securityConfig(cfg.Kafka),
		Retry:    kafka.RetryConfig{DeadLetterTopic: cfg.Kafka.DeadLetterTopic},
	}
}

//Personal.AI order the ending
