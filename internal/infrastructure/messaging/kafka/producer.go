package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/ffengine/internal/domain/forcefields"
	"github.com/turtacn/ffengine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ffengine/pkg/errors"
)

var ErrProducerClosed = errors.New(errors.CodeMessaging, "producer closed")

// ProducerConfig configures a Publisher.
type ProducerConfig struct {
	Brokers          []string       `mapstructure:"brokers"`
	Topic            string         `mapstructure:"topic"`
	Source           string         `mapstructure:"source"`
	Acks             string         `mapstructure:"acks"` // none, one, all
	MaxRetries       int            `mapstructure:"max_retries"`
	BatchSize        int            `mapstructure:"batch_size"`
	BatchTimeout     time.Duration  `mapstructure:"batch_timeout"`
	MaxMessageBytes  int            `mapstructure:"max_message_bytes"`
	CompressionCodec string         `mapstructure:"compression"`
	WriteTimeout     time.Duration  `mapstructure:"write_timeout"`
	Security         SecurityConfig `mapstructure:"security"`
}

func ValidateProducerConfig(cfg ProducerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.InvalidArgument("kafka brokers required")
	}
	if cfg.MaxRetries < 0 {
		return errors.InvalidArgument("max retries must be >= 0")
	}
	return cfg.Security.validate()
}

func (cfg *ProducerConfig) applyDefaults() {
	if cfg.Topic == "" {
		cfg.Topic = TopicChangeEvents
	}
	if cfg.Source == "" {
		cfg.Source = "ffengine"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.MaxMessageBytes == 0 {
		cfg.MaxMessageBytes = 1 << 20
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
}

// MessageWriter abstracts kafka.Writer for testing.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PublisherStats counts messages since the publisher was created.
type PublisherStats struct {
	Sent   int64
	Failed int64
	Bytes  int64
}

// Publisher writes change events to a topic, one message per event.
type Publisher struct {
	writer MessageWriter
	cfg    ProducerConfig
	logger logging.Logger
	closed atomic.Bool

	sent   atomic.Int64
	failed atomic.Int64
	bytes  atomic.Int64
}

var _ forcefields.EventPublisher = (*Publisher)(nil)

// NewPublisher builds a kafka.Writer from cfg.
func NewPublisher(cfg ProducerConfig, logger logging.Logger) (*Publisher, error) {
	if err := ValidateProducerConfig(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	transport, err := cfg.Security.transport()
	if err != nil {
		return nil, err
	}

	var acks kafka.RequiredAcks
	switch cfg.Acks {
	case "none":
		acks = kafka.RequireNone
	case "all":
		acks = kafka.RequireAll
	default:
		acks = kafka.RequireOne
	}

	var compression kafka.Compression
	switch cfg.CompressionCodec {
	case "gzip":
		compression = kafka.Gzip
	case "snappy":
		compression = kafka.Snappy
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxRetries + 1,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: acks,
		Compression:  compression,
		Transport:    transport,
	}
	return NewPublisherWithWriter(writer, cfg, logger), nil
}

// NewPublisherWithWriter wraps an existing writer.  The writer must not set
// its own Topic.
func NewPublisherWithWriter(w MessageWriter, cfg ProducerConfig, logger logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	cfg.applyDefaults()
	return &Publisher{writer: w, cfg: cfg, logger: logger}
}

// Publish writes events under key in one batch.  Messages larger than
// MaxMessageBytes fail the whole batch before anything is written.
func (p *Publisher) Publish(ctx context.Context, key string, events []forcefields.ChangeEvent) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	size := 0
	for _, ev := range events {
		msg, err := NewEventEnvelope(p.cfg.Source, key, ev).ToMessage(p.cfg.Topic)
		if err != nil {
			return err
		}
		if len(msg.Value) > p.cfg.MaxMessageBytes {
			return errors.InvalidArgument("event message too large").WithDetail(string(ev.Kind))
		}
		size += len(msg.Value)
		msgs = append(msgs, msg)
	}
	return p.write(ctx, msgs, size)
}

func (p *Publisher) write(ctx context.Context, msgs []kafka.Message, size int) error {
	start := time.Now()
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.failed.Add(int64(len(msgs)))
		return errors.Wrap(err, errors.CodeMessaging, "failed to publish events")
	}
	p.sent.Add(int64(len(msgs)))
	p.bytes.Add(int64(size))
	p.logger.Debug("events published",
		logging.String("topic", p.cfg.Topic),
		logging.Int("count", len(msgs)),
		logging.Duration("latency", time.Since(start)))
	return nil
}

func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{Sent: p.sent.Load(), Failed: p.failed.Load(), Bytes: p.bytes.Load()}
}

func (p *Publisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("kafka publisher closed", logging.Int64("sent", p.sent.Load()))
	return err
}

//Personal.AI order the ending
