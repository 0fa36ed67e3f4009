package kafka

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/ffengine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ffengine/pkg/errors"
)

var ErrAlreadyRunning = errors.New(errors.CodeConflict, "subscriber already running")

// RetryConfig controls redelivery of messages whose handler failed.
type RetryConfig struct {
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
	DeadLetterTopic string        `mapstructure:"dead_letter_topic"`
}

// ConsumerConfig configures a Subscriber.
type ConsumerConfig struct {
	Brokers         []string       `mapstructure:"brokers"`
	GroupID         string         `mapstructure:"group_id"`
	Topic           string         `mapstructure:"topic"`
	AutoOffsetReset string         `mapstructure:"auto_offset_reset"` // earliest, latest
	MinBytes        int            `mapstructure:"min_bytes"`
	MaxBytes        int            `mapstructure:"max_bytes"`
	MaxWait         time.Duration  `mapstructure:"max_wait"`
	Security        SecurityConfig `mapstructure:"security"`
	Retry           RetryConfig    `mapstructure:"retry"`
}

func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.InvalidArgument("kafka brokers required")
	}
	if cfg.GroupID == "" {
		return errors.InvalidArgument("consumer group id required")
	}
	if cfg.AutoOffsetReset != "" && cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest" {
		return errors.InvalidArgument("invalid auto offset reset").WithDetail(cfg.AutoOffsetReset)
	}
	if cfg.Retry.MaxRetries < 0 {
		return errors.InvalidArgument("max retries must be >= 0")
	}
	return cfg.Security.validate()
}

func (cfg *ConsumerConfig) applyDefaults() {
	if cfg.Topic == "" {
		cfg.Topic = TopicChangeEvents
	}
	if cfg.AutoOffsetReset == "" {
		cfg.AutoOffsetReset = "earliest"
	}
	if cfg.MinBytes == 0 {
		cfg.MinBytes = 1
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 10 << 20
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = 500 * time.Millisecond
	}
	if cfg.Retry.RetryBackoff == 0 {
		cfg.Retry.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.Retry.MaxRetryBackoff == 0 {
		cfg.Retry.MaxRetryBackoff = 5 * time.Second
	}
}

// MessageReader abstracts kafka.Reader for testing.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler processes one decoded change event.
type Handler func(ctx context.Context, env *EventEnvelope) error

// SubscriberStats counts messages since the subscriber was created.
type SubscriberStats struct {
	Consumed     int64
	Processed    int64
	Failed       int64
	Retried      int64
	DeadLettered int64
}

// Subscriber reads change events from a topic with a consumer group.
// Undecodable messages and messages whose handler keeps failing are
// dead-lettered when a dead-letter writer is configured, then committed.
type Subscriber struct {
	reader MessageReader
	dlq    MessageWriter
	cfg    ConsumerConfig
	logger logging.Logger
	wait   func(ctx context.Context, d time.Duration) error

	running      atomic.Bool
	consumed     atomic.Int64
	processed    atomic.Int64
	failed       atomic.Int64
	retried      atomic.Int64
	deadLettered atomic.Int64
}

func NewSubscriber(cfg ConsumerConfig, logger logging.Logger) (*Subscriber, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	dialer, err := cfg.Security.dialer()
	if err != nil {
		return nil, err
	}
	rc := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: kafka.FirstOffset,
		Dialer:      dialer,
	}
	if cfg.AutoOffsetReset == "latest" {
		rc.StartOffset = kafka.LastOffset
	}

	var dlq MessageWriter
	if cfg.Retry.DeadLetterTopic != "" {
		transport, err := cfg.Security.transport()
		if err != nil {
			return nil, err
		}
		dlq = &kafka.Writer{
			Addr:      kafka.TCP(cfg.Brokers...),
			Topic:     cfg.Retry.DeadLetterTopic,
			Balancer:  &kafka.Hash{},
			Transport: transport,
		}
	}
	return NewSubscriberWithReader(kafka.NewReader(rc), dlq, cfg, logger), nil
}

// NewSubscriberWithReader wraps an existing reader.  dlq may be nil.
func NewSubscriberWithReader(r MessageReader, dlq MessageWriter, cfg ConsumerConfig, logger logging.Logger) *Subscriber {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	cfg.applyDefaults()
	return &Subscriber{reader: r, dlq: dlq, cfg: cfg, logger: logger, wait: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run consumes until ctx is done and returns nil on cancellation.
func (s *Subscriber) Run(ctx context.Context, handler Handler) error {
	if s.running.Swap(true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	s.logger.Info("kafka subscriber started",
		logging.String("topic", s.cfg.Topic),
		logging.String("group", s.cfg.GroupID))

	for {
		m, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("fetch failed", logging.Err(err))
			if s.wait(ctx, s.cfg.Retry.RetryBackoff) != nil {
				return nil
			}
			continue
		}
		s.consumed.Add(1)

		if err := s.process(ctx, m, handler); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.failed.Add(1)
			s.deadLetter(ctx, m, err)
		} else {
			s.processed.Add(1)
		}

		if err := s.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			s.logger.Error("commit failed", logging.Int64("offset", m.Offset), logging.Err(err))
		}
	}
}

func (s *Subscriber) process(ctx context.Context, m kafka.Message, handler Handler) error {
	env, err := DecodeEventEnvelope(m)
	if err != nil {
		return err
	}

	backoff := s.cfg.Retry.RetryBackoff
	err = handler(ctx, env)
	for i := 0; err != nil && i < s.cfg.Retry.MaxRetries; i++ {
		s.retried.Add(1)
		if werr := s.wait(ctx, backoff); werr != nil {
			return werr
		}
		err = handler(ctx, env)
		if backoff *= 2; backoff > s.cfg.Retry.MaxRetryBackoff {
			backoff = s.cfg.Retry.MaxRetryBackoff
		}
	}
	return err
}

func (s *Subscriber) deadLetter(ctx context.Context, m kafka.Message, cause error) {
	s.logger.Error("event processing failed",
		logging.String("topic", m.Topic),
		logging.Int64("offset", m.Offset),
		logging.Err(cause))
	if s.dlq == nil {
		return
	}
	headers := append(append([]kafka.Header(nil), m.Headers...),
		kafka.Header{Key: HeaderOriginalTopic, Value: []byte(m.Topic)},
		kafka.Header{Key: HeaderError, Value: []byte(cause.Error())},
	)
	err := s.dlq.WriteMessages(ctx, kafka.Message{Key: m.Key, Value: m.Value, Headers: headers, Time: m.Time})
	if err != nil {
		s.logger.Error("failed to dead-letter message", logging.Err(err))
		return
	}
	s.deadLettered.Add(1)
}

func (s *Subscriber) Stats() SubscriberStats {
	return SubscriberStats{
		Consumed:     s.consumed.Load(),
		Processed:    s.processed.Load(),
		Failed:       s.failed.Load(),
		Retried:      s.retried.Load(),
		DeadLettered: s.deadLettered.Load(),
	}
}

// Close releases the reader and the dead-letter writer.
func (s *Subscriber) Close() error {
	err := s.reader.Close()
	if s.dlq != nil {
		err = stderrors.Join(err, s.dlq.Close())
	}
	s.logger.Info("kafka subscriber closed", logging.Int64("consumed", s.consumed.Load()))
	return err
}

//Personal.AI order the ending
