package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/ffengine/internal/domain/forcefields"
	"github.com/turtacn/ffengine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ffengine/pkg/errors"
)

const (
	TopicChangeEvents = "ffengine.changes"
	TopicDeadLetter   = "ffengine.changes.dlq"

	SchemaVersion = "v1"

	HeaderEventKind     = "event_kind"
	HeaderSource        = "source"
	HeaderSchemaVersion = "schema_version"
	HeaderOriginalTopic = "original_topic"
	HeaderError         = "error_message"
)

// EventEnvelope is the JSON value of every change-event message.  The
// message key is the session id so one session's events stay ordered on one
// partition.
type EventEnvelope struct {
	EventID       string                  `json:"event_id"`
	Source        string                  `json:"source"`
	Session       string                  `json:"session"`
	SchemaVersion string                  `json:"schema_version"`
	Event         forcefields.ChangeEvent `json:"event"`
}

func NewEventEnvelope(source, session string, ev forcefields.ChangeEvent) *EventEnvelope {
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		Source:        source,
		Session:       session,
		SchemaVersion: SchemaVersion,
		Event:         ev,
	}
}

// ToMessage encodes the envelope for topic.
func (e *EventEnvelope) ToMessage(topic string) (kafka.Message, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, errors.CodeSerialization, "failed to marshal event envelope")
	}
	ts := e.Event.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(e.Session),
		Value: val,
		Time:  ts,
		Headers: []kafka.Header{
			{Key: HeaderEventKind, Value: []byte(e.Event.Kind)},
			{Key: HeaderSource, Value: []byte(e.Source)},
			{Key: HeaderSchemaVersion, Value: []byte(e.SchemaVersion)},
		},
	}, nil
}

// DecodeEventEnvelope parses a message written by ToMessage.
func DecodeEventEnvelope(msg kafka.Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.InvalidArgument("empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "failed to unmarshal event envelope")
	}
	if env.SchemaVersion != SchemaVersion {
		return nil, errors.Version("unsupported event schema").WithDetail(env.SchemaVersion)
	}
	return &env, nil
}

// TopicConfig describes a topic to provision.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	Retention         time.Duration
	CleanupPolicy     string
}

// DefaultTopics returns the change-event topic and its dead-letter topic.
func DefaultTopics(partitions, replication int) []TopicConfig {
	return []TopicConfig{
		{Name: TopicChangeEvents, NumPartitions: partitions, ReplicationFactor: replication, Retention: 7 * 24 * time.Hour},
		{Name: TopicDeadLetter, NumPartitions: 1, ReplicationFactor: replication, Retention: 30 * 24 * time.Hour},
	}
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager provisions topics through one broker connection.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

func NewTopicManager(brokers []string, sec SecurityConfig, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.InvalidArgument("kafka brokers required")
	}
	dialer, err := sec.dialer()
	if err != nil {
		return nil, err
	}
	conn, err := dialer.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeMessaging, "failed to dial kafka")
	}
	return NewTopicManagerWithConn(conn, logger), nil
}

func NewTopicManagerWithConn(conn ConnInterface, logger logging.Logger) *TopicManager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TopicManager{conn: conn, logger: logger}
}

// CreateTopic creates cfg.Name unless it already exists.
func (m *TopicManager) CreateTopic(ctx context.Context, cfg TopicConfig) error {
	if cfg.Name == "" {
		return errors.InvalidArgument("topic name required")
	}
	if cfg.NumPartitions <= 0 || cfg.ReplicationFactor <= 0 {
		return errors.InvalidArgument("partitions and replication factor must be positive").WithDetail(cfg.Name)
	}

	kc := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.Retention > 0 {
		kc.ConfigEntries = append(kc.ConfigEntries, kafka.ConfigEntry{
			ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(cfg.Retention.Milliseconds(), 10),
		})
	}
	if cfg.CleanupPolicy != "" {
		kc.ConfigEntries = append(kc.ConfigEntries, kafka.ConfigEntry{ConfigName: "cleanup.policy", ConfigValue: cfg.CleanupPolicy})
	}

	if err := m.conn.CreateTopics(kc); err != nil {
		if stderrors.Is(err, kafka.TopicAlreadyExists) {
			return nil
		}
		if exists, _ := m.TopicExists(ctx, cfg.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.CodeMessaging, "failed to create topic")
	}
	m.logger.Info("topic created", logging.String("topic", cfg.Name), logging.Int("partitions", cfg.NumPartitions))
	return nil
}

func (m *TopicManager) TopicExists(ctx context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

func (m *TopicManager) EnsureTopics(ctx context.Context, topics []TopicConfig) error {
	for _, t := range topics {
		if err := m.CreateTopic(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (m *TopicManager) Close() error { return m.conn.Close() }

//Personal.AI order the ending
