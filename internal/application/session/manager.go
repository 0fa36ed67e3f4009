// Package session hosts forcefield sets for concurrent callers.
//
// A Set is single-threaded.  The Manager gives every set an id and a mutex,
// runs callers' work under that mutex, persists encoded snapshots through a
// SnapshotStore and forwards the events each call commits to an
// EventPublisher.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/ffengine/internal/domain/forcefields"
	"github.com/turtacn/ffengine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ffengine/pkg/errors"
)

// SnapshotStore persists encoded sets by key.  Get returns a NotFound error
// for unknown keys.
type SnapshotStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
}

// Metrics is what the manager reports.  prometheus.EngineMetrics implements
// it.
type Metrics interface {
	forcefields.Observer
	SessionsActive(n int)
	SnapshotOp(op string, d time.Duration, size int, err error)
	EventsPublished(kinds []string, err error)
}

// Info summarises one session.
type Info struct {
	ID          string    `json:"id"`
	ForceFields int       `json:"forcefields"`
	Molecules   int       `json:"molecules"`
	Expressions int       `json:"expressions"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

type entry struct {
	mu      sync.Mutex
	set     *forcefields.Set
	created time.Time
	updated time.Time
}

// Manager owns the live sessions.  It is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	store     SnapshotStore
	publisher forcefields.EventPublisher
	metrics   Metrics
	logger    logging.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Manager.
type Option func(*Manager)

func WithStore(s SnapshotStore) Option { return func(m *Manager) { m.store = s } }

func WithPublisher(p forcefields.EventPublisher) Option {
	return func(m *Manager) { m.publisher = p }
}

func WithMetrics(mt Metrics) Option {
	return func(m *Manager) {
		if mt != nil {
			m.metrics = mt
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func WithIDGenerator(gen func() string) Option { return func(m *Manager) { m.newID = gen } }

// NewManager creates an empty manager.  Without a store the snapshot
// operations fail with a Storage error; without a publisher events are
// dropped.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*entry),
		metrics:  nopMetrics{},
		logger:   logging.NewNopLogger(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) newSet(id string) []forcefields.Option {
	return []forcefields.Option{
		forcefields.WithLogger(m.logger.With(logging.String(logging.FieldSession, id))),
		forcefields.WithObserver(m.metrics),
		forcefields.WithClock(m.now),
	}
}

// Create opens an empty session and returns its id.
func (m *Manager) Create(ctx context.Context) (string, error) {
	id := m.newID()
	if err := m.insert(id, forcefields.New(m.newSet(id)...)); err != nil {
		return "", err
	}
	m.logger.Info("session created", logging.String(logging.FieldSession, id))
	return id, nil
}

// Open opens an empty session under a caller-chosen id.
func (m *Manager) Open(ctx context.Context, id string) error {
	if id == "" {
		return errors.InvalidArgument("session id is required")
	}
	if err := m.insert(id, forcefields.New(m.newSet(id)...)); err != nil {
		return err
	}
	m.logger.Info("session opened", logging.String(logging.FieldSession, id))
	return nil
}

func (m *Manager) insert(id string, set *forcefields.Set) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		return errors.New(errors.CodeSessionExists, "session already exists").WithDetail(id)
	}
	now := m.now()
	m.sessions[id] = &entry{set: set, created: now, updated: now}
	m.metrics.SessionsActive(len(m.sessions))
	return nil
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, errors.New(errors.CodeSessionNotFound, "session not found").WithDetail(id)
	}
	return e, nil
}

// Do runs fn against the session's set while holding the session lock.
// Events committed by fn are published even when fn returns an error, since
// the mutations that produced them stand.  A failed publish is logged and
// counted but does not fail the call.
func (m *Manager) Do(ctx context.Context, id string, fn func(*forcefields.Set) error) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	ferr := fn(e.set)
	events := e.set.DrainEvents()
	if len(events) > 0 {
		e.updated = m.now()
		m.publish(ctx, id, events)
	}
	return ferr
}

// View runs fn against a copy of the session's set.  Changes made by fn are
// discarded.
func (m *Manager) View(ctx context.Context, id string, fn func(*forcefields.Set) error) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	snapshot := e.set.Clone()
	e.mu.Unlock()
	return fn(snapshot)
}

func (m *Manager) publish(ctx context.Context, id string, events []forcefields.ChangeEvent) {
	if m.publisher == nil {
		return
	}
	kinds := make([]string, len(events))
	for i, ev := range events {
		kinds[i] = string(ev.Kind)
	}
	err := m.publisher.Publish(ctx, id, events)
	m.metrics.EventsPublished(kinds, err)
	if err != nil {
		m.logger.Warn("failed to publish change events",
			logging.String(logging.FieldSession, id),
			logging.Int("events", len(events)),
			logging.Err(err))
	}
}

// Info describes one session.
func (m *Manager) Info(id string) (Info, error) {
	e, err := m.lookup(id)
	if err != nil {
		return Info{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return Info{
		ID:          id,
		ForceFields: e.set.NumForceFields(),
		Molecules:   e.set.MoleculeIndex().Len(),
		Expressions: len(e.set.Expressions()),
		Created:     e.created,
		Updated:     e.updated,
	}, nil
}

// List returns the ids of all live sessions, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close drops a live session.  Its snapshot, if any, is kept.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return errors.New(errors.CodeSessionNotFound, "session not found").WithDetail(id)
	}
	delete(m.sessions, id)
	m.metrics.SessionsActive(len(m.sessions))
	m.logger.Info("session closed", logging.String(logging.FieldSession, id))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Snapshots
// ─────────────────────────────────────────────────────────────────────────────

func (m *Manager) requireStore() error {
	if m.store == nil {
		return errors.New(errors.CodeStorage, "no snapshot store configured")
	}
	return nil
}

// Save encodes the session's set and writes it to the store under the
// session id.
func (m *Manager) Save(ctx context.Context, id string) error {
	if err := m.requireStore(); err != nil {
		return err
	}
	e, err := m.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	data, err := forcefields.Encode(e.set)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	start := m.now()
	err = m.store.Put(ctx, id, data)
	m.metrics.SnapshotOp("save", m.now().Sub(start), len(data), err)
	if err != nil {
		return errors.Wrap(err, errors.CodeStorage, "failed to save snapshot")
	}
	m.logger.Info("snapshot saved",
		logging.String(logging.FieldSession, id),
		logging.Int("bytes", len(data)))
	return nil
}

// Restore loads the snapshot stored under id.  A live session with that id
// has its set replaced; otherwise a session is opened for it.
func (m *Manager) Restore(ctx context.Context, id string) error {
	if err := m.requireStore(); err != nil {
		return err
	}

	start := m.now()
	data, err := m.store.Get(ctx, id)
	m.metrics.SnapshotOp("load", m.now().Sub(start), len(data), err)
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			return err
		}
		return errors.Wrap(err, errors.CodeStorage, "failed to load snapshot")
	}

	set, err := forcefields.Decode(data, m.newSet(id)...)
	if err != nil {
		return err
	}

	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok {
		now := m.now()
		m.sessions[id] = &entry{set: set, created: now, updated: now}
		m.metrics.SessionsActive(len(m.sessions))
	}
	m.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.set = set
		e.updated = m.now()
		e.mu.Unlock()
	}
	m.logger.Info("snapshot restored",
		logging.String(logging.FieldSession, id),
		logging.Bool("replaced", ok))
	return nil
}

// DeleteSnapshot removes the stored snapshot of id.
func (m *Manager) DeleteSnapshot(ctx context.Context, id string) error {
	if err := m.requireStore(); err != nil {
		return err
	}
	start := m.now()
	err := m.store.Delete(ctx, id)
	m.metrics.SnapshotOp("delete", m.now().Sub(start), 0, err)
	return err
}

// Snapshots lists the keys held by the store.
func (m *Manager) Snapshots(ctx context.Context) ([]string, error) {
	if err := m.requireStore(); err != nil {
		return nil, err
	}
	keys, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

type nopMetrics struct{}

func (nopMetrics) CacheHit()                                    {}
func (nopMetrics) CacheMiss()                                   {}
func (nopMetrics) Invalidated(int)                              {}
func (nopMetrics) Evaluated(time.Duration)                      {}
func (nopMetrics) RolledBack(string)                            {}
func (nopMetrics) ForceFieldCount(int)                          {}
func (nopMetrics) SessionsActive(int)                           {}
func (nopMetrics) SnapshotOp(string, time.Duration, int, error) {}
func (nopMetrics) EventsPublished([]string, error)              {}

//Personal.AI order the ending
