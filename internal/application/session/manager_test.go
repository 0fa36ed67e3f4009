package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/ffengine/internal/domain/forcefields"
	"github.com/turtacn/ffengine/internal/domain/molecule"
	"github.com/turtacn/ffengine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ffengine/internal/testutil"
	"github.com/turtacn/ffengine/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	fail error
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (s *memStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.data[key] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[key]
	if !ok {
		return nil, errors.NotFound("snapshot not found")
	}
	return d, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *memStore) List(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	batches map[string][][]forcefields.ChangeEvent
	fail    error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, events []forcefields.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	if p.batches == nil {
		p.batches = map[string][][]forcefields.ChangeEvent{}
	}
	p.batches[key] = append(p.batches[key], events)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingMetrics struct {
	nopMetrics
	mu        sync.Mutex
	active    int
	ops       []string
	published int
	failed    int
}

func (m *recordingMetrics) SessionsActive(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = n
}

func (m *recordingMetrics) SnapshotOp(op string, _ time.Duration, _ int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := "ok"
	if err != nil {
		status = "err"
	}
	m.ops = append(m.ops, op+":"+status)
}

func (m *recordingMetrics) EventsPublished(kinds []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failed++
		return
	}
	m.published += len(kinds)
}

type ManagerTestSuite struct {
	suite.Suite
	ctx       context.Context
	store     *memStore
	publisher *recordingPublisher
	metrics   *recordingMetrics
	logs      *observer.ObservedLogs
	mgr       *Manager
	ids       int
}

func (s *ManagerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = newMemStore()
	s.publisher = &recordingPublisher{}
	s.metrics = &recordingMetrics{}
	s.ids = 0

	core, logs := observer.New(zap.DebugLevel)
	s.logs = logs
	s.mgr = NewManager(
		WithStore(s.store),
		WithPublisher(s.publisher),
		WithMetrics(s.metrics),
		WithLogger(logging.NewLoggerFromCore(core)),
		WithIDGenerator(func() string {
			s.ids++
			return fmt.Sprintf("s%d", s.ids)
		}),
	)
}

func (s *ManagerTestSuite) populate(id string) {
	m1 := testutil.Ion(s.T(), 1, 1, molecule.Vector{})
	m2 := testutil.Ion(s.T(), 2, -1, molecule.Vector{X: 3})
	s.Require().NoError(s.mgr.Do(s.ctx, id, func(set *forcefields.Set) error {
		return set.Add(testutil.CLJ(s.T(), 1, m1, m2))
	}))
}

func (s *ManagerTestSuite) TestCreateAndList() {
	a, err := s.mgr.Create(s.ctx)
	s.Require().NoError(err)
	b, err := s.mgr.Create(s.ctx)
	s.Require().NoError(err)

	s.Equal([]string{"s1", "s2"}, s.mgr.List())
	s.Equal(2, s.metrics.active)
	s.Equal(2, s.logs.FilterMessage("session created").Len())

	s.Require().NoError(s.mgr.Close(a))
	s.Equal([]string{b}, s.mgr.List())
	s.Equal(1, s.metrics.active)
}

func (s *ManagerTestSuite) TestCreate_DuplicateID() {
	mgr := NewManager(WithIDGenerator(func() string { return "fixed" }))
	_, err := mgr.Create(s.ctx)
	s.Require().NoError(err)
	_, err = mgr.Create(s.ctx)
	s.True(errors.IsCode(err, errors.CodeSessionExists))
}

func (s *ManagerTestSuite) TestOpen_ChosenID() {
	s.Require().NoError(s.mgr.Open(s.ctx, "water"))
	s.Equal([]string{"water"}, s.mgr.List())
	s.True(errors.IsCode(s.mgr.Open(s.ctx, "water"), errors.CodeSessionExists))
	s.True(errors.IsCode(s.mgr.Open(s.ctx, ""), errors.CodeInvalidParam))
	s.Zero(s.ids)
}

func (s *ManagerTestSuite) TestUnknownSession() {
	err := s.mgr.Do(s.ctx, "nope", func(*forcefields.Set) error { return nil })
	s.True(errors.IsCode(err, errors.CodeSessionNotFound))

	_, err = s.mgr.Info("nope")
	s.True(errors.IsCode(err, errors.CodeSessionNotFound))
	s.True(errors.IsCode(s.mgr.Close("nope"), errors.CodeSessionNotFound))
	s.True(errors.IsCode(s.mgr.Save(s.ctx, "nope"), errors.CodeSessionNotFound))
}

func (s *ManagerTestSuite) TestDo_PublishesCommittedEvents() {
	id, _ := s.mgr.Create(s.ctx)
	s.populate(id)

	s.Require().Len(s.publisher.batches[id], 1)
	s.Equal(forcefields.EventForceFieldAdded, s.publisher.batches[id][0][0].Kind)
	s.Equal(1, s.metrics.published)

	info, err := s.mgr.Info(id)
	s.Require().NoError(err)
	s.Equal(1, info.ForceFields)
	s.Equal(2, info.Molecules)
}

func (s *ManagerTestSuite) TestDo_ErrorStillPublishesEarlierCommits() {
	id, _ := s.mgr.Create(s.ctx)
	boom := stderrors.New("boom")
	err := s.mgr.Do(s.ctx, id, func(set *forcefields.Set) error {
		if err := set.Add(testutil.CLJ(s.T(), 1, testutil.Ion(s.T(), 1, 1, molecule.Vector{}))); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)
	s.Len(s.publisher.batches[id], 1)
}

func (s *ManagerTestSuite) TestDo_NoEventsNoPublish() {
	id, _ := s.mgr.Create(s.ctx)
	s.Require().NoError(s.mgr.Do(s.ctx, id, func(set *forcefields.Set) error {
		_, err := set.TotalEnergy()
		return err
	}))
	s.Empty(s.publisher.batches[id])
}

func (s *ManagerTestSuite) TestDo_PublishFailureIsNotFatal() {
	s.publisher.fail = stderrors.New("broker down")
	id, _ := s.mgr.Create(s.ctx)
	s.populate(id)

	s.Equal(1, s.metrics.failed)
	s.Equal(1, s.logs.FilterMessage("failed to publish change events").Len())
	info, _ := s.mgr.Info(id)
	s.Equal(1, info.ForceFields)
}

func (s *ManagerTestSuite) TestDo_CancelledContext() {
	id, _ := s.mgr.Create(s.ctx)
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	called := false
	err := s.mgr.Do(ctx, id, func(*forcefields.Set) error { called = true; return nil })
	s.ErrorIs(err, context.Canceled)
	s.False(called)
}

func (s *ManagerTestSuite) TestView_DiscardsChanges() {
	id, _ := s.mgr.Create(s.ctx)
	s.populate(id)

	s.Require().NoError(s.mgr.View(s.ctx, id, func(set *forcefields.Set) error {
		_, err := set.Remove(1)
		return err
	}))
	info, _ := s.mgr.Info(id)
	s.Equal(1, info.ForceFields)
}

func (s *ManagerTestSuite) TestSaveRestore() {
	id, _ := s.mgr.Create(s.ctx)
	s.populate(id)

	var want float64
	s.Require().NoError(s.mgr.Do(s.ctx, id, func(set *forcefields.Set) error {
		var err error
		want, err = set.TotalEnergy()
		return err
	}))
	s.Require().NoError(s.mgr.Save(s.ctx, id))

	s.Require().NoError(s.mgr.Do(s.ctx, id, func(set *forcefields.Set) error {
		_, err := set.Remove(1)
		return err
	}))
	s.Require().NoError(s.mgr.Restore(s.ctx, id))

	s.Require().NoError(s.mgr.View(s.ctx, id, func(set *forcefields.Set) error {
		got, err := set.TotalEnergy()
		s.InDelta(want, got, 1e-9)
		return err
	}))
	s.Equal([]string{"save:ok", "load:ok"}, s.metrics.ops)
	s.Equal(1, s.logs.FilterMessage("snapshot restored").Len())
}

func (s *ManagerTestSuite) TestRestore_OpensMissingSession() {
	id, _ := s.mgr.Create(s.ctx)
	s.populate(id)
	s.Require().NoError(s.mgr.Save(s.ctx, id))
	s.Require().NoError(s.mgr.Close(id))

	s.Require().NoError(s.mgr.Restore(s.ctx, id))
	s.Equal([]string{id}, s.mgr.List())

	keys, err := s.mgr.Snapshots(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{id}, keys)

	s.Require().NoError(s.mgr.DeleteSnapshot(s.ctx, id))
	err = s.mgr.Restore(s.ctx, id)
	s.True(errors.IsCode(err, errors.CodeNotFound))
}

func (s *ManagerTestSuite) TestSave_StoreFailure() {
	id, _ := s.mgr.Create(s.ctx)
	s.store.fail = stderrors.New("disk full")
	err := s.mgr.Save(s.ctx, id)
	s.True(errors.IsCode(err, errors.CodeStorage))
	s.Equal([]string{"save:err"}, s.metrics.ops)
}

func (s *ManagerTestSuite) TestRestore_CorruptSnapshot() {
	s.Require().NoError(s.store.Put(s.ctx, "bad", []byte{0xff, 0xff}))
	err := s.mgr.Restore(s.ctx, "bad")
	s.Require().Error(err)
	s.Empty(s.mgr.List())
}

func (s *ManagerTestSuite) TestConcurrentDo() {
	id, _ := s.mgr.Create(s.ctx)
	s.populate(id)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.mgr.Do(s.ctx, id, func(set *forcefields.Set) error {
				m, err := set.Molecule(1)
				if err != nil {
					return err
				}
				_, err = set.ChangeMolecule(m.Translate(molecule.Vector{Z: float64(i + 1)}))
				return err
			})
		}(i)
	}
	wg.Wait()

	s.Require().NoError(s.mgr.View(s.ctx, id, func(set *forcefields.Set) error {
		return set.CheckConsistency()
	}))
	s.Len(s.publisher.batches[id], 21)
}

func TestManagerTestSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}

func TestManager_WithoutStore(t *testing.T) {
	mgr := NewManager()
	id, err := mgr.Create(context.Background())
	require.NoError(t, err)
	assert.True(t, errors.IsCode(mgr.Save(context.Background(), id), errors.CodeStorage))
	_, err = mgr.Snapshots(context.Background())
	assert.True(t, errors.IsCode(err, errors.CodeStorage))
}

//Personal.AI order the ending
