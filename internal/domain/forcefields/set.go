// Package forcefields implements the forcefield set: the aggregate that owns
// a collection of forcefields, the energy expressions defined over them, the
// molecule-to-forcefield index and the energy cache.
//
// A Set keeps one invariant across all of its forcefields: a molecule held
// by several forcefields is at the same version in each of them.  Every
// mutator is all-or-nothing.  It snapshots the state first and restores the
// snapshot if any step fails.
//
// A Set is not safe for concurrent use; callers serialise access (see the
// session package).
package forcefields

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/turtacn/ffengine/internal/cas"
	"github.com/turtacn/ffengine/internal/domain/energy"
	"github.com/turtacn/ffengine/internal/domain/forcefield"
	"github.com/turtacn/ffengine/internal/domain/molecule"
	"github.com/turtacn/ffengine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ffengine/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Interface
// ─────────────────────────────────────────────────────────────────────────────

// ForceFields is the contract of a forcefield set.  *Set is the only
// implementation.
type ForceFields interface {
	energy.ComponentLookup

	ForceFieldIDs() []forcefield.ID
	ForceField(id forcefield.ID) (forcefield.ForceField, error)

	Add(ff forcefield.ForceField) error
	Change(ff forcefield.ForceField) (bool, error)
	Remove(id forcefield.ID) (bool, error)
	ChangeMolecule(mol molecule.Molecule) (bool, error)
	ChangeMolecules(mols []molecule.Molecule) (bool, error)
	AddTo(id forcefield.ID, group string, mol molecule.Molecule, params forcefield.ParameterMap) error
	RemoveFrom(id forcefield.ID, group string, molID molecule.ID) (bool, error)

	Energy(fn cas.Function) (float64, error)
	Energies(fns []cas.Function) (map[string]float64, error)
	TotalEnergy() (float64, error)

	AddExpression(expr energy.Expression) error
	RemoveExpression(fn cas.Function) (bool, error)
	SetTotal(expr energy.Expression) error
}

var _ ForceFields = (*Set)(nil)

// ─────────────────────────────────────────────────────────────────────────────
// Set
// ─────────────────────────────────────────────────────────────────────────────

// state is everything a snapshot captures.
type state struct {
	ffs    map[forcefield.ID]forcefield.ForceField
	reg    *energy.Registry
	index  *MoleculeIndex
	cache  *energy.Cache
	params cas.Values
	obs    Observer
}

func newState(obs Observer) *state {
	return &state{
		ffs:    map[forcefield.ID]forcefield.ForceField{},
		reg:    energy.NewRegistry(),
		index:  NewMoleculeIndex(),
		cache:  energy.NewCache(),
		params: cas.Values{},
		obs:    obs,
	}
}

func (st *state) clone() *state {
	out := &state{
		ffs:    make(map[forcefield.ID]forcefield.ForceField, len(st.ffs)),
		reg:    st.reg.Clone(),
		index:  st.index.Clone(),
		cache:  st.cache.Clone(),
		params: st.params.Clone(),
		obs:    st.obs,
	}
	for id, ff := range st.ffs {
		out.ffs[id] = ff.Clone()
	}
	return out
}

// Set is the forcefield set.
type Set struct {
	st       *state
	logger   logging.Logger
	observer Observer
	now      func() time.Time
	events   []ChangeEvent
}

// Option configures a Set.
type Option func(*Set)

// WithLogger sets the logger.  The default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(s *Set) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(s *Set) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock overrides the clock used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(s *Set) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns an empty Set.
func New(opts ...Option) *Set {
	s := &Set{
		logger:   logging.NewNopLogger(),
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.st = newState(s.observer)
	return s
}

// Clone returns an independent copy sharing the logger and observer but
// not the pending events.
func (s *Set) Clone() *Set {
	return &Set{st: s.st.clone(), logger: s.logger, observer: s.observer, now: s.now}
}

// mutate runs fn against the live state with snapshot rollback.  The event
// is recorded only when fn succeeds and reports a change.
func (s *Set) mutate(kind EventKind, fn func(st *state, ev *ChangeEvent) (bool, error)) (bool, error) {
	snap := s.st.clone()
	ev := ChangeEvent{Kind: kind}
	changed, err := fn(s.st, &ev)
	if err != nil {
		s.st = snap
		s.observer.RolledBack(string(kind))
		s.logger.WithError(err).Warn("forcefield set mutation rolled back",
			logging.String("operation", string(kind)))
		return false, err
	}
	if !changed {
		return false, nil
	}
	ev.At = s.now()
	s.events = append(s.events, ev)
	s.observer.ForceFieldCount(len(s.st.ffs))
	s.logger.Debug("forcefield set updated",
		logging.String("operation", string(kind)),
		logging.Any("forcefields", ev.ForceFieldIDs),
		logging.Any("molecules", ev.MoleculeIDs),
		logging.Strings("functions", ev.Functions))
	return true, nil
}

// Events returns the events committed since the last DrainEvents.
func (s *Set) Events() []ChangeEvent { return append([]ChangeEvent(nil), s.events...) }

// DrainEvents returns and forgets the pending events.
func (s *Set) DrainEvents() []ChangeEvent {
	out := s.events
	s.events = nil
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Accessors
// ─────────────────────────────────────────────────────────────────────────────

// ForceFieldIDs lists the forcefields, sorted.
func (s *Set) ForceFieldIDs() []forcefield.ID { return s.st.forceFieldIDs() }

func (st *state) forceFieldIDs() []forcefield.ID {
	out := make([]forcefield.ID, 0, len(st.ffs))
	for id := range st.ffs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NumForceFields returns how many forcefields the set holds.
func (s *Set) NumForceFields() int { return len(s.st.ffs) }

// ForceField returns a copy of the forcefield with the given ID.  Edits to
// the copy reach the set only through Change.
func (s *Set) ForceField(id forcefield.ID) (forcefield.ForceField, error) {
	ff, err := s.st.forceField(id)
	if err != nil {
		return nil, err
	}
	return ff.Clone(), nil
}

func (st *state) forceField(id forcefield.ID) (forcefield.ForceField, error) {
	ff, ok := st.ffs[id]
	if !ok {
		return nil, errors.MissingForceField("no forcefield with this ID").WithDetail(fmt.Sprintf("%d", id))
	}
	return ff, nil
}

// HasForceField implements energy.ComponentLookup.
func (s *Set) HasForceField(id forcefield.ID) bool { return s.st.HasForceField(id) }

// HasComponent implements energy.ComponentLookup.
func (s *Set) HasComponent(id forcefield.ID, name string) bool { return s.st.HasComponent(id, name) }

func (st *state) HasForceField(id forcefield.ID) bool {
	_, ok := st.ffs[id]
	return ok
}

func (st *state) HasComponent(id forcefield.ID, name string) bool {
	ff, ok := st.ffs[id]
	if !ok {
		return false
	}
	for _, c := range ff.Components() {
		if c == name {
			return true
		}
	}
	return false
}

// Contains reports whether any forcefield holds the molecule.
func (s *Set) Contains(molID molecule.ID) bool { return s.st.index.Contains(molID) }

// Molecule returns the molecule as the set holds it.
func (s *Set) Molecule(molID molecule.ID) (molecule.Molecule, error) {
	ids := s.st.index.ForceFieldsOf(molID)
	if len(ids) == 0 {
		return molecule.Molecule{}, errors.New(errors.CodeMoleculeNotFound, "no forcefield holds this molecule").
			WithDetail(fmt.Sprintf("%d", molID))
	}
	return s.st.ffs[ids[0]].Molecule(molID)
}

// MoleculeIndex returns a copy of the molecule index.
func (s *Set) MoleculeIndex() *MoleculeIndex { return s.st.index.Clone() }

// Registry returns a copy of the expression registry.
func (s *Set) Registry() *energy.Registry { return s.st.reg.Clone() }

// CachedEnergies returns a copy of the energy cache contents.
func (s *Set) CachedEnergies() map[string]float64 { return s.st.cache.Entries() }

// Expressions lists the registered expressions in registration order.
func (s *Set) Expressions() []energy.Expression { return s.st.reg.Expressions() }

// Total returns the designated total function, if any.
func (s *Set) Total() (cas.Function, bool) { return s.st.reg.Total() }

// Parameters returns a copy of the parameter values.
func (s *Set) Parameters() cas.Values { return s.st.params.Clone() }

// Equal reports whether s and o have the same observable state: the same
// forcefields at the same versions, registry, index, cache and parameters.
func (s *Set) Equal(o *Set) bool {
	a, b := s.st, o.st
	if len(a.ffs) != len(b.ffs) {
		return false
	}
	for id, ff := range a.ffs {
		other, ok := b.ffs[id]
		if !ok || other.Version() != ff.Version() {
			return false
		}
	}
	if !a.reg.Equal(b.reg) || !a.index.Equal(b.index) {
		return false
	}
	if !equalValues(a.cache.Entries(), b.cache.Entries()) {
		return false
	}
	return equalValues(a.params, b.params)
}

func equalValues(a, b map[string]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// AssertSameContents fails with Incompatible unless other holds the same
// forcefields at the same versions.
func (s *Set) AssertSameContents(other ForceFields) error {
	mine, theirs := s.ForceFieldIDs(), other.ForceFieldIDs()
	if fmt.Sprint(mine) != fmt.Sprint(theirs) {
		return errors.Incompatible("forcefield sets hold different forcefields").
			WithDetail(fmt.Sprintf("%v != %v", mine, theirs))
	}
	var diffs []string
	for _, id := range mine {
		ff, err := other.ForceField(id)
		if err != nil {
			return err
		}
		if v := s.st.ffs[id].Version(); v != ff.Version() {
			diffs = append(diffs, fmt.Sprintf("forcefield %d: %s != %s", id, v, ff.Version()))
		}
	}
	if len(diffs) > 0 {
		return errors.Incompatible("forcefield sets hold different forcefield versions").
			WithDetail(strings.Join(diffs, "; "))
	}
	return nil
}

// CheckConsistency verifies the molecule index against forcefield contents
// and that every shared molecule is at one version.
func (s *Set) CheckConsistency() error {
	if !BuildMoleculeIndex(s.st.ffs).Equal(s.st.index) {
		return errors.Incompatible("molecule index does not match forcefield contents")
	}
	for _, molID := range s.st.index.MoleculeIDs() {
		var want molecule.Version
		for i, ffID := range s.st.index.ForceFieldsOf(molID) {
			m, err := s.st.ffs[ffID].Molecule(molID)
			if err != nil {
				return err
			}
			if i == 0 {
				want = m.Version()
			} else if m.Version() != want {
				return errors.Incompatible("forcefields hold different versions of a molecule").
					WithDetail(fmt.Sprintf("molecule %d: forcefield %d has v%d, expected v%d", molID, ffID, m.Version(), want))
			}
		}
	}
	return nil
}

// Reindex rebuilds the molecule index from forcefield contents.
func (s *Set) Reindex() {
	s.st.index = BuildMoleculeIndex(s.st.ffs)
}

//Personal.AI order the ending
