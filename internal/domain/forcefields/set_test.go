package forcefields

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/ffengine/internal/cas"
	"github.com/turtacn/ffengine/internal/domain/energy"
	"github.com/turtacn/ffengine/internal/domain/forcefield"
	"github.com/turtacn/ffengine/internal/domain/molecule"
	"github.com/turtacn/ffengine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ffengine/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// fixtures
// ─────────────────────────────────────────────────────────────────────────────

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func ion(t *testing.T, id molecule.ID, charge float64, at molecule.Vector) molecule.Molecule {
	t.Helper()
	m, err := molecule.New(id, "ION", []molecule.Atom{
		{Name: "X", Element: "X", Charge: charge, Sigma: 3.0, Epsilon: 0.1, Position: at},
	})
	require.NoError(t, err)
	return m
}

func newCLJ(t *testing.T, id forcefield.ID, mols ...molecule.Molecule) *forcefield.CLJ {
	t.Helper()
	ff, err := forcefield.NewCLJ(id, "ff", forcefield.ModeInter)
	require.NoError(t, err)
	for _, m := range mols {
		require.NoError(t, ff.AddTo(forcefield.GroupAll, m, nil))
	}
	return ff
}

func comp(ff forcefield.ID, name string) cas.Function {
	return energy.NewComponent(ff, name).Function()
}

func mustExpr(t *testing.T, name string, e cas.Expr) energy.Expression {
	t.Helper()
	out, err := energy.NewExpression(name, e)
	require.NoError(t, err)
	return out
}

// flaky is a CLJ forcefield that can be told to fail.
type flaky struct {
	*forcefield.CLJ
	failChange bool
	failAdd    bool
}

func (f *flaky) ChangeMolecule(mol molecule.Molecule) (bool, error) {
	return f.ChangeMolecules([]molecule.Molecule{mol})
}

func (f *flaky) ChangeMolecules(mols []molecule.Molecule) (bool, error) {
	if f.failChange {
		return false, errors.Internal("injected change failure")
	}
	return f.CLJ.ChangeMolecules(mols)
}

func (f *flaky) AddTo(group string, mol molecule.Molecule, params forcefield.ParameterMap) error {
	if f.failAdd {
		return errors.Internal("injected add failure")
	}
	return f.CLJ.AddTo(group, mol, params)
}

func (f *flaky) Clone() forcefield.ForceField {
	return &flaky{CLJ: f.CLJ.Clone().(*forcefield.CLJ), failChange: f.failChange, failAdd: f.failAdd}
}

type countingObserver struct {
	hits, misses, invalidated, rollbacks, count int
	evaluations                                 int
}

func (o *countingObserver) CacheHit()               { o.hits++ }
func (o *countingObserver) CacheMiss()              { o.misses++ }
func (o *countingObserver) Invalidated(n int)       { o.invalidated += n }
func (o *countingObserver) Evaluated(time.Duration) { o.evaluations++ }
func (o *countingObserver) RolledBack(string)       { o.rollbacks++ }
func (o *countingObserver) ForceFieldCount(n int)   { o.count = n }

// ─────────────────────────────────────────────────────────────────────────────
// suite
// ─────────────────────────────────────────────────────────────────────────────

// SetTestSuite starts every test from two forcefields sharing molecule 10:
// forcefield 1 holds 10 and 11, forcefield 2 holds 10 and 12.
type SetTestSuite struct {
	suite.Suite
	set  *Set
	logs *observer.ObservedLogs
	obs  *countingObserver
	m10  molecule.Molecule
	m11  molecule.Molecule
	m12  molecule.Molecule
}

func (s *SetTestSuite) SetupTest() {
	core, logs := observer.New(zapcore.DebugLevel)
	s.logs = logs
	s.obs = &countingObserver{}
	s.set = New(
		WithLogger(logging.NewLoggerFromCore(core)),
		WithObserver(s.obs),
		WithClock(func() time.Time { return epoch }),
	)
	s.m10 = ion(s.T(), 10, 1, molecule.Vector{})
	s.m11 = ion(s.T(), 11, -1, molecule.Vector{X: 2})
	s.m12 = ion(s.T(), 12, 0, molecule.Vector{Y: 4})
	s.Require().NoError(s.set.Add(newCLJ(s.T(), 1, s.m10, s.m11)))
	s.Require().NoError(s.set.Add(newCLJ(s.T(), 2, s.m10, s.m12)))
	s.set.DrainEvents()
}

func (s *SetTestSuite) version(ff forcefield.ID, mol molecule.ID) molecule.Version {
	f, err := s.set.ForceField(ff)
	s.Require().NoError(err)
	m, err := f.Molecule(mol)
	s.Require().NoError(err)
	return m.Version()
}

func (s *SetTestSuite) registerAB() (a, b, total energy.Expression) {
	a = mustExpr(s.T(), "A", cas.AddOf(comp(1, "coul"), comp(1, "lj")))
	b = mustExpr(s.T(), "B", cas.AddOf(comp(2, "coul"), comp(2, "lj")))
	total = mustExpr(s.T(), "total", cas.AddOf(a.Function(), b.Function()))
	s.Require().NoError(s.set.AddExpression(a))
	s.Require().NoError(s.set.AddExpression(b))
	s.Require().NoError(s.set.AddExpression(total))
	return a, b, total
}

func (s *SetTestSuite) TestSetup_IndexAndContents() {
	s.Equal([]forcefield.ID{1, 2}, s.set.ForceFieldIDs())
	s.Equal(2, s.set.NumForceFields())
	idx := s.set.MoleculeIndex()
	s.Equal([]forcefield.ID{1, 2}, idx.ForceFieldsOf(10))
	s.Equal([]forcefield.ID{1}, idx.ForceFieldsOf(11))
	s.Equal([]forcefield.ID{2}, idx.ForceFieldsOf(12))
	s.True(s.set.Contains(12))
	s.False(s.set.Contains(99))
	s.NoError(s.set.CheckConsistency())

	_, err := s.set.Molecule(99)
	s.True(errors.IsCode(err, errors.CodeMoleculeNotFound))
	_, err = s.set.ForceField(9)
	s.True(errors.IsCode(err, errors.CodeMissingForceField))
	s.Equal(2, s.obs.count)
}

func (s *SetTestSuite) TestForceField_ReturnsCopy() {
	ff, err := s.set.ForceField(1)
	s.Require().NoError(err)
	s.Require().NoError(ff.AddTo(forcefield.GroupAll, ion(s.T(), 13, 0, molecule.Vector{Z: 5}), nil))
	s.False(s.set.Contains(13))
}

// ─────────────────────────────────────────────────────────────────────────────
// molecule version sync
// ─────────────────────────────────────────────────────────────────────────────

func (s *SetTestSuite) TestChangeMolecule_TwiceIsNoOpSecondTime() {
	v1 := s.m10.Version()
	m2 := s.m10.Translate(molecule.Vector{X: 0.5})
	s.NotEqual(v1, m2.Version())

	changed, err := s.set.ChangeMolecule(m2)
	s.Require().NoError(err)
	s.True(changed)
	s.Equal(m2.Version(), s.version(1, 10))
	s.Equal(m2.Version(), s.version(2, 10))

	changed, err = s.set.ChangeMolecule(m2)
	s.Require().NoError(err)
	s.False(changed)

	events := s.set.DrainEvents()
	s.Require().Len(events, 1)
	s.Equal(EventMoleculesChanged, events[0].Kind)
	s.Equal([]forcefield.ID{1, 2}, events[0].ForceFieldIDs)
	s.Equal([]molecule.ID{10}, events[0].MoleculeIDs)
	s.Equal(epoch, events[0].At)
}

func (s *SetTestSuite) TestChangeMolecules_LastOccurrenceWinsAndUnknownIgnored() {
	m2 := s.m11.Translate(molecule.Vector{X: 0.1})
	m3 := m2.Translate(molecule.Vector{X: 0.1})
	stranger := ion(s.T(), 77, 0, molecule.Vector{})

	changed, err := s.set.ChangeMolecules([]molecule.Molecule{m2, stranger, m3})
	s.Require().NoError(err)
	s.True(changed)
	s.Equal(m3.Version(), s.version(1, 11))
	s.False(s.set.Contains(77))
}

func (s *SetTestSuite) TestAdd_SyncsExistingForceFieldsToNewVersions() {
	m2 := s.m10.Translate(molecule.Vector{Z: 1})
	s.Require().NoError(s.set.Add(newCLJ(s.T(), 3, m2)))

	for _, ff := range []forcefield.ID{1, 2, 3} {
		s.Equal(m2.Version(), s.version(ff, 10), "forcefield %d", ff)
	}
	s.Equal([]forcefield.ID{1, 2, 3}, s.set.MoleculeIndex().ForceFieldsOf(10))
	s.NoError(s.set.CheckConsistency())

	events := s.set.DrainEvents()
	s.Require().Len(events, 1)
	s.Equal(EventForceFieldAdded, events[0].Kind)
	s.Equal([]forcefield.ID{3, 1, 2}, events[0].ForceFieldIDs)
}

func (s *SetTestSuite) TestAdd_ExistingIDDelegatesToChange() {
	ff, err := s.set.ForceField(2)
	s.Require().NoError(err)
	s.Require().NoError(ff.AddTo(forcefield.GroupAll, ion(s.T(), 13, 0, molecule.Vector{Z: 5}), nil))

	s.Require().NoError(s.set.Add(ff))
	s.Equal([]forcefield.ID{2}, s.set.MoleculeIndex().ForceFieldsOf(13))
	s.Equal(EventForceFieldChanged, s.set.DrainEvents()[0].Kind)

	s.True(errors.IsCode(s.set.Add(nil), errors.CodeInvalidParam))
}

func (s *SetTestSuite) TestChange_UpdatesIndexAndPropagates() {
	ff, err := s.set.ForceField(1)
	s.Require().NoError(err)
	_, err = ff.RemoveFrom(forcefield.GroupAll, 11)
	s.Require().NoError(err)
	m2 := s.m10.Translate(molecule.Vector{Y: 1})
	_, err = ff.ChangeMolecule(m2)
	s.Require().NoError(err)

	changed, err := s.set.Change(ff)
	s.Require().NoError(err)
	s.True(changed)
	s.False(s.set.Contains(11))
	s.Equal(m2.Version(), s.version(2, 10))
	s.NoError(s.set.CheckConsistency())

	changed, err = s.set.Change(ff)
	s.Require().NoError(err)
	s.False(changed, "same version stamp is a no-op")

	_, err = s.set.Change(newCLJ(s.T(), 9))
	s.True(errors.IsCode(err, errors.CodeMissingForceField))
}

func (s *SetTestSuite) TestChange_RebuiltForceFieldWithSameIDReplaces() {
	m13 := ion(s.T(), 13, 0.25, molecule.Vector{Z: 6})
	changed, err := s.set.Change(newCLJ(s.T(), 1, m13))
	s.Require().NoError(err)
	s.True(changed)
	s.True(s.set.Contains(13))
	s.False(s.set.Contains(11))
	s.Equal([]forcefield.ID{2}, s.set.MoleculeIndex().ForceFieldsOf(10))
	s.NoError(s.set.CheckConsistency())

	m14 := ion(s.T(), 14, -0.25, molecule.Vector{Z: 9})
	s.Require().NoError(s.set.Add(newCLJ(s.T(), 1, m14)))
	s.True(s.set.Contains(14))
	s.False(s.set.Contains(13))
	s.NoError(s.set.CheckConsistency())
}

func (s *SetTestSuite) TestAdd_SameMoleculeIDBuiltTwiceIsSynced() {
	pos := ion(s.T(), 7, 1, molecule.Vector{})
	neg := ion(s.T(), 7, -1, molecule.Vector{})
	s.Require().NotEqual(pos.Version(), neg.Version())

	s.Require().NoError(s.set.Add(newCLJ(s.T(), 3, pos)))
	s.Require().NoError(s.set.Add(newCLJ(s.T(), 4, neg)))

	s.Equal(neg.Version(), s.version(3, 7))
	s.Equal(neg.Version(), s.version(4, 7))
	ff, err := s.set.ForceField(3)
	s.Require().NoError(err)
	held, err := ff.Molecule(7)
	s.Require().NoError(err)
	s.Equal(-1.0, held.Atoms()[0].Charge)
	s.NoError(s.set.CheckConsistency())
}

func (s *SetTestSuite) TestAddTo_NewMoleculeAndVersionSync() {
	m13 := ion(s.T(), 13, 0.5, molecule.Vector{Z: 3})
	s.Require().NoError(s.set.AddTo(2, forcefield.GroupAll, m13, nil))
	s.Equal([]forcefield.ID{2}, s.set.MoleculeIndex().ForceFieldsOf(13))

	m11v2 := s.m11.Translate(molecule.Vector{X: 1})
	s.Require().NoError(s.set.AddTo(2, forcefield.GroupAll, m11v2, forcefield.ParameterMap{forcefield.ParamLJScale: 0.5}))
	s.Equal(m11v2.Version(), s.version(1, 11))
	s.Equal(m11v2.Version(), s.version(2, 11))
	s.Equal([]forcefield.ID{1, 2}, s.set.MoleculeIndex().ForceFieldsOf(11))
	s.NoError(s.set.CheckConsistency())

	err := s.set.AddTo(9, forcefield.GroupAll, m13, nil)
	s.True(errors.IsCode(err, errors.CodeMissingForceField))
	err = s.set.AddTo(1, forcefield.GroupAll, molecule.Molecule{}, nil)
	s.True(errors.IsCode(err, errors.CodeMoleculeInvalid))
}

func (s *SetTestSuite) TestAddToMany() {
	changed, err := s.set.AddToMany(nil, forcefield.GroupAll, s.m12, nil)
	s.Require().NoError(err)
	s.False(changed, "empty ID list returns early")
	s.Empty(s.set.Events())

	m13 := ion(s.T(), 13, 0, molecule.Vector{Z: 6})
	changed, err = s.set.AddToMany([]forcefield.ID{2, 1}, forcefield.GroupAll, m13, nil)
	s.Require().NoError(err)
	s.True(changed)
	s.Equal([]forcefield.ID{1, 2}, s.set.MoleculeIndex().ForceFieldsOf(13))
	s.Len(s.set.DrainEvents(), 1)

	before := s.set.Clone()
	_, err = s.set.AddToMany([]forcefield.ID{1, 9}, forcefield.GroupAll, ion(s.T(), 14, 0, molecule.Vector{}), nil)
	s.True(errors.IsCode(err, errors.CodeMissingForceField))
	s.True(before.Equal(s.set))
}

func (s *SetTestSuite) TestRemoveFrom() {
	removed, err := s.set.RemoveFrom(1, forcefield.GroupAll, 11)
	s.Require().NoError(err)
	s.True(removed)
	s.False(s.set.Contains(11))

	removed, err = s.set.RemoveFrom(1, forcefield.GroupAll, 11)
	s.Require().NoError(err)
	s.False(removed)

	removed, err = s.set.RemoveFrom(1, forcefield.GroupAll, 10)
	s.Require().NoError(err)
	s.True(removed)
	s.Equal([]forcefield.ID{2}, s.set.MoleculeIndex().ForceFieldsOf(10))
	s.NoError(s.set.CheckConsistency())

	_, err = s.set.RemoveFrom(1, forcefield.GroupA, 12)
	s.True(errors.IsCode(err, errors.CodeInvalidParam))
}

// ─────────────────────────────────────────────────────────────────────────────
// rollback
// ─────────────────────────────────────────────────────────────────────────────

func (s *SetTestSuite) TestRollback_FailingForceFieldRestoresEverything() {
	s.registerAB()
	_, err := s.set.TotalEnergy()
	s.Require().NoError(err)
	_, err = s.set.Energy(cas.Fn("total"))
	s.Require().NoError(err)

	s.Require().NoError(s.set.Add(&flaky{CLJ: newCLJ(s.T(), 3, s.m10), failChange: true}))
	s.set.DrainEvents()

	before := s.set.Clone()
	cachedBefore := s.set.CachedEnergies()

	_, err = s.set.ChangeMolecule(s.m10.Translate(molecule.Vector{X: 1}))
	s.Require().Error(err)
	s.True(before.Equal(s.set))
	s.Equal(cachedBefore, s.set.CachedEnergies())
	s.Equal(s.m10.Version(), s.version(1, 10))
	s.Equal(s.m10.Version(), s.version(2, 10))
	s.Empty(s.set.Events(), "rolled-back mutations produce no events")
	s.Equal(1, s.obs.rollbacks)
	s.Equal(1, s.logs.FilterMessage("forcefield set mutation rolled back").Len())
}

func (s *SetTestSuite) TestRollback_AddToRevertsVersionSync() {
	bad := &flaky{CLJ: newCLJ(s.T(), 3), failAdd: true}
	s.Require().NoError(s.set.Add(bad))
	before := s.set.Clone()

	m2 := s.m10.Translate(molecule.Vector{X: 1})
	err := s.set.AddTo(3, forcefield.GroupAll, m2, nil)
	s.Require().Error(err)
	s.True(before.Equal(s.set))
	s.Equal(s.m10.Version(), s.version(1, 10))
	s.Equal(s.m10.Version(), s.version(2, 10))
	s.Equal(1, s.logs.FilterMessage("add failed after molecule version sync; set will be restored").Len())
}

func (s *SetTestSuite) TestRollback_PropertyValidation() {
	before := s.set.Clone()
	_, err := s.set.SetPropertyOn(1, forcefield.PropertyCutoff, -1)
	s.True(errors.IsCode(err, errors.CodeInvalidParam))
	s.True(before.Equal(s.set))
}

// ─────────────────────────────────────────────────────────────────────────────
// energies and cache
// ─────────────────────────────────────────────────────────────────────────────

func (s *SetTestSuite) TestEnergy_ExpressionsMatchForceFields() {
	a, b, total := s.registerAB()
	ff1, _ := s.set.ForceField(1)
	ff2, _ := s.set.ForceField(2)

	ea, err := s.set.Energy(a.Function())
	s.Require().NoError(err)
	s.InDelta(ff1.TotalEnergy(), ea, 1e-9)

	all, err := s.set.Energies([]cas.Function{a.Function(), b.Function(), total.Function()})
	s.Require().NoError(err)
	s.InDelta(ff1.TotalEnergy()+ff2.TotalEnergy(), all["total"], 1e-9)
	s.InDelta(ff2.TotalEnergy(), all["B"], 1e-9)

	coul, err := s.set.Energy(comp(1, "coul"))
	s.Require().NoError(err)
	s.InDelta(-forcefield.DefaultCoulombConstant/2, coul, 1e-9)

	_, err = s.set.Energy(cas.Fn("garbage"))
	s.True(errors.IsCode(err, errors.CodeMissingFunction))
	_, err = s.set.Energy(comp(9, "coul"))
	s.True(errors.IsCode(err, errors.CodeMissingForceField))

	sum, err := s.set.EnergyOf(1, 2)
	s.Require().NoError(err)
	s.InDelta(s.set.SumOfForceFieldEnergies(), sum, 1e-9)
	_, err = s.set.EnergyOf()
	s.True(errors.IsCode(err, errors.CodeInvalidParam))
}

func (s *SetTestSuite) TestCache_ChangeInvalidatesOnlyDependents() {
	_, _, total := s.registerAB()
	_, err := s.set.Energy(total.Function())
	s.Require().NoError(err)
	s.Equal([]string{"A", "B", "total"}, sortedKeys(s.set.CachedEnergies()))
	misses := s.obs.misses

	_, err = s.set.Energy(total.Function())
	s.Require().NoError(err)
	s.Equal(misses, s.obs.misses)
	s.Equal(1, s.obs.hits)

	_, err = s.set.ChangeMolecule(s.m11.Translate(molecule.Vector{X: 1}))
	s.Require().NoError(err)
	s.Equal([]string{"B"}, sortedKeys(s.set.CachedEnergies()))

	// Recomputed values track the change.
	ff1, _ := s.set.ForceField(1)
	ff2, _ := s.set.ForceField(2)
	v, err := s.set.Energy(total.Function())
	s.Require().NoError(err)
	s.InDelta(ff1.TotalEnergy()+ff2.TotalEnergy(), v, 1e-9)
}

func (s *SetTestSuite) TestTotalEnergy_SumSlotAndDesignatedTotal() {
	v, err := s.set.TotalEnergy()
	s.Require().NoError(err)
	s.InDelta(s.set.SumOfForceFieldEnergies(), v, 1e-9)
	_, ok := s.set.CachedEnergies()[energy.SumSlot]
	s.True(ok)

	_, err = s.set.ChangeMolecule(s.m12.Translate(molecule.Vector{X: 1}))
	s.Require().NoError(err)
	_, ok = s.set.CachedEnergies()[energy.SumSlot]
	s.False(ok, "any forcefield change drops the sum slot while no total is designated")

	a, _, _ := s.registerAB()
	scaled := mustExpr(s.T(), "half", cas.MulOf(cas.N(0.5), a.Function()))
	s.Require().NoError(s.set.SetTotal(scaled))
	fn, ok := s.set.Total()
	s.Require().True(ok)
	s.Equal("half", fn.ID())

	ea, _ := s.set.Energy(a.Function())
	v, err = s.set.TotalEnergy()
	s.Require().NoError(err)
	s.InDelta(ea/2, v, 1e-9)

	s.True(s.set.ClearTotal())
	s.False(s.set.ClearTotal())
	v, err = s.set.TotalEnergy()
	s.Require().NoError(err)
	s.InDelta(s.set.SumOfForceFieldEnergies(), v, 1e-9)
}

func (s *SetTestSuite) TestParameters() {
	a, _, _ := s.registerAB()
	scaled := mustExpr(s.T(), "scaled", cas.MulOf(cas.S("lambda"), a.Function()))
	s.Require().NoError(s.set.AddExpression(scaled))

	_, err := s.set.Energy(scaled.Function())
	s.True(errors.IsCode(err, errors.CodeMissingFunction), "unbound parameter")

	s.True(s.set.SetParameter(cas.S("lambda"), 0.25))
	s.False(s.set.SetParameter(cas.S("lambda"), 0.25))
	ea, _ := s.set.Energy(a.Function())
	v, err := s.set.Energy(scaled.Function())
	s.Require().NoError(err)
	s.InDelta(ea/4, v, 1e-9)

	s.True(s.set.SetParameter(cas.S("lambda"), 1))
	s.Zero(len(s.set.CachedEnergies()))
	s.Equal(cas.Values{"lambda": 1}, s.set.Parameters())
}

func (s *SetTestSuite) TestMustNowRecalculateFromScratch() {
	s.registerAB()
	_, err := s.set.Energy(cas.Fn("total"))
	s.Require().NoError(err)
	s.set.MustNowRecalculateFromScratch()
	s.Zero(len(s.set.CachedEnergies()))
	s.Equal(EventRecalculated, s.set.DrainEvents()[0].Kind)
}

// ─────────────────────────────────────────────────────────────────────────────
// expressions
// ─────────────────────────────────────────────────────────────────────────────

func (s *SetTestSuite) TestExpressions_RemovalOrdering() {
	a, _, total := s.registerAB()

	removed, err := s.set.RemoveExpression(a.Function())
	s.False(removed)
	s.Require().True(errors.IsCode(err, errors.CodeDependency))
	s.Contains(err.Error(), "total")

	removed, err = s.set.RemoveExpression(total.Function())
	s.Require().NoError(err)
	s.True(removed)
	removed, err = s.set.RemoveExpression(a.Function())
	s.Require().NoError(err)
	s.True(removed)

	e, ok, err := s.set.TakeExpression(cas.Fn("B"))
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("B", e.ID())
	s.Empty(s.set.Expressions())
}

func (s *SetTestSuite) TestExpressions_ComponentValidation() {
	err := s.set.AddExpression(mustExpr(s.T(), "X", comp(1, "bond")))
	s.True(errors.IsCode(err, errors.CodeMissingComponent))
	err = s.set.AddExpression(mustExpr(s.T(), "Y", comp(5, "coul")))
	s.True(errors.IsCode(err, errors.CodeMissingForceField))
	s.Empty(s.set.Expressions())
}

func (s *SetTestSuite) TestRemove_ForceRemovesDependentExpressions() {
	_, _, total := s.registerAB()
	s.Require().NoError(s.set.SetTotal(total))
	_, err := s.set.TotalEnergy()
	s.Require().NoError(err)

	removed, err := s.set.Remove(1)
	s.Require().NoError(err)
	s.True(removed)

	var ids []string
	for _, e := range s.set.Expressions() {
		ids = append(ids, e.ID())
	}
	s.Equal([]string{"B"}, ids)
	_, ok := s.set.Total()
	s.False(ok)
	s.Equal([]string{"B"}, sortedKeys(s.set.CachedEnergies()))
	s.False(s.set.Contains(11))
	s.Equal([]forcefield.ID{2}, s.set.MoleculeIndex().ForceFieldsOf(10))
	s.NoError(s.set.CheckConsistency())

	warn := s.logs.FilterMessage("removed expressions that read a removed forcefield").All()
	s.Require().Len(warn, 1)
	s.Equal([]interface{}{"A", "total"}, warn[0].ContextMap()["functions"])

	removed, err = s.set.Remove(1)
	s.Require().NoError(err)
	s.False(removed)
}

// ─────────────────────────────────────────────────────────────────────────────
// properties and comparison
// ─────────────────────────────────────────────────────────────────────────────

func (s *SetTestSuite) TestProperties() {
	changed, err := s.set.SetProperty(forcefield.PropertyCutoff, 1.0)
	s.Require().NoError(err)
	s.True(changed)
	v, err := s.set.Property(2, forcefield.PropertyCutoff)
	s.Require().NoError(err)
	s.Equal(1.0, v)
	s.Zero(s.set.SumOfForceFieldEnergies())

	changed, err = s.set.SetProperty(forcefield.PropertyCutoff, 1.0)
	s.Require().NoError(err)
	s.False(changed)

	_, err = s.set.SetProperty("dielectric", 4)
	s.True(errors.IsCode(err, errors.CodeMissingProperty))
	_, err = s.set.Property(1, "dielectric")
	s.True(errors.IsCode(err, errors.CodeMissingProperty))
}

func (s *SetTestSuite) TestAssertSameContents() {
	other := s.set.Clone()
	s.NoError(s.set.AssertSameContents(other))

	_, err := other.ChangeMolecule(s.m12.Translate(molecule.Vector{X: 1}))
	s.Require().NoError(err)
	err = s.set.AssertSameContents(other)
	s.True(errors.IsCode(err, errors.CodeIncompatible))

	_, err = other.Remove(2)
	s.Require().NoError(err)
	s.True(errors.IsCode(s.set.AssertSameContents(other), errors.CodeIncompatible))
}

func (s *SetTestSuite) TestReindex_ReproducesIncrementalIndex() {
	s.Require().NoError(s.set.AddTo(1, forcefield.GroupAll, s.m12, nil))
	_, err := s.set.RemoveFrom(2, forcefield.GroupAll, 10)
	s.Require().NoError(err)

	incremental := s.set.MoleculeIndex()
	s.set.Reindex()
	s.True(incremental.Equal(s.set.MoleculeIndex()))
}

func TestSetTestSuite(t *testing.T) {
	suite.Run(t, new(SetTestSuite))
}

func TestSet_RegisterWithoutForceFieldFails(t *testing.T) {
	set := New()
	a, err := energy.NewExpression("A", cas.AddOf(comp(1, "coul"), comp(1, "lj")))
	require.NoError(t, err)
	err = set.AddExpression(a)
	assert.True(t, errors.IsCode(err, errors.CodeMissingForceField))
	assert.Empty(t, set.Expressions())
	assert.Empty(t, set.Events())
}

func TestSet_GarbageComponent(t *testing.T) {
	_, err := energy.ComponentFromFunction(cas.Fn("garbage"), "")
	assert.True(t, errors.IsCode(err, errors.CodeIncompatible))
}

func sortedKeys(m map[string]float64) []string { return cas.Values(m).Keys() }

//Personal.AI order the ending
