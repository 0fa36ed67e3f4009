package forcefields

import (
	"fmt"
	"sort"

	"github.com/turtacn/ffengine/internal/cas"
	"github.com/turtacn/ffengine/internal/domain/energy"
	"github.com/turtacn/ffengine/internal/domain/forcefield"
	"github.com/turtacn/ffengine/internal/domain/molecule"
	"github.com/turtacn/ffengine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ffengine/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Forcefields
// ─────────────────────────────────────────────────────────────────────────────

// Add inserts a copy of ff.  If the set already holds a forcefield with the
// same ID this is Change.  Molecules ff shares with forcefields already in
// the set are brought to ff's versions everywhere.
func (s *Set) Add(ff forcefield.ForceField) error {
	if ff == nil {
		return errors.InvalidArgument("cannot add a nil forcefield")
	}
	if s.st.HasForceField(ff.ID()) {
		_, err := s.Change(ff)
		return err
	}
	id := ff.ID()
	_, err := s.mutate(EventForceFieldAdded, func(st *state, ev *ChangeEvent) (bool, error) {
		ff := ff.Clone()
		mols, err := moleculesOf(ff)
		if err != nil {
			return false, err
		}
		synced, err := st.changeMolecules(mols, 0)
		if err != nil {
			return false, err
		}
		st.ffs[id] = ff
		for _, molID := range ff.MoleculeIDs() {
			st.index.Add(molID, id)
		}
		st.invalidate(id)
		ev.ForceFieldIDs = append([]forcefield.ID{id}, synced...)
		ev.MoleculeIDs = ff.MoleculeIDs()
		ev.Name = ff.Name()
		return true, nil
	})
	return err
}

// Change replaces the forcefield with ff's ID by a copy of ff.  It fails with
// MissingForceField when there is nothing to replace and returns false when
// ff carries the version already held.
func (s *Set) Change(ff forcefield.ForceField) (bool, error) {
	if ff == nil {
		return false, errors.InvalidArgument("cannot change to a nil forcefield")
	}
	id := ff.ID()
	return s.mutate(EventForceFieldChanged, func(st *state, ev *ChangeEvent) (bool, error) {
		old, err := st.forceField(id)
		if err != nil {
			return false, err
		}
		if old.Version() == ff.Version() {
			return false, nil
		}
		ff := ff.Clone()
		for _, molID := range old.MoleculeIDs() {
			if !ff.Contains(molID) {
				st.index.Remove(molID, id)
			}
		}
		st.ffs[id] = ff
		for _, molID := range ff.MoleculeIDs() {
			st.index.Add(molID, id)
		}
		st.invalidate(id)

		mols, err := moleculesOf(ff)
		if err != nil {
			return false, err
		}
		synced, err := st.changeMolecules(mols, id)
		if err != nil {
			return false, err
		}
		ev.ForceFieldIDs = append([]forcefield.ID{id}, synced...)
		ev.Name = ff.Name()
		return true, nil
	})
}

// Remove drops the forcefield with the given ID together with every
// expression that reads it, however indirectly.  Unlike RemoveExpression
// this does not refuse when other expressions depend on the removed ones:
// with the forcefield gone none of them can be evaluated.
func (s *Set) Remove(id forcefield.ID) (bool, error) {
	var dropped []string
	ok, err := s.mutate(EventForceFieldRemoved, func(st *state, ev *ChangeEvent) (bool, error) {
		ff, ok := st.ffs[id]
		if !ok {
			return false, nil
		}
		st.invalidate(id)
		for _, molID := range ff.MoleculeIDs() {
			st.index.Remove(molID, id)
		}
		delete(st.ffs, id)

		hadTotal := st.reg.TotalID() != ""
		dropped = st.reg.RemoveForceField(id)
		for _, fn := range dropped {
			st.cache.Remove(fn)
		}
		if hadTotal && st.reg.TotalID() == "" {
			st.cache.Remove(energy.SumSlot)
		}
		ev.ForceFieldIDs = []forcefield.ID{id}
		ev.MoleculeIDs = ff.MoleculeIDs()
		ev.Functions = dropped
		ev.Name = ff.Name()
		return true, nil
	})
	if ok && len(dropped) > 0 {
		s.logger.Warn("removed expressions that read a removed forcefield",
			logging.Uint64(logging.FieldForceField, uint64(id)),
			logging.Strings("functions", dropped))
	}
	return ok, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Molecules
// ─────────────────────────────────────────────────────────────────────────────

// ChangeMolecule brings every forcefield holding mol to mol's version.
func (s *Set) ChangeMolecule(mol molecule.Molecule) (bool, error) {
	return s.ChangeMolecules([]molecule.Molecule{mol})
}

// ChangeMolecules brings every forcefield holding any of mols to the given
// versions.  When mols names a molecule more than once the last one wins.
// Molecules no forcefield holds are ignored.
func (s *Set) ChangeMolecules(mols []molecule.Molecule) (bool, error) {
	latest := dedupe(mols)
	if !s.st.needsChange(latest) {
		return false, nil
	}
	return s.mutate(EventMoleculesChanged, func(st *state, ev *ChangeEvent) (bool, error) {
		synced, err := st.changeMolecules(latest, 0)
		if err != nil {
			return false, err
		}
		ev.ForceFieldIDs = synced
		for _, m := range latest {
			if st.index.Contains(m.ID()) {
				ev.MoleculeIDs = append(ev.MoleculeIDs, m.ID())
			}
		}
		return len(synced) > 0, nil
	})
}

// AddTo adds mol to group of the forcefield with the given ID.  If another
// forcefield holds mol at a different version, the whole set moves to mol's
// version first.  A failing add undoes that synchronisation.
func (s *Set) AddTo(id forcefield.ID, group string, mol molecule.Molecule, params forcefield.ParameterMap) error {
	_, err := s.mutate(EventMoleculeAdded, func(st *state, ev *ChangeEvent) (bool, error) {
		return s.addTo(st, ev, id, group, mol, params)
	})
	return err
}

// AddToMany adds mol to group of each listed forcefield as one operation.
// An empty list is a no-op.
func (s *Set) AddToMany(ids []forcefield.ID, group string, mol molecule.Molecule, params forcefield.ParameterMap) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	sorted := append([]forcefield.ID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, id := range sorted {
		if _, err := s.st.forceField(id); err != nil {
			return false, err
		}
	}
	return s.mutate(EventMoleculeAdded, func(st *state, ev *ChangeEvent) (bool, error) {
		changed := false
		for _, id := range sorted {
			ok, err := s.addTo(st, ev, id, group, mol, params)
			if err != nil {
				return false, err
			}
			changed = changed || ok
		}
		return changed, nil
	})
}

func (s *Set) addTo(st *state, ev *ChangeEvent, id forcefield.ID, group string, mol molecule.Molecule, params forcefield.ParameterMap) (bool, error) {
	ff, err := st.forceField(id)
	if err != nil {
		return false, err
	}
	if mol.IsZero() {
		return false, errors.New(errors.CodeMoleculeInvalid, "cannot add the null molecule")
	}
	synced, err := st.changeMolecules([]molecule.Molecule{mol}, id)
	if err != nil {
		return false, err
	}
	before := ff.Version()
	if err := ff.AddTo(group, mol, params); err != nil {
		if len(synced) > 0 {
			s.logger.Warn("add failed after molecule version sync; set will be restored",
				logging.Uint64(logging.FieldMolecule, uint64(mol.ID())),
				logging.Any("forcefields", synced))
		}
		return false, err
	}
	if ff.Version() == before && len(synced) == 0 {
		return false, nil
	}
	st.index.Add(mol.ID(), id)
	st.invalidate(id)
	ev.ForceFieldIDs = appendUnique(ev.ForceFieldIDs, append([]forcefield.ID{id}, synced...)...)
	if len(ev.MoleculeIDs) == 0 {
		ev.MoleculeIDs = []molecule.ID{mol.ID()}
	}
	ev.Name = group
	return true, nil
}

// RemoveFrom removes the molecule from group of the forcefield with the
// given ID.  It returns false when the molecule is not in that group.
func (s *Set) RemoveFrom(id forcefield.ID, group string, molID molecule.ID) (bool, error) {
	return s.mutate(EventMoleculeRemoved, func(st *state, ev *ChangeEvent) (bool, error) {
		ff, err := st.forceField(id)
		if err != nil {
			return false, err
		}
		removed, err := ff.RemoveFrom(group, molID)
		if err != nil || !removed {
			return false, err
		}
		if !ff.Contains(molID) {
			st.index.Remove(molID, id)
		}
		st.invalidate(id)
		ev.ForceFieldIDs = []forcefield.ID{id}
		ev.MoleculeIDs = []molecule.ID{molID}
		ev.Name = group
		return true, nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Expressions
// ─────────────────────────────────────────────────────────────────────────────

// AddExpression registers expr.
func (s *Set) AddExpression(expr energy.Expression) error {
	_, err := s.mutate(EventExpressionAdded, func(st *state, ev *ChangeEvent) (bool, error) {
		if err := st.reg.Add(expr, st); err != nil {
			return false, err
		}
		ev.Functions = []string{expr.ID()}
		ev.ForceFieldIDs = expr.ForceFieldIDs()
		return true, nil
	})
	return err
}

// RemoveExpression unregisters fn.  It refuses with a Dependency error while
// other expressions depend on fn.
func (s *Set) RemoveExpression(fn cas.Function) (bool, error) {
	_, ok, err := s.TakeExpression(fn)
	return ok, err
}

// TakeExpression unregisters fn and returns its expression.
func (s *Set) TakeExpression(fn cas.Function) (energy.Expression, bool, error) {
	var taken energy.Expression
	ok, err := s.mutate(EventExpressionRemoved, func(st *state, ev *ChangeEvent) (bool, error) {
		wasTotal := st.reg.TotalID() == fn.ID() && fn.ID() != ""
		expr, ok, err := st.reg.Take(fn)
		if err != nil || !ok {
			return false, err
		}
		st.cache.Remove(fn.ID())
		if wasTotal {
			st.cache.Remove(energy.SumSlot)
		}
		taken = expr
		ev.Functions = []string{fn.ID()}
		return true, nil
	})
	return taken, ok, err
}

// SetTotal designates expr as the total energy, registering it first when
// needed.
func (s *Set) SetTotal(expr energy.Expression) error {
	_, err := s.mutate(EventTotalChanged, func(st *state, ev *ChangeEvent) (bool, error) {
		if st.reg.TotalID() == expr.ID() {
			if info, _ := st.reg.InfoByID(expr.ID()); info.Expression().Equal(expr) {
				return false, nil
			}
		}
		if err := st.reg.SetTotal(expr, st); err != nil {
			return false, err
		}
		st.cache.Remove(energy.SumSlot)
		ev.Functions = []string{expr.ID()}
		return true, nil
	})
	return err
}

// ClearTotal drops the total designation; TotalEnergy falls back to the sum
// of forcefield energies.
func (s *Set) ClearTotal() bool {
	ok, _ := s.mutate(EventTotalChanged, func(st *state, ev *ChangeEvent) (bool, error) {
		if st.reg.TotalID() == "" {
			return false, nil
		}
		ev.Functions = []string{st.reg.TotalID()}
		st.reg.ClearTotal()
		st.cache.Remove(energy.SumSlot)
		return true, nil
	})
	return ok
}

// ─────────────────────────────────────────────────────────────────────────────
// Properties and parameters
// ─────────────────────────────────────────────────────────────────────────────

// SetProperty sets the property on every forcefield that has it.  It fails
// with MissingProperty when none does.
func (s *Set) SetProperty(name string, value float64) (bool, error) {
	return s.mutate(EventPropertyChanged, func(st *state, ev *ChangeEvent) (bool, error) {
		found := false
		for _, id := range st.forceFieldIDs() {
			ff := st.ffs[id]
			if !ff.ContainsProperty(name) {
				continue
			}
			found = true
			changed, err := ff.SetProperty(name, value)
			if err != nil {
				return false, err
			}
			if changed {
				st.invalidate(id)
				ev.ForceFieldIDs = append(ev.ForceFieldIDs, id)
			}
		}
		if !found {
			return false, errors.MissingProperty("no forcefield in the set has this property").WithDetail(name)
		}
		ev.Name = name
		return len(ev.ForceFieldIDs) > 0, nil
	})
}

// SetPropertyOn sets the property on one forcefield.
func (s *Set) SetPropertyOn(id forcefield.ID, name string, value float64) (bool, error) {
	return s.mutate(EventPropertyChanged, func(st *state, ev *ChangeEvent) (bool, error) {
		ff, err := st.forceField(id)
		if err != nil {
			return false, err
		}
		changed, err := ff.SetProperty(name, value)
		if err != nil || !changed {
			return false, err
		}
		st.invalidate(id)
		ev.ForceFieldIDs = []forcefield.ID{id}
		ev.Name = name
		return true, nil
	})
}

// Property reads a property of one forcefield.
func (s *Set) Property(id forcefield.ID, name string) (float64, error) {
	ff, err := s.st.forceField(id)
	if err != nil {
		return 0, err
	}
	return ff.Property(name)
}

// SetParameter binds a free symbol used by registered expressions.  Any
// change clears the whole cache.
func (s *Set) SetParameter(sym cas.Symbol, value float64) bool {
	ok, _ := s.mutate(EventParameterChanged, func(st *state, ev *ChangeEvent) (bool, error) {
		if cur, ok := st.params.Get(sym); ok && cur == value {
			return false, nil
		}
		st.params.Set(sym, value)
		st.obs.Invalidated(st.cache.InvalidateAll())
		ev.Name = sym.Name()
		return true, nil
	})
	return ok
}

// MustNowRecalculateFromScratch tells every forcefield to drop its internal
// caches and clears the energy cache.
func (s *Set) MustNowRecalculateFromScratch() {
	_, _ = s.mutate(EventRecalculated, func(st *state, ev *ChangeEvent) (bool, error) {
		for _, id := range st.forceFieldIDs() {
			st.ffs[id].MustNowRecalculateFromScratch()
		}
		st.obs.Invalidated(st.cache.InvalidateAll())
		ev.ForceFieldIDs = st.forceFieldIDs()
		return true, nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func (st *state) invalidate(id forcefield.ID) {
	st.obs.Invalidated(st.cache.Invalidate(id, st.reg))
}

// needsChange reports whether any forcefield holds one of mols at another
// version.
func (st *state) needsChange(mols []molecule.Molecule) bool {
	for _, m := range mols {
		for _, ffID := range st.index.ForceFieldsOf(m.ID()) {
			cur, err := st.ffs[ffID].Molecule(m.ID())
			if err != nil || cur.Version() != m.Version() {
				return true
			}
		}
	}
	return false
}

// changeMolecules applies mols to every forcefield other than skip that
// holds them, forcefield by forcefield in ID order.  It returns the
// forcefields that changed.
func (st *state) changeMolecules(mols []molecule.Molecule, skip forcefield.ID) ([]forcefield.ID, error) {
	perFF := map[forcefield.ID][]molecule.Molecule{}
	for _, m := range mols {
		for _, ffID := range st.index.ForceFieldsOf(m.ID()) {
			if ffID != skip {
				perFF[ffID] = append(perFF[ffID], m)
			}
		}
	}
	ids := make([]forcefield.ID, 0, len(perFF))
	for id := range perFF {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var changed []forcefield.ID
	for _, id := range ids {
		ff, ok := st.ffs[id]
		if !ok {
			panic(errors.ProgramBug("molecule index names a forcefield the set does not hold").
				WithDetail(fmt.Sprintf("forcefield %d", id)))
		}
		ok, err := ff.ChangeMolecules(perFF[id])
		if err != nil {
			return nil, err
		}
		if ok {
			st.invalidate(id)
			changed = append(changed, id)
		}
	}
	return changed, nil
}

func moleculesOf(ff forcefield.ForceField) ([]molecule.Molecule, error) {
	ids := ff.MoleculeIDs()
	out := make([]molecule.Molecule, 0, len(ids))
	for _, id := range ids {
		m, err := ff.Molecule(id)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// dedupe keeps the last occurrence of each molecule, in first-seen order.
func dedupe(mols []molecule.Molecule) []molecule.Molecule {
	pos := map[molecule.ID]int{}
	var out []molecule.Molecule
	for _, m := range mols {
		if i, ok := pos[m.ID()]; ok {
			out[i] = m
			continue
		}
		pos[m.ID()] = len(out)
		out = append(out, m)
	}
	return out
}

func appendUnique(dst []forcefield.ID, ids ...forcefield.ID) []forcefield.ID {
	for _, id := range ids {
		seen := false
		for _, d := range dst {
			if d == id {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, id)
		}
	}
	return dst
}

//Personal.AI order the ending
