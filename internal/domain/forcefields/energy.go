package forcefields

import (
	"fmt"
	"time"

	"github.com/turtacn/ffengine/internal/cas"
	"github.com/turtacn/ffengine/internal/domain/energy"
	"github.com/turtacn/ffengine/internal/domain/forcefield"
	"github.com/turtacn/ffengine/pkg/errors"
)

// Energy returns the energy of fn: a registered expression, or a bare
// forcefield component.  Registered results are cached until a forcefield
// they read changes.
func (s *Set) Energy(fn cas.Function) (float64, error) {
	start := time.Now()
	defer func() { s.observer.Evaluated(time.Since(start)) }()
	return s.st.energy(fn)
}

// Energies evaluates several functions, keyed by function identity.
func (s *Set) Energies(fns []cas.Function) (map[string]float64, error) {
	out := make(map[string]float64, len(fns))
	for _, fn := range fns {
		v, err := s.Energy(fn)
		if err != nil {
			return nil, err
		}
		out[fn.ID()] = v
	}
	return out, nil
}

// TotalEnergy evaluates the designated total, or the sum of every
// forcefield's own total when none is designated.
func (s *Set) TotalEnergy() (float64, error) {
	if fn, ok := s.st.reg.Total(); ok {
		return s.Energy(fn)
	}
	if v, ok := s.st.cache.Get(energy.SumSlot); ok {
		s.observer.CacheHit()
		return v, nil
	}
	s.observer.CacheMiss()
	v := s.SumOfForceFieldEnergies()
	s.st.cache.Store(energy.SumSlot, v)
	return v, nil
}

// SumOfForceFieldEnergies adds up the total energy of every forcefield,
// ignoring expressions.
func (s *Set) SumOfForceFieldEnergies() float64 {
	sum := 0.0
	for _, id := range s.st.forceFieldIDs() {
		sum += s.st.ffs[id].TotalEnergy()
	}
	return sum
}

// EnergyOf adds up the total energy of the listed forcefields.
func (s *Set) EnergyOf(ids ...forcefield.ID) (float64, error) {
	if len(ids) == 0 {
		return 0, errors.InvalidArgument("at least one forcefield ID is required")
	}
	sum := 0.0
	for _, id := range ids {
		ff, err := s.st.forceField(id)
		if err != nil {
			return 0, err
		}
		sum += ff.TotalEnergy()
	}
	return sum, nil
}

func (st *state) energy(fn cas.Function) (float64, error) {
	id := fn.ID()
	info, ok := st.reg.InfoByID(id)
	if !ok {
		c, isComponent := energy.ParseComponent(fn)
		if !isComponent {
			return 0, errors.MissingFunction("no expression is registered for this function").WithDetail(id)
		}
		ff, err := st.forceField(c.ForceFieldID())
		if err != nil {
			return 0, err
		}
		return ff.Energy(c.Name())
	}

	if v, hit := st.cache.Get(id); hit {
		st.obs.CacheHit()
		return v, nil
	}
	st.obs.CacheMiss()

	vals := st.params.Clone()
	for _, dep := range info.Dependencies() {
		v, err := st.evaluate(dep, vals)
		if err != nil {
			return 0, err
		}
		vals.Set(dep.Function(), v)
	}
	return st.evaluate(info.Expression(), vals)
}

// evaluate computes expr from vals, fetching its component energies from
// the forcefields, and stores the result.
func (st *state) evaluate(expr energy.Expression, vals cas.Values) (float64, error) {
	if v, hit := st.cache.Get(expr.ID()); hit {
		return v, nil
	}
	for _, c := range expr.Components() {
		if _, bound := vals.Get(c.Function()); bound {
			continue
		}
		ff, err := st.forceField(c.ForceFieldID())
		if err != nil {
			return 0, errors.Wrap(err, errors.CodeMissingForceField,
				fmt.Sprintf("cannot evaluate %s", expr.ID()))
		}
		v, err := ff.Energy(c.Name())
		if err != nil {
			return 0, err
		}
		vals.Set(c.Function(), v)
	}
	v, err := expr.Evaluate(vals)
	if err != nil {
		return 0, err
	}
	st.cache.Store(expr.ID(), v)
	return v, nil
}

//Personal.AI order the ending
