package energy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/turtacn/ffengine/internal/cas"
	"github.com/turtacn/ffengine/internal/domain/forcefield"
	"github.com/turtacn/ffengine/pkg/errors"
)

// ComponentLookup answers whether a component referenced by an expression
// exists.  The forcefield set implements it.
type ComponentLookup interface {
	HasForceField(id forcefield.ID) bool
	HasComponent(id forcefield.ID, name string) bool
}

// Registry owns the registered expressions, the reverse map from forcefield
// to the expressions whose closure includes it, and the designated total.
type Registry struct {
	infos      map[string]ExpressionInfo
	order      []string
	dependents map[forcefield.ID]map[string]struct{}
	total      string
}

// NewRegistry returns an empty registry with no total designated.
func NewRegistry() *Registry {
	return &Registry{
		infos:      map[string]ExpressionInfo{},
		dependents: map[forcefield.ID]map[string]struct{}{},
	}
}

// Len returns the number of registered expressions.
func (r *Registry) Len() int { return len(r.infos) }

// Contains reports whether fn is registered.
func (r *Registry) Contains(fn cas.Function) bool {
	_, ok := r.infos[fn.ID()]
	return ok
}

// Info returns the resolved information for fn.
func (r *Registry) Info(fn cas.Function) (ExpressionInfo, bool) {
	return r.InfoByID(fn.ID())
}

// InfoByID is Info keyed by function identity.
func (r *Registry) InfoByID(id string) (ExpressionInfo, bool) {
	info, ok := r.infos[id]
	if ok && info.expr.ID() != id {
		panic(errors.ProgramBug("registry entry does not match its key").
			WithDetail(fmt.Sprintf("key %q holds %q", id, info.expr.ID())))
	}
	return info, ok
}

// Expressions returns every registered expression in registration order.
func (r *Registry) Expressions() []Expression {
	out := make([]Expression, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.infos[id].expr)
	}
	return out
}

// Dependents lists, sorted, the expressions whose closure includes ffID.
func (r *Registry) Dependents(ffID forcefield.ID) []string {
	set := r.dependents[ffID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Total returns the designated total function, if any.
func (r *Registry) Total() (cas.Function, bool) {
	if r.total == "" {
		return cas.Function{}, false
	}
	return r.infos[r.total].expr.fn, true
}

// TotalID returns the identity of the designated total, or "" when none is
// set.
func (r *Registry) TotalID() string { return r.total }

// ─────────────────────────────────────────────────────────────────────────────
// Mutation
// ─────────────────────────────────────────────────────────────────────────────

// Add registers expr.  It fails with DuplicateFunction if the identity is
// taken, MissingForceField or MissingComponent if a referenced component
// does not exist, and Dependency if a referenced expression is not yet
// registered.  A failed Add leaves the registry unchanged.
func (r *Registry) Add(expr Expression, lookup ComponentLookup) error {
	if _, dup := r.infos[expr.ID()]; dup {
		return errors.DuplicateFunction("an expression with this function is already registered").
			WithDetail(expr.ID())
	}
	if err := assertValidComponents(expr, lookup); err != nil {
		return err
	}
	info, err := NewExpressionInfo(expr, r)
	if err != nil {
		return err
	}

	r.infos[expr.ID()] = info
	r.order = append(r.order, expr.ID())
	for _, ffID := range info.ffIDs {
		set, ok := r.dependents[ffID]
		if !ok {
			set = map[string]struct{}{}
			r.dependents[ffID] = set
		}
		set[expr.ID()] = struct{}{}
	}
	return nil
}

func assertValidComponents(expr Expression, lookup ComponentLookup) error {
	for _, c := range expr.components {
		ffID := c.ForceFieldID()
		if !lookup.HasForceField(ffID) {
			return errors.MissingForceField("expression references a forcefield that is not in the set").
				WithDetail(fmt.Sprintf("%s references forcefield %d", expr.ID(), ffID))
		}
		if !lookup.HasComponent(ffID, c.Name()) {
			return errors.MissingComponent("expression references a component the forcefield does not have").
				WithDetail(fmt.Sprintf("%s references %s", expr.ID(), c))
		}
	}
	return nil
}

// Remove unregisters fn.  It is a no-op returning false if fn is not
// registered, and fails with a Dependency error naming every dependent if
// any other expression still needs fn; in that case nothing changes.
func (r *Registry) Remove(fn cas.Function) (bool, error) {
	id := fn.ID()
	if _, ok := r.infos[id]; !ok {
		return false, nil
	}
	var users []string
	for _, other := range r.order {
		if other != id && r.infos[other].DependsOn(id) {
			users = append(users, other)
		}
	}
	if len(users) > 0 {
		return false, errors.Dependency("cannot remove an expression other expressions depend on").
			WithDetail(fmt.Sprintf("%s is needed by %s", id, strings.Join(users, ", ")))
	}
	r.drop(id)
	return true, nil
}

// Take removes and returns fn's expression.  It has the failure modes of
// Remove.
func (r *Registry) Take(fn cas.Function) (Expression, bool, error) {
	info, ok := r.infos[fn.ID()]
	if !ok {
		return Expression{}, false, nil
	}
	if _, err := r.Remove(fn); err != nil {
		return Expression{}, false, err
	}
	return info.expr, true, nil
}

// TakeAll empties the registry and returns its expressions in registration
// order.  Removal runs newest first, which never trips the dependency guard
// because dependencies are always registered before their users.
func (r *Registry) TakeAll() ([]Expression, error) {
	out := r.Expressions()
	for i := len(r.order) - 1; i >= 0; i-- {
		if _, err := r.Remove(r.infos[r.order[i]].expr.fn); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SetTotal designates expr as the total energy, registering it first if it
// is not yet registered.
func (r *Registry) SetTotal(expr Expression, lookup ComponentLookup) error {
	existing, ok := r.infos[expr.ID()]
	if !ok {
		if err := r.Add(expr, lookup); err != nil {
			return err
		}
	} else if !existing.expr.Equal(expr) {
		return errors.DuplicateFunction("a different expression is registered under this function").
			WithDetail(expr.ID())
	}
	r.total = expr.ID()
	return nil
}

// ClearTotal removes the total designation without unregistering anything.
func (r *Registry) ClearTotal() { r.total = "" }

// RemoveForceField unregisters every expression whose closure includes
// ffID, without the dependency guard: once a forcefield is gone nothing
// that reads it can be evaluated.  It returns the removed identities in
// registration order.
func (r *Registry) RemoveForceField(ffID forcefield.ID) []string {
	victims := r.dependents[ffID]
	if len(victims) == 0 {
		delete(r.dependents, ffID)
		return nil
	}
	var removed []string
	for _, id := range r.order {
		if _, hit := victims[id]; hit {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		r.drop(id)
	}
	delete(r.dependents, ffID)
	return removed
}

func (r *Registry) drop(id string) {
	info := r.infos[id]
	for _, ffID := range info.ffIDs {
		set := r.dependents[ffID]
		delete(set, id)
		if len(set) == 0 {
			delete(r.dependents, ffID)
		}
	}
	delete(r.infos, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	if r.total == id {
		r.total = ""
	}
}

// Clone returns an independent copy.  Expressions and infos are immutable
// and shared.
func (r *Registry) Clone() *Registry {
	out := &Registry{
		infos:      make(map[string]ExpressionInfo, len(r.infos)),
		order:      append([]string(nil), r.order...),
		dependents: make(map[forcefield.ID]map[string]struct{}, len(r.dependents)),
		total:      r.total,
	}
	for id, info := range r.infos {
		out.infos[id] = info
	}
	for ffID, set := range r.dependents {
		cp := make(map[string]struct{}, len(set))
		for id := range set {
			cp[id] = struct{}{}
		}
		out.dependents[ffID] = cp
	}
	return out
}

// Equal reports whether r and o register the same expressions in the same
// order with the same total.
func (r *Registry) Equal(o *Registry) bool {
	if r.total != o.total || len(r.order) != len(o.order) {
		return false
	}
	for i, id := range r.order {
		if o.order[i] != id || !r.infos[id].expr.Equal(o.infos[id].expr) {
			return false
		}
	}
	return true
}

//Personal.AI order the ending
