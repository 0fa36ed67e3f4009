package energy

import (
	"sort"

	"github.com/turtacn/ffengine/internal/cas"
	"github.com/turtacn/ffengine/internal/domain/forcefield"
	"github.com/turtacn/ffengine/pkg/errors"
)

// Expression is an immutable, named energy expression.  Its Function is the
// identity under which it is registered and the symbol other expressions use
// to depend on it.
type Expression struct {
	fn   cas.Function
	expr cas.Expr
	bare bool

	ffIDs      []forcefield.ID
	components []Component
	deps       []cas.Function
}

// ExpressionOf wraps a single function.  A component function depends on
// its forcefield; any other function depends on itself being registered.
func ExpressionOf(fn cas.Function) Expression {
	e := Expression{fn: fn, expr: fn, bare: true}
	e.classify([]cas.Function{fn})
	return e
}

// NewExpression names expr.  The resulting function takes as arguments
// every free symbol of expr, including the arguments of the functions it
// references, in name order.
func NewExpression(name string, expr cas.Expr) (Expression, error) {
	if name == "" {
		return Expression{}, errors.InvalidArgument("an energy expression needs a non-empty name")
	}
	if expr == nil {
		return Expression{}, errors.InvalidArgument("an energy expression needs an expression").WithDetail(name)
	}
	e := Expression{fn: cas.Fn(name, cas.Symbols(expr)...), expr: expr}
	e.classify(cas.Functions(expr))
	return e, nil
}

func (e *Expression) classify(fns []cas.Function) {
	ids := map[forcefield.ID]struct{}{}
	for _, fn := range fns {
		if c, ok := ParseComponent(fn); ok {
			e.components = append(e.components, c)
			ids[c.ForceFieldID()] = struct{}{}
			continue
		}
		e.deps = append(e.deps, fn)
	}
	e.ffIDs = sortedIDs(ids)
}

// Function is the expression's identity.
func (e Expression) Function() cas.Function { return e.fn }

// ID is shorthand for Function().ID().
func (e Expression) ID() string { return e.fn.ID() }

// Expr returns the underlying symbolic expression.
func (e Expression) Expr() cas.Expr { return e.expr }

// IsBare reports whether e was built by ExpressionOf.
func (e Expression) IsBare() bool { return e.bare }

// ForceFieldIDs lists the forcefields e references directly, sorted.
func (e Expression) ForceFieldIDs() []forcefield.ID {
	return append([]forcefield.ID(nil), e.ffIDs...)
}

// Components lists the component functions e references, sorted by ID.
func (e Expression) Components() []Component {
	return append([]Component(nil), e.components...)
}

// Dependencies lists the non-component functions e references, sorted by ID.
func (e Expression) Dependencies() []cas.Function {
	return append([]cas.Function(nil), e.deps...)
}

// Evaluate computes e from values.  Every component and dependency must be
// bound.
func (e Expression) Evaluate(values cas.Values) (float64, error) {
	return e.expr.Evaluate(values)
}

// Equal reports whether both the identity and the expression match.
func (e Expression) Equal(o Expression) bool {
	if e.fn.ID() != o.fn.ID() {
		return false
	}
	if e.expr == nil || o.expr == nil {
		return e.expr == nil && o.expr == nil
	}
	return e.expr.Equal(o.expr)
}

func (e Expression) String() string {
	if e.bare {
		return e.fn.ID()
	}
	return e.fn.ID() + " = " + e.expr.String()
}

func sortedIDs(set map[forcefield.ID]struct{}) []forcefield.ID {
	out := make([]forcefield.ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

//Personal.AI order the ending
