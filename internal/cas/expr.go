// Package cas is the small symbolic kernel the energy engine builds on.
//
// Expressions are immutable trees of numbers, symbols, named functions,
// sums, products and powers.  A Function is a named placeholder that
// depends on a list of symbols (its arguments); forcefield components and
// user-named energy expressions are both Functions, and an expression is
// evaluated by binding every free symbol and function in a Values table.
package cas

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/ffengine/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Core interface
// ─────────────────────────────────────────────────────────────────────────────

// Expr is a node of an expression tree.
type Expr interface {
	// String renders the expression in a stable, human-readable form.
	String() string
	// Evaluate computes the numeric value with every free symbol and function
	// resolved from values.
	Evaluate(values Values) (float64, error)
	// Equal reports structural equality.
	Equal(other Expr) bool

	kind() exprKind
}

type exprKind uint8

const (
	kindNumber exprKind = iota + 1
	kindSymbol
	kindFunction
	kindAdd
	kindMul
	kindPow
)

// ─────────────────────────────────────────────────────────────────────────────
// Number
// ─────────────────────────────────────────────────────────────────────────────

// Number is a numeric constant.
type Number float64

// N returns the constant v.
func N(v float64) Number { return Number(v) }

func (n Number) String() string                   { return strconv.FormatFloat(float64(n), 'g', -1, 64) }
func (n Number) Evaluate(Values) (float64, error) { return float64(n), nil }
func (n Number) kind() exprKind                   { return kindNumber }

func (n Number) Equal(other Expr) bool {
	o, ok := other.(Number)
	return ok && (n == o || (math.IsNaN(float64(n)) && math.IsNaN(float64(o))))
}

// ─────────────────────────────────────────────────────────────────────────────
// Symbol
// ─────────────────────────────────────────────────────────────────────────────

// Symbol is a free variable identified by name.
type Symbol struct{ name string }

// S returns the symbol called name.
func S(name string) Symbol { return Symbol{name: name} }

func (s Symbol) Name() string   { return s.name }
func (s Symbol) String() string { return s.name }
func (s Symbol) Key() string    { return s.name }
func (s Symbol) kind() exprKind { return kindSymbol }

func (s Symbol) Equal(other Expr) bool {
	o, ok := other.(Symbol)
	return ok && s.name == o.name
}

func (s Symbol) Evaluate(values Values) (float64, error) {
	if v, ok := values[s.name]; ok {
		return v, nil
	}
	return 0, errors.MissingFunction("unbound symbol").WithDetail(s.name)
}

// ─────────────────────────────────────────────────────────────────────────────
// Function
// ─────────────────────────────────────────────────────────────────────────────

// Function is a named placeholder depending on a list of argument symbols.
// Its identity is ID(): the bare name when it has no arguments, otherwise
// "name(a,b,...)".
type Function struct {
	name string
	args []Symbol
}

// Fn returns the function called name with the given arguments.
func Fn(name string, args ...Symbol) Function {
	cp := make([]Symbol, len(args))
	copy(cp, args)
	return Function{name: name, args: cp}
}

func (f Function) Name() string { return f.name }

// Args returns a copy of the argument symbols.
func (f Function) Args() []Symbol {
	cp := make([]Symbol, len(f.args))
	copy(cp, f.args)
	return cp
}

// IsZero reports whether f is the zero Function.
func (f Function) IsZero() bool { return f.name == "" && len(f.args) == 0 }

// ID returns the identity string used as the function's key.
func (f Function) ID() string {
	if len(f.args) == 0 {
		return f.name
	}
	parts := make([]string, len(f.args))
	for i, a := range f.args {
		parts[i] = a.name
	}
	return f.name + "(" + strings.Join(parts, ",") + ")"
}

func (f Function) Key() string    { return f.ID() }
func (f Function) String() string { return f.ID() }
func (f Function) kind() exprKind { return kindFunction }

func (f Function) Equal(other Expr) bool {
	o, ok := other.(Function)
	return ok && f.ID() == o.ID()
}

func (f Function) Evaluate(values Values) (float64, error) {
	if v, ok := values[f.ID()]; ok {
		return v, nil
	}
	return 0, errors.MissingFunction("unbound function").WithDetail(f.ID())
}

// ─────────────────────────────────────────────────────────────────────────────
// Add
// ─────────────────────────────────────────────────────────────────────────────

// Add is a sum of terms.
type Add struct{ terms []Expr }

// AddOf returns the sum of terms.  Nested sums are flattened and numeric
// constants folded; a single remaining term is returned unwrapped.
func AddOf(terms ...Expr) Expr {
	flat := make([]Expr, 0, len(terms))
	constant := 0.0
	for _, t := range terms {
		switch v := t.(type) {
		case *Add:
			for _, inner := range v.terms {
				if n, ok := inner.(Number); ok {
					constant += float64(n)
					continue
				}
				flat = append(flat, inner)
			}
		case Number:
			constant += float64(v)
		default:
			flat = append(flat, t)
		}
	}
	if constant != 0 || len(flat) == 0 {
		flat = append(flat, Number(constant))
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &Add{terms: flat}
}

// SubOf returns a - b.
func SubOf(a, b Expr) Expr { return AddOf(a, MulOf(N(-1), b)) }

// Terms returns the summands.
func (a *Add) Terms() []Expr { return append([]Expr(nil), a.terms...) }

func (a *Add) kind() exprKind { return kindAdd }

func (a *Add) String() string {
	parts := make([]string, len(a.terms))
	for i, t := range a.terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " + ")
}

func (a *Add) Evaluate(values Values) (float64, error) {
	acc := 0.0
	for _, t := range a.terms {
		v, err := t.Evaluate(values)
		if err != nil {
			return 0, err
		}
		acc += v
	}
	return acc, nil
}

func (a *Add) Equal(other Expr) bool {
	o, ok := other.(*Add)
	return ok && equalSlices(a.terms, o.terms)
}

// ─────────────────────────────────────────────────────────────────────────────
// Mul
// ─────────────────────────────────────────────────────────────────────────────

// Mul is a product of factors.
type Mul struct{ factors []Expr }

// MulOf returns the product of factors, flattening nested products and
// folding numeric constants.  A zero constant collapses the product to 0.
func MulOf(factors ...Expr) Expr {
	flat := make([]Expr, 0, len(factors))
	coeff := 1.0
	for _, f := range factors {
		switch v := f.(type) {
		case *Mul:
			for _, inner := range v.factors {
				if n, ok := inner.(Number); ok {
					coeff *= float64(n)
					continue
				}
				flat = append(flat, inner)
			}
		case Number:
			coeff *= float64(v)
		default:
			flat = append(flat, f)
		}
	}
	if coeff == 0 {
		return N(0)
	}
	if coeff != 1 || len(flat) == 0 {
		flat = append([]Expr{Number(coeff)}, flat...)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &Mul{factors: flat}
}

// Factors returns the multiplicands.
func (m *Mul) Factors() []Expr { return append([]Expr(nil), m.factors...) }

func (m *Mul) kind() exprKind { return kindMul }

func (m *Mul) String() string {
	parts := make([]string, len(m.factors))
	for i, f := range m.factors {
		if _, sum := f.(*Add); sum {
			parts[i] = "(" + f.String() + ")"
		} else {
			parts[i] = f.String()
		}
	}
	return strings.Join(parts, "*")
}

func (m *Mul) Evaluate(values Values) (float64, error) {
	acc := 1.0
	for _, f := range m.factors {
		v, err := f.Evaluate(values)
		if err != nil {
			return 0, err
		}
		acc *= v
	}
	return acc, nil
}

func (m *Mul) Equal(other Expr) bool {
	o, ok := other.(*Mul)
	return ok && equalSlices(m.factors, o.factors)
}

// ─────────────────────────────────────────────────────────────────────────────
// Pow
// ─────────────────────────────────────────────────────────────────────────────

// Pow is base raised to exp.
type Pow struct{ base, exp Expr }

// PowOf returns base^exp, folding x^0, x^1 and constant^constant.
func PowOf(base, exp Expr) Expr {
	if e, ok := exp.(Number); ok {
		switch float64(e) {
		case 0:
			return N(1)
		case 1:
			return base
		}
		if b, ok := base.(Number); ok {
			return N(math.Pow(float64(b), float64(e)))
		}
	}
	return &Pow{base: base, exp: exp}
}

func (p *Pow) Base() Expr     { return p.base }
func (p *Pow) Exp() Expr      { return p.exp }
func (p *Pow) kind() exprKind { return kindPow }

func (p *Pow) String() string {
	wrap := func(e Expr) string {
		switch e.(type) {
		case *Add, *Mul, *Pow:
			return "(" + e.String() + ")"
		}
		return e.String()
	}
	return wrap(p.base) + "^" + wrap(p.exp)
}

func (p *Pow) Evaluate(values Values) (float64, error) {
	b, err := p.base.Evaluate(values)
	if err != nil {
		return 0, err
	}
	e, err := p.exp.Evaluate(values)
	if err != nil {
		return 0, err
	}
	return math.Pow(b, e), nil
}

func (p *Pow) Equal(other Expr) bool {
	o, ok := other.(*Pow)
	return ok && p.base.Equal(o.base) && p.exp.Equal(o.exp)
}

// ─────────────────────────────────────────────────────────────────────────────
// Tree walks
// ─────────────────────────────────────────────────────────────────────────────

// Symbols returns the free symbols of e, sorted by name.  Arguments of
// functions count as free symbols.
func Symbols(e Expr) []Symbol {
	seen := map[string]struct{}{}
	walk(e, func(n Expr) {
		switch v := n.(type) {
		case Symbol:
			seen[v.name] = struct{}{}
		case Function:
			for _, a := range v.args {
				seen[a.name] = struct{}{}
			}
		}
	})
	out := make([]Symbol, 0, len(seen))
	for name := range seen {
		out = append(out, Symbol{name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Functions returns the distinct functions referenced by e, sorted by ID.
func Functions(e Expr) []Function {
	seen := map[string]Function{}
	walk(e, func(n Expr) {
		if f, ok := n.(Function); ok {
			seen[f.ID()] = f
		}
	})
	out := make([]Function, 0, len(seen))
	for _, f := range seen {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func walk(e Expr, visit func(Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch v := e.(type) {
	case *Add:
		for _, t := range v.terms {
			walk(t, visit)
		}
	case *Mul:
		for _, f := range v.factors {
			walk(f, visit)
		}
	case *Pow:
		walk(v.base, visit)
		walk(v.exp, visit)
	}
}

func equalSlices(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

//Personal.AI order the ending
