package cas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ffengine/pkg/errors"
)

func TestFunction_ID(t *testing.T) {
	assert.Equal(t, "A", Fn("A").ID())
	assert.Equal(t, "A(lambda,x)", Fn("A", S("lambda"), S("x")).ID())
	assert.True(t, Function{}.IsZero())
	assert.False(t, Fn("A").IsZero())
}

func TestFunction_ArgsAreCopied(t *testing.T) {
	args := []Symbol{S("x")}
	f := Fn("f", args...)
	args[0] = S("y")
	assert.Equal(t, "f(x)", f.ID())

	got := f.Args()
	got[0] = S("z")
	assert.Equal(t, "f(x)", f.ID())
}

func TestAddOf_FlattensAndFolds(t *testing.T) {
	x, y := S("x"), S("y")
	e := AddOf(N(1), AddOf(x, N(2)), y)
	add, ok := e.(*Add)
	require.True(t, ok)
	assert.Len(t, add.Terms(), 3)
	assert.Equal(t, "x + y + 3", e.String())

	assert.True(t, AddOf(x).Equal(x))
	assert.True(t, AddOf().Equal(N(0)))
	assert.True(t, AddOf(N(1), N(2)).Equal(N(3)))
}

func TestMulOf_FoldsAndCollapses(t *testing.T) {
	x := S("x")
	assert.True(t, MulOf(N(0), x).Equal(N(0)))
	assert.True(t, MulOf(N(1), x).Equal(x))
	assert.Equal(t, "6*x", MulOf(N(2), MulOf(N(3), x)).String())
	assert.Equal(t, "2*(x + 1)", MulOf(N(2), AddOf(x, N(1))).String())
}

func TestPowOf_Simplifications(t *testing.T) {
	x := S("x")
	assert.True(t, PowOf(x, N(0)).Equal(N(1)))
	assert.True(t, PowOf(x, N(1)).Equal(x))
	assert.True(t, PowOf(N(2), N(3)).Equal(N(8)))
	assert.Equal(t, "x^2", PowOf(x, N(2)).String())
}

func TestEvaluate(t *testing.T) {
	x, lam := S("x"), S("lambda")
	a := Fn("A", lam)
	e := AddOf(MulOf(lam, a), PowOf(x, N(2)), SubOf(N(10), x))

	vals := Values{}.Set(x, 3).Set(lam, 0.5).Set(a, 4)
	got, err := e.Evaluate(vals)
	require.NoError(t, err)
	assert.InDelta(t, 0.5*4+9+10-3, got, 1e-12)
}

func TestEvaluate_UnboundIsMissingFunction(t *testing.T) {
	_, err := AddOf(S("x"), Fn("B")).Evaluate(Values{"x": 1})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMissingFunction))
	assert.Contains(t, err.Error(), "B")

	_, err = S("y").Evaluate(Values{})
	assert.True(t, errors.IsCode(err, errors.CodeMissingFunction))
}

func TestSymbolsAndFunctions(t *testing.T) {
	e := AddOf(Fn("B", S("mu")), MulOf(S("x"), Fn("A", S("lambda"))), Fn("B", S("mu")))

	syms := Symbols(e)
	names := make([]string, len(syms))
	for i, s := range syms {
		names[i] = s.Name()
	}
	assert.Equal(t, []string{"lambda", "mu", "x"}, names)

	fns := Functions(e)
	require.Len(t, fns, 2)
	assert.Equal(t, "A(lambda)", fns[0].ID())
	assert.Equal(t, "B(mu)", fns[1].ID())
}

func TestEqual(t *testing.T) {
	x := S("x")
	assert.True(t, AddOf(x, Fn("A")).Equal(AddOf(x, Fn("A"))))
	assert.False(t, AddOf(x, Fn("A")).Equal(AddOf(Fn("A"), x)))
	assert.False(t, x.Equal(Fn("x", S("y"))))
	assert.True(t, N(math.NaN()).Equal(N(math.NaN())))
}

func TestValues(t *testing.T) {
	v := Values{}.Set(S("b"), 2).Set(Fn("a"), 1)
	assert.Equal(t, []string{"a", "b"}, v.Keys())

	c := v.Clone()
	c["a"] = 5
	got, ok := v.Get(Fn("a"))
	assert.True(t, ok)
	assert.Equal(t, 1.0, got)
}

//Personal.AI order the ending
