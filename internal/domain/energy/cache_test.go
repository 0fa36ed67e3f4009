package energy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ffengine/internal/cas"
	"github.com/turtacn/ffengine/internal/domain/forcefield"
)

func populated(t *testing.T) (*Cache, *Registry) {
	t.Helper()
	reg := NewRegistry()
	a := mustExpr(t, "A", comp(1, "coul"))
	b := mustExpr(t, "B", comp(2, "lj"))
	require.NoError(t, reg.Add(a, twoForceFields))
	require.NoError(t, reg.Add(b, twoForceFields))
	require.NoError(t, reg.Add(mustExpr(t, "AB", cas.AddOf(a.Function(), b.Function())), twoForceFields))

	c := NewCache()
	c.Store("A", 1)
	c.Store("B", 2)
	c.Store("AB", 3)
	c.Store(SumSlot, 10)
	return c, reg
}

func TestCache_InvalidateDropsClosureAndSumSlot(t *testing.T) {
	c, reg := populated(t)
	n := c.Invalidate(1, reg)
	assert.Equal(t, 3, n)

	_, ok := c.Get("A")
	assert.False(t, ok)
	_, ok = c.Get("AB")
	assert.False(t, ok)
	_, ok = c.Get(SumSlot)
	assert.False(t, ok)
	v, ok := c.Get("B")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
}

func TestCache_InvalidateKeepsSumSlotWhenTotalDesignated(t *testing.T) {
	c, reg := populated(t)
	require.NoError(t, reg.SetTotal(mustExpr(t, "AB", cas.AddOf(cas.Fn("A"), cas.Fn("B"))), twoForceFields))

	c.Invalidate(2, reg)
	_, ok := c.Get(SumSlot)
	assert.True(t, ok)
	_, ok = c.Get("B")
	assert.False(t, ok)
}

func TestCache_InvalidateMany(t *testing.T) {
	c, reg := populated(t)
	n := c.InvalidateMany([]forcefield.ID{1, 2, 3}, reg)
	assert.Equal(t, 4, n)
	assert.Zero(t, c.Len())

	assert.Zero(t, c.InvalidateMany([]forcefield.ID{1}, reg), "empty cache short-circuits")
}

func TestCache_InvalidateAllAndRemove(t *testing.T) {
	c, _ := populated(t)
	c.Remove("A")
	assert.Equal(t, 3, c.Len())

	cl := c.Clone()
	assert.Equal(t, 3, c.InvalidateAll())
	assert.Zero(t, c.Len())
	assert.Equal(t, 3, cl.Len())
	assert.Equal(t, map[string]float64{"B": 2, "AB": 3, SumSlot: 10}, cl.Entries())
}

//Personal.AI order the ending
