package energy

import "github.com/turtacn/ffengine/internal/domain/forcefield"

// SumSlot is the cache key holding the sum of every forcefield's total
// energy, used when no total expression is designated.
const SumSlot = ""

// Cache memoises energies by function identity.
type Cache struct {
	values map[string]float64
}

// NewCache returns an empty cache.
func NewCache() *Cache { return &Cache{values: map[string]float64{}} }

func (c *Cache) Get(id string) (float64, bool) {
	v, ok := c.values[id]
	return v, ok
}

func (c *Cache) Store(id string, v float64) { c.values[id] = v }

func (c *Cache) Remove(id string) { delete(c.values, id) }

func (c *Cache) Len() int { return len(c.values) }

// Invalidate drops every entry whose expression reads ffID, plus the sum
// slot when no total is designated.  It returns how many entries it dropped.
func (c *Cache) Invalidate(ffID forcefield.ID, reg *Registry) int {
	n := 0
	for id := range reg.dependents[ffID] {
		if _, ok := c.values[id]; ok {
			delete(c.values, id)
			n++
		}
	}
	if reg.total == "" {
		if _, ok := c.values[SumSlot]; ok {
			delete(c.values, SumSlot)
			n++
		}
	}
	return n
}

// InvalidateMany is Invalidate for several forcefields.  It stops as soon
// as the cache is empty.
func (c *Cache) InvalidateMany(ffIDs []forcefield.ID, reg *Registry) int {
	n := 0
	for _, id := range ffIDs {
		if len(c.values) == 0 {
			break
		}
		n += c.Invalidate(id, reg)
	}
	return n
}

// InvalidateAll clears the cache.
func (c *Cache) InvalidateAll() int {
	n := len(c.values)
	c.values = map[string]float64{}
	return n
}

// Entries returns a copy of the cached values.
func (c *Cache) Entries() map[string]float64 {
	out := make(map[string]float64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

func (c *Cache) Clone() *Cache {
	return &Cache{values: c.Entries()}
}

//Personal.AI order the ending
