package cas

import "sort"

// Keyed is anything that can be bound in a Values table: a Symbol (keyed by
// name) or a Function (keyed by ID).
type Keyed interface {
	Key() string
}

// Values binds symbols and functions to numbers.
type Values map[string]float64

// Set binds k to v and returns the receiver for chaining.
func (v Values) Set(k Keyed, val float64) Values {
	v[k.Key()] = val
	return v
}

// Get returns the value bound to k.
func (v Values) Get(k Keyed) (float64, bool) {
	val, ok := v[k.Key()]
	return val, ok
}

// Clone returns an independent copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Keys returns the bound keys, sorted.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

//Personal.AI order the ending
