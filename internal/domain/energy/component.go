// Package energy holds the energy-expression machinery of a forcefield set:
// forcefield components encoded as symbolic functions, named expressions
// over them, the eagerly resolved dependency information for each
// registered expression, the registry that owns them, and the memoised
// energy cache.
package energy

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/turtacn/ffengine/internal/cas"
	"github.com/turtacn/ffengine/internal/domain/forcefield"
	"github.com/turtacn/ffengine/pkg/errors"
)

// componentPattern matches E^{FF:<uid>}_{<name>}.
var componentPattern = regexp.MustCompile(`^E\^\{FF:([0-9]+)\}_\{(.+)\}$`)

// Component is one named energy output of one forcefield, encoded as the
// function E^{FF:<uid>}_{<name>}.
type Component struct {
	fn cas.Function
}

// NewComponent returns the canonical component function for (ffID, name).
func NewComponent(ffID forcefield.ID, name string, args ...cas.Symbol) Component {
	return Component{fn: cas.Fn(fmt.Sprintf("E^{FF:%d}_{%s}", ffID, name), args...)}
}

// ComponentFromFunction interprets fn as a component.  It fails with an
// Incompatible error if fn does not follow the component encoding, or if
// expectedName is non-empty and differs from the decoded name.
func ComponentFromFunction(fn cas.Function, expectedName string) (Component, error) {
	m := componentPattern.FindStringSubmatch(fn.Name())
	if m == nil {
		return Component{}, errors.Incompatible("function is not a forcefield component").
			WithDetail(fmt.Sprintf("%q does not match E^{FF:<uid>}_{<name>}", fn.ID()))
	}
	if _, err := strconv.ParseUint(m[1], 10, 64); err != nil {
		return Component{}, errors.Incompatible("forcefield component has an invalid forcefield ID").
			WithDetail(fn.ID())
	}
	if expectedName != "" && m[2] != expectedName {
		return Component{}, errors.Incompatible("forcefield component has the wrong name").
			WithDetail(fmt.Sprintf("%q is not a %q component", fn.ID(), expectedName))
	}
	return Component{fn: fn}, nil
}

// ParseComponent reports whether fn is a component function.
func ParseComponent(fn cas.Function) (Component, bool) {
	c, err := ComponentFromFunction(fn, "")
	return c, err == nil
}

// Function returns the symbolic function standing for this component.
func (c Component) Function() cas.Function { return c.fn }

// ForceFieldID decodes the forcefield ID.
func (c Component) ForceFieldID() forcefield.ID {
	m := c.decode()
	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		panic(errors.ProgramBug("component function has an unparseable forcefield ID").WithDetail(c.fn.ID()))
	}
	return forcefield.ID(id)
}

// Name decodes the component name.
func (c Component) Name() string { return c.decode()[2] }

func (c Component) String() string { return c.fn.ID() }

func (c Component) decode() []string {
	m := componentPattern.FindStringSubmatch(c.fn.Name())
	if m == nil {
		panic(errors.ProgramBug("component function does not match its encoding").WithDetail(c.fn.ID()))
	}
	return m
}

//Personal.AI order the ending
