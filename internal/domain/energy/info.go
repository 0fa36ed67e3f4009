package energy

import (
	"fmt"
	"strings"

	"github.com/turtacn/ffengine/internal/domain/forcefield"
	"github.com/turtacn/ffengine/pkg/errors"
)

// ExpressionInfo is the resolved form of a registered expression: the
// expressions it needs, ordered so that evaluating them front to back never
// meets an unbound dependency, and every forcefield it transitively reads.
// It is computed once at registration and never updated.
type ExpressionInfo struct {
	expr  Expression
	deps  []Expression
	ffIDs []forcefield.ID
}

// NewExpressionInfo resolves expr against the expressions already in reg.
// Every dependency must be registered; otherwise a Dependency error lists all
// of the missing ones.
func NewExpressionInfo(expr Expression, reg *Registry) (ExpressionInfo, error) {
	var missing []string
	for _, dep := range expr.deps {
		if _, ok := reg.infos[dep.ID()]; !ok {
			missing = append(missing, dep.ID())
		}
	}
	if len(missing) > 0 {
		return ExpressionInfo{}, errors.Dependency("expression depends on unregistered functions").
			WithDetail(fmt.Sprintf("%s needs %s", expr.ID(), strings.Join(missing, ", ")))
	}

	ffs := map[forcefield.ID]struct{}{}
	for _, id := range expr.ffIDs {
		ffs[id] = struct{}{}
	}
	seen := map[string]struct{}{}
	var ordered []Expression
	push := func(e Expression) {
		if _, dup := seen[e.ID()]; dup {
			return
		}
		seen[e.ID()] = struct{}{}
		ordered = append(ordered, e)
	}
	for _, dep := range expr.deps {
		info := reg.infos[dep.ID()]
		for _, d := range info.deps {
			push(d)
		}
		push(info.expr)
		for _, id := range info.ffIDs {
			ffs[id] = struct{}{}
		}
	}

	return ExpressionInfo{expr: expr, deps: ordered, ffIDs: sortedIDs(ffs)}, nil
}

// Expression returns the expression this info describes.
func (i ExpressionInfo) Expression() Expression { return i.expr }

// Dependencies returns the dependency expressions in evaluation order.
func (i ExpressionInfo) Dependencies() []Expression {
	return append([]Expression(nil), i.deps...)
}

// ForceFieldIDs returns the transitive forcefield closure, sorted.
func (i ExpressionInfo) ForceFieldIDs() []forcefield.ID {
	return append([]forcefield.ID(nil), i.ffIDs...)
}

// DependsOn reports whether id is among the dependencies.
func (i ExpressionInfo) DependsOn(id string) bool {
	for _, d := range i.deps {
		if d.ID() == id {
			return true
		}
	}
	return false
}

// Touches reports whether ffID is in the forcefield closure.
func (i ExpressionInfo) Touches(ffID forcefield.ID) bool {
	for _, id := range i.ffIDs {
		if id == ffID {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
