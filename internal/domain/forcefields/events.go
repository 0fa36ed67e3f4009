package forcefields

import (
	"context"
	"time"

	"github.com/turtacn/ffengine/internal/domain/forcefield"
	"github.com/turtacn/ffengine/internal/domain/molecule"
)

// EventKind names a committed mutation.
type EventKind string

const (
	EventForceFieldAdded   EventKind = "forcefield.added"
	EventForceFieldChanged EventKind = "forcefield.changed"
	EventForceFieldRemoved EventKind = "forcefield.removed"
	EventMoleculesChanged  EventKind = "molecules.changed"
	EventMoleculeAdded     EventKind = "molecule.added"
	EventMoleculeRemoved   EventKind = "molecule.removed"
	EventExpressionAdded   EventKind = "expression.added"
	EventExpressionRemoved EventKind = "expression.removed"
	EventTotalChanged      EventKind = "total.changed"
	EventPropertyChanged   EventKind = "property.changed"
	EventParameterChanged  EventKind = "parameter.changed"
	EventRecalculated      EventKind = "recalculated"
)

// ChangeEvent describes one committed mutation of a Set.  Rolled-back
// mutations produce no event.
type ChangeEvent struct {
	Kind          EventKind       `json:"kind"`
	ForceFieldIDs []forcefield.ID `json:"forcefield_ids,omitempty"`
	MoleculeIDs   []molecule.ID   `json:"molecule_ids,omitempty"`
	Functions     []string        `json:"functions,omitempty"`
	Name          string          `json:"name,omitempty"`
	At            time.Time       `json:"at"`
}

// EventPublisher delivers committed events somewhere outside the process.
// The kafka package implements it.
type EventPublisher interface {
	Publish(ctx context.Context, key string, events []ChangeEvent) error
	Close() error
}

// Observer receives engine measurements.  EngineMetrics in the prometheus
// package implements it.
type Observer interface {
	CacheHit()
	CacheMiss()
	Invalidated(n int)
	Evaluated(d time.Duration)
	RolledBack(op string)
	ForceFieldCount(n int)
}

type nopObserver struct{}

func (nopObserver) CacheHit()               {}
func (nopObserver) CacheMiss()              {}
func (nopObserver) Invalidated(int)         {}
func (nopObserver) Evaluated(time.Duration) {}
func (nopObserver) RolledBack(string)       {}
func (nopObserver) ForceFieldCount(int)     {}

//Personal.AI order the ending
