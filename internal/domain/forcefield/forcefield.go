// Package forcefield defines the ForceField contract the forcefield set
// drives, the version stamps forcefields carry, and CLJ, a Coulomb plus
// Lennard-Jones forcefield used as the production implementation.
package forcefield

import (
	"fmt"
	"sync/atomic"

	"github.com/turtacn/ffengine/internal/domain/molecule"
)

// ID identifies a forcefield within a set.  Zero is never a valid ID.
type ID uint64

// ─────────────────────────────────────────────────────────────────────────────
// Version stamps
// ─────────────────────────────────────────────────────────────────────────────

// Version is a (major, minor) stamp.  Major changes when the set of
// molecules or the properties change; minor changes when only molecule
// coordinates change.  Equal stamps on forcefields with equal IDs mean
// equal content.
type Version struct {
	Major uint64
	Minor uint64
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// stamps is the process-wide source of version numbers.  Majors and minors
// both draw from it, so two forcefields carry the same stamp only when one
// is a copy of the other.
var stamps atomic.Uint64

func nextMajor() Version { return Version{Major: stamps.Add(1)} }

func nextMinor(major uint64) Version { return Version{Major: major, Minor: stamps.Add(1)} }

// observe keeps decoded stamps from being handed out again.
func observe(seen Version) {
	top := seen.Major
	if seen.Minor > top {
		top = seen.Minor
	}
	for {
		cur := stamps.Load()
		if top <= cur || stamps.CompareAndSwap(cur, top) {
			return
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Contract
// ─────────────────────────────────────────────────────────────────────────────

// ParameterMap carries per-molecule options for AddTo, keyed by parameter
// name.
type ParameterMap map[string]float64

// ForceField computes named energy components for the molecules it holds.
// Implementations are mutable; the forcefield set owns the values it is
// given and clones them when it needs a snapshot.
type ForceField interface {
	ID() ID
	Name() string
	Version() Version

	// Components lists the names of the energy components, sorted.
	Components() []string
	// Energy returns the value of one component.
	Energy(component string) (float64, error)
	// Energies returns every component value keyed by name.
	Energies() map[string]float64
	// TotalEnergy is the sum of all components.
	TotalEnergy() float64

	// MoleculeIDs lists the molecules held, sorted.
	MoleculeIDs() []molecule.ID
	Contains(id molecule.ID) bool
	Molecule(id molecule.ID) (molecule.Molecule, error)

	// ChangeMolecule replaces a held molecule with another version of it.
	// It returns false when the molecule is not held or is already at that
	// version.
	ChangeMolecule(mol molecule.Molecule) (bool, error)
	ChangeMolecules(mols []molecule.Molecule) (bool, error)

	AddTo(group string, mol molecule.Molecule, params ParameterMap) error
	RemoveFrom(group string, id molecule.ID) (bool, error)

	SetProperty(name string, value float64) (bool, error)
	Property(name string) (float64, error)
	ContainsProperty(name string) bool

	// MustNowRecalculateFromScratch drops any internally cached energies.
	MustNowRecalculateFromScratch()

	Clone() ForceField
}

//Personal.AI order the ending
