// Package molecule provides the versioned molecule value type that
// forcefields hold.  A Molecule is immutable: every edit returns a copy
// carrying a fresh version drawn from one process-wide counter, so two
// molecules with equal IDs and versions always have equal content.
package molecule

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/turtacn/ffengine/pkg/errors"
)

// ID identifies a molecule across every forcefield of a set.
type ID uint64

// Version is an edit stamp.  Stamps increase monotonically within a process.
type Version uint64

// ─────────────────────────────────────────────────────────────────────────────
// Atoms
// ─────────────────────────────────────────────────────────────────────────────

// Vector is a Cartesian position in Ångström.
type Vector struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Add returns v + o.
func (v Vector) Add(o Vector) Vector { return Vector{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Distance returns |v - o|.
func (v Vector) Distance(o Vector) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Atom carries the per-atom parameters a Coulomb/Lennard-Jones forcefield
// needs.  Charge is in units of e, Sigma in Å and Epsilon in kcal/mol.
type Atom struct {
	Name     string  `json:"name" yaml:"name"`
	Element  string  `json:"element" yaml:"element"`
	Charge   float64 `json:"charge" yaml:"charge"`
	Sigma    float64 `json:"sigma" yaml:"sigma"`
	Epsilon  float64 `json:"epsilon" yaml:"epsilon"`
	Position Vector  `json:"position" yaml:"position"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Version stamps
// ─────────────────────────────────────────────────────────────────────────────

// stamps is the process-wide source of molecule versions.  New and every
// edit draw from it, so two molecules share a version only when one is a
// copy of the other.
var stamps atomic.Uint64

func nextVersion() Version { return Version(stamps.Add(1)) }

// Observe makes sure no version at or below v is handed out again.  Decoders
// call it for every version they read.
func Observe(v Version) {
	for {
		cur := stamps.Load()
		if uint64(v) <= cur || stamps.CompareAndSwap(cur, uint64(v)) {
			return
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Molecule
// ─────────────────────────────────────────────────────────────────────────────

// Molecule is an immutable, versioned collection of atoms.
type Molecule struct {
	id      ID
	version Version
	name    string
	atoms   []Atom
}

// New creates the first version of a molecule.  The ID must be non-zero and the
// molecule must have at least one atom.
func New(id ID, name string, atoms []Atom) (Molecule, error) {
	if id == 0 {
		return Molecule{}, errors.New(errors.CodeMoleculeInvalid, "molecule ID must be non-zero")
	}
	if len(atoms) == 0 {
		return Molecule{}, errors.New(errors.CodeMoleculeInvalid, "molecule has no atoms").
			WithDetail(fmt.Sprintf("molecule %d", id))
	}
	return Molecule{
		id:      id,
		version: nextVersion(),
		name:    name,
		atoms:   cloneAtoms(atoms),
	}, nil
}

func (m Molecule) ID() ID           { return m.id }
func (m Molecule) Version() Version { return m.version }
func (m Molecule) Name() string     { return m.name }
func (m Molecule) NumAtoms() int    { return len(m.atoms) }

// IsZero reports whether m is the zero Molecule.
func (m Molecule) IsZero() bool { return m.id == 0 }

// Atoms returns a copy of the atoms.
func (m Molecule) Atoms() []Atom { return cloneAtoms(m.atoms) }

// Atom returns the i'th atom.
func (m Molecule) Atom(i int) Atom { return m.atoms[i] }

// Update returns a new version of m with the given atoms.
func (m Molecule) Update(atoms []Atom) (Molecule, error) {
	if m.IsZero() {
		return Molecule{}, errors.New(errors.CodeMoleculeInvalid, "cannot update the null molecule")
	}
	if len(atoms) == 0 {
		return Molecule{}, errors.New(errors.CodeMoleculeInvalid, "molecule has no atoms").
			WithDetail(fmt.Sprintf("molecule %d", m.id))
	}
	out := m
	out.atoms = cloneAtoms(atoms)
	out.version = nextVersion()
	return out, nil
}

// Translate returns a new version of m with every atom moved by d.
func (m Molecule) Translate(d Vector) Molecule {
	atoms := cloneAtoms(m.atoms)
	for i := range atoms {
		atoms[i].Position = atoms[i].Position.Add(d)
	}
	out := m
	out.atoms = atoms
	out.version = nextVersion()
	return out
}

// Rename returns a new version of m called name.
func (m Molecule) Rename(name string) Molecule {
	out := m
	out.atoms = cloneAtoms(m.atoms)
	out.name = name
	out.version = nextVersion()
	return out
}

// Equal reports whether m and o are the same version of the same molecule
// with identical content.
func (m Molecule) Equal(o Molecule) bool {
	if m.id != o.id || m.version != o.version || m.name != o.name || len(m.atoms) != len(o.atoms) {
		return false
	}
	for i := range m.atoms {
		if m.atoms[i] != o.atoms[i] {
			return false
		}
	}
	return true
}

func (m Molecule) String() string {
	return fmt.Sprintf("Molecule(%d:%s @v%d)", m.id, m.name, m.version)
}

func cloneAtoms(atoms []Atom) []Atom {
	out := make([]Atom, len(atoms))
	copy(out, atoms)
	return out
}

//Personal.AI order the ending
