package forcefields

import (
	"sort"

	"github.com/turtacn/ffengine/internal/domain/forcefield"
	"github.com/turtacn/ffengine/internal/domain/molecule"
)

// MoleculeIndex maps each molecule to the forcefields holding it.  A
// molecule is present iff at least one forcefield holds it.
type MoleculeIndex struct {
	m map[molecule.ID]map[forcefield.ID]struct{}
}

// NewMoleculeIndex returns an empty index.
func NewMoleculeIndex() *MoleculeIndex {
	return &MoleculeIndex{m: map[molecule.ID]map[forcefield.ID]struct{}{}}
}

// BuildMoleculeIndex derives the index from forcefield contents alone.
func BuildMoleculeIndex(ffs map[forcefield.ID]forcefield.ForceField) *MoleculeIndex {
	idx := NewMoleculeIndex()
	for ffID, ff := range ffs {
		for _, molID := range ff.MoleculeIDs() {
			idx.Add(molID, ffID)
		}
	}
	return idx
}

func (x *MoleculeIndex) Add(mol molecule.ID, ff forcefield.ID) {
	set, ok := x.m[mol]
	if !ok {
		set = map[forcefield.ID]struct{}{}
		x.m[mol] = set
	}
	set[ff] = struct{}{}
}

// Remove drops ff from mol's entry, pruning the entry when it empties.
func (x *MoleculeIndex) Remove(mol molecule.ID, ff forcefield.ID) {
	set, ok := x.m[mol]
	if !ok {
		return
	}
	delete(set, ff)
	if len(set) == 0 {
		delete(x.m, mol)
	}
}

func (x *MoleculeIndex) Contains(mol molecule.ID) bool {
	_, ok := x.m[mol]
	return ok
}

// ForceFieldsOf lists, sorted, the forcefields holding mol.
func (x *MoleculeIndex) ForceFieldsOf(mol molecule.ID) []forcefield.ID {
	set := x.m[mol]
	out := make([]forcefield.ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MoleculeIDs lists the indexed molecules, sorted.
func (x *MoleculeIndex) MoleculeIDs() []molecule.ID {
	out := make([]molecule.ID, 0, len(x.m))
	for id := range x.m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (x *MoleculeIndex) Len() int { return len(x.m) }

func (x *MoleculeIndex) Clone() *MoleculeIndex {
	out := &MoleculeIndex{m: make(map[molecule.ID]map[forcefield.ID]struct{}, len(x.m))}
	for mol, set := range x.m {
		cp := make(map[forcefield.ID]struct{}, len(set))
		for id := range set {
			cp[id] = struct{}{}
		}
		out.m[mol] = cp
	}
	return out
}

func (x *MoleculeIndex) Equal(o *MoleculeIndex) bool {
	if len(x.m) != len(o.m) {
		return false
	}
	for mol, set := range x.m {
		other, ok := o.m[mol]
		if !ok || len(other) != len(set) {
			return false
		}
		for id := range set {
			if _, ok := other[id]; !ok {
				return false
			}
		}
	}
	return true
}

//Personal.AI order the ending
