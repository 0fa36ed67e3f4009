package forcefield

import (
	"fmt"
	"math"
	"sort"

	"github.com/turtacn/ffengine/internal/domain/molecule"
	"github.com/turtacn/ffengine/pkg/errors"
)

// Mode selects which molecule pairs a CLJ forcefield sums over.
type Mode uint8

const (
	// ModeInter sums over every pair of distinct molecules in GroupAll.
	ModeInter Mode = iota + 1
	// ModeInterGroup sums over pairs with one molecule in GroupA and the
	// other in GroupB.
	ModeInterGroup
)

func (m Mode) String() string {
	switch m {
	case ModeInter:
		return "inter"
	case ModeInterGroup:
		return "intergroup"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode converts "inter" or "intergroup" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "inter":
		return ModeInter, nil
	case "intergroup":
		return ModeInterGroup, nil
	}
	return 0, errors.InvalidArgument("unknown forcefield mode").WithDetail(s)
}

// Group names.
const (
	GroupAll = "all"
	GroupA   = "A"
	GroupB   = "B"
)

// Component names.
const (
	ComponentCoulomb = "coul"
	ComponentLJ      = "lj"
)

// Property names and defaults.
const (
	PropertyCutoff          = "cutoff"
	PropertyCoulombConstant = "coulomb_constant"

	DefaultCutoff = 15.0
	// DefaultCoulombConstant is 1/(4πε0) in kcal·Å/(mol·e²).
	DefaultCoulombConstant = 332.0637
)

// AddTo parameter names.
const (
	ParamChargeScale = "charge_scale"
	ParamLJScale     = "lj_scale"
)

type member struct {
	mol         molecule.Molecule
	group       string
	chargeScale float64
	ljScale     float64
}

// CLJ is a Coulomb plus Lennard-Jones forcefield with a plain distance
// cutoff and Lorentz-Berthelot mixing.  Only intermolecular pairs are
// counted.
type CLJ struct {
	id       ID
	name     string
	mode     Mode
	version Version

	groups  map[string][]molecule.ID
	members map[molecule.ID]member

	cutoff          float64
	coulombConstant float64

	cached map[string]float64
}

var _ ForceField = (*CLJ)(nil)

// NewCLJ creates an empty forcefield with a fresh major version.
func NewCLJ(id ID, name string, mode Mode) (*CLJ, error) {
	if id == 0 {
		return nil, errors.InvalidArgument("forcefield ID must be non-zero")
	}
	if mode != ModeInter && mode != ModeInterGroup {
		return nil, errors.InvalidArgument("unknown forcefield mode").WithDetail(mode.String())
	}
	return &CLJ{
		id:              id,
		name:            name,
		mode:            mode,
		version:         nextMajor(),
		groups:          map[string][]molecule.ID{},
		members:         map[molecule.ID]member{},
		cutoff:          DefaultCutoff,
		coulombConstant: DefaultCoulombConstant,
	}, nil
}

func (c *CLJ) ID() ID           { return c.id }
func (c *CLJ) Name() string     { return c.name }
func (c *CLJ) Version() Version { return c.version }
func (c *CLJ) Mode() Mode       { return c.mode }

// Groups returns the group names valid for this forcefield's mode.
func (c *CLJ) Groups() []string {
	if c.mode == ModeInterGroup {
		return []string{GroupA, GroupB}
	}
	return []string{GroupAll}
}

// GroupMolecules lists the molecules in group, in insertion order.
func (c *CLJ) GroupMolecules(group string) []molecule.ID {
	return append([]molecule.ID(nil), c.groups[group]...)
}

func (c *CLJ) Components() []string { return []string{ComponentCoulomb, ComponentLJ} }

// ─────────────────────────────────────────────────────────────────────────────
// Energies
// ─────────────────────────────────────────────────────────────────────────────

func (c *CLJ) Energy(component string) (float64, error) {
	e := c.energies()
	v, ok := e[component]
	if !ok {
		return 0, errors.MissingComponent("forcefield has no such component").
			WithDetail(fmt.Sprintf("forcefield %d (%s): %q", c.id, c.name, component))
	}
	return v, nil
}

func (c *CLJ) Energies() map[string]float64 {
	e := c.energies()
	out := make(map[string]float64, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

func (c *CLJ) TotalEnergy() float64 {
	e := c.energies()
	return e[ComponentCoulomb] + e[ComponentLJ]
}

func (c *CLJ) MustNowRecalculateFromScratch() { c.cached = nil }

func (c *CLJ) energies() map[string]float64 {
	if c.cached != nil {
		return c.cached
	}
	var coul, lj float64
	for _, p := range c.pairs() {
		dc, dl := c.pairEnergy(c.members[p[0]], c.members[p[1]])
		coul += dc
		lj += dl
	}
	c.cached = map[string]float64{ComponentCoulomb: coul, ComponentLJ: lj}
	return c.cached
}

func (c *CLJ) pairs() [][2]molecule.ID {
	var out [][2]molecule.ID
	switch c.mode {
	case ModeInter:
		ids := c.groups[GroupAll]
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				out = append(out, [2]molecule.ID{ids[i], ids[j]})
			}
		}
	case ModeInterGroup:
		for _, a := range c.groups[GroupA] {
			for _, b := range c.groups[GroupB] {
				out = append(out, [2]molecule.ID{a, b})
			}
		}
	}
	return out
}

func (c *CLJ) pairEnergy(a, b member) (coul, lj float64) {
	na, nb := a.mol.NumAtoms(), b.mol.NumAtoms()
	for i := 0; i < na; i++ {
		ai := a.mol.Atom(i)
		for j := 0; j < nb; j++ {
			bj := b.mol.Atom(j)
			r := ai.Position.Distance(bj.Position)
			if r == 0 || r > c.cutoff {
				continue
			}
			coul += c.coulombConstant * (ai.Charge * a.chargeScale) * (bj.Charge * b.chargeScale) / r

			sigma := 0.5 * (ai.Sigma + bj.Sigma)
			eps := math.Sqrt(ai.Epsilon*bj.Epsilon) * a.ljScale * b.ljScale
			if sigma == 0 || eps == 0 {
				continue
			}
			sr6 := math.Pow(sigma/r, 6)
			lj += 4 * eps * (sr6*sr6 - sr6)
		}
	}
	return coul, lj
}

// ─────────────────────────────────────────────────────────────────────────────
// Molecules
// ─────────────────────────────────────────────────────────────────────────────

func (c *CLJ) MoleculeIDs() []molecule.ID {
	ids := make([]molecule.ID, 0, len(c.members))
	for id := range c.members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (c *CLJ) Contains(id molecule.ID) bool {
	_, ok := c.members[id]
	return ok
}

func (c *CLJ) Molecule(id molecule.ID) (molecule.Molecule, error) {
	m, ok := c.members[id]
	if !ok {
		return molecule.Molecule{}, errors.New(errors.CodeMoleculeNotFound, "molecule not in forcefield").
			WithDetail(fmt.Sprintf("molecule %d, forcefield %d (%s)", id, c.id, c.name))
	}
	return m.mol, nil
}

func (c *CLJ) checkChange(mol molecule.Molecule) (bool, error) {
	m, ok := c.members[mol.ID()]
	if !ok || m.mol.Version() == mol.Version() {
		return false, nil
	}
	if m.mol.NumAtoms() != mol.NumAtoms() {
		return false, errors.Incompatible("changing the number of atoms requires re-adding the molecule").
			WithDetail(fmt.Sprintf("molecule %d: %d atoms -> %d atoms", mol.ID(), m.mol.NumAtoms(), mol.NumAtoms()))
	}
	return true, nil
}

func (c *CLJ) ChangeMolecule(mol molecule.Molecule) (bool, error) {
	return c.ChangeMolecules([]molecule.Molecule{mol})
}

func (c *CLJ) ChangeMolecules(mols []molecule.Molecule) (bool, error) {
	var todo []molecule.Molecule
	for _, mol := range mols {
		needed, err := c.checkChange(mol)
		if err != nil {
			return false, err
		}
		if needed {
			todo = append(todo, mol)
		}
	}
	if len(todo) == 0 {
		return false, nil
	}
	for _, mol := range todo {
		m := c.members[mol.ID()]
		m.mol = mol
		c.members[mol.ID()] = m
	}
	c.version = nextMinor(c.version.Major)
	c.cached = nil
	return true, nil
}

func (c *CLJ) validGroup(group string) error {
	for _, g := range c.Groups() {
		if g == group {
			return nil
		}
	}
	return errors.InvalidArgument("no such group in forcefield").
		WithDetail(fmt.Sprintf("forcefield %d (%s, %s): group %q", c.id, c.name, c.mode, group))
}

func (c *CLJ) AddTo(group string, mol molecule.Molecule, params ParameterMap) error {
	if err := c.validGroup(group); err != nil {
		return err
	}
	if mol.IsZero() {
		return errors.New(errors.CodeMoleculeInvalid, "cannot add the null molecule")
	}
	m := member{mol: mol, group: group, chargeScale: 1, ljScale: 1}
	for k, v := range params {
		switch k {
		case ParamChargeScale:
			m.chargeScale = v
		case ParamLJScale:
			m.ljScale = v
		default:
			return errors.InvalidArgument("unknown parameter").WithDetail(k)
		}
	}
	if existing, ok := c.members[mol.ID()]; ok {
		if existing.group != group {
			return errors.InvalidArgument("molecule already belongs to another group").
				WithDetail(fmt.Sprintf("molecule %d is in group %q", mol.ID(), existing.group))
		}
		if existing.mol.Version() == mol.Version() && existing.chargeScale == m.chargeScale && existing.ljScale == m.ljScale {
			return nil
		}
	} else {
		c.groups[group] = append(c.groups[group], mol.ID())
	}
	c.members[mol.ID()] = m
	c.version = nextMajor()
	c.cached = nil
	return nil
}

func (c *CLJ) RemoveFrom(group string, id molecule.ID) (bool, error) {
	if err := c.validGroup(group); err != nil {
		return false, err
	}
	m, ok := c.members[id]
	if !ok || m.group != group {
		return false, nil
	}
	delete(c.members, id)
	ids := c.groups[group]
	for i, gid := range ids {
		if gid == id {
			c.groups[group] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(c.groups[group]) == 0 {
		delete(c.groups, group)
	}
	c.version = nextMajor()
	c.cached = nil
	return true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Properties
// ─────────────────────────────────────────────────────────────────────────────

func (c *CLJ) ContainsProperty(name string) bool {
	return name == PropertyCutoff || name == PropertyCoulombConstant
}

func (c *CLJ) Property(name string) (float64, error) {
	switch name {
	case PropertyCutoff:
		return c.cutoff, nil
	case PropertyCoulombConstant:
		return c.coulombConstant, nil
	}
	return 0, errors.MissingProperty("forcefield has no such property").
		WithDetail(fmt.Sprintf("forcefield %d (%s): %q", c.id, c.name, name))
}

func (c *CLJ) SetProperty(name string, value float64) (bool, error) {
	old, err := c.Property(name)
	if err != nil {
		return false, err
	}
	if name == PropertyCutoff && !(value > 0) {
		return false, errors.InvalidArgument("cutoff must be positive").WithDetail(fmt.Sprintf("%g", value))
	}
	if old == value {
		return false, nil
	}
	switch name {
	case PropertyCutoff:
		c.cutoff = value
	case PropertyCoulombConstant:
		c.coulombConstant = value
	}
	c.version = nextMajor()
	c.cached = nil
	return true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Clone
// ─────────────────────────────────────────────────────────────────────────────

func (c *CLJ) Clone() ForceField {
	out := *c
	out.groups = make(map[string][]molecule.ID, len(c.groups))
	for g, ids := range c.groups {
		out.groups[g] = append([]molecule.ID(nil), ids...)
	}
	out.members = make(map[molecule.ID]member, len(c.members))
	for id, m := range c.members {
		out.members[id] = m
	}
	out.cached = nil
	if c.cached != nil {
		out.cached = make(map[string]float64, len(c.cached))
		for k, v := range c.cached {
			out.cached[k] = v
		}
	}
	return &out
}

//Personal.AI order the ending
