package cli

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/ffengine/internal/cas"
	"github.com/turtacn/ffengine/internal/config"
	"github.com/turtacn/ffengine/internal/domain/energy"
	"github.com/turtacn/ffengine/internal/domain/forcefield"
	"github.com/turtacn/ffengine/internal/domain/forcefields"
	"github.com/turtacn/ffengine/internal/domain/molecule"
	"github.com/turtacn/ffengine/pkg/errors"
)

// System is the YAML description of a forcefield set:
//
//	parameters: {lambda: 0.5}
//	molecules:
//	  - id: 1
//	    name: NA
//	    atoms: [{name: NA, element: Na, charge: 1, sigma: 2.35, epsilon: 0.13, position: [0, 0, 0]}]
//	forcefields:
//	  - id: 1
//	    name: solvent
//	    mode: inter
//	    properties: {cutoff: 12}
//	    members: [{molecule: 1, group: all}]
//	expressions:
//	  - name: scaled
//	    terms: [{forcefield: 1, component: coul, scale: 0.5, parameter: lambda}]
//	total:
//	  name: total
//	  terms: [{expression: scaled}, {forcefield: 1, component: lj}]
type System struct {
	Parameters  map[string]float64 `yaml:"parameters"`
	Molecules   []MoleculeSpec     `yaml:"molecules"`
	ForceFields []ForceFieldSpec   `yaml:"forcefields"`
	Expressions []ExpressionSpec   `yaml:"expressions"`
	Total       *ExpressionSpec    `yaml:"total"`
}

type AtomSpec struct {
	Name     string     `yaml:"name"`
	Element  string     `yaml:"element"`
	Charge   float64    `yaml:"charge"`
	Sigma    float64    `yaml:"sigma"`
	Epsilon  float64    `yaml:"epsilon"`
	Position [3]float64 `yaml:"position"`
}

type MoleculeSpec struct {
	ID    uint64     `yaml:"id"`
	Name  string     `yaml:"name"`
	Atoms []AtomSpec `yaml:"atoms"`
}

type MemberSpec struct {
	Molecule    uint64   `yaml:"molecule"`
	Group       string   `yaml:"group"`
	ChargeScale *float64 `yaml:"charge_scale"`
	LJScale     *float64 `yaml:"lj_scale"`
}

type ForceFieldSpec struct {
	ID         uint64             `yaml:"id"`
	Name       string             `yaml:"name"`
	Mode       string             `yaml:"mode"`
	Properties map[string]float64 `yaml:"properties"`
	Members    []MemberSpec       `yaml:"members"`
}

// TermSpec is scale × parameter × f, where f is either a forcefield
// component or a previously declared expression.
type TermSpec struct {
	ForceField uint64   `yaml:"forcefield"`
	Component  string   `yaml:"component"`
	Expression string   `yaml:"expression"`
	Scale      *float64 `yaml:"scale"`
	Parameter  string   `yaml:"parameter"`
}

type ExpressionSpec struct {
	Name  string     `yaml:"name"`
	Terms []TermSpec `yaml:"terms"`
}

// LoadSystem reads and parses a system description file.
func LoadSystem(path string) (*System, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidParam, "failed to read system description").WithDetail(path)
	}
	return ParseSystem(data)
}

func ParseSystem(data []byte) (*System, error) {
	var sys System
	if err := yaml.Unmarshal(data, &sys); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "invalid system description")
	}
	if len(sys.ForceFields) == 0 {
		return nil, errors.InvalidArgument("system description declares no forcefields")
	}
	return &sys, nil
}

// Apply builds the described forcefields and expressions into set.
// Engine defaults supply the forcefield mode, properties and parameters the
// description leaves out.
func (sys *System) Apply(set *forcefields.Set, eng config.EngineConfig) error {
	for _, name := range sortedKeys(eng.Parameters) {
		set.SetParameter(cas.S(name), eng.Parameters[name])
	}
	for _, name := range sortedKeys(sys.Parameters) {
		set.SetParameter(cas.S(name), sys.Parameters[name])
	}

	mols := make(map[uint64]molecule.Molecule, len(sys.Molecules))
	for _, ms := range sys.Molecules {
		if _, dup := mols[ms.ID]; dup {
			return errors.InvalidArgument("duplicate molecule id").WithDetail(fmt.Sprint(ms.ID))
		}
		atoms := make([]molecule.Atom, len(ms.Atoms))
		for i, a := range ms.Atoms {
			atoms[i] = molecule.Atom{
				Name: a.Name, Element: a.Element,
				Charge: a.Charge, Sigma: a.Sigma, Epsilon: a.Epsilon,
				Position: molecule.Vector{X: a.Position[0], Y: a.Position[1], Z: a.Position[2]},
			}
		}
		m, err := molecule.New(molecule.ID(ms.ID), ms.Name, atoms)
		if err != nil {
			return err
		}
		mols[ms.ID] = m
	}

	for _, fs := range sys.ForceFields {
		ff, err := fs.build(mols, eng)
		if err != nil {
			return err
		}
		if err := set.Add(ff); err != nil {
			return err
		}
	}

	declared := map[string]energy.Expression{}
	for _, es := range sys.Expressions {
		expr, err := es.build(declared)
		if err != nil {
			return err
		}
		if err := set.AddExpression(expr); err != nil {
			return err
		}
		declared[es.Name] = expr
	}
	if sys.Total != nil {
		expr, err := sys.Total.build(declared)
		if err != nil {
			return err
		}
		if err := set.SetTotal(expr); err != nil {
			return err
		}
	}
	return nil
}

func (fs ForceFieldSpec) build(mols map[uint64]molecule.Molecule, eng config.EngineConfig) (*forcefield.CLJ, error) {
	modeName := fs.Mode
	if modeName == "" {
		modeName = eng.Mode
	}
	mode, err := forcefield.ParseMode(modeName)
	if err != nil {
		return nil, err
	}
	ff, err := forcefield.NewCLJ(forcefield.ID(fs.ID), fs.Name, mode)
	if err != nil {
		return nil, err
	}

	props := map[string]float64{}
	if eng.Cutoff > 0 {
		props[forcefield.PropertyCutoff] = eng.Cutoff
	}
	if eng.CoulombConstant > 0 {
		props[forcefield.PropertyCoulombConstant] = eng.CoulombConstant
	}
	for k, v := range fs.Properties {
		props[k] = v
	}
	for _, name := range sortedKeys(props) {
		if _, err := ff.SetProperty(name, props[name]); err != nil {
			return nil, err
		}
	}

	for _, m := range fs.Members {
		mol, ok := mols[m.Molecule]
		if !ok {
			return nil, errors.InvalidArgument("forcefield member references an undeclared molecule").
				WithDetail(fmt.Sprintf("forcefield %d, molecule %d", fs.ID, m.Molecule))
		}
		group := m.Group
		if group == "" {
			group = ff.Groups()[0]
		}
		params := forcefield.ParameterMap{}
		if m.ChargeScale != nil {
			params[forcefield.ParamChargeScale] = *m.ChargeScale
		}
		if m.LJScale != nil {
			params[forcefield.ParamLJScale] = *m.LJScale
		}
		if err := ff.AddTo(group, mol, params); err != nil {
			return nil, err
		}
	}
	return ff, nil
}

func (es ExpressionSpec) build(declared map[string]energy.Expression) (energy.Expression, error) {
	if len(es.Terms) == 0 {
		return energy.Expression{}, errors.InvalidArgument("expression has no terms").WithDetail(es.Name)
	}
	terms := make([]cas.Expr, 0, len(es.Terms))
	for _, t := range es.Terms {
		var fn cas.Function
		switch {
		case t.Expression != "" && t.Component != "":
			return energy.Expression{}, errors.InvalidArgument("a term names either a component or an expression").WithDetail(es.Name)
		case t.Expression != "":
			ref, ok := declared[t.Expression]
			if !ok {
				return energy.Expression{}, errors.MissingFunction("term references an undeclared expression").WithDetail(t.Expression)
			}
			fn = ref.Function()
		case t.Component != "":
			fn = energy.NewComponent(forcefield.ID(t.ForceField), t.Component).Function()
		default:
			return energy.Expression{}, errors.InvalidArgument("term needs a component or an expression").WithDetail(es.Name)
		}

		factors := []cas.Expr{fn}
		if t.Scale != nil {
			factors = append(factors, cas.N(*t.Scale))
		}
		if t.Parameter != "" {
			factors = append(factors, cas.S(t.Parameter))
		}
		terms = append(terms, cas.MulOf(factors...))
	}
	return energy.NewExpression(es.Name, cas.AddOf(terms...))
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

//Personal.AI order the ending
