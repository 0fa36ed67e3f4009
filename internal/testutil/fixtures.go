package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/ffengine/internal/cas"
	"github.com/turtacn/ffengine/internal/domain/energy"
	"github.com/turtacn/ffengine/internal/domain/forcefield"
	"github.com/turtacn/ffengine/internal/domain/molecule"
)

// Ion returns a one-atom molecule with the given charge at pos.
func Ion(t testing.TB, id molecule.ID, charge float64, pos molecule.Vector) molecule.Molecule {
	t.Helper()
	m, err := molecule.New(id, "ION", []molecule.Atom{
		{Name: "X", Element: "X", Charge: charge, Sigma: 3.0, Epsilon: 0.1, Position: pos},
	})
	require.NoError(t, err)
	return m
}

// CLJ returns an inter-mode forcefield holding mols in GroupAll.
func CLJ(t testing.TB, id forcefield.ID, mols ...molecule.Molecule) *forcefield.CLJ {
	t.Helper()
	ff, err := forcefield.NewCLJ(id, "ff", forcefield.ModeInter)
	require.NoError(t, err)
	for _, m := range mols {
		require.NoError(t, ff.AddTo(forcefield.GroupAll, m, nil))
	}
	return ff
}

// Component is the function of component name on forcefield ff.
func Component(ff forcefield.ID, name string) cas.Function {
	return energy.NewComponent(ff, name).Function()
}

//Personal.AI order the ending
