package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/ffengine/internal/domain/energy"
	"github.com/turtacn/ffengine/internal/domain/forcefield"
	"github.com/turtacn/ffengine/internal/domain/forcefields"
	"github.com/turtacn/ffengine/internal/infrastructure/monitoring/logging"
)

// ComponentEnergy is one forcefield component value.
type ComponentEnergy struct {
	ForceField uint64  `json:"forcefield"`
	Name       string  `json:"name"`
	Component  string  `json:"component"`
	Energy     float64 `json:"energy"`
}

// EnergyReport is what energy and snapshot restore print.
type EnergyReport struct {
	Session     string             `json:"session"`
	Total       float64            `json:"total"`
	TotalFn     string             `json:"total_function,omitempty"`
	Expressions map[string]float64 `json:"expressions,omitempty"`
	Components  []ComponentEnergy  `json:"components"`
}

func (r *EnergyReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "session %s\n", r.Session)
	total := "sum of forcefields"
	if r.TotalFn != "" {
		total = r.TotalFn
	}
	fmt.Fprintf(&sb, "total (%s): %.6f\n", total, r.Total)
	for _, id := range sortedKeys(r.Expressions) {
		fmt.Fprintf(&sb, "  %s = %.6f\n", id, r.Expressions[id])
	}
	for _, c := range r.Components {
		fmt.Fprintf(&sb, "  FF %d (%s) %s = %.6f\n", c.ForceField, c.Name, c.Component, c.Energy)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (r *EnergyReport) TableHeaders() []string {
	return []string{"FUNCTION", "ENERGY"}
}

func (r *EnergyReport) TableRows() [][]string {
	rows := [][]string{{"total", formatEnergy(r.Total)}}
	for _, id := range sortedKeys(r.Expressions) {
		rows = append(rows, []string{id, formatEnergy(r.Expressions[id])})
	}
	for _, c := range r.Components {
		rows = append(rows, []string{energy.NewComponent(forcefield.ID(c.ForceField), c.Component).Function().ID(), formatEnergy(c.Energy)})
	}
	return rows
}

func formatEnergy(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

// buildReport evaluates every registered expression and every forcefield
// component of set.
func buildReport(id string, set *forcefields.Set) (*EnergyReport, error) {
	total, err := set.TotalEnergy()
	if err != nil {
		return nil, err
	}
	r := &EnergyReport{Session: id, Total: total, Expressions: map[string]float64{}}
	if fn, ok := set.Total(); ok {
		r.TotalFn = fn.ID()
	}
	for _, expr := range set.Expressions() {
		v, err := set.Energy(expr.Function())
		if err != nil {
			return nil, err
		}
		r.Expressions[expr.ID()] = v
	}
	for _, ffID := range set.ForceFieldIDs() {
		ff, err := set.ForceField(ffID)
		if err != nil {
			return nil, err
		}
		for _, name := range ff.Components() {
			v, err := set.Energy(energy.NewComponent(ffID, name).Function())
			if err != nil {
				return nil, err
			}
			r.Components = append(r.Components, ComponentEnergy{
				ForceField: uint64(ffID), Name: ff.Name(), Component: name, Energy: v,
			})
		}
	}
	sort.SliceStable(r.Components, func(i, j int) bool {
		if r.Components[i].ForceField != r.Components[j].ForceField {
			return r.Components[i].ForceField < r.Components[j].ForceField
		}
		return r.Components[i].Component < r.Components[j].Component
	})
	return r, nil
}

// loadSession opens session id and builds the system at path into it.
func loadSession(ctx context.Context, rt *Runtime, id, path string) error {
	sys, err := LoadSystem(path)
	if err != nil {
		return err
	}
	if err := rt.Sessions.Open(ctx, id); err != nil {
		return err
	}
	return rt.Sessions.Do(ctx, id, func(set *forcefields.Set) error {
		return sys.Apply(set, rt.Config.Engine)
	})
}

func reportSession(ctx context.Context, rt *Runtime, id string) (*EnergyReport, error) {
	var report *EnergyReport
	err := rt.Sessions.View(ctx, id, func(set *forcefields.Set) error {
		var err error
		report, err = buildReport(id, set)
		return err
	})
	return report, err
}

// NewEnergyCmd creates the energy command.
func NewEnergyCmd() *cobra.Command {
	var (
		sessionID string
		save      bool
	)
	cmd := &cobra.Command{
		Use:   "energy SYSTEM",
		Short: "Evaluate the energies of a system description",
		Long: "Build the forcefields and expressions described in SYSTEM and print the total\n" +
			"energy, every registered expression and every forcefield component.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(rt *Runtime) error {
				ctx := cmd.Context()
				if err := loadSession(ctx, rt, sessionID, args[0]); err != nil {
					return err
				}
				report, err := reportSession(ctx, rt, sessionID)
				if err != nil {
					return err
				}
				if save {
					if err := rt.Sessions.Save(ctx, sessionID); err != nil {
						return err
					}
					rt.Logger.Info("energy snapshot stored", logging.String(logging.FieldSession, sessionID))
				}
				return PrintResult(cmd, report)
			})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "default", "session id (also the snapshot key with --save)")
	cmd.Flags().BoolVar(&save, "save", false, "store a snapshot of the built set")
	return cmd
}

// ValidationReport summarises a built system.
type ValidationReport struct {
	File        string   `json:"file"`
	ForceFields int      `json:"forcefields"`
	Molecules   int      `json:"molecules"`
	Expressions []string `json:"expressions"`
	Total       string   `json:"total,omitempty"`
	Consistent  bool     `json:"consistent"`
}

func (v *ValidationReport) String() string {
	total := v.Total
	if total == "" {
		total = "(sum of forcefields)"
	}
	return fmt.Sprintf("%s: %d forcefields, %d molecules, %d expressions, total %s, consistent=%t",
		v.File, v.ForceFields, v.Molecules, len(v.Expressions), total, v.Consistent)
}

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate SYSTEM",
		Short: "Check that a system description builds into a consistent set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(rt *Runtime) error {
				ctx := cmd.Context()
				if err := loadSession(ctx, rt, "validate", args[0]); err != nil {
					return err
				}
				report := &ValidationReport{File: args[0]}
				err := rt.Sessions.View(ctx, "validate", func(set *forcefields.Set) error {
					if err := set.CheckConsistency(); err != nil {
						return err
					}
					report.Consistent = true
					report.ForceFields = set.NumForceFields()
					report.Molecules = set.MoleculeIndex().Len()
					for _, e := range set.Expressions() {
						report.Expressions = append(report.Expressions, e.ID())
					}
					if fn, ok := set.Total(); ok {
						report.Total = fn.ID()
					}
					return nil
				})
				if err != nil {
					return err
				}
				return PrintResult(cmd, report)
			})
		},
	}
}

//Personal.AI order the ending
