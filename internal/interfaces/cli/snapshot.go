package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewSnapshotCmd creates the snapshot command group.
func NewSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage stored forcefield set snapshots",
		Long:  "Save, restore, list and delete encoded forcefield sets in the configured snapshot store.",
	}
	cmd.AddCommand(
		newSnapshotSaveCmd(),
		newSnapshotRestoreCmd(),
		newSnapshotListCmd(),
		newSnapshotDeleteCmd(),
	)
	return cmd
}

func newSnapshotSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save KEY SYSTEM",
		Short: "Build SYSTEM and store it under KEY",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(rt *Runtime) error {
				ctx := cmd.Context()
				if err := loadSession(ctx, rt, args[0], args[1]); err != nil {
					return err
				}
				if err := rt.Sessions.Save(ctx, args[0]); err != nil {
					return err
				}
				PrintSuccess(cmd, "snapshot "+args[0]+" saved")
				return nil
			})
		},
	}
}

func newSnapshotRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore KEY",
		Short: "Restore the snapshot stored under KEY and print its energies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(rt *Runtime) error {
				ctx := cmd.Context()
				if err := rt.Sessions.Restore(ctx, args[0]); err != nil {
					return err
				}
				report, err := reportSession(ctx, rt, args[0])
				if err != nil {
					return err
				}
				return PrintResult(cmd, report)
			})
		},
	}
}

// SnapshotList is the output of snapshot list.
type SnapshotList struct {
	Keys []string `json:"keys"`
}

func (l SnapshotList) String() string {
	if len(l.Keys) == 0 {
		return "no snapshots"
	}
	return strings.Join(l.Keys, "\n")
}

func (l SnapshotList) TableHeaders() []string { return []string{"KEY"} }

func (l SnapshotList) TableRows() [][]string {
	rows := make([][]string, len(l.Keys))
	for i, k := range l.Keys {
		rows[i] = []string{k}
	}
	return rows
}

func newSnapshotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snapshot keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(rt *Runtime) error {
				keys, err := rt.Sessions.Snapshots(cmd.Context())
				if err != nil {
					return err
				}
				return PrintResult(cmd, SnapshotList{Keys: keys})
			})
		},
	}
}

func newSnapshotDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete KEY",
		Short: "Delete the snapshot stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(rt *Runtime) error {
				if err := rt.Sessions.DeleteSnapshot(cmd.Context(), args[0]); err != nil {
					return err
				}
				PrintSuccess(cmd, "snapshot "+args[0]+" deleted")
				return nil
			})
		},
	}
}

//Personal.AI order the ending
