package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lemmanotes/lemma/internal/graphsync"
)

func newNoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Create or delete notes",
	}
	cmd.AddCommand(newNoteNewCmd())
	cmd.AddCommand(newNoteRmCmd())
	return cmd
}

func newNoteNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new <name.md>",
		Short: "Create a note and register it in the graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			path, err := a.main.CreateFile(args[0])
			if err != nil {
				return err
			}

			engine := graphsync.New(a.main, a.mainGraph, logf(), verbose)
			if err := engine.UpdateFileInGraph(args[0]); err != nil {
				return fmt.Errorf("update graph: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}
}

func newNoteRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name.md>",
		Short: "Delete a note and its graph node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			if err := a.main.DeleteFile(args[0]); err != nil {
				return err
			}

			engine := graphsync.New(a.main, a.mainGraph, logf(), verbose)
			if err := engine.UpdateFileInGraph(args[0]); err != nil {
				return fmt.Errorf("update graph: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
