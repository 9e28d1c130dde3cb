package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lemmanotes/lemma/internal/graphsync"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the main graph with the notes directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			engine := graphsync.New(a.main, a.mainGraph, logf(), verbose)
			if err := engine.SyncGraphWithFiles(); err != nil {
				return fmt.Errorf("sync graph: %w", err)
			}

			doc := a.mainGraph.Document()
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %s: %d nodes, %d links\n",
				a.cfg.NotesDirectory, len(doc.Nodes), len(doc.Links))
			return nil
		},
	}
}
