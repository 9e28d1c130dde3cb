package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lemmanotes/lemma/pkg/llm"
)

func newAgiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agi",
		Short: "Run the AI sync pipeline (mirror, chunk, index)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if !a.cfg.AGI.Enabled {
				return fmt.Errorf("AI features are disabled; set agi.enabled in the config")
			}

			index, err := a.openIndex()
			if err != nil {
				return fmt.Errorf("open vector index: %w", err)
			}
			defer index.Close()

			var client llm.Client
			if a.cfg.AGI.EnableChunking {
				client, err = a.newLLMClient()
				if err != nil {
					return fmt.Errorf("create LLM client: %w", err)
				}
				defer client.Close()
			}

			engine := a.newAgiEngine(index, client)
			if err := engine.SyncAll(cmd.Context()); err != nil {
				return fmt.Errorf("agi sync: %w", err)
			}

			count, _ := index.Count(a.cfg.GeneratedDir())
			fmt.Fprintf(cmd.OutOrStdout(), "Synced generated notes under %s (%d indexed records)\n",
				a.cfg.GeneratedDir(), count)
			return nil
		},
	}
}
