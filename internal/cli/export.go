package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		generated bool
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump a graph document as JSON",
		Long:  "Writes the main (or generated) graph document as JSON for external visualization tools.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			store := a.mainGraph
			if generated {
				store = a.genGraph
			}

			w := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outPath, err)
				}
				defer f.Close()
				w = f
			}

			if err := store.Export(w); err != nil {
				return fmt.Errorf("export graph: %w", err)
			}
			if outPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&generated, "generated", false, "export the generated graph instead of the main graph")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to a file instead of stdout")

	return cmd
}
