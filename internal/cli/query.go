package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lemmanotes/lemma/internal/vecindex"
)

func newQueryCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Search indexed notes",
		Long: `Search the vector index of generated notes.

Modes:
  text        substring match over note content (default)
  similarity  embedding nearest-neighbor search
  tag         notes containing #<text>`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			qm := vecindex.ParseMode(mode)

			index, err := a.openIndex()
			if err != nil {
				return fmt.Errorf("open vector index: %w", err)
			}
			defer index.Close()

			query := strings.Join(args, " ")
			records, err := index.QueryNotes(cmd.Context(), a.cfg.GeneratedDir(), query, qm)
			if err != nil {
				return fmt.Errorf("query notes: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No matches.")
				return nil
			}
			for _, rec := range records {
				fmt.Fprintf(out, "%s  [%s]\n", rec.FilePath, rec.Type)
				if verbose {
					fmt.Fprintf(out, "    %s\n", snippet(rec.Content, 120))
				}
			}
			fmt.Fprintf(out, "\n%d match(es)\n", len(records))
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "text", "query mode: text, similarity, or tag")

	return cmd
}

// snippet returns the first line of content, truncated to max runes.
func snippet(content string, max int) string {
	line := content
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	runes := []rune(line)
	if len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return line
}
