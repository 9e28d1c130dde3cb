package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lemmanotes/lemma/internal/agi"
	"github.com/lemmanotes/lemma/internal/graph"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	labelStyle = lipgloss.NewStyle().
			Faint(true).
			Width(18)
	valueStyle = lipgloss.NewStyle()
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show graph, index, and sync statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, headerStyle.Render("Lemma Status"))
			fmt.Fprintln(out)
			fmt.Fprintf(out, "%s%s\n", labelStyle.Render("Notes directory"), valueStyle.Render(a.cfg.NotesDirectory))

			printGraph(out, "Main graph", a.mainGraph)
			printGraph(out, "Generated graph", a.genGraph)

			state := agi.LoadSyncState(a.cfg.SyncStatePath())
			synced, unsynced := 0, 0
			for _, done := range state.Files {
				if done {
					synced++
				} else {
					unsynced++
				}
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, headerStyle.Render("Chunking"))
			fmt.Fprintf(out, "%s%d\n", labelStyle.Render("Synced"), synced)
			fmt.Fprintf(out, "%s%d\n", labelStyle.Render("Pending"), unsynced)

			if a.cfg.AGI.Enabled {
				index, err := a.openIndex()
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "open vector index: %v\n", err)
					return nil
				}
				defer index.Close()
				count, err := index.Count(a.cfg.GeneratedDir())
				if err == nil {
					fmt.Fprintln(out)
					fmt.Fprintln(out, headerStyle.Render("Vector Index"))
					fmt.Fprintf(out, "%s%d\n", labelStyle.Render("Records"), count)
				}
			}
			return nil
		},
	}
}

func printGraph(out io.Writer, title string, store *graph.Store) {
	doc := store.Document()
	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render(title))
	fmt.Fprintf(out, "%s%d\n", labelStyle.Render("Nodes"), len(doc.Nodes))
	fmt.Fprintf(out, "%s%d\n", labelStyle.Render("Links"), len(doc.Links))

	byType := make(map[graph.NoteType]int)
	for _, n := range doc.Nodes {
		byType[n.Type]++
	}
	if len(byType) > 0 {
		types := make([]string, 0, len(byType))
		for t := range byType {
			types = append(types, string(t))
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(out, "%s%d\n", labelStyle.Render("  "+t), byType[graph.NoteType(t)])
		}
	}
}
