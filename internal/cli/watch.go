package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lemmanotes/lemma/internal/agi"
	"github.com/lemmanotes/lemma/internal/graphsync"
	"github.com/lemmanotes/lemma/internal/live"
	"github.com/lemmanotes/lemma/internal/vecindex"
	"github.com/lemmanotes/lemma/internal/watcher"
	"github.com/lemmanotes/lemma/pkg/llm"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the notes directory and sync continuously",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			graphEngine := graphsync.New(a.main, a.mainGraph, logf(), verbose)

			var (
				index     *vecindex.Index
				client    llm.Client
				agiEngine *agi.Engine
			)
			if a.cfg.AGI.Enabled {
				index, err = a.openIndex()
				if err != nil {
					return fmt.Errorf("open vector index: %w", err)
				}
				defer index.Close()

				if a.cfg.AGI.EnableChunking || a.cfg.AGI.EnableLiveMode {
					client, err = a.newLLMClient()
					if err != nil {
						return fmt.Errorf("create LLM client: %w", err)
					}
					defer client.Close()
				}
				agiEngine = a.newAgiEngine(index, client)
			}

			// Set up signal handling.
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				fmt.Fprintln(out, "\nShutting down...")
				cancel()
			}()

			// Full sync before watching so the graph starts converged.
			if err := graphEngine.SyncGraphWithFiles(); err != nil {
				return fmt.Errorf("sync graph: %w", err)
			}
			if agiEngine != nil {
				if err := agiEngine.SyncAll(ctx); err != nil {
					return fmt.Errorf("agi sync: %w", err)
				}
			}

			w := watcher.New(a.cfg.NotesDirectory)
			events, err := w.Start(ctx)
			if err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			defer w.Close()

			if a.cfg.AGI.EnableLiveMode && agiEngine != nil {
				selector := live.NewSelector(a.gen, index, nil, logf())
				machine := live.NewMachine(a.gen, agiEngine, client, selector, live.Config{
					MinInterval:       time.Duration(a.cfg.Live.MinGenerationIntervalSeconds) * time.Second,
					NotesPerSynthesis: a.cfg.Live.NotesPerSynthesis,
				}, logf())
				runner := live.NewRunner(machine, time.Duration(a.cfg.Live.PollIntervalSeconds)*time.Second, logf())
				go runner.Run(ctx)
				fmt.Fprintln(out, "Live synthesis enabled")
			}

			fmt.Fprintf(out, "Watching %s\n", a.cfg.NotesDirectory)

			for evt := range events {
				if verbose {
					fmt.Fprintf(out, "  %s %s\n", evt.Op, evt.Name)
				}
				if err := graphEngine.UpdateFileInGraph(evt.Name); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "update graph for %s: %v\n", evt.Name, err)
				}
				if agiEngine != nil {
					if err := agiEngine.UpdateFile(ctx, evt.Name); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "agi update for %s: %v\n", evt.Name, err)
					}
				}
			}
			return nil
		},
	}
}
