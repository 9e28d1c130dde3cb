package cli

import (
	"fmt"
	"os"

	"github.com/lemmanotes/lemma/internal/agi"
	"github.com/lemmanotes/lemma/internal/config"
	"github.com/lemmanotes/lemma/internal/embedding"
	"github.com/lemmanotes/lemma/internal/graph"
	_ "github.com/lemmanotes/lemma/internal/llm" // register providers
	"github.com/lemmanotes/lemma/internal/notes"
	"github.com/lemmanotes/lemma/internal/vecindex"
	"github.com/lemmanotes/lemma/pkg/llm"
)

// app bundles the stores every command operates on.
type app struct {
	cfg       *config.Config
	main      *notes.Store
	gen       *notes.Store
	mainGraph *graph.Store
	genGraph  *graph.Store
}

// loadApp loads and validates configuration and binds the directory-scoped
// stores. Commands that need a notes directory fail here if none is set.
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.NotesDirectory == "" {
		return nil, fmt.Errorf("no notes directory configured; run 'lemma init' first")
	}

	return &app{
		cfg:       cfg,
		main:      notes.NewMain(cfg.NotesDirectory),
		gen:       notes.NewGenerated(cfg.NotesDirectory, config.GeneratedDirName),
		mainGraph: graph.NewStore(cfg.NotesDirectory),
		genGraph:  graph.NewStore(cfg.GeneratedDir()),
	}, nil
}

// logf returns the stderr logger commands inject into the engines, gated on
// the --verbose flag.
func logf() func(format string, args ...any) {
	return func(format string, args ...any) {
		if verbose {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
}

// openIndex opens the vector index with the configured embedding engine.
func (a *app) openIndex() (*vecindex.Index, error) {
	embedder, err := embedding.NewEmbedder(embedding.Config{
		Provider: a.cfg.Embedding.Provider,
		Endpoint: a.cfg.Embedding.Endpoint,
		Model:    a.cfg.Embedding.Model,
		APIKey:   a.cfg.Embedding.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return vecindex.Open(a.cfg.VectorDir(), embedder, logf())
}

// newLLMClient creates the configured chat-completion client.
func (a *app) newLLMClient() (llm.Client, error) {
	return llm.NewClient(llm.Config{
		Provider: a.cfg.LLM.Provider,
		Model:    a.cfg.LLMModel(),
		APIKey:   a.cfg.LLM.APIKey,
		BaseURL:  a.cfg.LLMEndpoint(),
	})
}

// newAgiEngine wires the AGI sync engine. client may be nil when chunking is
// disabled in config.
func (a *app) newAgiEngine(index *vecindex.Index, client llm.Client) *agi.Engine {
	var chunker *agi.Chunker
	if a.cfg.AGI.EnableChunking && client != nil {
		chunker = agi.NewChunker(client, logf())
	}
	return agi.NewEngine(agi.Options{
		Main:      a.main,
		Generated: a.gen,
		Graph:     a.genGraph,
		Vectors:   index,
		Chunker:   chunker,
		StatePath: a.cfg.SyncStatePath(),
		Logger:    logf(),
	})
}
