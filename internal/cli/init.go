package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/lemmanotes/lemma/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the Lemma configuration interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractiveInit(cmd)
		},
	}
}

// runInteractiveInit walks the user through configuration and writes
// ~/.lemma/config.yaml.
func runInteractiveInit(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	var (
		notesDir    string
		llmProvider = "local"
		apiKey      string
		model       string
		localModel  = "llama3.1"
		agiEnabled  = true
		chunking    = true
		liveMode    bool
		confirm     bool
	)
	if home, err := os.UserHomeDir(); err == nil {
		notesDir = home + "/notes"
	}

	providerOptions := []huh.Option[string]{
		huh.NewOption("Local (Ollama-compatible)", "local"),
		huh.NewOption("Anthropic API", "anthropic"),
		huh.NewOption("Google Gemini", "gemini"),
	}

	form := huh.NewForm(
		// Group 1: Notes
		huh.NewGroup(
			huh.NewInput().
				Title("Notes directory").
				Description("Directory containing your markdown notes").
				Value(&notesDir).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("notes directory cannot be empty")
					}
					return nil
				}),
		).Title("Notes"),

		// Group 2: LLM Provider
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("LLM provider").
				Options(providerOptions...).
				Value(&llmProvider),
		).Title("LLM Configuration"),

		// Group 2a: API key (hidden for local)
		huh.NewGroup(
			huh.NewInput().
				Title("API key").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
			huh.NewInput().
				Title("Model").
				Placeholder("provider default").
				Value(&model),
		).Title("Provider Credentials").
			WithHideFunc(func() bool { return llmProvider == "local" }),

		// Group 2b: Local model (hidden unless local)
		huh.NewGroup(
			huh.NewInput().
				Title("Local model").
				Description("Model served by your local endpoint (port 11434)").
				Value(&localModel),
		).Title("Local Model").
			WithHideFunc(func() bool { return llmProvider != "local" }),

		// Group 3: AI features
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable AI features?").
				Description("Mirrors notes into a generated collection with chunking and search").
				Value(&agiEnabled).
				Affirmative("Yes").
				Negative("No"),
			huh.NewConfirm().
				Title("Enable note chunking?").
				Description("Splits notes into linked chunk files using the LLM").
				Value(&chunking).
				Affirmative("Yes").
				Negative("No"),
			huh.NewConfirm().
				Title("Enable live synthesis?").
				Description("Autonomously writes new notes connecting existing ones").
				Value(&liveMode).
				Affirmative("Yes").
				Negative("No"),
		).Title("AI Features"),

		// Group 4: Confirm
		huh.NewGroup(
			huh.NewNote().
				Title("Summary").
				DescriptionFunc(func() string {
					return fmt.Sprintf(
						"Notes:      %s\n"+
							"LLM:        %s\n"+
							"AI:         %v (chunking %v, live %v)",
						notesDir, llmProvider, agiEnabled, chunking, liveMode,
					)
				}, &notesDir),
			huh.NewConfirm().
				Title("Write configuration?").
				Value(&confirm).
				Affirmative("Write").
				Negative("Cancel"),
		).Title("Confirm"),
	).WithTheme(huh.ThemeCharm())

	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
		return fmt.Errorf("interactive init: %w", err)
	}
	if !confirm {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}

	cfg := &config.Config{
		NotesDirectory: notesDir,
		LLM: config.LLMConfig{
			Provider: llmProvider,
			APIKey:   apiKey,
			Model:    model,
		},
		AGI: config.AGIConfig{
			Enabled:        agiEnabled,
			EnableChunking: chunking,
			EnableLiveMode: liveMode,
		},
		Local: config.LocalConfig{
			Enabled: llmProvider == "local",
			Port:    11434,
			Model:   localModel,
		},
		Embedding: config.EmbeddingConfig{
			Provider: "ollama",
			Endpoint: "http://localhost:11434",
			Model:    "embeddinggemma",
		},
		Live: config.LiveConfig{
			PollIntervalSeconds:          5,
			MinGenerationIntervalSeconds: 300,
			NotesPerSynthesis:            3,
		},
	}

	if err := os.MkdirAll(notesDir, 0755); err != nil {
		return fmt.Errorf("create notes directory: %w", err)
	}

	configPath := config.DefaultConfigPath()
	if err := config.WriteConfig(cfg, configPath); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	fmt.Fprintf(out, "Created %s\n", configPath)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Put markdown notes in", notesDir)
	fmt.Fprintln(out, "  2. Run 'lemma sync' to build the graph")
	if agiEnabled {
		fmt.Fprintln(out, "  3. Run 'lemma agi' to build the generated collection")
		fmt.Fprintln(out, "  4. Run 'lemma watch' to keep everything in sync")
	} else {
		fmt.Fprintln(out, "  3. Run 'lemma watch' to keep the graph in sync")
	}

	return nil
}
