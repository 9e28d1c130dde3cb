package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LEMMA_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LLM.Provider != "local" {
		t.Errorf("LLM.Provider = %q, want local", cfg.LLM.Provider)
	}
	if cfg.Local.Port != 11434 {
		t.Errorf("Local.Port = %d, want 11434", cfg.Local.Port)
	}
	if cfg.Embedding.Provider != "ollama" {
		t.Errorf("Embedding.Provider = %q, want ollama", cfg.Embedding.Provider)
	}
	if cfg.Live.NotesPerSynthesis != 3 {
		t.Errorf("Live.NotesPerSynthesis = %d, want 3", cfg.Live.NotesPerSynthesis)
	}
	if cfg.AGI.Enabled {
		t.Error("AGI.Enabled default = true, want false")
	}
	if !cfg.AGI.EnableChunking {
		t.Error("AGI.EnableChunking default = false, want true")
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty is valid", func(c *Config) {}, ""},
		{"valid notes dir", func(c *Config) { c.NotesDirectory = dir }, ""},
		{"missing notes dir", func(c *Config) { c.NotesDirectory = filepath.Join(dir, "gone") }, "notes directory"},
		{"bad llm provider", func(c *Config) { c.LLM.Provider = "openrouter" }, "llm provider"},
		{"bad embedding provider", func(c *Config) { c.Embedding.Provider = "word2vec" }, "embedding provider"},
		{"bad port", func(c *Config) { c.Local.Port = 70000 }, "local port"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("LEMMA_HOME", home)

	notesDir := t.TempDir()
	cfg := &Config{
		NotesDirectory: notesDir,
		LLM:            LLMConfig{Provider: "anthropic", APIKey: "sk-test", Model: "claude"},
		AGI:            AGIConfig{Enabled: true, EnableChunking: true},
		Local:          LocalConfig{Port: 11434, Model: "llama3.1"},
		Embedding:      EmbeddingConfig{Provider: "ollama", Endpoint: "http://localhost:11434", Model: "embeddinggemma"},
		Live:           LiveConfig{PollIntervalSeconds: 5, MinGenerationIntervalSeconds: 300, NotesPerSynthesis: 3},
	}

	if err := WriteConfig(cfg, DefaultConfigPath()); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.NotesDirectory != notesDir {
		t.Errorf("NotesDirectory = %q, want %q", loaded.NotesDirectory, notesDir)
	}
	if loaded.LLM.Provider != "anthropic" || loaded.LLM.Model != "claude" {
		t.Errorf("LLM = %+v, want anthropic/claude", loaded.LLM)
	}
	if !loaded.AGI.Enabled {
		t.Error("AGI.Enabled lost in round trip")
	}
}

func TestDerivedPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("LEMMA_HOME", home)

	cfg := &Config{NotesDirectory: "/tmp/notes"}
	if got, want := cfg.GeneratedDir(), filepath.Join("/tmp/notes", GeneratedDirName); got != want {
		t.Errorf("GeneratedDir = %q, want %q", got, want)
	}
	if got, want := cfg.SyncStatePath(), filepath.Join(home, "sync.state"); got != want {
		t.Errorf("SyncStatePath = %q, want %q", got, want)
	}
	if got, want := cfg.VectorDir(), filepath.Join(home, "vector"); got != want {
		t.Errorf("VectorDir = %q, want %q", got, want)
	}

	empty := &Config{}
	if got := empty.GeneratedDir(); got != "" {
		t.Errorf("GeneratedDir without notes dir = %q, want empty", got)
	}
}

func TestLLMEndpointResolution(t *testing.T) {
	cfg := &Config{
		LLM:   LLMConfig{Provider: "local"},
		Local: LocalConfig{Port: 8080, Model: "llama3.1"},
	}
	if got := cfg.LLMEndpoint(); got != "http://localhost:8080" {
		t.Errorf("LLMEndpoint = %q, want local port", got)
	}
	if got := cfg.LLMModel(); got != "llama3.1" {
		t.Errorf("LLMModel = %q, want local model fallback", got)
	}

	cfg.LLM.Endpoint = "http://other:9999"
	if got := cfg.LLMEndpoint(); got != "http://other:9999" {
		t.Errorf("LLMEndpoint = %q, want explicit override", got)
	}
}
