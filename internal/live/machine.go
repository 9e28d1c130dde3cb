// Package live implements the autonomous synthesis state machine: a polling
// FSM that watches the generated note collection, picks source notes through
// rotating perception modes, and writes new synthesis notes via the LLM.
package live

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/lemmanotes/lemma/internal/notes"
	"github.com/lemmanotes/lemma/pkg/llm"
)

// State is a phase of the synthesis cycle.
type State int

const (
	StateIdle State = iota
	StateExploring
	StateContemplating
	StateSynthesizing
	StateGenerating
	StateCooldown
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExploring:
		return "exploring"
	case StateContemplating:
		return "contemplating"
	case StateSynthesizing:
		return "synthesizing"
	case StateGenerating:
		return "generating"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Thought is one entry in the bounded reasoning history.
type Thought struct {
	Time      time.Time      `json:"time"`
	State     State          `json:"state"`
	Mode      PerceptionMode `json:"mode"`
	Notes     []string       `json:"notes,omitempty"`
	Prompt    string         `json:"prompt,omitempty"`
	Generated string         `json:"generated,omitempty"`
	Reasoning string         `json:"reasoning,omitempty"`
}

// thoughtCap bounds the thought ring; oldest entries are evicted.
const thoughtCap = 100

// cooldownPause is the fixed pause after a successful generation.
const cooldownPause = time.Second

// NoteCreator registers a synthesis note in the generated directory, vector
// index, and generated graph. Satisfied by the AGI engine.
type NoteCreator interface {
	CreateGeneratedNote(ctx context.Context, name, content string) error
}

// Config holds the machine's tunables.
type Config struct {
	// MinInterval scales the idle activation probability: activation reaches
	// full likelihood only once this much time has passed since the last
	// generation.
	MinInterval time.Duration
	// NotesPerSynthesis caps how many source notes feed one synthesis.
	NotesPerSynthesis int
}

// Machine is the synthesis state machine. Tick runs exactly one state
// handler; the caller drives it from a timer. The clock and random source are
// injected so transitions are testable without real time or randomness.
type Machine struct {
	gen      *notes.Store
	creator  NoteCreator
	client   llm.Client
	selector *Selector
	cfg      Config

	rand func() float64
	now  func() time.Time
	log  func(format string, args ...any)

	state          State
	mode           PerceptionMode
	lastGeneration time.Time
	cooldownUntil  time.Time
	selected       []SourceNote
	prompt         string
	thoughts       []Thought
}

// NewMachine creates a machine in the idle state with the random-walk
// perception mode. rand and now may be nil to use real sources.
func NewMachine(gen *notes.Store, creator NoteCreator, client llm.Client, selector *Selector, cfg Config, logger func(format string, args ...any)) *Machine {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 5 * time.Minute
	}
	if cfg.NotesPerSynthesis <= 0 {
		cfg.NotesPerSynthesis = 3
	}
	if logger == nil {
		logger = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	m := &Machine{
		gen:      gen,
		creator:  creator,
		client:   client,
		selector: selector,
		cfg:      cfg,
		rand:     defaultRand,
		now:      time.Now,
		log:      logger,
		state:    StateIdle,
		mode:     ModeRandomWalk,
	}
	return m
}

// SetClock overrides the machine's time source.
func (m *Machine) SetClock(now func() time.Time) { m.now = now }

// SetRand overrides the machine's random source, which must return values in
// [0, 1).
func (m *Machine) SetRand(rand func() float64) { m.rand = rand }

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Mode returns the current perception mode.
func (m *Machine) Mode() PerceptionMode { return m.mode }

// Thoughts returns a copy of the reasoning history, oldest first.
func (m *Machine) Thoughts() []Thought {
	out := make([]Thought, len(m.thoughts))
	copy(out, m.thoughts)
	return out
}

func (m *Machine) think(t Thought) {
	t.Time = m.now()
	t.State = m.state
	t.Mode = m.mode
	m.thoughts = append(m.thoughts, t)
	if len(m.thoughts) > thoughtCap {
		m.thoughts = m.thoughts[len(m.thoughts)-thoughtCap:]
	}
}

// Tick runs the handler for the current state and returns the state the
// machine is in afterwards. Failures quietly return the machine to idle.
func (m *Machine) Tick(ctx context.Context) State {
	switch m.state {
	case StateIdle:
		m.tickIdle()
	case StateExploring:
		m.tickExploring(ctx)
	case StateContemplating:
		m.tickContemplating()
	case StateSynthesizing:
		m.tickSynthesizing()
	case StateGenerating:
		m.tickGenerating(ctx)
	case StateCooldown:
		m.tickCooldown()
	}
	return m.state
}

// tickIdle decides whether to wake up. Activation probability grows with time
// since the last generation and with collection size, capped at 0.9.
func (m *Machine) tickIdle() {
	files, err := m.gen.GetFiles()
	if err != nil || len(files) < 2 {
		return
	}

	elapsed := m.cfg.MinInterval
	if !m.lastGeneration.IsZero() {
		elapsed = m.now().Sub(m.lastGeneration)
	}
	timeFactor := minFloat(float64(elapsed)/float64(m.cfg.MinInterval), 1)
	sizeFactor := minFloat(float64(len(files))/10, 1)
	probability := 0.9 * timeFactor * sizeFactor

	if m.rand() < probability {
		m.state = StateExploring
	}
}

// tickExploring selects source notes with the current perception mode.
func (m *Machine) tickExploring(ctx context.Context) {
	selected := m.selector.Select(ctx, m.mode, m.cfg.NotesPerSynthesis)
	if len(selected) == 0 {
		m.state = StateIdle
		return
	}
	m.selected = selected
	m.think(Thought{
		Notes:     noteNames(selected),
		Reasoning: fmt.Sprintf("selected %d notes via %s", len(selected), m.mode),
	})
	m.state = StateContemplating
}

// tickContemplating judges whether the selection is worth synthesizing. Thin
// selections rotate the perception mode and go back to exploring.
func (m *Machine) tickContemplating() {
	if !worthSynthesizing(m.selected) {
		m.mode = nextMode(m.mode, m.rand())
		m.think(Thought{Reasoning: "selection too thin, rotating perception mode"})
		m.state = StateExploring
		return
	}
	m.state = StateSynthesizing
}

// worthSynthesizing requires at least two notes averaging over 100 characters.
func worthSynthesizing(selected []SourceNote) bool {
	if len(selected) < 2 {
		return false
	}
	total := 0
	for _, n := range selected {
		total += len(n.Content)
	}
	return total/len(selected) > 100
}

const synthesisSystemPrompt = `You are a thoughtful writing partner inside a personal note collection.
Given several source notes, write ONE new note (200-800 words) that connects,
extends, or reframes their ideas. Start with a single markdown heading line
("# Title"). Write in the same voice as the source notes. Do not summarize
them one by one; synthesize.`

// tickSynthesizing builds the synthesis prompt from the selected notes.
func (m *Machine) tickSynthesizing() {
	var b strings.Builder
	b.WriteString("Source notes:\n")
	for _, n := range m.selected {
		b.WriteString(fmt.Sprintf("\n--- %s ---\n%s\n", n.Name, n.Content))
	}
	m.prompt = b.String()
	m.think(Thought{Notes: noteNames(m.selected), Prompt: m.prompt})
	m.state = StateGenerating
}

// tickGenerating invokes the LLM and writes the synthesis note. Empty or
// failed responses return to idle without a cooldown.
func (m *Machine) tickGenerating(ctx context.Context) {
	resp, err := m.client.Chat(ctx, synthesisSystemPrompt, []llm.Message{
		{Role: llm.RoleUser, Content: m.prompt},
	})
	if err != nil || resp == nil || strings.TrimSpace(resp.Content) == "" {
		if err != nil {
			m.log("synthesis failed: %v", err)
		}
		m.reset(StateIdle)
		return
	}

	content := strings.TrimSpace(resp.Content)
	title := titleOf(content)
	now := m.now()
	name := fmt.Sprintf("fully_generated_%s_%s.md", sanitizeTitle(title), now.Format("20060102150405"))

	body := m.composeNote(content, now)
	if err := m.creator.CreateGeneratedNote(ctx, name, body); err != nil {
		m.log("write synthesis %s: %v", name, err)
		m.reset(StateIdle)
		return
	}

	m.think(Thought{
		Notes:     noteNames(m.selected),
		Generated: name,
		Reasoning: fmt.Sprintf("synthesized %q", title),
	})
	m.lastGeneration = now
	m.cooldownUntil = now.Add(cooldownPause)
	m.reset(StateCooldown)
}

// composeNote wraps the LLM output with a metadata header and a linked-notes
// footer referencing every source note.
func (m *Machine) composeNote(content string, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<!-- lemma: synthesized %s, mode %s -->\n\n", now.Format(time.RFC3339), m.mode))
	b.WriteString(content)
	b.WriteString("\n\n## Linked Notes\n\n")
	for _, n := range m.selected {
		b.WriteString(fmt.Sprintf("- [[%s]]\n", strings.TrimSuffix(n.Name, ".md")))
	}
	return b.String()
}

// tickCooldown waits out the post-generation pause.
func (m *Machine) tickCooldown() {
	if !m.now().Before(m.cooldownUntil) {
		m.state = StateIdle
	}
}

func (m *Machine) reset(s State) {
	m.selected = nil
	m.prompt = ""
	m.state = s
}

var headingRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// titleOf extracts the first markdown heading, falling back to a default.
func titleOf(content string) string {
	if match := headingRe.FindStringSubmatch(content); match != nil {
		if t := strings.TrimSpace(match[1]); t != "" {
			return t
		}
	}
	return "Untitled Synthesis"
}

var (
	titleStripRe    = regexp.MustCompile(`[^\w\s]`)
	titleCollapseRe = regexp.MustCompile(`\s+`)
)

// sanitizeTitle makes a title safe for a filename: word characters only,
// whitespace collapsed to underscores, at most 30 runes.
func sanitizeTitle(title string) string {
	s := titleStripRe.ReplaceAllString(title, "")
	s = titleCollapseRe.ReplaceAllString(strings.TrimSpace(s), "_")
	runes := []rune(s)
	if len(runes) > 30 {
		s = string(runes[:30])
	}
	return s
}

func noteNames(selected []SourceNote) []string {
	names := make([]string, len(selected))
	for i, n := range selected {
		names[i] = n.Name
	}
	return names
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
