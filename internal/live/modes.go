package live

import "math/rand"

// PerceptionMode is a note-selection strategy.
type PerceptionMode int

const (
	// ModeRandomWalk samples notes uniformly.
	ModeRandomWalk PerceptionMode = iota
	// ModeSimilarityCluster gathers notes embedding-similar to a random seed.
	ModeSimilarityCluster
	// ModeRecencyFocus takes the most recently modified notes.
	ModeRecencyFocus
	// ModeConceptBridge favors notes with the most diverse vocabulary.
	ModeConceptBridge
	// ModeGapFill favors the shortest notes, treating thinness as a gap.
	ModeGapFill
)

// String returns the string representation of PerceptionMode.
func (m PerceptionMode) String() string {
	switch m {
	case ModeRandomWalk:
		return "random-walk"
	case ModeSimilarityCluster:
		return "similarity-cluster"
	case ModeRecencyFocus:
		return "recency-focus"
	case ModeConceptBridge:
		return "concept-bridge"
	case ModeGapFill:
		return "gap-fill"
	default:
		return "unknown"
	}
}

type transition struct {
	to     PerceptionMode
	weight float64
}

// transitions is the Markov table driving mode evolution. Outbound weights
// per mode sum to 1.0.
var transitions = map[PerceptionMode][]transition{
	ModeRandomWalk: {
		{ModeRandomWalk, 0.40},
		{ModeSimilarityCluster, 0.20},
		{ModeRecencyFocus, 0.20},
		{ModeConceptBridge, 0.10},
		{ModeGapFill, 0.10},
	},
	ModeSimilarityCluster: {
		{ModeSimilarityCluster, 0.30},
		{ModeConceptBridge, 0.30},
		{ModeRandomWalk, 0.20},
		{ModeRecencyFocus, 0.10},
		{ModeGapFill, 0.10},
	},
	ModeRecencyFocus: {
		{ModeRecencyFocus, 0.30},
		{ModeRandomWalk, 0.25},
		{ModeSimilarityCluster, 0.25},
		{ModeConceptBridge, 0.10},
		{ModeGapFill, 0.10},
	},
	ModeConceptBridge: {
		{ModeConceptBridge, 0.35},
		{ModeSimilarityCluster, 0.25},
		{ModeGapFill, 0.20},
		{ModeRandomWalk, 0.20},
	},
	ModeGapFill: {
		{ModeGapFill, 0.30},
		{ModeRecencyFocus, 0.30},
		{ModeRandomWalk, 0.20},
		{ModeConceptBridge, 0.20},
	},
}

// nextMode picks the successor mode by walking cumulative weights against a
// uniform draw in [0, 1). A mode with no transition set falls back to the
// random walk.
func nextMode(current PerceptionMode, draw float64) PerceptionMode {
	edges, ok := transitions[current]
	if !ok || len(edges) == 0 {
		return ModeRandomWalk
	}
	total := 0.0
	for _, e := range edges {
		total += e.weight
	}
	target := draw * total
	acc := 0.0
	for _, e := range edges {
		acc += e.weight
		if target < acc {
			return e.to
		}
	}
	return edges[len(edges)-1].to
}

func defaultRand() float64 { return rand.Float64() }
