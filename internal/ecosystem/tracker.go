package ecosystem

import (
	"sync"

	"github.com/normanking/socratic/internal/sot"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PARADIGM WEIGHT TRACKER
// ═══════════════════════════════════════════════════════════════════════════════

// ParadigmNode holds the learned effectiveness record for one paradigm.
// Weight is always success_count/usage_count once feedback exists; nodes
// start at the neutral weight and are never deleted.
type ParadigmNode struct {
	ID           sot.Paradigm `json:"id"`
	Weight       float64      `json:"weight"`
	UsageCount   int          `json:"usage_count"`
	SuccessCount int          `json:"success_count"`
}

// defaultWeight is the prior for paradigms with no rated feedback yet.
const defaultWeight = 0.5

// Selection policy: the classifier's pick stands unless it has proven weak
// over enough samples and a clearly stronger alternative exists.
const (
	weakWeight     = 0.35
	overrideMargin = 0.15
	minSamples     = 3
)

// WeightTracker owns the per-paradigm nodes. Nodes are created lazily on
// first use and mutated only by rated feedback. All access is mutex-guarded.
type WeightTracker struct {
	mu    sync.RWMutex
	nodes map[sot.Paradigm]*ParadigmNode
}

// NewWeightTracker returns an empty tracker.
func NewWeightTracker() *WeightTracker {
	return &WeightTracker{nodes: make(map[sot.Paradigm]*ParadigmNode)}
}

// node returns the entry for p, creating it at the neutral weight.
// Callers must hold the write lock.
func (t *WeightTracker) node(p sot.Paradigm) *ParadigmNode {
	n, ok := t.nodes[p]
	if !ok {
		n = &ParadigmNode{ID: p, Weight: defaultWeight}
		t.nodes[p] = n
	}
	return n
}

// RecordUsage notes that a question was generated under paradigm p. It
// ensures the node exists but leaves its counters alone: only rated
// feedback moves the weight.
func (t *WeightTracker) RecordUsage(p sot.Paradigm) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.node(p)
}

// RecordFeedback folds one rated outcome into p's node and recomputes its
// weight as the plain success ratio.
func (t *WeightTracker) RecordFeedback(p sot.Paradigm, helpful bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.node(p)
	n.UsageCount++
	if helpful {
		n.SuccessCount++
	}
	n.Weight = float64(n.SuccessCount) / float64(n.UsageCount)
}

// Weight returns p's current weight, or the neutral prior for paradigms
// without rated feedback.
func (t *WeightTracker) Weight(p sot.Paradigm) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[p]
	if !ok || n.UsageCount == 0 {
		return defaultWeight
	}
	return n.Weight
}

// SelectParadigm applies the learned weights to the classifier's pick and
// returns the paradigm to use. The classification wins by default; an
// override happens only when the classified paradigm has at least
// minSamples rated outcomes with a weight below weakWeight, and some other
// paradigm with at least minSamples outcomes beats it by overrideMargin.
// Alternatives are scanned in canonical paradigm order so ties resolve
// deterministically.
func (t *WeightTracker) SelectParadigm(classified sot.Paradigm) sot.Paradigm {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[classified]
	if !ok || n.UsageCount < minSamples || n.Weight >= weakWeight {
		return classified
	}

	best := classified
	bestWeight := n.Weight
	for _, p := range sot.Paradigms() {
		alt, ok := t.nodes[p]
		if !ok || alt.UsageCount < minSamples {
			continue
		}
		if alt.Weight >= n.Weight+overrideMargin && alt.Weight > bestWeight {
			best = p
			bestWeight = alt.Weight
		}
	}
	return best
}

// Snapshot returns a copy of every node for persistence or reporting.
func (t *WeightTracker) Snapshot() map[sot.Paradigm]ParadigmNode {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[sot.Paradigm]ParadigmNode, len(t.nodes))
	for p, n := range t.nodes {
		out[p] = *n
	}
	return out
}

// Restore replaces the tracker contents with persisted nodes. Entries with
// an unknown paradigm are dropped and counters are repaired so the
// weight invariant holds after a hand-edited or stale state file.
func (t *WeightTracker) Restore(nodes map[sot.Paradigm]ParadigmNode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nodes = make(map[sot.Paradigm]*ParadigmNode, len(nodes))
	for p, n := range nodes {
		if !p.Valid() {
			continue
		}
		repaired := n
		repaired.ID = p
		if repaired.UsageCount < 0 {
			repaired.UsageCount = 0
		}
		if repaired.SuccessCount < 0 {
			repaired.SuccessCount = 0
		}
		if repaired.SuccessCount > repaired.UsageCount {
			repaired.SuccessCount = repaired.UsageCount
		}
		if repaired.UsageCount > 0 {
			repaired.Weight = float64(repaired.SuccessCount) / float64(repaired.UsageCount)
		} else {
			repaired.Weight = defaultWeight
		}
		t.nodes[p] = &repaired
	}
}
