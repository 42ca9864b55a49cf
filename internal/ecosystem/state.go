package ecosystem

import (
	"time"

	"github.com/normanking/socratic/internal/sot"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ADVANCEMENT METRICS
// ═══════════════════════════════════════════════════════════════════════════════

// Advancement blend factors. Scrutiny contributes at alpha, improvement
// at beta; truth contributes fully.
const (
	advancementAlpha = 0.5
	advancementBeta  = 0.3

	// metricRetention is the old-value share when folding a new signal
	// into truth, scrutiny, or improvement.
	metricRetention = 0.9
)

// AdvancementMetrics aggregates how the dialogue is progressing. Truth
// rises with helpful outcomes, scrutiny with unhelpful ones (they still
// probe the text), and improvement with upward coherence movement.
type AdvancementMetrics struct {
	TruthValue       float64 `json:"truth_value"`
	ScrutinyValue    float64 `json:"scrutiny_value"`
	ImprovementValue float64 `json:"improvement_value"`
	Advancement      float64 `json:"advancement"`
	Alpha            float64 `json:"alpha"`
	Beta             float64 `json:"beta"`
}

// DefaultAdvancementMetrics returns the metrics at their neutral priors.
func DefaultAdvancementMetrics() AdvancementMetrics {
	m := AdvancementMetrics{
		TruthValue:       neutralValue,
		ScrutinyValue:    neutralValue,
		ImprovementValue: neutralValue,
		Alpha:            advancementAlpha,
		Beta:             advancementBeta,
	}
	m.recompute()
	return m
}

// Observe folds one rated outcome into the metrics. coherenceDelta is the
// change in the reasoning coherence loop caused by this outcome.
func (m *AdvancementMetrics) Observe(helpful bool, coherenceDelta float64) {
	truth, scrutiny := 0.0, 1.0
	if helpful {
		truth, scrutiny = 1.0, 0.0
	}
	improvement := 0.0
	if coherenceDelta > 0 {
		improvement = 1.0
	}

	m.TruthValue = clamp01(metricRetention*m.TruthValue + (1-metricRetention)*truth)
	m.ScrutinyValue = clamp01(metricRetention*m.ScrutinyValue + (1-metricRetention)*scrutiny)
	m.ImprovementValue = clamp01(metricRetention*m.ImprovementValue + (1-metricRetention)*improvement)
	m.recompute()
}

// recompute refreshes the advancement aggregate from its parts.
func (m *AdvancementMetrics) recompute() {
	m.Advancement = m.TruthValue + m.Alpha*m.ScrutinyValue + m.Beta*m.ImprovementValue
}

// normalize repairs a persisted snapshot: values are clamped, zero blend
// factors fall back to the defaults, and the aggregate is recomputed
// rather than trusted.
func (m *AdvancementMetrics) normalize() {
	m.TruthValue = clamp01(m.TruthValue)
	m.ScrutinyValue = clamp01(m.ScrutinyValue)
	m.ImprovementValue = clamp01(m.ImprovementValue)
	if m.Alpha <= 0 {
		m.Alpha = advancementAlpha
	}
	if m.Beta <= 0 {
		m.Beta = advancementBeta
	}
	m.recompute()
}

// ═══════════════════════════════════════════════════════════════════════════════
// ECOSYSTEM STATE
// ═══════════════════════════════════════════════════════════════════════════════

// StateVersion marks the persisted snapshot layout.
const StateVersion = "1"

// EcosystemState is the serializable aggregate of everything the
// reflective ecosystem has learned. It is a plain value: the live
// components produce and consume it but never share memory with it.
type EcosystemState struct {
	Version            string                        `json:"version"`
	Nodes              map[sot.Paradigm]ParadigmNode `json:"nodes"`
	FeedbackLoops      []FeedbackLoop                `json:"feedback_loops"`
	GlobalCoherence    float64                       `json:"global_coherence"`
	QuestionHistory    []QuestionHistoryEntry        `json:"question_history"`
	AdvancementMetrics AdvancementMetrics            `json:"advancement_metrics"`
	SavedAt            time.Time                     `json:"saved_at"`
}

// DefaultState returns the state a fresh ecosystem would snapshot.
func DefaultState() EcosystemState {
	return EcosystemState{
		Version:            StateVersion,
		Nodes:              map[sot.Paradigm]ParadigmNode{},
		FeedbackLoops:      NewLoopRegistry().Snapshot(),
		GlobalCoherence:    neutralValue,
		QuestionHistory:    nil,
		AdvancementMetrics: DefaultAdvancementMetrics(),
	}
}

// Normalize repairs a loaded snapshot in place so every invariant holds
// before the state is applied: coherence clamped to [0,1], unknown
// paradigms dropped, metrics recomputed.
func (s *EcosystemState) Normalize() {
	if s.Version == "" {
		s.Version = StateVersion
	}
	s.GlobalCoherence = clamp01(s.GlobalCoherence)
	if s.Nodes == nil {
		s.Nodes = map[sot.Paradigm]ParadigmNode{}
	}
	for p := range s.Nodes {
		if !p.Valid() {
			delete(s.Nodes, p)
		}
	}
	s.AdvancementMetrics.normalize()
}
