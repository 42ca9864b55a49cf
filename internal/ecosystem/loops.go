// Package ecosystem keeps the reflective bookkeeping behind paradigm
// selection: per-paradigm effectiveness weights, named feedback loops with
// exponential-moving-average updates, the bounded question history, and the
// snapshot aggregate persisted between runs.
package ecosystem

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ═══════════════════════════════════════════════════════════════════════════════
// FEEDBACK LOOPS
// ═══════════════════════════════════════════════════════════════════════════════

// Loop names form a fixed registry; anything else is a programming error.
const (
	LoopQuestionEffectiveness = "question effectiveness"
	LoopReasoningCoherence    = "reasoning coherence"
	LoopParadigmAccuracy      = "paradigm accuracy"
)

// ErrUnknownMetric is returned for loop names outside the fixed registry.
// Fail fast: unknown names are bugs, not runtime conditions to recover from.
var ErrUnknownMetric = errors.New("unknown metric")

// FeedbackLoop is a named scalar metric tracked via an exponential moving
// average. The blend rate is fixed per loop and not persisted.
type FeedbackLoop struct {
	Name         string  `json:"name"`
	MetricKey    string  `json:"metric_key"`
	CurrentValue float64 `json:"current_value"`
	TargetValue  float64 `json:"target_value"`
}

// loopSpec fixes a loop's metric key, target, and old-value retention.
// A retention of 0.8 blends 80% old with 20% new on every update.
type loopSpec struct {
	metricKey string
	target    float64
	retention float64
}

var loopSpecs = map[string]loopSpec{
	LoopQuestionEffectiveness: {metricKey: "question_effectiveness", target: 0.80, retention: 0.80},
	LoopReasoningCoherence:    {metricKey: "reasoning_coherence", target: 0.90, retention: 0.90},
	LoopParadigmAccuracy:      {metricKey: "paradigm_accuracy", target: 0.85, retention: 0.70},
}

// neutralValue seeds every loop before any observation has arrived.
const neutralValue = 0.5

// LoopRegistry tracks the fixed set of feedback loops. All mutations are
// mutex-guarded.
type LoopRegistry struct {
	mu    sync.RWMutex
	loops map[string]*FeedbackLoop
}

// NewLoopRegistry creates the registry with every loop at its neutral value.
func NewLoopRegistry() *LoopRegistry {
	loops := make(map[string]*FeedbackLoop, len(loopSpecs))
	for name, spec := range loopSpecs {
		loops[name] = &FeedbackLoop{
			Name:         name,
			MetricKey:    spec.metricKey,
			CurrentValue: neutralValue,
			TargetValue:  spec.target,
		}
	}
	return &LoopRegistry{loops: loops}
}

// Update blends a new observation into the named loop. Values are clamped
// to [0,1] before and after blending, so the current value can never leave
// the unit interval.
func (r *LoopRegistry) Update(name string, value float64) error {
	spec, ok := loopSpecs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	loop := r.loops[name]
	blended := spec.retention*loop.CurrentValue + (1-spec.retention)*clamp01(value)
	loop.CurrentValue = clamp01(blended)
	return nil
}

// Coherence returns the current value of the reasoning coherence loop.
func (r *LoopRegistry) Coherence() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loops[LoopReasoningCoherence].CurrentValue
}

// Value returns the current value of a named loop.
func (r *LoopRegistry) Value(name string) (float64, error) {
	if _, ok := loopSpecs[name]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loops[name].CurrentValue, nil
}

// Values returns every loop's current value keyed by loop name.
func (r *LoopRegistry) Values() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]float64, len(r.loops))
	for name, loop := range r.loops {
		out[name] = loop.CurrentValue
	}
	return out
}

// Snapshot returns the loops in stable order for persistence.
func (r *LoopRegistry) Snapshot() []FeedbackLoop {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]FeedbackLoop, 0, len(r.loops))
	for _, loop := range r.loops {
		out = append(out, *loop)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Restore applies persisted loop values. Loops outside the fixed registry
// are skipped: only the fixed set is ever persisted or accepted back.
func (r *LoopRegistry) Restore(loops []FeedbackLoop) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, persisted := range loops {
		loop, ok := r.loops[persisted.Name]
		if !ok {
			continue
		}
		loop.CurrentValue = clamp01(persisted.CurrentValue)
	}
}

// clamp01 bounds v to the unit interval.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
