// Package reasoner composes the paradigm classifier, reasoning renderer,
// weight tracker, feedback loops, question generator, and state store into
// the orchestrator behind every analysis.
package reasoner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/normanking/socratic/internal/detect"
	"github.com/normanking/socratic/internal/ecosystem"
	"github.com/normanking/socratic/internal/logging"
	"github.com/normanking/socratic/internal/questions"
	"github.com/normanking/socratic/internal/sot"
	"github.com/normanking/socratic/internal/state"
)

// Common errors for orchestrator operations.
var (
	ErrEmptyQuestion = errors.New("question cannot be empty")
)

// defaultSaveEvery is the feedback-event cadence for automatic saves.
const defaultSaveEvery = 10

// ═══════════════════════════════════════════════════════════════════════════════
// RESULT TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// Analysis is the result of one Analyze call. With no detected issues the
// paradigm and reasoning stay empty and Questions is an empty slice; the
// caller gets a valid result either way.
type Analysis struct {
	ID             string               `json:"id"`
	Paradigm       sot.Paradigm         `json:"paradigm,omitempty"`
	Classified     sot.Paradigm         `json:"classified_paradigm,omitempty"`
	ParadigmSource sot.Source           `json:"paradigm_source,omitempty"`
	Reasoning      string               `json:"reasoning,omitempty"`
	HasReasoning   bool                 `json:"has_reasoning"`
	Questions      []questions.Question `json:"questions"`
	QuestionSource questions.Source     `json:"question_source,omitempty"`
	Issues         []detect.Issue       `json:"issues"`
	AnalyzedAt     time.Time            `json:"analyzed_at"`
}

// WeightOverrode reports whether the learned weights replaced the
// classifier's pick.
func (a *Analysis) WeightOverrode() bool {
	return a.Classified != "" && a.Paradigm != a.Classified
}

// Report is a read-only snapshot of the ecosystem's learning progress.
type Report struct {
	GlobalCoherence    float64                                 `json:"global_coherence"`
	Weights            map[sot.Paradigm]float64                `json:"weights"`
	Nodes              map[sot.Paradigm]ecosystem.ParadigmNode `json:"nodes"`
	Loops              map[string]float64                      `json:"loops"`
	AdvancementMetrics ecosystem.AdvancementMetrics            `json:"advancement_metrics"`
	QuestionsGenerated int                                     `json:"questions_generated"`
	QuestionsRated     int                                     `json:"questions_rated"`
	FeedbackEvents     int                                     `json:"feedback_events"`
	GeneratedAt        time.Time                               `json:"generated_at"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ═══════════════════════════════════════════════════════════════════════════════

// Engine orchestrates one clarification session. Every collaborator is
// injected; the engine owns no global state and two engines never share
// memory unless handed the same components.
type Engine struct {
	classifier *sot.Classifier
	renderer   *sot.Renderer
	tracker    *ecosystem.WeightTracker
	loops      *ecosystem.LoopRegistry
	history    *ecosystem.History
	generator  *questions.Generator
	store      state.Store
	log        *logging.Logger

	mu            sync.Mutex
	metrics       ecosystem.AdvancementMetrics
	saveEvery     int
	feedbackCount int
	generated     int
	rated         int
}

// Options configures the Engine. Zero-value fields fall back to freshly
// constructed components, so Options{} yields a working heuristic-only
// engine with no persistence.
type Options struct {
	// Classifier resolves text to a paradigm. Nil means heuristic-only.
	Classifier *sot.Classifier

	// Renderer produces the structured reasoning string.
	Renderer *sot.Renderer

	// Tracker holds the per-paradigm effectiveness weights.
	Tracker *ecosystem.WeightTracker

	// Loops holds the named feedback loops.
	Loops *ecosystem.LoopRegistry

	// History is the bounded question record.
	History *ecosystem.History

	// Generator produces Socratic questions. Nil means template-only.
	Generator *questions.Generator

	// Store persists snapshots. Nil disables persistence entirely.
	Store state.Store

	// SaveEvery is the feedback cadence for automatic saves.
	SaveEvery int

	// Logger receives engine diagnostics.
	Logger *logging.Logger
}

// DefaultOptions returns options for a self-contained in-memory engine.
func DefaultOptions() Options {
	return Options{SaveEvery: defaultSaveEvery}
}

// New creates an Engine from the given options.
func New(opts Options) *Engine {
	e := &Engine{
		classifier: opts.Classifier,
		renderer:   opts.Renderer,
		tracker:    opts.Tracker,
		loops:      opts.Loops,
		history:    opts.History,
		generator:  opts.Generator,
		store:      opts.Store,
		log:        opts.Logger,
		metrics:    ecosystem.DefaultAdvancementMetrics(),
		saveEvery:  opts.SaveEvery,
	}

	if e.classifier == nil {
		e.classifier = sot.NewClassifier()
	}
	if e.renderer == nil {
		e.renderer = sot.NewRenderer()
	}
	if e.tracker == nil {
		e.tracker = ecosystem.NewWeightTracker()
	}
	if e.loops == nil {
		e.loops = ecosystem.NewLoopRegistry()
	}
	if e.history == nil {
		e.history = ecosystem.NewHistory(0)
	}
	if e.generator == nil {
		e.generator = questions.NewGenerator()
	}
	if e.saveEvery <= 0 {
		e.saveEvery = defaultSaveEvery
	}
	if e.log == nil {
		e.log = logging.Global().WithComponent("reasoner")
	}

	return e
}

// ═══════════════════════════════════════════════════════════════════════════════
// ANALYZE
// ═══════════════════════════════════════════════════════════════════════════════

// Analyze classifies the text, renders paradigm-shaped reasoning, and
// generates Socratic questions for the detected issues. With no issues it
// short-circuits to an empty result; nothing is classified or recorded.
//
// overrideParadigm skips classification entirely when set. An unknown
// override is a programmer error and fails immediately.
func (e *Engine) Analyze(ctx context.Context, text string, issues []detect.Issue, overrideParadigm sot.Paradigm) (*Analysis, error) {
	defer e.log.Trace("Analyze")()

	analysis := &Analysis{
		ID:         uuid.NewString(),
		Questions:  []questions.Question{},
		Issues:     issues,
		AnalyzedAt: time.Now().UTC(),
	}

	if len(issues) == 0 {
		return analysis, nil
	}

	paradigm, classified, source, err := e.resolveParadigm(ctx, text, overrideParadigm)
	if err != nil {
		return nil, err
	}
	analysis.Paradigm = paradigm
	analysis.Classified = classified
	analysis.ParadigmSource = source

	if reasoning, ok := e.renderer.Render(text, issues, paradigm); ok {
		analysis.Reasoning = reasoning
		analysis.HasReasoning = true
	}

	qs, qSource := e.generator.Generate(ctx, text, issues)
	analysis.Questions = qs
	analysis.QuestionSource = qSource

	now := analysis.AnalyzedAt
	for _, q := range qs {
		e.tracker.RecordUsage(paradigm)
		e.history.Append(ecosystem.QuestionHistoryEntry{
			Question: q.Text,
			Paradigm: paradigm,
			AskedAt:  now,
		})
	}

	e.mu.Lock()
	e.generated += len(qs)
	e.mu.Unlock()

	e.log.Debug("analyzed %d issue(s): paradigm=%s source=%s questions=%d", len(issues), paradigm, source, len(qs))
	return analysis, nil
}

// resolveParadigm picks the paradigm for this analysis: the override when
// given, otherwise the classifier's result filtered through the learned
// weights.
func (e *Engine) resolveParadigm(ctx context.Context, text string, override sot.Paradigm) (paradigm, classified sot.Paradigm, source sot.Source, err error) {
	if override != "" {
		if !override.Valid() {
			return "", "", "", fmt.Errorf("%w: %q", sot.ErrInvalidParadigm, override)
		}
		return override, "", sot.SourceOverride, nil
	}

	result := e.classifier.Classify(ctx, text)
	selected := e.tracker.SelectParadigm(result.Paradigm)
	if selected != result.Paradigm {
		e.log.Info("weight override: classifier chose %s, weights prefer %s", result.Paradigm, selected)
	}
	return selected, result.Paradigm, result.Source, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// FEEDBACK
// ═══════════════════════════════════════════════════════════════════════════════

// SubmitFeedback attaches a helpful/unhelpful rating to the most recent
// unrated occurrence of question and folds the outcome into the weights,
// the feedback loops, and the advancement metrics. The paradigm argument
// attributes feedback for questions no longer in the history; when empty,
// the matched history entry's paradigm is used. Every saveEvery-th call
// persists the state.
func (e *Engine) SubmitFeedback(question string, helpful bool, paradigm sot.Paradigm) error {
	if question == "" {
		return ErrEmptyQuestion
	}
	if paradigm != "" && !paradigm.Valid() {
		return fmt.Errorf("%w: %q", sot.ErrInvalidParadigm, paradigm)
	}

	entry, matched := e.history.MarkHelpful(question, helpful)

	resolved := paradigm
	if resolved == "" && matched {
		resolved = entry.Paradigm
	}
	if resolved != "" {
		e.tracker.RecordFeedback(resolved, helpful)
	} else {
		e.log.Warn("feedback for unknown question %q has no paradigm to credit", question)
	}

	signal := 0.0
	if helpful {
		signal = 1.0
	}

	before := e.loops.Coherence()
	e.loops.Update(ecosystem.LoopQuestionEffectiveness, signal)
	e.loops.Update(ecosystem.LoopReasoningCoherence, signal)
	e.loops.Update(ecosystem.LoopParadigmAccuracy, signal)
	delta := e.loops.Coherence() - before

	e.mu.Lock()
	e.metrics.Observe(helpful, delta)
	if matched {
		e.rated++
	}
	e.feedbackCount++
	shouldSave := e.feedbackCount%e.saveEvery == 0
	e.mu.Unlock()

	if shouldSave {
		if err := e.SaveState(); err != nil {
			e.log.Warn("periodic state save failed: %v", err)
		}
	}

	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// PERSISTENCE
// ═══════════════════════════════════════════════════════════════════════════════

// SaveState snapshots the ecosystem to the configured store. With no store
// configured it is a no-op.
func (e *Engine) SaveState() error {
	if e.store == nil {
		return nil
	}

	e.mu.Lock()
	metrics := e.metrics
	e.mu.Unlock()

	snapshot := ecosystem.EcosystemState{
		Version:            ecosystem.StateVersion,
		Nodes:              e.tracker.Snapshot(),
		FeedbackLoops:      e.loops.Snapshot(),
		GlobalCoherence:    e.loops.Coherence(),
		QuestionHistory:    e.history.Entries(),
		AdvancementMetrics: metrics,
	}

	if err := e.store.Save(&snapshot); err != nil {
		return fmt.Errorf("save ecosystem state: %w", err)
	}

	e.log.Debug("ecosystem state saved: %d node(s), %d history entries", len(snapshot.Nodes), len(snapshot.QuestionHistory))
	return nil
}

// LoadState restores the ecosystem from the configured store. A missing or
// malformed snapshot leaves the in-memory defaults untouched and returns
// false; LoadState never fails outward.
func (e *Engine) LoadState() bool {
	if e.store == nil {
		return false
	}

	snapshot, err := e.store.Load()
	if err != nil {
		if errors.Is(err, state.ErrStateNotFound) {
			e.log.Debug("no saved state, starting fresh")
		} else {
			e.log.Warn("discarding unreadable state: %v", err)
		}
		return false
	}

	snapshot.Normalize()
	e.tracker.Restore(snapshot.Nodes)
	e.loops.Restore(snapshot.FeedbackLoops)
	e.history.Restore(snapshot.QuestionHistory)

	e.mu.Lock()
	e.metrics = snapshot.AdvancementMetrics
	e.generated = e.history.Len()
	e.rated = e.history.Rated()
	e.mu.Unlock()

	e.log.Info("ecosystem state loaded: %d node(s), coherence %.3f", len(snapshot.Nodes), e.loops.Coherence())
	return true
}

// ═══════════════════════════════════════════════════════════════════════════════
// REPORTING
// ═══════════════════════════════════════════════════════════════════════════════

// PerformanceReport returns a read-only snapshot of the learned weights,
// loop values, and advancement metrics. No side effects.
func (e *Engine) PerformanceReport() Report {
	nodes := e.tracker.Snapshot()
	weights := make(map[sot.Paradigm]float64, len(nodes))
	for p, n := range nodes {
		weights[p] = n.Weight
	}

	e.mu.Lock()
	metrics := e.metrics
	generated := e.generated
	rated := e.rated
	feedback := e.feedbackCount
	e.mu.Unlock()

	return Report{
		GlobalCoherence:    e.loops.Coherence(),
		Weights:            weights,
		Nodes:              nodes,
		Loops:              e.loops.Values(),
		AdvancementMetrics: metrics,
		QuestionsGenerated: generated,
		QuestionsRated:     rated,
		FeedbackEvents:     feedback,
		GeneratedAt:        time.Now().UTC(),
	}
}

// History returns the retained question history, oldest first.
func (e *Engine) History() []ecosystem.QuestionHistoryEntry {
	return e.history.Entries()
}
