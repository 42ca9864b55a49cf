package reasoner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/socratic/internal/detect"
	"github.com/normanking/socratic/internal/ecosystem"
	"github.com/normanking/socratic/internal/questions"
	"github.com/normanking/socratic/internal/sot"
	"github.com/normanking/socratic/internal/state"
)

// spyStore implements state.Store in memory and counts saves.
type spyStore struct {
	mu      sync.Mutex
	saves   int
	last    *ecosystem.EcosystemState
	load    *ecosystem.EcosystemState
	saveErr error
}

func (s *spyStore) Save(st *ecosystem.EcosystemState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	cp := *st
	s.saves++
	s.last = &cp
	return nil
}

func (s *spyStore) Load() (*ecosystem.EcosystemState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.load == nil {
		return nil, state.ErrStateNotFound
	}
	cp := *s.load
	return &cp, nil
}

func (s *spyStore) Close() error { return nil }

func (s *spyStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func analysisIssues() []detect.Issue {
	return []detect.Issue{
		{
			Term:        "All immigrants are criminals",
			Kind:        detect.KindStereotype,
			Description: "Sweeping generalization about a group",
			Confidence:  0.90,
		},
		{
			Term:        "never",
			Kind:        detect.KindAbsoluteStatement,
			Description: "Absolute statement invites counterexamples",
			Confidence:  0.75,
		},
	}
}

const analysisText = "All immigrants are criminals and should never be trusted."

func TestAnalyzeNoIssues(t *testing.T) {
	e := New(DefaultOptions())

	a, err := e.Analyze(context.Background(), "The cat sat on the mat.", nil, "")
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Empty(t, a.Paradigm)
	assert.Empty(t, a.Reasoning)
	assert.False(t, a.HasReasoning)
	assert.NotNil(t, a.Questions)
	assert.Empty(t, a.Questions)
	assert.False(t, a.AnalyzedAt.IsZero())
	assert.Empty(t, e.History(), "nothing recorded without issues")
}

func TestAnalyzeWithIssues(t *testing.T) {
	e := New(DefaultOptions())

	a, err := e.Analyze(context.Background(), analysisText, analysisIssues(), "")
	require.NoError(t, err)

	assert.Equal(t, sot.ConceptualChaining, a.Paradigm)
	assert.Equal(t, sot.ConceptualChaining, a.Classified)
	assert.Equal(t, sot.SourceHeuristic, a.ParadigmSource)
	assert.False(t, a.WeightOverrode())

	require.True(t, a.HasReasoning)
	assert.Contains(t, a.Reasoning, "<think>")
	assert.Contains(t, a.Reasoning, "</think>")

	assert.Equal(t, questions.SourceTemplate, a.QuestionSource)
	require.Len(t, a.Questions, 2)
	assert.Equal(t, `What evidence supports the generalization "All immigrants are criminals"?`, a.Questions[0].Text)
	assert.Equal(t, `Are there exceptions to "never"?`, a.Questions[1].Text)

	history := e.History()
	require.Len(t, history, 2)
	assert.Equal(t, a.Questions[0].Text, history[0].Question)
	assert.Equal(t, sot.ConceptualChaining, history[0].Paradigm)
	assert.True(t, a.AnalyzedAt.Equal(history[0].AskedAt))

	report := e.PerformanceReport()
	assert.Equal(t, 2, report.QuestionsGenerated)
	assert.Zero(t, report.QuestionsRated)
	require.Contains(t, report.Nodes, sot.ConceptualChaining)
	node := report.Nodes[sot.ConceptualChaining]
	assert.InDelta(t, 0.5, node.Weight, 1e-9, "usage alone does not move the weight")
	assert.Zero(t, node.UsageCount)
}

func TestAnalyzeOverride(t *testing.T) {
	e := New(DefaultOptions())

	a, err := e.Analyze(context.Background(), analysisText, analysisIssues(), sot.ChunkedSymbolism)
	require.NoError(t, err)

	assert.Equal(t, sot.ChunkedSymbolism, a.Paradigm)
	assert.Empty(t, a.Classified)
	assert.Equal(t, sot.SourceOverride, a.ParadigmSource)
	assert.False(t, a.WeightOverrode())
	assert.Contains(t, a.Reasoning, "issues_total = 2")
}

func TestAnalyzeInvalidOverride(t *testing.T) {
	e := New(DefaultOptions())

	_, err := e.Analyze(context.Background(), analysisText, analysisIssues(), sot.Paradigm("freeform"))
	assert.ErrorIs(t, err, sot.ErrInvalidParadigm)
}

func TestSubmitFeedbackValidation(t *testing.T) {
	e := New(DefaultOptions())

	assert.ErrorIs(t, e.SubmitFeedback("", true, ""), ErrEmptyQuestion)
	assert.ErrorIs(t, e.SubmitFeedback("A question?", true, sot.Paradigm("freeform")), sot.ErrInvalidParadigm)
}

// TestSubmitFeedbackUpdatesEcosystem verifies one helpful rating moves the
// weight, all three loops, and the advancement metrics together.
func TestSubmitFeedbackUpdatesEcosystem(t *testing.T) {
	e := New(DefaultOptions())
	a, err := e.Analyze(context.Background(), analysisText, analysisIssues(), "")
	require.NoError(t, err)
	require.NotEmpty(t, a.Questions)

	require.NoError(t, e.SubmitFeedback(a.Questions[0].Text, true, ""))

	report := e.PerformanceReport()

	node := report.Nodes[sot.ConceptualChaining]
	assert.Equal(t, 1, node.UsageCount)
	assert.Equal(t, 1, node.SuccessCount)
	assert.InDelta(t, 1.0, node.Weight, 1e-9)

	assert.InDelta(t, 0.60, report.Loops[ecosystem.LoopQuestionEffectiveness], 1e-9)
	assert.InDelta(t, 0.55, report.Loops[ecosystem.LoopReasoningCoherence], 1e-9)
	assert.InDelta(t, 0.65, report.Loops[ecosystem.LoopParadigmAccuracy], 1e-9)
	assert.InDelta(t, 0.55, report.GlobalCoherence, 1e-9)

	assert.InDelta(t, 0.55, report.AdvancementMetrics.TruthValue, 1e-9)
	assert.InDelta(t, 0.45, report.AdvancementMetrics.ScrutinyValue, 1e-9)
	assert.InDelta(t, 0.55, report.AdvancementMetrics.ImprovementValue, 1e-9)
	assert.InDelta(t, 0.94, report.AdvancementMetrics.Advancement, 1e-9)

	assert.Equal(t, 1, report.QuestionsRated)
	assert.Equal(t, 1, report.FeedbackEvents)
}

func TestSubmitFeedbackUnhelpful(t *testing.T) {
	e := New(DefaultOptions())
	a, err := e.Analyze(context.Background(), analysisText, analysisIssues(), "")
	require.NoError(t, err)

	require.NoError(t, e.SubmitFeedback(a.Questions[0].Text, false, ""))

	report := e.PerformanceReport()
	node := report.Nodes[sot.ConceptualChaining]
	assert.Equal(t, 1, node.UsageCount)
	assert.Zero(t, node.SuccessCount)
	assert.InDelta(t, 0.0, node.Weight, 1e-9)

	assert.InDelta(t, 0.45, report.GlobalCoherence, 1e-9)
	assert.InDelta(t, 0.45, report.AdvancementMetrics.TruthValue, 1e-9)
	assert.InDelta(t, 0.55, report.AdvancementMetrics.ScrutinyValue, 1e-9)
	assert.InDelta(t, 0.86, report.AdvancementMetrics.Advancement, 1e-9)
}

// TestSubmitFeedbackExplicitParadigm verifies ratings for questions outside
// the history still credit the named paradigm.
func TestSubmitFeedbackExplicitParadigm(t *testing.T) {
	e := New(DefaultOptions())

	require.NoError(t, e.SubmitFeedback("A question from a past session?", false, sot.ExpertLexicons))

	report := e.PerformanceReport()
	node := report.Nodes[sot.ExpertLexicons]
	assert.Equal(t, 1, node.UsageCount)
	assert.Zero(t, node.SuccessCount)
	assert.Zero(t, report.QuestionsRated, "no history entry matched")
	assert.Equal(t, 1, report.FeedbackEvents)
}

// TestSubmitFeedbackUnmatched verifies a rating that matches nothing and
// names no paradigm still moves the loops but touches no weight.
func TestSubmitFeedbackUnmatched(t *testing.T) {
	e := New(DefaultOptions())

	require.NoError(t, e.SubmitFeedback("Nobody asked this?", true, ""))

	report := e.PerformanceReport()
	assert.Empty(t, report.Nodes)
	assert.InDelta(t, 0.55, report.GlobalCoherence, 1e-9)
	assert.Equal(t, 1, report.FeedbackEvents)
}

func TestPeriodicSave(t *testing.T) {
	spy := &spyStore{}
	e := New(Options{Store: spy, SaveEvery: 3})

	for i := 0; i < 2; i++ {
		require.NoError(t, e.SubmitFeedback("A question?", true, sot.ConceptualChaining))
	}
	assert.Zero(t, spy.saveCount())

	require.NoError(t, e.SubmitFeedback("A question?", true, sot.ConceptualChaining))
	assert.Equal(t, 1, spy.saveCount(), "third feedback triggers the save")

	for i := 0; i < 3; i++ {
		require.NoError(t, e.SubmitFeedback("A question?", false, sot.ConceptualChaining))
	}
	assert.Equal(t, 2, spy.saveCount())

	require.NotNil(t, spy.last)
	assert.Equal(t, ecosystem.StateVersion, spy.last.Version)
	assert.Contains(t, spy.last.Nodes, sot.ConceptualChaining)
}

// TestPeriodicSaveDefaultCadence pins the default cadence: ten consecutive
// feedbacks produce exactly one save.
func TestPeriodicSaveDefaultCadence(t *testing.T) {
	spy := &spyStore{}
	e := New(Options{Store: spy})

	for i := 0; i < 9; i++ {
		require.NoError(t, e.SubmitFeedback("A question?", true, sot.ConceptualChaining))
	}
	assert.Zero(t, spy.saveCount())

	require.NoError(t, e.SubmitFeedback("A question?", true, sot.ConceptualChaining))
	assert.Equal(t, 1, spy.saveCount())
}

// TestPeriodicSaveFailure verifies a failing store degrades to a warning;
// feedback itself still succeeds.
func TestPeriodicSaveFailure(t *testing.T) {
	spy := &spyStore{saveErr: errors.New("disk full")}
	e := New(Options{Store: spy, SaveEvery: 1})

	assert.NoError(t, e.SubmitFeedback("A question?", true, sot.ConceptualChaining))

	err := e.SaveState()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSaveStateNoStore(t *testing.T) {
	e := New(DefaultOptions())
	assert.NoError(t, e.SaveState())
}

func TestSaveStateSnapshot(t *testing.T) {
	spy := &spyStore{}
	e := New(Options{Store: spy})

	a, err := e.Analyze(context.Background(), analysisText, analysisIssues(), "")
	require.NoError(t, err)
	require.NoError(t, e.SubmitFeedback(a.Questions[0].Text, true, ""))
	require.NoError(t, e.SaveState())

	require.NotNil(t, spy.last)
	assert.Equal(t, ecosystem.StateVersion, spy.last.Version)
	assert.Len(t, spy.last.FeedbackLoops, 3)
	assert.Len(t, spy.last.QuestionHistory, 2)
	assert.InDelta(t, 0.55, spy.last.GlobalCoherence, 1e-9)
	assert.InDelta(t, 0.94, spy.last.AdvancementMetrics.Advancement, 1e-9)

	node := spy.last.Nodes[sot.ConceptualChaining]
	assert.Equal(t, 1, node.UsageCount)
	assert.InDelta(t, 1.0, node.Weight, 1e-9)
}

func TestLoadStateMissing(t *testing.T) {
	e := New(Options{Store: &spyStore{}})

	assert.False(t, e.LoadState())

	report := e.PerformanceReport()
	assert.Empty(t, report.Nodes)
	assert.InDelta(t, 0.5, report.GlobalCoherence, 1e-9, "defaults untouched")
}

func TestLoadStateNoStore(t *testing.T) {
	e := New(DefaultOptions())
	assert.False(t, e.LoadState())
}

func TestLoadStateRestores(t *testing.T) {
	loops := ecosystem.NewLoopRegistry()
	require.NoError(t, loops.Update(ecosystem.LoopReasoningCoherence, 1.0))

	helpful := true
	saved := ecosystem.DefaultState()
	saved.Nodes = map[sot.Paradigm]ecosystem.ParadigmNode{
		sot.ConceptualChaining: {
			Paradigm:     sot.ConceptualChaining,
			UsageCount:   4,
			SuccessCount: 3,
			Weight:       0.75,
		},
	}
	saved.FeedbackLoops = loops.Snapshot()
	saved.QuestionHistory = []ecosystem.QuestionHistoryEntry{
		{Question: "Rated?", Helpful: &helpful, Paradigm: sot.ConceptualChaining, AskedAt: time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)},
		{Question: "Unrated?", Paradigm: sot.ConceptualChaining, AskedAt: time.Date(2025, 11, 3, 10, 1, 0, 0, time.UTC)},
	}

	e := New(Options{Store: &spyStore{load: &saved}})
	require.True(t, e.LoadState())

	report := e.PerformanceReport()
	assert.InDelta(t, 0.75, report.Weights[sot.ConceptualChaining], 1e-9)
	assert.InDelta(t, 0.55, report.GlobalCoherence, 1e-9)
	assert.Equal(t, 2, report.QuestionsGenerated)
	assert.Equal(t, 1, report.QuestionsRated)

	history := e.History()
	require.Len(t, history, 2)
	assert.Equal(t, "Rated?", history[0].Question)
}

// TestLoadStateNormalizes verifies a snapshot with junk in it is repaired
// rather than applied verbatim.
func TestLoadStateNormalizes(t *testing.T) {
	saved := ecosystem.DefaultState()
	saved.Version = ""
	saved.Nodes = map[sot.Paradigm]ecosystem.ParadigmNode{
		sot.Paradigm("invented"): {Paradigm: sot.Paradigm("invented"), Weight: 0.5},
		sot.SocraticQuestioning:  {Paradigm: sot.SocraticQuestioning, UsageCount: 2, SuccessCount: 9, Weight: 4.2},
	}

	e := New(Options{Store: &spyStore{load: &saved}})
	require.True(t, e.LoadState())

	report := e.PerformanceReport()
	assert.NotContains(t, report.Nodes, sot.Paradigm("invented"))

	node := report.Nodes[sot.SocraticQuestioning]
	assert.Equal(t, 2, node.SuccessCount, "success capped at usage")
	assert.InDelta(t, 1.0, node.Weight, 1e-9, "weight recomputed from counters")
}

func TestPerformanceReportNoSideEffects(t *testing.T) {
	e := New(DefaultOptions())
	require.NoError(t, e.SubmitFeedback("A question?", true, sot.ConceptualChaining))

	first := e.PerformanceReport()
	first.Weights[sot.ConceptualChaining] = 0.0
	delete(first.Nodes, sot.ConceptualChaining)

	second := e.PerformanceReport()
	assert.InDelta(t, 1.0, second.Weights[sot.ConceptualChaining], 1e-9)
	assert.Contains(t, second.Nodes, sot.ConceptualChaining)
	assert.Equal(t, first.FeedbackEvents, second.FeedbackEvents)
}

func TestWeightOverrode(t *testing.T) {
	a := &Analysis{Paradigm: sot.ChunkedSymbolism, Classified: sot.ConceptualChaining}
	assert.True(t, a.WeightOverrode())

	a = &Analysis{Paradigm: sot.ChunkedSymbolism}
	assert.False(t, a.WeightOverrode(), "overrides have no classification to differ from")

	a = &Analysis{Paradigm: sot.ConceptualChaining, Classified: sot.ConceptualChaining}
	assert.False(t, a.WeightOverrode())
}
