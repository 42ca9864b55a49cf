package sot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/normanking/socratic/internal/llm"
	"github.com/normanking/socratic/internal/logging"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PARADIGM CLASSIFIER
// ═══════════════════════════════════════════════════════════════════════════════

// Source identifies which classification path produced a result, so callers
// can tell a model answer from a heuristic fallback.
type Source string

const (
	SourceModel     Source = "model"
	SourceHeuristic Source = "heuristic"
	// SourceOverride marks a paradigm supplied by the caller, skipping
	// classification entirely.
	SourceOverride Source = "override"
)

// Result is a classification outcome. The paradigm is always a member of
// the fixed set; Source is heuristic whenever the model path was skipped
// or failed.
type Result struct {
	Paradigm Paradigm `json:"paradigm"`
	Source   Source   `json:"source"`
}

// Classifier maps input text to a reasoning paradigm. The model-backed path
// is optional; without a provider (or on any provider failure) the keyword
// heuristic decides. Classify never fails outward.
type Classifier struct {
	provider llm.Provider // nil disables the model path
	model    string
	log      *logging.Logger
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithProvider enables the model-backed classification path.
func WithProvider(p llm.Provider) ClassifierOption {
	return func(c *Classifier) {
		c.provider = p
	}
}

// WithModel overrides the model used for classification requests.
func WithModel(model string) ClassifierOption {
	return func(c *Classifier) {
		c.model = model
	}
}

// WithLogger sets the classifier's logger.
func WithLogger(l *logging.Logger) ClassifierOption {
	return func(c *Classifier) {
		c.log = l
	}
}

// NewClassifier creates a classifier. Heuristic-only unless WithProvider
// is given.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		log: logging.Global().WithComponent("classifier"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the paradigm for the text. Model errors degrade to the
// keyword heuristic with a warning; the result is always in-set.
func (c *Classifier) Classify(ctx context.Context, text string) Result {
	if c.provider != nil {
		paradigm, err := c.classifyModel(ctx, text)
		if err == nil {
			return Result{Paradigm: paradigm, Source: SourceModel}
		}
		c.log.Warn("model classification failed, using keyword heuristic: %v", err)
	}
	return Result{Paradigm: classifyKeywords(text), Source: SourceHeuristic}
}

// ═══════════════════════════════════════════════════════════════════════════════
// MODEL PATH
// ═══════════════════════════════════════════════════════════════════════════════

// labelParadigms is the fixed label-index table of the 3-class classifier.
var labelParadigms = [3]Paradigm{ChunkedSymbolism, ConceptualChaining, ExpertLexicons}

const classifyPromptFormat = `Classify which reasoning paradigm fits this text best.
0 = chunked_symbolism (arithmetic, quantities, calculations)
1 = conceptual_chaining (general concepts and their relations)
2 = expert_lexicons (technical or specialist domain language)
Answer with the single digit only.

Text: %s`

// classifyModel asks the provider for a class label and maps it through the
// label-index table back to a paradigm.
func (c *Classifier) classifyModel(ctx context.Context, text string) (Paradigm, error) {
	resp, err := c.provider.Generate(ctx, &llm.GenerateRequest{
		Model:       c.model,
		Prompt:      fmt.Sprintf(classifyPromptFormat, text),
		Temperature: 0.1,
		MaxTokens:   8,
	})
	if err != nil {
		return "", err
	}
	return mapModelLabel(resp.Content)
}

// mapModelLabel accepts either a class index or a paradigm name.
func mapModelLabel(reply string) (Paradigm, error) {
	label := strings.ToLower(strings.TrimSpace(reply))
	if label == "" {
		return "", fmt.Errorf("empty classification reply")
	}

	if idx, err := strconv.Atoi(strings.Fields(label)[0]); err == nil {
		if idx < 0 || idx >= len(labelParadigms) {
			return "", fmt.Errorf("class index %d out of range", idx)
		}
		return labelParadigms[idx], nil
	}

	for _, p := range labelParadigms {
		if strings.Contains(label, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unmappable classification reply %q", reply)
}

// ═══════════════════════════════════════════════════════════════════════════════
// KEYWORD HEURISTIC
// ═══════════════════════════════════════════════════════════════════════════════

// Heuristic tables, checked in fixed priority order: quantitative beats
// technical beats the conceptual default.
var (
	quantitativePattern = regexp.MustCompile(`(?i)[0-9]|[=+×÷%]|\b(calculate|calculation|sum|average|mean|percent|percentage|equation|total|ratio|multiply|divide|subtract|count|how many|how much)\b`)
	technicalPattern    = regexp.MustCompile(`(?i)\b(algorithm|protocol|database|server|compiler|kernel|encryption|bandwidth|latency|syntax|framework|quantum|neural|enzyme|molecule|theorem|hypothesis|diagnosis|statute|liability)\b`)
)

// classifyKeywords is the deterministic fallback classifier.
func classifyKeywords(text string) Paradigm {
	switch {
	case quantitativePattern.MatchString(text):
		return ChunkedSymbolism
	case technicalPattern.MatchString(text):
		return ExpertLexicons
	default:
		return ConceptualChaining
	}
}
