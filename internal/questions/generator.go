// Package questions turns detected issues into Socratic follow-up
// questions, via the configured LLM provider when one is reachable and via
// per-issue templates otherwise.
package questions

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/normanking/socratic/internal/detect"
	"github.com/normanking/socratic/internal/llm"
	"github.com/normanking/socratic/internal/logging"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// Question is one generated follow-up, tagged with the issue that prompted
// it when known.
type Question struct {
	ID   string           `json:"id"`
	Text string           `json:"text"`
	Kind detect.IssueKind `json:"issue_kind,omitempty"`
	Term string           `json:"term,omitempty"`
}

// Source identifies which path produced a batch of questions.
type Source string

const (
	// SourceModel marks questions written by the LLM provider.
	SourceModel Source = "model"
	// SourceTemplate marks questions filled from the per-issue templates.
	SourceTemplate Source = "template"
)

// defaultCount bounds how many questions one analysis produces.
const defaultCount = 3

// ═══════════════════════════════════════════════════════════════════════════════
// GENERATOR
// ═══════════════════════════════════════════════════════════════════════════════

// Generator produces Socratic questions for a statement and its detected
// issues. Generation never fails outward: any provider error degrades to
// the template path.
type Generator struct {
	provider llm.Provider
	model    string
	count    int
	log      *logging.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithProvider sets the LLM provider. A nil provider keeps the generator
// on the template path.
func WithProvider(p llm.Provider) Option {
	return func(g *Generator) { g.provider = p }
}

// WithModel overrides the provider's default model for generation calls.
func WithModel(model string) Option {
	return func(g *Generator) { g.model = model }
}

// WithCount bounds how many questions each call returns.
func WithCount(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.count = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(g *Generator) { g.log = log }
}

// NewGenerator creates a Generator with the given options.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{count: defaultCount}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logging.Global().WithComponent("questions")
	}
	return g
}

// Generate returns up to the configured number of questions for text and
// its issues, plus the source that produced them. No issues means no
// questions.
func (g *Generator) Generate(ctx context.Context, text string, issues []detect.Issue) ([]Question, Source) {
	if len(issues) == 0 {
		return nil, SourceTemplate
	}

	if g.provider != nil {
		qs, err := g.generateWithModel(ctx, text, issues)
		if err == nil && len(qs) > 0 {
			return qs, SourceModel
		}
		if err != nil {
			g.log.Warn("model question generation failed, using templates: %v", err)
		}
	}

	return g.generateFromTemplates(issues), SourceTemplate
}

// ═══════════════════════════════════════════════════════════════════════════════
// MODEL PATH
// ═══════════════════════════════════════════════════════════════════════════════

const questionSystemPrompt = "You are a Socratic questioner. Given a statement and its detected " +
	"clarity issues, write short follow-up questions that help the author " +
	"sharpen the statement. Return only a numbered list, one question per line."

// numberedLine matches "1. text", "2) text", and "- text" style list items.
var numberedLine = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*])\s*(.+?)\s*$`)

func (g *Generator) generateWithModel(ctx context.Context, text string, issues []detect.Issue) ([]Question, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Statement: %s\n\nDetected issues:\n", text)
	for _, issue := range issues {
		fmt.Fprintf(&sb, "- %q (%s): %s\n", issue.Term, issue.Kind, issue.Description)
	}
	fmt.Fprintf(&sb, "\nWrite %d clarifying questions.", g.count)

	resp, err := g.provider.Chat(ctx, &llm.ChatRequest{
		Model:        g.model,
		SystemPrompt: questionSystemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: sb.String()}},
		MaxTokens:    256,
		Temperature:  0.7,
	})
	if err != nil {
		return nil, err
	}

	parsed := parseQuestionList(resp.Content, g.count)
	if len(parsed) == 0 {
		return nil, fmt.Errorf("no questions in model output")
	}

	qs := make([]Question, 0, len(parsed))
	for _, q := range parsed {
		qs = append(qs, Question{ID: uuid.NewString(), Text: q})
	}
	return qs, nil
}

// parseQuestionList extracts up to max list items from model output.
// Non-list lines (preambles, closing remarks) are ignored.
func parseQuestionList(content string, max int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(content, "\n") {
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		q := strings.Trim(m[1], `"' `)
		if q == "" || seen[strings.ToLower(q)] {
			continue
		}
		seen[strings.ToLower(q)] = true
		out = append(out, q)
		if len(out) == max {
			break
		}
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════════
// TEMPLATE PATH
// ═══════════════════════════════════════════════════════════════════════════════

// questionTemplates maps issue kinds to a question format taking the term.
var questionTemplates = map[detect.IssueKind]string{
	detect.KindVagueTerm:         "What exactly do you mean by %q?",
	detect.KindUnclearReference:  "What specifically does %q refer to?",
	detect.KindGenderBias:        "Could this be phrased without assuming gender, instead of %q?",
	detect.KindStereotype:        "What evidence supports the generalization %q?",
	detect.KindNonInclusive:      "Is there a more neutral term than %q?",
	detect.KindAbsoluteStatement: "Are there exceptions to %q?",
	detect.KindUnsupportedClaim:  "What sources support the claim %q?",
}

const genericTemplate = "Could you clarify what you mean by %q?"

func (g *Generator) generateFromTemplates(issues []detect.Issue) []Question {
	qs := make([]Question, 0, g.count)
	seen := make(map[string]bool)
	for _, issue := range issues {
		format, ok := questionTemplates[issue.Kind]
		if !ok {
			format = genericTemplate
		}
		text := fmt.Sprintf(format, issue.Term)
		if seen[text] {
			continue
		}
		seen[text] = true
		qs = append(qs, Question{
			ID:   uuid.NewString(),
			Text: text,
			Kind: issue.Kind,
			Term: issue.Term,
		})
		if len(qs) == g.count {
			break
		}
	}
	return qs
}
