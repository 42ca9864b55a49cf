package sot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/normanking/socratic/internal/detect"
)

// ═══════════════════════════════════════════════════════════════════════════════
// REASONING RENDERER
// ═══════════════════════════════════════════════════════════════════════════════

// Reasoning blocks are framed by a fixed delimiter pair.
const (
	ReasoningOpen  = "<think>"
	ReasoningClose = "</think>"
)

// Renderer turns detected issues into a paradigm-specific structured
// reasoning block. Pure formatting: no learning, no shared state, no errors.
type Renderer struct{}

// NewRenderer creates a renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render produces the reasoning block for the given paradigm. ok is false
// when issues is empty: no reasoning is generated when nothing was
// detected, for every paradigm. Labels outside the fixed set render with
// the conceptual chaining strategy.
func (r *Renderer) Render(text string, issues []detect.Issue, paradigm Paradigm) (string, bool) {
	if len(issues) == 0 {
		return "", false
	}

	var body string
	switch paradigm {
	case ChunkedSymbolism:
		body = renderChunkedSymbolism(issues)
	case ExpertLexicons:
		body = renderExpertLexicons(issues)
	default:
		body = renderConceptualChaining(issues)
	}

	return ReasoningOpen + "\n" + body + "\n" + ReasoningClose, true
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONCEPTUAL CHAINING
// ═══════════════════════════════════════════════════════════════════════════════

// chainRule links an issue category to its relation and consequence tags.
type chainRule struct {
	kinds       []detect.IssueKind
	relation    string
	consequence string
}

var chainRules = []chainRule{
	{[]detect.IssueKind{detect.KindGenderBias, detect.KindNonInclusive}, "implicit_bias", "needs_neutrality"},
	{[]detect.IssueKind{detect.KindVagueTerm}, "ambiguity", "requires_precision"},
	{[]detect.IssueKind{detect.KindUnclearReference}, "unclear_antecedent", "needs_specificity"},
	{[]detect.IssueKind{detect.KindStereotype}, "generalization", "requires_evidence"},
}

// renderConceptualChaining emits one #term → #relation → #consequence chain
// per issue category present, falling back to a generic chain built from the
// first issue when no category matched.
func renderConceptualChaining(issues []detect.Issue) string {
	var chains []string
	for _, rule := range chainRules {
		if issue, ok := firstOfKinds(issues, rule.kinds); ok {
			chains = append(chains, fmt.Sprintf("#%s → #%s → #%s",
				conceptTag(issue.Term), rule.relation, rule.consequence))
		}
	}

	if len(chains) == 0 {
		first := issues[0]
		chains = append(chains, fmt.Sprintf("#%s → #%s → #needs_clarification",
			conceptTag(first.Term), first.Kind))
	}

	return strings.Join(chains, "\n")
}

func firstOfKinds(issues []detect.Issue, kinds []detect.IssueKind) (detect.Issue, bool) {
	for _, issue := range issues {
		for _, k := range kinds {
			if issue.Kind == k {
				return issue, true
			}
		}
	}
	return detect.Issue{}, false
}

// conceptTag normalizes a term into a hashtag-friendly token.
func conceptTag(term string) string {
	tag := strings.ToLower(strings.TrimSpace(term))
	tag = strings.Join(strings.Fields(tag), "_")
	return strings.Trim(tag, ".,;:!?\"'")
}

// ═══════════════════════════════════════════════════════════════════════════════
// CHUNKED SYMBOLISM
// ═══════════════════════════════════════════════════════════════════════════════

// renderChunkedSymbolism emits a symbolic block: per-kind histogram, mean
// confidence, a derived clarity score, and a bucketed qualitative assessment.
func renderChunkedSymbolism(issues []detect.Issue) string {
	counts := make(map[detect.IssueKind]int)
	var confidenceSum float64
	for _, issue := range issues {
		counts[issue.Kind]++
		confidenceSum += issue.Confidence
	}

	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	var b strings.Builder
	for _, k := range kinds {
		fmt.Fprintf(&b, "%s = %d\n", k, counts[detect.IssueKind(k)])
	}

	meanConfidence := confidenceSum / float64(len(issues))
	clarity := clarityScore(len(issues))

	fmt.Fprintf(&b, "issues_total = %d\n", len(issues))
	fmt.Fprintf(&b, "confidence_mean = %.2f\n", meanConfidence)
	fmt.Fprintf(&b, "clarity_score = %.2f\n", clarity)
	fmt.Fprintf(&b, "assessment = %q", assessClarity(clarity))
	return b.String()
}

// clarityScore derives a 0-1 clarity estimate from the issue count: each
// issue costs 0.1, floored at zero.
func clarityScore(issueCount int) float64 {
	score := 1.0 - 0.1*float64(issueCount)
	if score < 0 {
		return 0
	}
	return score
}

// assessClarity buckets a clarity score into three tiers at 0.5 and 0.8.
func assessClarity(score float64) string {
	switch {
	case score < 0.5:
		return "low clarity, substantial revision needed"
	case score < 0.8:
		return "moderate clarity, clarification recommended"
	default:
		return "high clarity, minor refinement only"
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// EXPERT LEXICONS
// ═══════════════════════════════════════════════════════════════════════════════

// implicationRule gates a logical-notation line on a substring of the
// issue kind label.
type implicationRule struct {
	substring string
	line      string
}

var implicationRules = []implicationRule{
	{"bias", "bias(I) → ¬neutral"},
	{"vague", "vague(I) → ∃clarification"},
	{"stereotype", "stereotype(I) → ¬evidence"},
	{"reference", "ref(I) → ambiguous"},
	{"claim", "claim(I) → ¬supported"},
	{"absolute", "absolute(I) → ∃exception"},
}

// renderExpertLexicons emits a logical-notation block: the set I of flagged
// terms, implication lines gated by kind membership, and a closing count of
// required clarifications.
func renderExpertLexicons(issues []detect.Issue) string {
	terms := make([]string, 0, len(issues))
	for _, issue := range issues {
		terms = append(terms, fmt.Sprintf("%q", issue.Term))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I = {%s}\n", strings.Join(terms, ", "))

	for _, rule := range implicationRules {
		if anyKindContains(issues, rule.substring) {
			b.WriteString(rule.line + "\n")
		}
	}

	fmt.Fprintf(&b, "|clarify(I)| = %d", len(issues))
	return b.String()
}

func anyKindContains(issues []detect.Issue, substring string) bool {
	for _, issue := range issues {
		if strings.Contains(string(issue.Kind), substring) {
			return true
		}
	}
	return false
}
