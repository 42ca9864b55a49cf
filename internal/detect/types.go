// Package detect finds clarity and bias issues in raw text using pattern
// tables. Detection is deterministic and pure: the same text always produces
// the same issues, and nothing downstream can mutate them.
package detect

import (
	"errors"
	"fmt"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ISSUE MODEL
// ═══════════════════════════════════════════════════════════════════════════════

// IssueKind categorizes the kind of language issue detected.
type IssueKind string

const (
	KindVagueTerm         IssueKind = "vague_term"
	KindUnclearReference  IssueKind = "unclear_reference"
	KindGenderBias        IssueKind = "gender_bias"
	KindStereotype        IssueKind = "stereotype"
	KindNonInclusive      IssueKind = "non_inclusive"
	KindAbsoluteStatement IssueKind = "absolute_statement"
	KindUnsupportedClaim  IssueKind = "unsupported_claim"
)

// Kinds returns the closed set of issue kinds.
func Kinds() []IssueKind {
	return []IssueKind{
		KindVagueTerm,
		KindUnclearReference,
		KindGenderBias,
		KindStereotype,
		KindNonInclusive,
		KindAbsoluteStatement,
		KindUnsupportedClaim,
	}
}

// Valid reports whether k is a member of the closed kind set.
func (k IssueKind) Valid() bool {
	switch k {
	case KindVagueTerm, KindUnclearReference, KindGenderBias, KindStereotype,
		KindNonInclusive, KindAbsoluteStatement, KindUnsupportedClaim:
		return true
	}
	return false
}

// Span locates an issue within the source text as byte offsets.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Issue represents a single detected language problem. Immutable once
// produced; the reasoning core consumes issues read-only.
type Issue struct {
	Term        string    `json:"term"`
	Kind        IssueKind `json:"issue_kind"`
	Description string    `json:"description"`
	Confidence  float64   `json:"confidence"` // 0-1
	Span        *Span     `json:"span,omitempty"`
}

var (
	// ErrInvalidIssue is returned when an issue fails construction validation.
	ErrInvalidIssue = errors.New("invalid issue")
)

// NewIssue builds a validated Issue. Confidence must lie in [0,1] and the
// kind must belong to the closed set; malformed records are rejected here
// rather than propagated into the reasoning core.
func NewIssue(term string, kind IssueKind, description string, confidence float64) (Issue, error) {
	if term == "" {
		return Issue{}, fmt.Errorf("%w: empty term", ErrInvalidIssue)
	}
	if !kind.Valid() {
		return Issue{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidIssue, kind)
	}
	if confidence < 0 || confidence > 1 {
		return Issue{}, fmt.Errorf("%w: confidence %.3f outside [0,1]", ErrInvalidIssue, confidence)
	}
	return Issue{
		Term:        term,
		Kind:        kind,
		Description: description,
		Confidence:  confidence,
	}, nil
}

// WithSpan returns a copy of the issue carrying source offsets.
func (i Issue) WithSpan(start, end int) Issue {
	i.Span = &Span{Start: start, End: end}
	return i
}
