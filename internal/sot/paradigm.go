// Package sot implements Sketch-of-Thought reasoning: paradigm
// classification for input text and paradigm-specific rendering of
// structured reasoning blocks from detected issues.
package sot

import (
	"errors"
	"fmt"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PARADIGM SET
// ═══════════════════════════════════════════════════════════════════════════════

// Paradigm is one of a fixed closed set of reasoning styles. No dynamic
// creation: anything outside the set is rejected at parse time.
type Paradigm string

const (
	ConceptualChaining  Paradigm = "conceptual_chaining"
	ChunkedSymbolism    Paradigm = "chunked_symbolism"
	ExpertLexicons      Paradigm = "expert_lexicons"
	SocraticQuestioning Paradigm = "socratic_questioning"
)

// ErrInvalidParadigm is returned when a label outside the fixed set is
// parsed or passed as an override. Programmer error, never swallowed.
var ErrInvalidParadigm = errors.New("invalid paradigm")

// Paradigms returns the closed paradigm set in stable order.
func Paradigms() []Paradigm {
	return []Paradigm{ConceptualChaining, ChunkedSymbolism, ExpertLexicons, SocraticQuestioning}
}

// Valid reports whether p belongs to the fixed paradigm set.
func (p Paradigm) Valid() bool {
	switch p {
	case ConceptualChaining, ChunkedSymbolism, ExpertLexicons, SocraticQuestioning:
		return true
	}
	return false
}

// ParseParadigm maps a label to a Paradigm, tolerating case and surrounding
// whitespace but nothing else.
func ParseParadigm(label string) (Paradigm, error) {
	p := Paradigm(strings.ToLower(strings.TrimSpace(label)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidParadigm, label)
	}
	return p, nil
}
