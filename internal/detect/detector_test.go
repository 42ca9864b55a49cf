package detect

import (
	"testing"
)

func TestDetectStereotype(t *testing.T) {
	d := NewDetector()
	issues := d.Detect("All immigrants are a drain on the economy.")

	if len(issues) == 0 {
		t.Fatal("expected at least one issue")
	}

	first := issues[0]
	if first.Kind != KindStereotype {
		t.Errorf("expected kind %s, got %s", KindStereotype, first.Kind)
	}
	if first.Term != "All immigrants" {
		t.Errorf("expected term 'All immigrants', got '%s'", first.Term)
	}
	if first.Confidence != 0.90 {
		t.Errorf("expected confidence 0.90, got %.2f", first.Confidence)
	}
	if first.Span == nil {
		t.Fatal("expected span to be set")
	}
	if first.Span.Start != 0 {
		t.Errorf("expected span to start at 0, got %d", first.Span.Start)
	}

	for _, issue := range issues {
		if issue.Kind != KindStereotype {
			t.Errorf("unexpected kind %s for term '%s'", issue.Kind, issue.Term)
		}
	}
}

func TestDetectByKind(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind IssueKind
		term string
	}{
		{
			name: "vague quantifier",
			text: "Some people say the plan failed.",
			kind: KindVagueTerm,
			term: "Some people",
		},
		{
			name: "placeholder noun",
			text: "We need to fix the stuff before launch.",
			kind: KindVagueTerm,
			term: "stuff",
		},
		{
			name: "opening pronoun",
			text: "This proves the approach works.",
			kind: KindUnclearReference,
			term: "This",
		},
		{
			name: "gendered generic",
			text: "The dam is the largest man-made structure in the region.",
			kind: KindGenderBias,
			term: "man-made",
		},
		{
			name: "gendered role noun",
			text: "The chairman approved the budget.",
			kind: KindGenderBias,
			term: "chairman",
		},
		{
			name: "group generalization",
			text: "Teenagers never read the instructions.",
			kind: KindStereotype,
			term: "Teenagers",
		},
		{
			name: "othering phrase",
			text: "I would not trust those people with the keys.",
			kind: KindNonInclusive,
			term: "those people",
		},
		{
			name: "exclusionary term",
			text: "Add the domain to the blacklist.",
			kind: KindNonInclusive,
			term: "blacklist",
		},
		{
			name: "absolute",
			text: "The backup job never fails.",
			kind: KindAbsoluteStatement,
			term: "never",
		},
		{
			name: "totalizing quantifier",
			text: "Everyone agrees with the proposal.",
			kind: KindAbsoluteStatement,
			term: "Everyone",
		},
		{
			name: "unnamed studies",
			text: "Studies show the diet reverses aging.",
			kind: KindUnsupportedClaim,
			term: "Studies show",
		},
		{
			name: "unnamed authority",
			text: "Experts agree the market will recover.",
			kind: KindUnsupportedClaim,
			term: "Experts agree",
		},
	}

	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := d.Detect(tt.text)
			if len(issues) == 0 {
				t.Fatalf("expected issues in %q, got none", tt.text)
			}

			found := false
			for _, issue := range issues {
				if issue.Kind == tt.kind && issue.Term == tt.term {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected %s issue with term '%s', got %+v", tt.kind, tt.term, issues)
			}
		})
	}
}

func TestDetectCleanText(t *testing.T) {
	d := NewDetector()

	for _, text := range []string{
		"",
		"   \n\t  ",
		"The quarterly report was filed before the deadline.",
	} {
		if issues := d.Detect(text); len(issues) != 0 {
			t.Errorf("expected no issues in %q, got %+v", text, issues)
		}
	}
}

func TestDetectMidSentencePronoun(t *testing.T) {
	// "those people" is flagged as othering, not as a bare opening pronoun:
	// the unclear-reference pattern only fires at the start of the text.
	d := NewDetector()
	issues := d.Detect("Managers praise those people constantly.")

	for _, issue := range issues {
		if issue.Kind == KindUnclearReference {
			t.Errorf("mid-sentence 'those' should not flag a reference issue: %+v", issue)
		}
	}
}

func TestDetectMinConfidence(t *testing.T) {
	text := "That idea is crazy."

	all := NewDetector().Detect(text)
	if len(all) != 2 {
		t.Fatalf("expected 2 issues without threshold, got %d: %+v", len(all), all)
	}

	filtered := NewDetector().WithMinConfidence(0.7).Detect(text)
	if len(filtered) != 0 {
		t.Errorf("expected no issues at min confidence 0.7, got %+v", filtered)
	}
}

func TestDetectMaxIssues(t *testing.T) {
	text := "Everyone always says stuff and things obviously."

	all := NewDetector().Detect(text)
	if len(all) < 4 {
		t.Fatalf("expected at least 4 issues, got %d", len(all))
	}

	capped := NewDetector().WithMaxIssues(2).Detect(text)
	if len(capped) != 2 {
		t.Errorf("expected 2 issues with cap, got %d", len(capped))
	}
}

func TestDetectDedupe(t *testing.T) {
	d := NewDetector()
	issues := d.Detect("The crazy plan was crazy from the start.")

	count := 0
	for _, issue := range issues {
		if issue.Kind == KindNonInclusive {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected repeated term to dedupe to 1 issue, got %d", count)
	}
}

func TestDetectSpansMatchTerms(t *testing.T) {
	d := NewDetector()
	text := "Everyone knows the chairman never listens to those people."
	issues := d.Detect(text)

	if len(issues) < 3 {
		t.Fatalf("expected at least 3 issues, got %d", len(issues))
	}

	prev := -1
	for _, issue := range issues {
		if issue.Span == nil {
			t.Fatalf("issue %q has no span", issue.Term)
		}
		if got := text[issue.Span.Start:issue.Span.End]; got != issue.Term {
			t.Errorf("span [%d:%d] yields %q, want term %q", issue.Span.Start, issue.Span.End, got, issue.Term)
		}
		if issue.Span.Start < prev {
			t.Errorf("issues not ordered by position: %d after %d", issue.Span.Start, prev)
		}
		prev = issue.Span.Start
	}
}

func TestDetectDeterministic(t *testing.T) {
	d := NewDetector()
	text := "Studies show everyone always trusts the chairman."

	first := d.Detect(text)
	second := d.Detect(text)

	if len(first) != len(second) {
		t.Fatalf("issue count changed between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Term != second[i].Term || first[i].Kind != second[i].Kind {
			t.Errorf("issue %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}
