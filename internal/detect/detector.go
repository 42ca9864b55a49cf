package detect

import (
	"regexp"
	"sort"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DETECTOR
// ═══════════════════════════════════════════════════════════════════════════════

// Detector scans text against per-kind pattern tables and produces
// validated issues for everything that matches.
type Detector struct {
	minConfidence float64 // Issues below this confidence are dropped (default: 0.0)
	maxIssues     int     // Cap on reported issues per text (default: 25)
}

// NewDetector creates a detector with default thresholds.
func NewDetector() *Detector {
	return &Detector{
		minConfidence: 0.0,
		maxIssues:     25,
	}
}

// WithMinConfidence drops issues whose pattern confidence is below min.
func (d *Detector) WithMinConfidence(min float64) *Detector {
	d.minConfidence = min
	return d
}

// WithMaxIssues caps the number of issues reported per text.
func (d *Detector) WithMaxIssues(max int) *Detector {
	d.maxIssues = max
	return d
}

// Detect runs every pattern table over the text and returns the detected
// issues ordered by position. Pure function; empty or whitespace-only text
// yields no issues.
func (d *Detector) Detect(text string) []Issue {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var issues []Issue
	for _, table := range patternTables {
		issues = append(issues, d.scan(text, table)...)
	}

	issues = dedupe(issues)
	sort.SliceStable(issues, func(a, b int) bool {
		return spanStart(issues[a]) < spanStart(issues[b])
	})

	if d.maxIssues > 0 && len(issues) > d.maxIssues {
		issues = issues[:d.maxIssues]
	}
	return issues
}

// scan applies one pattern table, extracting the flagged term from the
// first capture group when present, else the whole match.
func (d *Detector) scan(text string, table patternTable) []Issue {
	var out []Issue
	for _, p := range table.patterns {
		if p.confidence < d.minConfidence {
			continue
		}
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if len(loc) >= 4 && loc[2] >= 0 {
				start, end = loc[2], loc[3]
			}
			issue, err := NewIssue(text[start:end], table.kind, p.description, p.confidence)
			if err != nil {
				continue
			}
			out = append(out, issue.WithSpan(start, end))
		}
	}
	return out
}

// dedupe collapses repeated (kind, lowercased term) hits, keeping the first.
func dedupe(issues []Issue) []Issue {
	seen := make(map[string]bool, len(issues))
	out := issues[:0]
	for _, is := range issues {
		key := string(is.Kind) + "\x00" + strings.ToLower(is.Term)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, is)
	}
	return out
}

func spanStart(i Issue) int {
	if i.Span == nil {
		return 0
	}
	return i.Span.Start
}

// ═══════════════════════════════════════════════════════════════════════════════
// PATTERN TABLES
// ═══════════════════════════════════════════════════════════════════════════════

type issuePattern struct {
	re          *regexp.Regexp
	confidence  float64
	description string
}

type patternTable struct {
	kind     IssueKind
	patterns []issuePattern
}

var patternTables = []patternTable{
	{
		kind: KindVagueTerm,
		patterns: []issuePattern{
			{
				re:          regexp.MustCompile(`(?i)\b(some people|many people|a lot of|lots of|plenty of|most people)\b`),
				confidence:  0.70,
				description: "Vague quantifier leaves the referenced group undefined",
			},
			{
				re:          regexp.MustCompile(`(?i)\b(stuff|things|something|whatever|somehow)\b`),
				confidence:  0.60,
				description: "Placeholder noun carries no concrete meaning",
			},
			{
				re:          regexp.MustCompile(`(?i)\b(sort of|kind of|pretty much|more or less|basically|various|several)\b`),
				confidence:  0.55,
				description: "Hedge phrase weakens the claim without adding information",
			},
		},
	},
	{
		kind: KindUnclearReference,
		patterns: []issuePattern{
			{
				re:          regexp.MustCompile(`^\s*(?i:(this|that|it|they|these|those))\b`),
				confidence:  0.50,
				description: "Opening pronoun has no antecedent in the text",
			},
			{
				re:          regexp.MustCompile(`[.!?]\s+((?:This|That|It|They)\s+(?:is|are|was|were|seems?|shows?|proves?))\b`),
				confidence:  0.45,
				description: "Sentence-initial pronoun may refer to an unclear antecedent",
			},
		},
	},
	{
		kind: KindGenderBias,
		patterns: []issuePattern{
			{
				re:          regexp.MustCompile(`(?i)\b(mankind|manpower|man-made|manned)\b`),
				confidence:  0.75,
				description: "Gendered generic excludes part of the population",
			},
			{
				re:          regexp.MustCompile(`(?i)\b(chairman|chairmen|policeman|policemen|fireman|firemen|mailman|salesman|salesmen|businessman|businessmen|stewardess|housewife)\b`),
				confidence:  0.80,
				description: "Gendered role noun where a neutral form exists",
			},
		},
	},
	{
		kind: KindStereotype,
		patterns: []issuePattern{
			{
				re:          regexp.MustCompile(`(?i)\b(all\s+[a-z]+(?:\s[a-z]+)?s)\s+(?:are|have|do|want|can't|cannot|won't|will)\b`),
				confidence:  0.90,
				description: "Universal claim about a whole group",
			},
			{
				re:          regexp.MustCompile(`(?i)\b(women|men|immigrants|foreigners|teenagers|millennials|boomers|old people)\s+(?:are|can't|cannot|always|never)\b`),
				confidence:  0.80,
				description: "Group-level generalization without qualification",
			},
			{
				re:          regexp.MustCompile(`(?i)\b(those people|people like that|that kind of people)\b`),
				confidence:  0.70,
				description: "Othering phrase groups individuals by implication",
			},
			{
				re:          regexp.MustCompile(`(?i)\btypical\s+(woman|man|male|female|teenager|politician|foreigner)\b`),
				confidence:  0.75,
				description: "Appeal to a stereotypical archetype",
			},
		},
	},
	{
		kind: KindNonInclusive,
		patterns: []issuePattern{
			{
				re:          regexp.MustCompile(`(?i)\b(blacklist(?:ed|ing)?|whitelist(?:ed|ing)?)\b`),
				confidence:  0.70,
				description: "Exclusionary term with an accepted neutral replacement",
			},
			{
				re:          regexp.MustCompile(`(?i)\b(crazy|insane|lame|dumb)\b`),
				confidence:  0.55,
				description: "Ableist descriptor used as casual judgment",
			},
			{
				re:          regexp.MustCompile(`(?i)\bhey guys\b|\byou guys\b`),
				confidence:  0.50,
				description: "Gendered collective address",
			},
		},
	},
	{
		kind: KindAbsoluteStatement,
		patterns: []issuePattern{
			{
				re:          regexp.MustCompile(`(?i)\b(always|never|impossible|guaranteed)\b`),
				confidence:  0.65,
				description: "Absolute admits no exception",
			},
			{
				re:          regexp.MustCompile(`(?i)\b(everyone|everybody|no one|nobody|none of them|all of them)\b`),
				confidence:  0.60,
				description: "Totalizing quantifier over people",
			},
			{
				re:          regexp.MustCompile(`(?i)\b(absolutely|certainly|undoubtedly|without question)\b`),
				confidence:  0.55,
				description: "Certainty marker overstates the evidence",
			},
		},
	},
	{
		kind: KindUnsupportedClaim,
		patterns: []issuePattern{
			{
				re:          regexp.MustCompile(`(?i)\b(studies show|research proves|research shows|statistics show|science says)\b`),
				confidence:  0.75,
				description: "Appeal to unnamed studies",
			},
			{
				re:          regexp.MustCompile(`(?i)\b(experts say|experts agree|scientists agree|doctors recommend)\b`),
				confidence:  0.70,
				description: "Appeal to unnamed authority",
			},
			{
				re:          regexp.MustCompile(`(?i)\b(it is known|everyone knows|obviously|clearly|proven fact)\b`),
				confidence:  0.65,
				description: "Claim asserted as self-evident without support",
			},
		},
	},
}
