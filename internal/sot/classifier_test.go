package sot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/socratic/internal/llm"
)

// mockProvider implements llm.Provider for testing.
type mockProvider struct {
	reply      string
	err        error
	lastPrompt string
}

func (m *mockProvider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.Response, error) {
	m.lastPrompt = req.Prompt
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Response{Content: m.reply, Model: "mock-model"}, nil
}

func (m *mockProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	return nil, errors.New("chat not used by classifier")
}

func (m *mockProvider) Name() string    { return "mock" }
func (m *mockProvider) Available() bool { return true }

func TestClassifyKeywordHeuristic(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Paradigm
	}{
		{
			name: "digits classify as quantitative",
			text: "The budget grew from 40 to 52 units.",
			want: ChunkedSymbolism,
		},
		{
			name: "arithmetic words classify as quantitative",
			text: "Calculate the average response time.",
			want: ChunkedSymbolism,
		},
		{
			name: "technical vocabulary",
			text: "The algorithm needs a faster compiler.",
			want: ExpertLexicons,
		},
		{
			name: "general prose defaults to conceptual",
			text: "Honesty matters more than comfort in friendship.",
			want: ConceptualChaining,
		},
		{
			name: "quantitative beats technical",
			text: "The algorithm processes 500 requests.",
			want: ChunkedSymbolism,
		},
	}

	c := NewClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Classify(context.Background(), tt.text)
			assert.Equal(t, tt.want, result.Paradigm)
			assert.Equal(t, SourceHeuristic, result.Source)
		})
	}
}

func TestClassifyModelPath(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  Paradigm
	}{
		{name: "index zero", reply: "0", want: ChunkedSymbolism},
		{name: "index one", reply: "1", want: ConceptualChaining},
		{name: "index two", reply: "2", want: ExpertLexicons},
		{name: "index with trailing prose", reply: "2 because the text is technical", want: ExpertLexicons},
		{name: "paradigm name in reply", reply: "This is expert_lexicons.", want: ExpertLexicons},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{reply: tt.reply}
			c := NewClassifier(WithProvider(provider), WithModel("test-model"))

			result := c.Classify(context.Background(), "some statement")
			assert.Equal(t, tt.want, result.Paradigm)
			assert.Equal(t, SourceModel, result.Source)
		})
	}
}

// TestClassifyModelPromptCarriesText verifies the classified text reaches
// the provider.
func TestClassifyModelPromptCarriesText(t *testing.T) {
	provider := &mockProvider{reply: "1"}
	c := NewClassifier(WithProvider(provider))

	c.Classify(context.Background(), "the statement under test")
	assert.True(t, strings.Contains(provider.lastPrompt, "the statement under test"))
}

// TestClassifyModelFallback verifies a failing provider degrades to the
// keyword heuristic instead of failing the classification.
func TestClassifyModelFallback(t *testing.T) {
	tests := []struct {
		name     string
		provider *mockProvider
	}{
		{name: "provider error", provider: &mockProvider{err: errors.New("connection refused")}},
		{name: "out of range index", provider: &mockProvider{reply: "7"}},
		{name: "unmappable reply", provider: &mockProvider{reply: "no idea"}},
		{name: "empty reply", provider: &mockProvider{reply: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(WithProvider(tt.provider))

			result := c.Classify(context.Background(), "The kernel scheduler uses a protocol.")
			assert.Equal(t, ExpertLexicons, result.Paradigm)
			assert.Equal(t, SourceHeuristic, result.Source)
		})
	}
}

func TestMapModelLabel(t *testing.T) {
	tests := []struct {
		reply   string
		want    Paradigm
		wantErr bool
	}{
		{reply: "0", want: ChunkedSymbolism},
		{reply: " 1 ", want: ConceptualChaining},
		{reply: "2", want: ExpertLexicons},
		{reply: "chunked_symbolism", want: ChunkedSymbolism},
		{reply: "I'd say conceptual_chaining fits", want: ConceptualChaining},
		{reply: "3", wantErr: true},
		{reply: "-1", wantErr: true},
		{reply: "", wantErr: true},
		{reply: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got, err := mapModelLabel(tt.reply)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestClassifyAlwaysInSet verifies every classification lands inside the
// fixed paradigm set regardless of input.
func TestClassifyAlwaysInSet(t *testing.T) {
	c := NewClassifier()
	texts := []string{
		"",
		"plain prose with no signal at all",
		"compute 2 + 2 = 4",
		"the database server protocol",
		"∀x∃y: odd symbols only",
	}

	for _, text := range texts {
		result := c.Classify(context.Background(), text)
		assert.True(t, result.Paradigm.Valid(), "text %q classified outside the set: %s", text, result.Paradigm)
	}
}
