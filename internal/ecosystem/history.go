package ecosystem

import (
	"sync"
	"time"

	"github.com/normanking/socratic/internal/sot"
)

// ═══════════════════════════════════════════════════════════════════════════════
// QUESTION HISTORY
// ═══════════════════════════════════════════════════════════════════════════════

// QuestionHistoryEntry records one generated question, the paradigm it was
// generated under, and its eventual rating. Helpful stays nil until
// feedback arrives.
type QuestionHistoryEntry struct {
	Question string       `json:"question"`
	Helpful  *bool        `json:"helpful"`
	Paradigm sot.Paradigm `json:"paradigm,omitempty"`
	AskedAt  time.Time    `json:"asked_at"`
}

// defaultHistoryCapacity bounds the in-memory history so long-running
// sessions cannot grow it without limit.
const defaultHistoryCapacity = 500

// ArchiveFunc receives entries evicted from the ring, oldest first.
type ArchiveFunc func([]QuestionHistoryEntry)

// History is a bounded, mutex-guarded ring of question records. When
// capacity is exceeded the oldest entries are evicted and handed to the
// archive hook, if one is set.
type History struct {
	mu       sync.Mutex
	entries  []QuestionHistoryEntry
	capacity int
	archive  ArchiveFunc
}

// NewHistory creates a history bounded to capacity entries. Non-positive
// capacities fall back to the default.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = defaultHistoryCapacity
	}
	return &History{capacity: capacity}
}

// SetArchive installs the eviction hook. Pass nil to drop evicted entries.
func (h *History) SetArchive(fn ArchiveFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.archive = fn
}

// Append records a new question and evicts from the front if the ring is
// full. The archive hook runs outside the lock so it may safely call back
// into the history.
func (h *History) Append(entry QuestionHistoryEntry) {
	h.mu.Lock()
	h.entries = append(h.entries, entry)
	evicted, fn := h.evictLocked()
	h.mu.Unlock()

	if fn != nil && len(evicted) > 0 {
		fn(evicted)
	}
}

// evictLocked trims the ring to capacity and returns what fell off.
func (h *History) evictLocked() ([]QuestionHistoryEntry, ArchiveFunc) {
	if len(h.entries) <= h.capacity {
		return nil, nil
	}
	excess := len(h.entries) - h.capacity
	evicted := make([]QuestionHistoryEntry, excess)
	copy(evicted, h.entries[:excess])
	h.entries = append(h.entries[:0], h.entries[excess:]...)
	return evicted, h.archive
}

// MarkHelpful attaches a rating to the most recent unrated entry matching
// question. The search runs newest-first so repeated questions rate their
// latest occurrence. Returns the updated entry and whether a match was
// found.
func (h *History) MarkHelpful(question string, helpful bool) (QuestionHistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].Question != question || h.entries[i].Helpful != nil {
			continue
		}
		rated := helpful
		h.entries[i].Helpful = &rated
		return h.entries[i], true
	}
	return QuestionHistoryEntry{}, false
}

// Entries returns a copy of the ring contents, oldest first.
func (h *History) Entries() []QuestionHistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]QuestionHistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Rated returns how many retained entries have received feedback.
func (h *History) Rated() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	rated := 0
	for _, e := range h.entries {
		if e.Helpful != nil {
			rated++
		}
	}
	return rated
}

// Restore replaces the ring with persisted entries, keeping only the most
// recent capacity's worth. Nothing is archived during restore.
func (h *History) Restore(entries []QuestionHistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(entries) > h.capacity {
		entries = entries[len(entries)-h.capacity:]
	}
	h.entries = make([]QuestionHistoryEntry, len(entries))
	copy(h.entries, entries)
}
