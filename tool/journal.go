package tool

import (
	"context"
	"sync"
	"time"
)

// JournalEntry records one dispatch. Argument values and tool output are
// never stored; only their outcome.
type JournalEntry struct {
	RequestID  string    `json:"request_id"`
	ToolName   string    `json:"tool"`
	Success    bool      `json:"success"`
	Stage      Stage     `json:"stage,omitempty"`
	ErrorCode  string    `json:"error_code,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	OutputSize int       `json:"output_size"`
}

// Journal stores dispatch history.
type Journal interface {
	Append(ctx context.Context, entry JournalEntry) error
	// Recent returns up to limit entries, newest first. limit <= 0 means all.
	Recent(ctx context.Context, limit int) ([]JournalEntry, error)
	Close() error
}

// DefaultJournalCapacity bounds a MemoryJournal created with capacity <= 0.
const DefaultJournalCapacity = 256

// MemoryJournal is a bounded in-memory ring of entries.
type MemoryJournal struct {
	mu      sync.Mutex
	entries []JournalEntry
	next    int
	full    bool
}

// NewMemoryJournal returns a journal holding at most capacity entries.
func NewMemoryJournal(capacity int) *MemoryJournal {
	if capacity <= 0 {
		capacity = DefaultJournalCapacity
	}
	return &MemoryJournal{entries: make([]JournalEntry, capacity)}
}

func (j *MemoryJournal) Append(ctx context.Context, entry JournalEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[j.next] = entry
	j.next = (j.next + 1) % len(j.entries)
	if j.next == 0 {
		j.full = true
	}
	return nil
}

func (j *MemoryJournal) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	size := j.next
	if j.full {
		size = len(j.entries)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]JournalEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (j.next - i + len(j.entries)) % len(j.entries)
		out = append(out, j.entries[idx])
	}
	return out, nil
}

// Close is a no-op.
func (j *MemoryJournal) Close() error {
	return nil
}

type nopJournal struct{}

func (nopJournal) Append(context.Context, JournalEntry) error          { return nil }
func (nopJournal) Recent(context.Context, int) ([]JournalEntry, error) { return nil, nil }
func (nopJournal) Close() error                                        { return nil }
