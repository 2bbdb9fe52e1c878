// Package memory keeps the per-sender conversation history used to
// build model prompts.
package memory

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/leoedu/leobot/internal/database"
)

// TurnStore mirrors accepted turns into durable storage.
type TurnStore interface {
	SaveTurn(ctx context.Context, turn *database.Turn) error
}

// Memory is an in-process, per-sender ordered turn log. The log grows
// without bound in memory for the process lifetime; callers asking for
// prompt context receive only the most recent window of turns.
type Memory struct {
	mu     sync.Mutex
	turns  map[string][]database.Turn
	window int
	store  TurnStore
	logger *slog.Logger
	now    func() time.Time
}

// New creates a conversation memory with the given context window.
// The store may be nil, in which case turns are kept in memory only.
func New(window int, store TurnStore, logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Memory{
		turns:  make(map[string][]database.Turn),
		window: window,
		store:  store,
		logger: logger.With("component", "memory"),
		now:    time.Now,
	}
}

// IsNew reports whether the sender has no recorded turns yet. The flag
// must be read before the current turn is appended; it selects the
// onboarding prompt for exactly one turn.
func (m *Memory) IsNew(sender string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.turns[sender]) == 0
}

// Append records one turn for the sender and mirrors it to the store.
// A store failure is logged and does not drop the in-memory turn.
func (m *Memory) Append(ctx context.Context, sender, role, content string) {
	turn := database.Turn{
		Sender:    sender,
		Role:      role,
		Content:   content,
		Timestamp: m.now(),
	}

	m.mu.Lock()
	m.turns[sender] = append(m.turns[sender], turn)
	m.mu.Unlock()

	if m.store == nil {
		return
	}

	if err := m.store.SaveTurn(ctx, &turn); err != nil {
		m.logger.ErrorContext(ctx, "failed to persist turn", "error", err, "sender", sender)
	}
}

// Recent returns the most recent window of turns for the sender, in
// chronological order. The returned slice is a copy.
func (m *Memory) Recent(sender string) []database.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.turns[sender]

	start := 0
	if len(all) > m.window {
		start = len(all) - m.window
	}

	out := make([]database.Turn, len(all)-start)
	copy(out, all[start:])

	return out
}

// All returns every recorded turn for the sender, in chronological
// order. Used by the engagement analysis, which needs the full log.
func (m *Memory) All(sender string) []database.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.turns[sender]

	out := make([]database.Turn, len(all))
	copy(out, all)

	return out
}
