package admin

import (
	"context"
	"sync"
	"time"

	"github.com/petabytecl/jobu/eventbus"
	"github.com/petabytecl/jobu/internal/domain"
	"github.com/petabytecl/jobu/internal/events"
)

// RecentActivityEntry is one row of the GET /jobs/recent feed.
type RecentActivityEntry struct {
	ExecutionID  int64         `json:"execution_id"`
	HandlerName  string        `json:"handler_name"`
	Status       domain.Status `json:"status"`
	Retried      bool          `json:"retried"`
	ErrorMessage *string       `json:"error_message,omitempty"`
	FinishedAt   time.Time     `json:"finished_at"`
}

// RecentActivity is a fixed-capacity ring buffer of the most recently
// finished executions, subscribing to events.ExecutionFinished (§6.9). It
// is the one stateful piece of the admin API: everything else reads
// straight through to the store.
type RecentActivity struct {
	mu       sync.Mutex
	capacity int
	entries  []RecentActivityEntry // newest first
}

// NewRecentActivity creates a RecentActivity with room for capacity entries.
func NewRecentActivity(capacity int) *RecentActivity {
	return &RecentActivity{capacity: capacity}
}

// Subscribe registers this buffer against bus's ExecutionFinished topic.
// A nil bus leaves the buffer permanently empty.
func (b *RecentActivity) Subscribe(bus *eventbus.EventBus) {
	if bus == nil {
		return
	}
	eventbus.Subscribe(bus, func(_ context.Context, e events.ExecutionFinished) {
		b.push(e)
	})
}

func (b *RecentActivity) push(e events.ExecutionFinished) {
	entry := RecentActivityEntry{
		ExecutionID: e.ExecutionID, HandlerName: e.HandlerName, Status: e.Status,
		Retried: e.Retried, ErrorMessage: e.ErrorMessage, FinishedAt: e.FinishedAt,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append([]RecentActivityEntry{entry}, b.entries...)
	if len(b.entries) > b.capacity {
		b.entries = b.entries[:b.capacity]
	}
}

// Snapshot returns a copy of the current buffer, newest first.
func (b *RecentActivity) Snapshot() []RecentActivityEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecentActivityEntry, len(b.entries))
	copy(out, b.entries)
	return out
}
