package domain

import "time"

// HistoryEntry is an immutable ledger row recording the status a ticket held
// after a transition. Entries are only ever appended; resolution metrics are
// computed from their timestamps.
type HistoryEntry struct {
	ID        int64
	TicketID  int64
	StatusID  int64
	ActorID   *int64
	CreatedAt time.Time
}
