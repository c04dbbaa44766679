package domain

import "time"

// FieldChange is one before/after pair inside a history entry. Values keep
// their original type (string, number, time, SLA quantity) so display can
// render both sides faithfully.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

// TicketHistory is an immutable audit entry: one per mutating ticket update,
// grouping every tracked-field delta under a single timestamp, actor and
// reason. Entries are never merged or compacted.
type TicketHistory struct {
	ID        string
	TicketID  string
	ChangedAt time.Time
	ChangedBy string
	Reason    string
	Changes   []FieldChange
}
