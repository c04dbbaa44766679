package domain

import "time"

// Department represents an organizational unit tickets pass through.
// Tickets reference departments by name snapshot for display stability.
type Department struct {
	ID            string
	Name          string
	SubCategories []string
	TicketTypes   []TicketType
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TicketType describes a category of ticket with its default SLA and an
// optional workflow binding.
type TicketType struct {
	ID              string
	Name            string
	DefaultWD       int
	SubCategory     string
	PriorityDefault TicketPriority
	WorkflowID      *string
}
