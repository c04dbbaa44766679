package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. Overdue is a derived
// flag: it is only persisted when a sweep re-saves the ticket and must always
// be recomputable from the due date.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusOverdue    TicketStatus = "OVERDUE"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Ticket is the aggregate moving through a workflow. Department and
// TicketType are name snapshots taken at creation. The ticket owns its
// WorkflowStatus and is the only writer of its own status and current step.
type Ticket struct {
	ID                  string
	Department          string
	TicketType          string
	ClientName          string
	WorkingDays         int
	Priority            TicketPriority
	Status              TicketStatus
	Description         string
	Assignee            string
	WorkflowID          *string
	CurrentWorkflowStep int
	WorkflowStatus      []WorkflowStepStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DueDate             *time.Time
}

// IsOverdue reports whether the ticket has passed its due date without being
// resolved, evaluated at the given instant.
func (t *Ticket) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && now.After(*t.DueDate) && t.Status != TicketStatusResolved
}

// Clone returns a deep copy, used to snapshot state before a mutation so the
// audit recorder can diff against it.
func (t *Ticket) Clone() *Ticket {
	copied := *t
	if t.DueDate != nil {
		due := *t.DueDate
		copied.DueDate = &due
	}
	if t.WorkflowID != nil {
		id := *t.WorkflowID
		copied.WorkflowID = &id
	}
	copied.WorkflowStatus = make([]WorkflowStepStatus, len(t.WorkflowStatus))
	for i := range t.WorkflowStatus {
		copied.WorkflowStatus[i] = t.WorkflowStatus[i].Clone()
	}
	return &copied
}
