package events

import (
	"time"

	"github.com/opsdesk/ticket-workflow/internal/domain"
	"github.com/opsdesk/ticket-workflow/internal/sla"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated    EventType = "ticket_created"
	EventTicketUpdated    EventType = "ticket_updated"
	EventStepCompleted    EventType = "step_completed"
	EventTicketResolved   EventType = "ticket_resolved"
	EventTicketReverted   EventType = "ticket_reverted"
	EventTicketReassigned EventType = "ticket_reassigned"
	EventTicketOverdue    EventType = "ticket_overdue"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     string      `json:"actor,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Department string                `json:"department"`
	TicketType string                `json:"ticket_type"`
	Priority   domain.TicketPriority `json:"priority"`
	WorkflowID *string               `json:"workflow_id,omitempty"`
	DueDate    *time.Time            `json:"due_date,omitempty"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Changes []domain.FieldChange `json:"changes"`
}

// StepCompletedPayload payload.
type StepCompletedPayload struct {
	StepNumber int           `json:"step_number"`
	Department string        `json:"department"`
	SLAStatus  sla.Status    `json:"sla_status"`
	Expected   *sla.Quantity `json:"expected,omitempty"`
	Actual     *sla.Quantity `json:"actual,omitempty"`
	IsFinal    bool          `json:"is_final"`
}

// TicketRevertedPayload payload.
type TicketRevertedPayload struct {
	FromDepartment string `json:"from_department"`
	ToDepartment   string `json:"to_department"`
	ToStepNumber   int    `json:"to_step_number"`
	Reason         string `json:"reason"`
}

// TicketReassignedPayload payload.
type TicketReassignedPayload struct {
	OldAssignee string `json:"old_assignee"`
	NewAssignee string `json:"new_assignee"`
}

// TicketOverduePayload payload.
type TicketOverduePayload struct {
	Department string     `json:"department"`
	DueDate    *time.Time `json:"due_date,omitempty"`
}
