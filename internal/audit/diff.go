// Package audit builds append-only history entries from ticket mutations.
package audit

import (
	"time"

	"github.com/opsdesk/ticket-workflow/internal/domain"
)

// Diff compares the tracked fields of two ticket snapshots and returns a
// single history entry holding one change pair per differing field, sharing
// one timestamp, actor and reason. A no-op update returns nil: no entry is
// ever written for it.
func Diff(before, after *domain.Ticket, reason, actor string, at time.Time) *domain.TicketHistory {
	changes := []domain.FieldChange{}

	appendChange := func(field string, oldValue, newValue any) {
		changes = append(changes, domain.FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
	}

	if before.Department != after.Department {
		appendChange("department", before.Department, after.Department)
	}
	if before.TicketType != after.TicketType {
		appendChange("ticketType", before.TicketType, after.TicketType)
	}
	if before.Assignee != after.Assignee {
		appendChange("assignee", before.Assignee, after.Assignee)
	}
	if before.ClientName != after.ClientName {
		appendChange("clientName", before.ClientName, after.ClientName)
	}
	if before.WorkingDays != after.WorkingDays {
		appendChange("workingDays", before.WorkingDays, after.WorkingDays)
	}
	if before.Priority != after.Priority {
		appendChange("priority", string(before.Priority), string(after.Priority))
	}
	if before.Status != after.Status {
		appendChange("status", string(before.Status), string(after.Status))
	}
	if before.Description != after.Description {
		appendChange("description", before.Description, after.Description)
	}
	if before.CurrentWorkflowStep != after.CurrentWorkflowStep {
		appendChange("currentWorkflowStep", before.CurrentWorkflowStep, after.CurrentWorkflowStep)
	}
	if !equalDueDates(before.DueDate, after.DueDate) {
		appendChange("dueDate", timeValue(before.DueDate), timeValue(after.DueDate))
	}

	if len(changes) == 0 {
		return nil
	}
	return &domain.TicketHistory{
		TicketID:  after.ID,
		ChangedAt: at,
		ChangedBy: actor,
		Reason:    reason,
		Changes:   changes,
	}
}

func equalDueDates(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
