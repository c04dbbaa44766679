package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/ticket-workflow/internal/domain"
)

func baseTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:                  "T1",
		Department:          "Intake",
		ClientName:          "Acme",
		WorkingDays:         5,
		Priority:            domain.TicketPriorityMedium,
		Status:              domain.TicketStatusOpen,
		Assignee:            "alex",
		CurrentWorkflowStep: 1,
	}
}

func TestDiff_NoChangeReturnsNil(t *testing.T) {
	at := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	assert.Nil(t, Diff(baseTicket(), baseTicket(), "update", "alex", at))
}

func TestDiff_SingleEntryForMultipleFields(t *testing.T) {
	at := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	before := baseTicket()
	after := baseTicket()
	after.Assignee = "casey"
	after.Priority = domain.TicketPriorityHigh
	after.Status = domain.TicketStatusInProgress

	entry := Diff(before, after, "triage", "alex", at)
	require.NotNil(t, entry)

	assert.Equal(t, "T1", entry.TicketID)
	assert.Equal(t, at, entry.ChangedAt)
	assert.Equal(t, "alex", entry.ChangedBy)
	assert.Equal(t, "triage", entry.Reason)
	require.Len(t, entry.Changes, 3)

	byField := map[string]domain.FieldChange{}
	for _, change := range entry.Changes {
		byField[change.Field] = change
	}
	assert.Equal(t, "alex", byField["assignee"].OldValue)
	assert.Equal(t, "casey", byField["assignee"].NewValue)
	assert.Equal(t, "MEDIUM", byField["priority"].OldValue)
	assert.Equal(t, "HIGH", byField["priority"].NewValue)
	assert.Equal(t, "OPEN", byField["status"].OldValue)
	assert.Equal(t, "IN_PROGRESS", byField["status"].NewValue)
}

func TestDiff_DueDate(t *testing.T) {
	at := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	due := at.AddDate(0, 0, 2)

	t.Run("set from nil", func(t *testing.T) {
		before := baseTicket()
		after := baseTicket()
		after.DueDate = &due

		entry := Diff(before, after, "", "system", at)
		require.NotNil(t, entry)
		require.Len(t, entry.Changes, 1)
		assert.Equal(t, "dueDate", entry.Changes[0].Field)
		assert.Nil(t, entry.Changes[0].OldValue)
		assert.Equal(t, due, entry.Changes[0].NewValue)
	})

	t.Run("equal instants are not a change", func(t *testing.T) {
		other := due
		before := baseTicket()
		before.DueDate = &due
		after := baseTicket()
		after.DueDate = &other

		assert.Nil(t, Diff(before, after, "", "system", at))
	})
}
