package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/ticket-workflow/internal/domain"
	"github.com/opsdesk/ticket-workflow/internal/sla"
)

var monday = time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

func threeStepWorkflow() *domain.Workflow {
	return &domain.Workflow{
		ID:   "wf-1",
		Name: "Standard Intake",
		Steps: []domain.WorkflowStep{
			{DepartmentName: "Intake", SLA: sla.Quantity{Value: 2, Unit: sla.UnitDays}},
			{DepartmentName: "Operations", SLA: sla.Quantity{Value: 3, Unit: sla.UnitDays}},
			{DepartmentName: "Quality Review", SLA: sla.Quantity{Value: 2, Unit: sla.UnitDays}},
		},
	}
}

func TestReconcile_InfersFromCurrentStepPointer(t *testing.T) {
	ticket := &domain.Ticket{
		ID:                  "T1",
		Department:          "Intake",
		Status:              domain.TicketStatusInProgress,
		CurrentWorkflowStep: 2,
	}

	steps := Reconcile(ticket, threeStepWorkflow())
	require.Len(t, steps, 3)

	assert.Equal(t, domain.StepCompleted, steps[0].Status)
	assert.Equal(t, domain.StepInProgress, steps[1].Status)
	assert.Equal(t, domain.StepPending, steps[2].Status)
	for i, step := range steps {
		assert.Equal(t, i+1, step.StepNumber)
		assert.Equal(t, domain.StepOriginInferred, step.Origin)
	}
	assert.Equal(t, "Operations", steps[1].DepartmentName)
}

func TestReconcile_ResolvedTicketCompletesCurrentStep(t *testing.T) {
	ticket := &domain.Ticket{
		Status:              domain.TicketStatusResolved,
		CurrentWorkflowStep: 3,
	}

	steps := Reconcile(ticket, threeStepWorkflow())
	require.Len(t, steps, 3)
	for _, step := range steps {
		assert.Equal(t, domain.StepCompleted, step.Status)
	}
}

func TestReconcile_RecordedStatusWinsOverInference(t *testing.T) {
	started := monday
	recorded := domain.WorkflowStepStatus{
		StepNumber:     1,
		DepartmentName: "Intake",
		Status:         domain.StepInProgress,
		Origin:         domain.StepOriginRecorded,
		StartedAt:      &started,
		Actions: []domain.WorkflowAction{
			{ID: "A1", ActionType: domain.ActionInProgress, Notes: "picked up"},
		},
	}
	ticket := &domain.Ticket{
		Status:              domain.TicketStatusInProgress,
		CurrentWorkflowStep: 2, // pointer disagrees with the recorded entry
		WorkflowStatus:      []domain.WorkflowStepStatus{recorded},
	}

	steps := Reconcile(ticket, threeStepWorkflow())
	require.Len(t, steps, 3)

	assert.Equal(t, domain.StepInProgress, steps[0].Status)
	assert.Equal(t, domain.StepOriginRecorded, steps[0].Origin)
	require.Len(t, steps[0].Actions, 1)
	assert.Equal(t, "picked up", steps[0].Actions[0].Notes)
	require.NotNil(t, steps[0].StartedAt)
	assert.Equal(t, monday, *steps[0].StartedAt)

	assert.Equal(t, domain.StepOriginInferred, steps[1].Origin)
	assert.Equal(t, domain.StepOriginInferred, steps[2].Origin)
}

func TestReconcile_NoWorkflowReturnsRecordedVerbatim(t *testing.T) {
	ticket := &domain.Ticket{
		WorkflowStatus: []domain.WorkflowStepStatus{
			{StepNumber: 1, DepartmentName: "Intake", Status: domain.StepCompleted, Origin: domain.StepOriginRecorded},
			{StepNumber: 2, DepartmentName: "Operations", Status: domain.StepInProgress, Origin: domain.StepOriginRecorded},
		},
	}

	steps := Reconcile(ticket, nil)
	require.Len(t, steps, 2)
	assert.Equal(t, ticket.WorkflowStatus, steps)

	// deep copy, not an alias
	steps[0].Status = domain.StepPending
	assert.Equal(t, domain.StepCompleted, ticket.WorkflowStatus[0].Status)
}

func TestReconcile_NoWorkflowNoRecordSynthesizesSingleStep(t *testing.T) {
	tests := []struct {
		name   string
		status domain.TicketStatus
		want   domain.StepState
	}{
		{"open ticket", domain.TicketStatusOpen, domain.StepPending},
		{"in-progress ticket", domain.TicketStatusInProgress, domain.StepInProgress},
		{"overdue ticket", domain.TicketStatusOverdue, domain.StepInProgress},
		{"resolved ticket", domain.TicketStatusResolved, domain.StepCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := &domain.Ticket{Department: "Intake", Status: tt.status}
			steps := Reconcile(ticket, nil)
			require.Len(t, steps, 1)
			assert.Equal(t, 1, steps[0].StepNumber)
			assert.Equal(t, "Intake", steps[0].DepartmentName)
			assert.Equal(t, tt.want, steps[0].Status)
			assert.Equal(t, domain.StepOriginInferred, steps[0].Origin)
		})
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	wf := threeStepWorkflow()
	ticket := &domain.Ticket{
		Status:              domain.TicketStatusInProgress,
		CurrentWorkflowStep: 2,
		WorkflowStatus: []domain.WorkflowStepStatus{
			{StepNumber: 1, DepartmentName: "Intake", Status: domain.StepCompleted, Origin: domain.StepOriginRecorded},
		},
	}

	first := Reconcile(ticket, wf)
	ticket.WorkflowStatus = first
	second := Reconcile(ticket, wf)
	assert.Equal(t, first, second)
}

func TestCurrentStep(t *testing.T) {
	tests := []struct {
		name  string
		steps []domain.WorkflowStepStatus
		want  int // step number, 0 means nil
	}{
		{
			name: "in_progress wins over pending",
			steps: []domain.WorkflowStepStatus{
				{StepNumber: 1, Status: domain.StepCompleted},
				{StepNumber: 2, Status: domain.StepInProgress},
				{StepNumber: 3, Status: domain.StepPending},
			},
			want: 2,
		},
		{
			name: "first pending when nothing active",
			steps: []domain.WorkflowStepStatus{
				{StepNumber: 1, Status: domain.StepCompleted},
				{StepNumber: 2, Status: domain.StepPending},
				{StepNumber: 3, Status: domain.StepPending},
			},
			want: 2,
		},
		{
			name: "earlier in_progress after a revert",
			steps: []domain.WorkflowStepStatus{
				{StepNumber: 1, Status: domain.StepInProgress},
				{StepNumber: 2, Status: domain.StepPending},
				{StepNumber: 3, Status: domain.StepPending},
			},
			want: 1,
		},
		{
			name: "all completed",
			steps: []domain.WorkflowStepStatus{
				{StepNumber: 1, Status: domain.StepCompleted},
				{StepNumber: 2, Status: domain.StepCompleted},
			},
			want: 0,
		},
		{name: "empty", steps: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CurrentStep(tt.steps)
			if tt.want == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.StepNumber)
		})
	}
}

func TestDisplayDueDate(t *testing.T) {
	wf := threeStepWorkflow()
	tuesday := monday.AddDate(0, 0, 1)

	t.Run("uses current step SLA from its recorded start", func(t *testing.T) {
		ticket := &domain.Ticket{
			Status:              domain.TicketStatusInProgress,
			CurrentWorkflowStep: 2,
			CreatedAt:           monday,
			WorkflowStatus: []domain.WorkflowStepStatus{
				{StepNumber: 1, Status: domain.StepCompleted, Origin: domain.StepOriginRecorded},
				{StepNumber: 2, Status: domain.StepInProgress, Origin: domain.StepOriginRecorded, StartedAt: &tuesday},
			},
		}
		// step 2 carries a 3-working-day SLA: tue -> fri
		assert.Equal(t, tuesday.AddDate(0, 0, 3), DisplayDueDate(ticket, wf))
	})

	t.Run("falls back to creation time without a recorded start", func(t *testing.T) {
		ticket := &domain.Ticket{
			Status:              domain.TicketStatusInProgress,
			CurrentWorkflowStep: 1,
			CreatedAt:           monday,
		}
		// step 1 carries a 2-working-day SLA: mon -> wed
		assert.Equal(t, monday.AddDate(0, 0, 2), DisplayDueDate(ticket, wf))
	})

	t.Run("no workflow uses the ticket working-day override", func(t *testing.T) {
		ticket := &domain.Ticket{
			Status:      domain.TicketStatusOpen,
			WorkingDays: 5,
			CreatedAt:   monday,
		}
		assert.Equal(t, monday.AddDate(0, 0, 7), DisplayDueDate(ticket, nil))
	})
}
