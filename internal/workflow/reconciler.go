// Package workflow reconciles a workflow's defined steps with a ticket's
// recorded progress into the authoritative ordered step-status list.
package workflow

import (
	"time"

	"github.com/opsdesk/ticket-workflow/internal/domain"
	"github.com/opsdesk/ticket-workflow/internal/sla"
)

// Reconcile merges workflow definition and recorded progress. The resolved
// workflow is an explicit input; a nil workflow is a valid state, not an
// error. Precedence:
//
//  1. With a workflow: one status per defined step; recorded entries win
//     verbatim, gaps are inferred from the ticket's current step pointer.
//  2. No workflow but recorded statuses: return them unchanged.
//  3. Neither: synthesize a single step from the ticket's own department.
//
// Reconciliation never discards recorded progress, only fills gaps, and is
// side-effect-free: the ticket is not mutated.
func Reconcile(ticket *domain.Ticket, wf *domain.Workflow) []domain.WorkflowStepStatus {
	if wf != nil && len(wf.Steps) > 0 {
		return reconcileAgainst(ticket, wf)
	}
	if len(ticket.WorkflowStatus) > 0 {
		out := make([]domain.WorkflowStepStatus, len(ticket.WorkflowStatus))
		for i := range ticket.WorkflowStatus {
			out[i] = ticket.WorkflowStatus[i].Clone()
		}
		return out
	}
	return []domain.WorkflowStepStatus{syntheticStep(ticket)}
}

func reconcileAgainst(ticket *domain.Ticket, wf *domain.Workflow) []domain.WorkflowStepStatus {
	recorded := make(map[int]domain.WorkflowStepStatus, len(ticket.WorkflowStatus))
	for _, status := range ticket.WorkflowStatus {
		recorded[status.StepNumber] = status
	}

	current := ticket.CurrentWorkflowStep
	if current < 1 {
		current = 1
	}

	out := make([]domain.WorkflowStepStatus, 0, len(wf.Steps))
	for i, step := range wf.Steps {
		number := i + 1
		if status, ok := recorded[number]; ok {
			out = append(out, status.Clone())
			continue
		}
		out = append(out, domain.WorkflowStepStatus{
			StepNumber:     number,
			DepartmentID:   step.DepartmentID,
			DepartmentName: step.DepartmentName,
			Status:         inferState(number, current, ticket.Status),
			Origin:         domain.StepOriginInferred,
		})
	}
	return out
}

func inferState(number, current int, status domain.TicketStatus) domain.StepState {
	switch {
	case number < current:
		return domain.StepCompleted
	case number == current:
		if status == domain.TicketStatusResolved {
			return domain.StepCompleted
		}
		return domain.StepInProgress
	default:
		return domain.StepPending
	}
}

// syntheticStep degrades a workflow-less ticket to a one-step workflow over
// its own department.
func syntheticStep(ticket *domain.Ticket) domain.WorkflowStepStatus {
	state := domain.StepPending
	switch ticket.Status {
	case domain.TicketStatusResolved:
		state = domain.StepCompleted
	case domain.TicketStatusInProgress, domain.TicketStatusOverdue:
		state = domain.StepInProgress
	}
	return domain.WorkflowStepStatus{
		StepNumber:     1,
		DepartmentName: ticket.Department,
		Status:         state,
		Origin:         domain.StepOriginInferred,
	}
}

// CurrentStep returns the first in_progress step, else the first pending
// step, else nil when every step is completed.
func CurrentStep(steps []domain.WorkflowStepStatus) *domain.WorkflowStepStatus {
	for i := range steps {
		if steps[i].Status == domain.StepInProgress {
			return &steps[i]
		}
	}
	for i := range steps {
		if steps[i].Status == domain.StepPending {
			return &steps[i]
		}
	}
	return nil
}

// DisplayDueDate recomputes the due date from the current step's SLA once
// workflow-driven SLA is in effect: the clock starts at the step's recorded
// start, falling back to the ticket's creation time. Without a resolvable
// workflow the ticket's own working-day override applies.
func DisplayDueDate(ticket *domain.Ticket, wf *domain.Workflow) time.Time {
	steps := Reconcile(ticket, wf)
	current := CurrentStep(steps)
	if current == nil || wf == nil {
		return sla.DueDate(ticket.CreatedAt, ticketQuantity(ticket))
	}
	expected := ticketQuantity(ticket)
	if step := wf.Step(current.StepNumber); step != nil {
		expected = step.SLA
	}
	start := ticket.CreatedAt
	if current.StartedAt != nil {
		start = *current.StartedAt
	}
	return sla.DueDate(start, expected)
}

func ticketQuantity(ticket *domain.Ticket) sla.Quantity {
	if ticket.WorkingDays > 0 {
		return sla.Quantity{Value: ticket.WorkingDays, Unit: sla.UnitDays}
	}
	return sla.Default()
}
