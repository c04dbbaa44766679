package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opsdesk/ticket-workflow/internal/audit"
	"github.com/opsdesk/ticket-workflow/internal/domain"
	"github.com/opsdesk/ticket-workflow/internal/events"
	"github.com/opsdesk/ticket-workflow/internal/repository"
	"github.com/opsdesk/ticket-workflow/internal/sla"
	"github.com/opsdesk/ticket-workflow/internal/workflow"
	apperrors "github.com/opsdesk/ticket-workflow/pkg/util"
)

// WorkflowService is the transition engine: it records department actions,
// advances or resolves tickets, computes SLA outcomes, appends resolutions
// and history, and supports reverting to a prior department. Validation fully
// precedes mutation; nothing is persisted on rejection.
type WorkflowService struct {
	tickets      repository.TicketRepository
	catalog      repository.CatalogRepository
	resolutions  repository.ResolutionRepository
	history      repository.HistoryRepository
	attachments  repository.AttachmentRepository
	dispatcher   events.Dispatcher
	locks        *TicketLocks
	gracePercent int
	clock        func() time.Time
}

// WorkflowDependencies bundles collaborators for the transition engine.
type WorkflowDependencies struct {
	TicketRepo     repository.TicketRepository
	CatalogRepo    repository.CatalogRepository
	ResolutionRepo repository.ResolutionRepository
	HistoryRepo    repository.HistoryRepository
	AttachmentRepo repository.AttachmentRepository
	Dispatcher     events.Dispatcher
	Locks          *TicketLocks
	GracePercent   int
	Clock          func() time.Time
}

// NewWorkflowService constructs the engine.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	locks := deps.Locks
	if locks == nil {
		locks = NewTicketLocks()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &WorkflowService{
		tickets:      deps.TicketRepo,
		catalog:      deps.CatalogRepo,
		resolutions:  deps.ResolutionRepo,
		history:      deps.HistoryRepo,
		attachments:  deps.AttachmentRepo,
		dispatcher:   deps.Dispatcher,
		locks:        locks,
		gracePercent: deps.GracePercent,
		clock:        clock,
	}
}

// AttachmentInput carries an opaque payload supplied with a completion.
type AttachmentInput struct {
	Name     string
	MimeType string
	Payload  []byte
}

// DepartmentActionInput describes a department action on a workflow step.
type DepartmentActionInput struct {
	StepNumber  int
	ActionType  domain.ActionType
	Notes       string
	IsFinal     bool
	PerformedBy string
	NewAssignee string
	Attachments []AttachmentInput
}

// RecordDepartmentAction applies an in_progress or completed action to the
// ticket's current workflow step. Actions on a non-current step are rejected.
// A completed action marks the step done, computes the SLA outcome, appends a
// resolution, and either resolves the ticket (last step) or auto-starts the
// next step.
func (s *WorkflowService) RecordDepartmentAction(ctx context.Context, ticketID string, input DepartmentActionInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Notes) == "" {
		return nil, apperrors.NewValidationError("notes required", nil)
	}
	if input.ActionType != domain.ActionInProgress && input.ActionType != domain.ActionCompleted {
		return nil, apperrors.NewValidationError("unknown action type", map[string]any{"action_type": input.ActionType})
	}

	unlock := s.locks.Lock(ticketID)
	defer unlock()

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	wf, err := s.resolveWorkflow(ctx, ticket)
	if err != nil {
		return nil, err
	}

	steps := workflow.Reconcile(ticket, wf)
	current := workflow.CurrentStep(steps)
	if current == nil {
		return nil, apperrors.NewValidationError("workflow already completed", nil)
	}
	if input.StepNumber != current.StepNumber {
		return nil, apperrors.NewValidationError("action must target the current step", map[string]any{
			"current_step":   current.StepNumber,
			"requested_step": input.StepNumber,
		})
	}

	before := ticket.Clone()
	now := s.clock()
	ticket.WorkflowStatus = steps
	materialize(ticket.WorkflowStatus)
	step := &ticket.WorkflowStatus[current.StepNumber-1]

	action := domain.WorkflowAction{
		ID:          uuid.NewString(),
		ActionType:  input.ActionType,
		Notes:       strings.TrimSpace(input.Notes),
		IsComplete:  input.ActionType == domain.ActionCompleted,
		PerformedBy: input.PerformedBy,
		NewAssignee: input.NewAssignee,
		Timestamp:   now,
	}

	var resolution *domain.WorkflowResolution
	resolved := false

	switch input.ActionType {
	case domain.ActionInProgress:
		step.Actions = append(step.Actions, action)
		step.Status = domain.StepInProgress
		if step.StartedAt == nil {
			step.StartedAt = &now
		}
		if input.NewAssignee != "" {
			ticket.Assignee = input.NewAssignee
		}
		if ticket.Status == domain.TicketStatusOpen {
			ticket.Status = domain.TicketStatusInProgress
		}

	case domain.ActionCompleted:
		if step.Status == domain.StepCompleted {
			return nil, apperrors.NewValidationError("step already completed", map[string]any{"step": step.StepNumber})
		}
		step.Actions = append(step.Actions, action)
		step.Status = domain.StepCompleted
		step.CompletedAt = &now

		expected := s.expectedSLA(wf, step.StepNumber, ticket)
		actual := sla.Elapsed(stepStart(ticket, step.StepNumber), now, expected.Unit)
		outcome := sla.Outcome(expected, actual, s.gracePercent)

		resolution = &domain.WorkflowResolution{
			TicketID:          ticket.ID,
			StepNumber:        step.StepNumber,
			FromDepartment:    step.DepartmentName,
			ResolvedBy:        input.PerformedBy,
			ResolutionText:    action.Notes,
			ResolvedAt:        now,
			ExpectedSLA:       &expected,
			ActualTimeTaken:   &actual,
			SLAStatus:         outcome,
			IsFinalResolution: input.IsFinal,
		}

		if step.StepNumber == len(ticket.WorkflowStatus) {
			ticket.Status = domain.TicketStatusResolved
			resolved = true
		} else {
			// unattended hand-off: the next department starts immediately
			ticket.CurrentWorkflowStep = step.StepNumber + 1
			next := &ticket.WorkflowStatus[step.StepNumber]
			next.Status = domain.StepInProgress
			next.StartedAt = &now
			ticket.Status = domain.TicketStatusInProgress
			nextExpected := s.expectedSLA(wf, next.StepNumber, ticket)
			due := sla.DueDate(now, nextExpected)
			ticket.DueDate = &due
		}
	}

	ticket.UpdatedAt = now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	if resolution != nil {
		if err := s.resolutions.Append(ctx, resolution); err != nil {
			return nil, err
		}
		if err := s.storeAttachments(ctx, resolution, input.Attachments, now); err != nil {
			return nil, err
		}
	}

	if entry := audit.Diff(before, ticket, "", input.PerformedBy, now); entry != nil {
		if err := s.history.Append(ctx, entry); err != nil {
			return nil, err
		}
	}

	if resolution != nil {
		s.publish(ctx, events.Event{
			Type:     events.EventStepCompleted,
			TicketID: ticket.ID,
			Actor:    input.PerformedBy,
			Payload: events.StepCompletedPayload{
				StepNumber: resolution.StepNumber,
				Department: resolution.FromDepartment,
				SLAStatus:  resolution.SLAStatus,
				Expected:   resolution.ExpectedSLA,
				Actual:     resolution.ActualTimeTaken,
				IsFinal:    resolution.IsFinalResolution,
			},
		})
	}
	if resolved {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketResolved,
			TicketID: ticket.ID,
			Actor:    input.PerformedBy,
		})
	}
	return ticket, nil
}

// Revert moves the ticket backward to a department that already processed it,
// re-opening subsequent steps. Prior resolutions are never deleted or
// rewritten; the revert only appends.
func (s *WorkflowService) Revert(ctx context.Context, ticketID, targetDepartment, reason, actingUser string) (*domain.Ticket, error) {
	if strings.TrimSpace(targetDepartment) == "" {
		return nil, apperrors.NewValidationError("target department required", nil)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewValidationError("revert reason required", nil)
	}

	unlock := s.locks.Lock(ticketID)
	defer unlock()

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	wf, err := s.resolveWorkflow(ctx, ticket)
	if err != nil {
		return nil, err
	}

	steps := workflow.Reconcile(ticket, wf)
	current := workflow.CurrentStep(steps)
	fromStep := len(steps)
	fromDepartment := ""
	if len(steps) > 0 {
		fromDepartment = steps[len(steps)-1].DepartmentName
	}
	if current != nil {
		fromStep = current.StepNumber
		fromDepartment = current.DepartmentName
	}
	if targetDepartment == fromDepartment {
		return nil, apperrors.NewValidationError("cannot revert to the current department", map[string]any{"department": targetDepartment})
	}

	priorResolutions, err := s.resolutions.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !departmentProcessed(priorResolutions, targetDepartment) {
		return nil, apperrors.NewValidationError("revert target has not processed this ticket", map[string]any{"department": targetDepartment})
	}

	targetStep := stepNumberForDepartment(wf, steps, targetDepartment)
	if targetStep == 0 {
		return nil, apperrors.NewValidationError("department is not part of the workflow", map[string]any{"department": targetDepartment})
	}

	before := ticket.Clone()
	now := s.clock()
	ticket.WorkflowStatus = steps
	materialize(ticket.WorkflowStatus)

	ticket.CurrentWorkflowStep = targetStep
	for i := range ticket.WorkflowStatus {
		step := &ticket.WorkflowStatus[i]
		switch {
		case step.StepNumber == targetStep:
			step.Status = domain.StepInProgress
			step.StartedAt = &now
			step.CompletedAt = nil
		case step.StepNumber > targetStep:
			// re-opened; the step's past actions and resolutions stay intact
			step.Status = domain.StepPending
			step.StartedAt = nil
			step.CompletedAt = nil
		}
	}
	if ticket.Status == domain.TicketStatusResolved || ticket.Status == domain.TicketStatusOverdue {
		ticket.Status = domain.TicketStatusInProgress
	}
	expected := s.expectedSLA(wf, targetStep, ticket)
	due := sla.DueDate(now, expected)
	ticket.DueDate = &due
	ticket.UpdatedAt = now

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	resolution := &domain.WorkflowResolution{
		TicketID:       ticket.ID,
		StepNumber:     fromStep,
		FromDepartment: fromDepartment,
		ResolvedBy:     actingUser,
		ResolutionText: strings.TrimSpace(reason),
		ResolvedAt:     now,
		IsRevert:       true,
	}
	if err := s.resolutions.Append(ctx, resolution); err != nil {
		return nil, err
	}

	if entry := audit.Diff(before, ticket, reason, actingUser, now); entry != nil {
		if err := s.history.Append(ctx, entry); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketReverted,
		TicketID: ticket.ID,
		Actor:    actingUser,
		Payload: events.TicketRevertedPayload{
			FromDepartment: fromDepartment,
			ToDepartment:   targetDepartment,
			ToStepNumber:   targetStep,
			Reason:         reason,
		},
	})
	return ticket, nil
}

// Reassign updates the ticket assignee and records a single history entry.
// Workflow step state is untouched.
func (s *WorkflowService) Reassign(ctx context.Context, ticketID, newAssignee, actingUser string) (*domain.Ticket, error) {
	if strings.TrimSpace(newAssignee) == "" {
		return nil, apperrors.NewValidationError("assignee required", nil)
	}

	unlock := s.locks.Lock(ticketID)
	defer unlock()

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Assignee == newAssignee {
		return ticket, nil
	}

	before := ticket.Clone()
	now := s.clock()
	oldAssignee := ticket.Assignee
	ticket.Assignee = newAssignee
	ticket.UpdatedAt = now

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	if entry := audit.Diff(before, ticket, "", actingUser, now); entry != nil {
		if err := s.history.Append(ctx, entry); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketReassigned,
		TicketID: ticket.ID,
		Actor:    actingUser,
		Payload: events.TicketReassignedPayload{
			OldAssignee: oldAssignee,
			NewAssignee: newAssignee,
		},
	})
	return ticket, nil
}

// SweepOverdue flags unresolved tickets past their due date. Overdue is a
// derived state: it is only persisted here, together with a ticket re-save,
// and a ticket leaves it again through normal transitions.
func (s *WorkflowService) SweepOverdue(ctx context.Context) (int, error) {
	now := s.clock()
	candidates, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses:  []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress},
		DueBefore: &now,
		Limit:     500,
	})
	if err != nil {
		return 0, err
	}

	flagged := 0
	for i := range candidates {
		if err := s.flagOverdue(ctx, candidates[i].ID); err != nil {
			return flagged, err
		}
		flagged++
	}
	return flagged, nil
}

func (s *WorkflowService) flagOverdue(ctx context.Context, ticketID string) error {
	unlock := s.locks.Lock(ticketID)
	defer unlock()

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	now := s.clock()
	if !ticket.IsOverdue(now) || ticket.Status == domain.TicketStatusOverdue {
		return nil
	}

	before := ticket.Clone()
	ticket.Status = domain.TicketStatusOverdue
	ticket.UpdatedAt = now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}
	if entry := audit.Diff(before, ticket, "sla overdue", "system", now); entry != nil {
		if err := s.history.Append(ctx, entry); err != nil {
			return err
		}
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketOverdue,
		TicketID: ticket.ID,
		Actor:    "system",
		Payload: events.TicketOverduePayload{
			Department: ticket.Department,
			DueDate:    ticket.DueDate,
		},
	})
	return nil
}

func (s *WorkflowService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return ticket, nil
}

// resolveWorkflow returns the ticket's bound workflow, else the catalog
// default. A nil workflow is a valid outcome.
func (s *WorkflowService) resolveWorkflow(ctx context.Context, ticket *domain.Ticket) (*domain.Workflow, error) {
	if ticket.WorkflowID != nil && *ticket.WorkflowID != "" {
		wf, err := s.catalog.GetWorkflow(ctx, *ticket.WorkflowID)
		if err == nil {
			return wf, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		// stale binding: fall through to the default workflow
	}
	return s.catalog.GetDefaultWorkflow(ctx)
}

func (s *WorkflowService) expectedSLA(wf *domain.Workflow, stepNumber int, ticket *domain.Ticket) sla.Quantity {
	if step := wf.Step(stepNumber); step != nil && step.SLA.Value > 0 {
		return step.SLA
	}
	if ticket.WorkingDays > 0 {
		return sla.Quantity{Value: ticket.WorkingDays, Unit: sla.UnitDays}
	}
	return sla.Default()
}

func (s *WorkflowService) storeAttachments(ctx context.Context, resolution *domain.WorkflowResolution, inputs []AttachmentInput, now time.Time) error {
	for _, in := range inputs {
		attachment := &domain.FileAttachment{
			Name:       in.Name,
			Size:       int64(len(in.Payload)),
			MimeType:   in.MimeType,
			Payload:    in.Payload,
			UploadedAt: now,
		}
		if err := s.attachments.Create(ctx, resolution.ID, attachment); err != nil {
			return err
		}
		resolution.Attachments = append(resolution.Attachments, attachment.Ref())
	}
	return nil
}

func (s *WorkflowService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// stepStart finds when work on a step began: its recorded start, else the
// previous step's completion, else the ticket's creation.
func stepStart(ticket *domain.Ticket, stepNumber int) time.Time {
	idx := stepNumber - 1
	if idx >= 0 && idx < len(ticket.WorkflowStatus) {
		if started := ticket.WorkflowStatus[idx].StartedAt; started != nil {
			return *started
		}
	}
	if idx-1 >= 0 && idx-1 < len(ticket.WorkflowStatus) {
		if completed := ticket.WorkflowStatus[idx-1].CompletedAt; completed != nil {
			return *completed
		}
	}
	return ticket.CreatedAt
}

// materialize marks reconciled steps as recorded before they are persisted
// with the ticket.
func materialize(steps []domain.WorkflowStepStatus) {
	for i := range steps {
		steps[i].Origin = domain.StepOriginRecorded
	}
}

func departmentProcessed(resolutions []domain.WorkflowResolution, department string) bool {
	for _, res := range resolutions {
		if !res.IsRevert && res.FromDepartment == department {
			return true
		}
	}
	return false
}

func stepNumberForDepartment(wf *domain.Workflow, steps []domain.WorkflowStepStatus, department string) int {
	if n := wf.StepNumberForDepartment(department); n > 0 {
		return n
	}
	for _, step := range steps {
		if step.DepartmentName == department {
			return step.StepNumber
		}
	}
	return 0
}
