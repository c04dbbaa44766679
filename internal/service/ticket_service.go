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

// TicketService covers the ticket surface outside the transition engine:
// creation, tracked-field updates, and the read side (reconciled view,
// history, resolutions).
type TicketService struct {
	tickets     repository.TicketRepository
	catalog     repository.CatalogRepository
	resolutions repository.ResolutionRepository
	history     repository.HistoryRepository
	attachments repository.AttachmentRepository
	dispatcher  events.Dispatcher
	locks       *TicketLocks
	clock       func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	CatalogRepo    repository.CatalogRepository
	ResolutionRepo repository.ResolutionRepository
	HistoryRepo    repository.HistoryRepository
	AttachmentRepo repository.AttachmentRepository
	Dispatcher     events.Dispatcher
	Locks          *TicketLocks
	Clock          func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	locks := deps.Locks
	if locks == nil {
		locks = NewTicketLocks()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		catalog:     deps.CatalogRepo,
		resolutions: deps.ResolutionRepo,
		history:     deps.HistoryRepo,
		attachments: deps.AttachmentRepo,
		dispatcher:  deps.Dispatcher,
		locks:       locks,
		clock:       clock,
	}
}

// TicketCreateInput describes ticket creation payload. LegacySLA, when set,
// is parsed with the tolerant SLA parser and overrides WorkingDays.
type TicketCreateInput struct {
	Department  string
	TicketType  string
	ClientName  string
	Description string
	Priority    domain.TicketPriority
	Assignee    string
	WorkflowID  *string
	WorkingDays int
	LegacySLA   string
}

// TicketUpdateInput carries optional tracked-field edits.
type TicketUpdateInput struct {
	ClientName  *string
	Description *string
	Priority    *domain.TicketPriority
	WorkingDays *int
	Assignee    *string
	Department  *string
	TicketType  *string
}

// TicketView is a ticket plus its reconciled step list and current step.
type TicketView struct {
	Ticket      *domain.Ticket
	Steps       []domain.WorkflowStepStatus
	CurrentStep *domain.WorkflowStepStatus
	DueDate     time.Time
}

// CreateTicket creates a ticket, snapshots catalog names, resolves the
// workflow binding and initializes step one.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Department) == "" || strings.TrimSpace(input.ClientName) == "" {
		return nil, apperrors.NewValidationError("department and client_name required", nil)
	}

	dept, err := s.catalog.GetDepartmentByName(ctx, input.Department)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department", map[string]any{"name": input.Department})
		}
		return nil, err
	}

	var ticketType *domain.TicketType
	if strings.TrimSpace(input.TicketType) != "" {
		ticketType, err = s.catalog.GetTicketTypeByName(ctx, input.TicketType)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	workingDays := input.WorkingDays
	if input.LegacySLA != "" {
		workingDays = sla.Parse(input.LegacySLA).Value
	}
	if workingDays <= 0 && ticketType != nil {
		workingDays = ticketType.DefaultWD
	}
	if workingDays <= 0 {
		workingDays = sla.Default().Value
	}

	priority := input.Priority
	if priority == "" && ticketType != nil {
		priority = ticketType.PriorityDefault
	}
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}

	wf, workflowID, err := s.resolveBinding(ctx, input.WorkflowID, ticketType)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	ticket := &domain.Ticket{
		Department:          dept.Name,
		TicketType:          input.TicketType,
		ClientName:          strings.TrimSpace(input.ClientName),
		WorkingDays:         workingDays,
		Priority:            priority,
		Status:              domain.TicketStatusOpen,
		Description:         strings.TrimSpace(input.Description),
		Assignee:            input.Assignee,
		WorkflowID:          workflowID,
		CurrentWorkflowStep: 1,
	}

	if wf != nil && len(wf.Steps) > 0 {
		ticket.WorkflowStatus = initialSteps(wf, now)
		due := sla.DueDate(now, wf.Steps[0].SLA)
		ticket.DueDate = &due
	} else {
		due := sla.DueDate(now, sla.Quantity{Value: workingDays, Unit: sla.UnitDays})
		ticket.DueDate = &due
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Department: ticket.Department,
			TicketType: ticket.TicketType,
			Priority:   ticket.Priority,
			WorkflowID: ticket.WorkflowID,
			DueDate:    ticket.DueDate,
		},
	})
	return ticket, nil
}

// UpdateTicket applies tracked-field edits and appends exactly one history
// entry for them. A no-op update persists nothing.
func (s *TicketService) UpdateTicket(ctx context.Context, ticketID string, input TicketUpdateInput, actor, reason string) (*domain.Ticket, error) {
	unlock := s.locks.Lock(ticketID)
	defer unlock()

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	before := ticket.Clone()
	now := s.clock()

	if input.ClientName != nil {
		ticket.ClientName = strings.TrimSpace(*input.ClientName)
	}
	if input.Description != nil {
		ticket.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		ticket.Priority = *input.Priority
	}
	if input.Assignee != nil {
		ticket.Assignee = *input.Assignee
	}
	if input.Department != nil {
		ticket.Department = *input.Department
	}
	if input.TicketType != nil {
		ticket.TicketType = *input.TicketType
	}
	if input.WorkingDays != nil {
		if *input.WorkingDays <= 0 {
			return nil, apperrors.NewValidationError("working_days must be positive", nil)
		}
		ticket.WorkingDays = *input.WorkingDays
		if ticket.WorkflowID == nil && len(ticket.WorkflowStatus) == 0 {
			due := sla.DueDate(ticket.CreatedAt, sla.Quantity{Value: ticket.WorkingDays, Unit: sla.UnitDays})
			ticket.DueDate = &due
		}
	}

	entry := audit.Diff(before, ticket, reason, actor, now)
	if entry == nil {
		return ticket, nil
	}

	ticket.UpdatedAt = now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.history.Append(ctx, entry); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.TicketUpdatedPayload{Changes: entry.Changes},
	})
	return ticket, nil
}

// GetTicket returns the ticket with its reconciled step list, current step
// and workflow-driven due date.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*TicketView, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	wf, err := s.resolveWorkflow(ctx, ticket)
	if err != nil {
		return nil, err
	}
	steps := workflow.Reconcile(ticket, wf)
	return &TicketView{
		Ticket:      ticket,
		Steps:       steps,
		CurrentStep: workflow.CurrentStep(steps),
		DueDate:     workflow.DisplayDueDate(ticket, wf),
	}, nil
}

// ListTickets returns tickets matching the filter.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, filter)
}

// ListHistory returns the ticket's audit log, latest first.
func (s *TicketService) ListHistory(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	if _, err := s.loadTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.history.ListByTicket(ctx, ticketID)
}

// ListResolutions returns the ticket's resolution log with attachment
// references filled in.
func (s *TicketService) ListResolutions(ctx context.Context, ticketID string) ([]domain.WorkflowResolution, error) {
	if _, err := s.loadTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	resolutions, err := s.resolutions.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	for i := range resolutions {
		refs, err := s.attachments.ListRefsByResolution(ctx, resolutions[i].ID)
		if err != nil {
			return nil, err
		}
		resolutions[i].Attachments = refs
	}
	return resolutions, nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) resolveWorkflow(ctx context.Context, ticket *domain.Ticket) (*domain.Workflow, error) {
	if ticket.WorkflowID != nil && *ticket.WorkflowID != "" {
		wf, err := s.catalog.GetWorkflow(ctx, *ticket.WorkflowID)
		if err == nil {
			return wf, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}
	return s.catalog.GetDefaultWorkflow(ctx)
}

// resolveBinding picks the workflow for a new ticket: explicit id first, then
// the ticket type's binding, then the catalog default.
func (s *TicketService) resolveBinding(ctx context.Context, explicit *string, ticketType *domain.TicketType) (*domain.Workflow, *string, error) {
	if explicit != nil && *explicit != "" {
		wf, err := s.catalog.GetWorkflow(ctx, *explicit)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil, apperrors.NewNotFound("workflow", map[string]any{"workflow_id": *explicit})
			}
			return nil, nil, err
		}
		return wf, explicit, nil
	}
	if ticketType != nil && ticketType.WorkflowID != nil && *ticketType.WorkflowID != "" {
		wf, err := s.catalog.GetWorkflow(ctx, *ticketType.WorkflowID)
		if err == nil {
			return wf, ticketType.WorkflowID, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, err
		}
	}
	wf, err := s.catalog.GetDefaultWorkflow(ctx)
	if err != nil {
		return nil, nil, err
	}
	return wf, nil, nil
}

func initialSteps(wf *domain.Workflow, now time.Time) []domain.WorkflowStepStatus {
	steps := make([]domain.WorkflowStepStatus, 0, len(wf.Steps))
	for i, step := range wf.Steps {
		status := domain.WorkflowStepStatus{
			StepNumber:     i + 1,
			DepartmentID:   step.DepartmentID,
			DepartmentName: step.DepartmentName,
			Status:         domain.StepPending,
			Origin:         domain.StepOriginRecorded,
		}
		if i == 0 {
			status.Status = domain.StepInProgress
			status.StartedAt = &now
		}
		steps = append(steps, status)
	}
	return steps
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
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
