package handlers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/ticket-workflow/internal/api/dto"
	"github.com/opsdesk/ticket-workflow/internal/domain"
	"github.com/opsdesk/ticket-workflow/internal/repository"
	"github.com/opsdesk/ticket-workflow/internal/service"
	apperrors "github.com/opsdesk/ticket-workflow/pkg/util"
)

// TicketsHandler exposes the ticket and workflow-transition endpoints.
type TicketsHandler struct {
	tickets   *service.TicketService
	workflows *service.WorkflowService
	validate  *validator.Validate
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, workflows *service.WorkflowService) *TicketsHandler {
	return &TicketsHandler{
		tickets:   tickets,
		workflows: workflows,
		validate:  validator.New(),
	}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), service.TicketCreateInput{
		Department:  req.Department,
		TicketType:  req.TicketType,
		ClientName:  req.ClientName,
		Description: req.Description,
		Priority:    req.Priority,
		Assignee:    req.Assignee,
		WorkflowID:  req.WorkflowID,
		WorkingDays: req.WorkingDays,
		LegacySLA:   req.SLA,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	tickets, err := h.tickets.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	view, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	resp := dto.TicketDetailResponse{
		TicketResponse: ticketResponse(view.Ticket),
		Steps:          view.Steps,
		CurrentStep:    view.CurrentStep,
		DisplayDue:     view.DueDate,
	}
	return c.JSON(fiber.Map{"data": resp})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.UpdateTicket(c.UserContext(), c.Params("id"), service.TicketUpdateInput{
		ClientName:  req.ClientName,
		Description: req.Description,
		Priority:    req.Priority,
		WorkingDays: req.WorkingDays,
		Assignee:    req.Assignee,
		Department:  req.Department,
		TicketType:  req.TicketType,
	}, req.Actor, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// RecordAction POST /tickets/:id/actions.
func (h *TicketsHandler) RecordAction(c *fiber.Ctx) error {
	var req dto.DepartmentActionRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}
	attachments := make([]service.AttachmentInput, 0, len(req.Attachments))
	for _, att := range req.Attachments {
		attachments = append(attachments, service.AttachmentInput{
			Name:     att.Name,
			MimeType: att.MimeType,
			Payload:  att.Payload,
		})
	}
	ticket, err := h.workflows.RecordDepartmentAction(c.UserContext(), c.Params("id"), service.DepartmentActionInput{
		StepNumber:  req.StepNumber,
		ActionType:  domain.ActionType(req.ActionType),
		Notes:       req.Notes,
		IsFinal:     req.IsFinal,
		PerformedBy: req.PerformedBy,
		NewAssignee: req.NewAssignee,
		Attachments: attachments,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Revert POST /tickets/:id/revert.
func (h *TicketsHandler) Revert(c *fiber.Ctx) error {
	var req dto.RevertRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.workflows.Revert(c.UserContext(), c.Params("id"), req.TargetDepartment, req.Reason, req.ActingUser)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Reassign POST /tickets/:id/reassign.
func (h *TicketsHandler) Reassign(c *fiber.Ctx) error {
	var req dto.ReassignRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.workflows.Reassign(c.UserContext(), c.Params("id"), req.NewAssignee, req.ActingUser)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	entries, err := h.tickets.ListHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.HistoryEntryResponse{
			ID:        entry.ID,
			ChangedAt: entry.ChangedAt,
			ChangedBy: entry.ChangedBy,
			Reason:    entry.Reason,
			Changes:   entry.Changes,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListResolutions GET /tickets/:id/resolutions.
func (h *TicketsHandler) ListResolutions(c *fiber.Ctx) error {
	resolutions, err := h.tickets.ListResolutions(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ResolutionResponse, 0, len(resolutions))
	for _, res := range resolutions {
		items = append(items, dto.ResolutionResponse{
			ID:                res.ID,
			StepNumber:        res.StepNumber,
			FromDepartment:    res.FromDepartment,
			ResolvedBy:        res.ResolvedBy,
			ResolutionText:    res.ResolutionText,
			Attachments:       res.Attachments,
			ResolvedAt:        res.ResolvedAt,
			IsRevert:          res.IsRevert,
			ExpectedSLA:       res.ExpectedSLA,
			ActualTimeTaken:   res.ActualTimeTaken,
			SLAStatus:         res.SLAStatus,
			IsFinalResolution: res.IsFinalResolution,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func (h *TicketsHandler) parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validate.Struct(req); err != nil {
		details := map[string]any{}
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fe := range fieldErrors {
				details[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		return apperrors.NewValidationError("request validation failed", details)
	}
	return nil
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                  ticket.ID,
		Department:          ticket.Department,
		TicketType:          ticket.TicketType,
		ClientName:          ticket.ClientName,
		WorkingDays:         ticket.WorkingDays,
		Priority:            ticket.Priority,
		Status:              ticket.Status,
		Description:         ticket.Description,
		Assignee:            ticket.Assignee,
		WorkflowID:          ticket.WorkflowID,
		CurrentWorkflowStep: ticket.CurrentWorkflowStep,
		WorkflowStatus:      ticket.WorkflowStatus,
		CreatedAt:           ticket.CreatedAt,
		UpdatedAt:           ticket.UpdatedAt,
		DueDate:             ticket.DueDate,
	}
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if dept := c.Query("department"); dept != "" {
		filter.Department = &dept
	}
	if assignee := c.Query("assignee"); assignee != "" {
		filter.Assignee = &assignee
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	filter.Limit = c.QueryInt("limit", 20)
	filter.Offset = c.QueryInt("offset", 0)
	return filter
}
