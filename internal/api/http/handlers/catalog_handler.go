package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/ticket-workflow/internal/api/dto"
	"github.com/opsdesk/ticket-workflow/internal/domain"
	"github.com/opsdesk/ticket-workflow/internal/service"
)

// CatalogHandler serves the read-only workflow/department catalog.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListWorkflows GET /workflows.
func (h *CatalogHandler) ListWorkflows(c *fiber.Ctx) error {
	workflows, err := h.catalog.ListWorkflows(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.WorkflowResponse, 0, len(workflows))
	for i := range workflows {
		items = append(items, workflowResponse(&workflows[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetWorkflow GET /workflows/:id.
func (h *CatalogHandler) GetWorkflow(c *fiber.Ctx) error {
	wf, err := h.catalog.GetWorkflow(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workflowResponse(wf)})
}

// ListDepartments GET /departments.
func (h *CatalogHandler) ListDepartments(c *fiber.Ctx) error {
	departments, err := h.catalog.ListDepartments(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(departments))
	for i := range departments {
		items = append(items, departmentResponse(&departments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func workflowResponse(wf *domain.Workflow) dto.WorkflowResponse {
	return dto.WorkflowResponse{
		ID:        wf.ID,
		Name:      wf.Name,
		IsDefault: wf.IsDefault,
		Steps:     wf.Steps,
	}
}

func departmentResponse(dept *domain.Department) dto.DepartmentResponse {
	types := make([]dto.TicketTypeResponse, 0, len(dept.TicketTypes))
	for _, tt := range dept.TicketTypes {
		types = append(types, dto.TicketTypeResponse{
			ID:              tt.ID,
			Name:            tt.Name,
			DefaultWD:       tt.DefaultWD,
			SubCategory:     tt.SubCategory,
			PriorityDefault: tt.PriorityDefault,
			WorkflowID:      tt.WorkflowID,
		})
	}
	return dto.DepartmentResponse{
		ID:            dept.ID,
		Name:          dept.Name,
		SubCategories: dept.SubCategories,
		TicketTypes:   types,
	}
}
