package dto

import "github.com/opsdesk/ticket-workflow/internal/domain"

// WorkflowResponse is a workflow definition.
type WorkflowResponse struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	IsDefault bool                  `json:"is_default"`
	Steps     []domain.WorkflowStep `json:"steps"`
}

// TicketTypeResponse is a catalog ticket type.
type TicketTypeResponse struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	DefaultWD       int                   `json:"default_wd"`
	SubCategory     string                `json:"sub_category,omitempty"`
	PriorityDefault domain.TicketPriority `json:"priority_default,omitempty"`
	WorkflowID      *string               `json:"workflow_id,omitempty"`
}

// DepartmentResponse is a catalog department.
type DepartmentResponse struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	SubCategories []string             `json:"sub_categories"`
	TicketTypes   []TicketTypeResponse `json:"ticket_types"`
}
