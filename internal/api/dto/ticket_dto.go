package dto

import (
	"time"

	"github.com/opsdesk/ticket-workflow/internal/domain"
	"github.com/opsdesk/ticket-workflow/internal/sla"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Department  string                `json:"department" validate:"required"`
	TicketType  string                `json:"ticket_type"`
	ClientName  string                `json:"client_name" validate:"required"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Assignee    string                `json:"assignee"`
	WorkflowID  *string               `json:"workflow_id"`
	WorkingDays int                   `json:"working_days" validate:"omitempty,gt=0"`
	// SLA accepts legacy free-text encodings ("12h", "5WD", "5 Working Days").
	SLA string `json:"sla"`
}

// UpdateTicketRequest carries optional tracked-field edits.
type UpdateTicketRequest struct {
	ClientName  *string                `json:"client_name"`
	Description *string                `json:"description"`
	Priority    *domain.TicketPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	WorkingDays *int                   `json:"working_days" validate:"omitempty,gt=0"`
	Assignee    *string                `json:"assignee"`
	Department  *string                `json:"department"`
	TicketType  *string                `json:"ticket_type"`
	Reason      string                 `json:"reason"`
	Actor       string                 `json:"actor"`
}

// DepartmentActionRequest records an action on the current workflow step.
type DepartmentActionRequest struct {
	StepNumber  int                 `json:"step_number" validate:"required,gt=0"`
	ActionType  string              `json:"action_type" validate:"required,oneof=in_progress completed"`
	Notes       string              `json:"notes" validate:"required"`
	IsFinal     bool                `json:"is_final"`
	PerformedBy string              `json:"performed_by"`
	NewAssignee string              `json:"new_assignee"`
	Attachments []AttachmentRequest `json:"attachments" validate:"dive"`
}

// AttachmentRequest describes an opaque attachment payload (base64 over the
// wire).
type AttachmentRequest struct {
	Name     string `json:"name" validate:"required"`
	MimeType string `json:"mime_type"`
	Payload  []byte `json:"payload"`
}

// RevertRequest payload.
type RevertRequest struct {
	TargetDepartment string `json:"target_department" validate:"required"`
	Reason           string `json:"reason" validate:"required"`
	ActingUser       string `json:"acting_user"`
}

// ReassignRequest payload.
type ReassignRequest struct {
	NewAssignee string `json:"new_assignee" validate:"required"`
	ActingUser  string `json:"acting_user"`
}

// TicketResponse is the ticket representation returned by every write
// operation and listing.
type TicketResponse struct {
	ID                  string                      `json:"id"`
	Department          string                      `json:"department"`
	TicketType          string                      `json:"ticket_type"`
	ClientName          string                      `json:"client_name"`
	WorkingDays         int                         `json:"working_days"`
	Priority            domain.TicketPriority       `json:"priority"`
	Status              domain.TicketStatus         `json:"status"`
	Description         string                      `json:"description"`
	Assignee            string                      `json:"assignee"`
	WorkflowID          *string                     `json:"workflow_id,omitempty"`
	CurrentWorkflowStep int                         `json:"current_workflow_step"`
	WorkflowStatus      []domain.WorkflowStepStatus `json:"workflow_status"`
	CreatedAt           time.Time                   `json:"created_at"`
	UpdatedAt           time.Time                   `json:"updated_at"`
	DueDate             *time.Time                  `json:"due_date,omitempty"`
}

// TicketDetailResponse adds the reconciled step view.
type TicketDetailResponse struct {
	TicketResponse
	Steps       []domain.WorkflowStepStatus `json:"steps"`
	CurrentStep *domain.WorkflowStepStatus  `json:"current_step,omitempty"`
	DisplayDue  time.Time                   `json:"display_due_date"`
}

// HistoryEntryResponse is one audit entry.
type HistoryEntryResponse struct {
	ID        string               `json:"id"`
	ChangedAt time.Time            `json:"changed_at"`
	ChangedBy string               `json:"changed_by,omitempty"`
	Reason    string               `json:"reason,omitempty"`
	Changes   []domain.FieldChange `json:"changes"`
}

// ResolutionResponse is one department hand-off record.
type ResolutionResponse struct {
	ID                string                 `json:"id"`
	StepNumber        int                    `json:"step_number"`
	FromDepartment    string                 `json:"from_department"`
	ResolvedBy        string                 `json:"resolved_by,omitempty"`
	ResolutionText    string                 `json:"resolution_text"`
	Attachments       []domain.AttachmentRef `json:"attachments"`
	ResolvedAt        time.Time              `json:"resolved_at"`
	IsRevert          bool                   `json:"is_revert"`
	ExpectedSLA       *sla.Quantity          `json:"expected_sla,omitempty"`
	ActualTimeTaken   *sla.Quantity          `json:"actual_time_taken,omitempty"`
	SLAStatus         sla.Status             `json:"sla_status,omitempty"`
	IsFinalResolution bool                   `json:"is_final_resolution"`
}
