package domain

import (
	"time"

	"github.com/opsdesk/ticket-workflow/internal/sla"
)

// AttachmentRef is the metadata reference a resolution carries for each
// stored attachment. Payloads live in the attachment store.
type AttachmentRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// WorkflowResolution is the durable audit record of one department hand-off
// (or revert). Entries are append-only and never edited after creation.
type WorkflowResolution struct {
	ID                string
	TicketID          string
	StepNumber        int
	FromDepartment    string
	ResolvedBy        string
	ResolutionText    string
	Attachments       []AttachmentRef
	ResolvedAt        time.Time
	IsRevert          bool
	ExpectedSLA       *sla.Quantity
	ActualTimeTaken   *sla.Quantity
	SLAStatus         sla.Status
	IsFinalResolution bool
}
