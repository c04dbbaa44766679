package domain

import "time"

// StepState is the sub-state of a single workflow step.
type StepState string

const (
	StepPending    StepState = "pending"
	StepInProgress StepState = "in_progress"
	StepCompleted  StepState = "completed"
)

// StepOrigin tags whether a step status was recorded by an actual transition
// or inferred by the reconciler from the ticket's current step pointer.
// Recorded state always wins during reconciliation.
type StepOrigin string

const (
	StepOriginRecorded StepOrigin = "recorded"
	StepOriginInferred StepOrigin = "inferred"
)

// ActionType enumerates the department actions recordable on a step.
type ActionType string

const (
	ActionInProgress ActionType = "in_progress"
	ActionCompleted  ActionType = "completed"
)

// WorkflowAction is one department action on a step. Actions are append-only;
// they are never mutated or deleted.
type WorkflowAction struct {
	ID          string     `json:"id"`
	ActionType  ActionType `json:"action_type"`
	Notes       string     `json:"notes"`
	IsComplete  bool       `json:"is_complete"`
	PerformedBy string     `json:"performed_by,omitempty"`
	NewAssignee string     `json:"new_assignee,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// WorkflowStepStatus is the progress record for one workflow step of one
// ticket. At most one step is in_progress under normal progression, and
// completed steps form a prefix of the step list except immediately after a
// revert.
type WorkflowStepStatus struct {
	StepNumber     int              `json:"step_number"`
	DepartmentID   string           `json:"department_id"`
	DepartmentName string           `json:"department_name"`
	Status         StepState        `json:"status"`
	Origin         StepOrigin       `json:"origin"`
	Actions        []WorkflowAction `json:"actions,omitempty"`
	StartedAt      *time.Time       `json:"started_at,omitempty"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of the step status.
func (s WorkflowStepStatus) Clone() WorkflowStepStatus {
	copied := s
	if s.StartedAt != nil {
		started := *s.StartedAt
		copied.StartedAt = &started
	}
	if s.CompletedAt != nil {
		completed := *s.CompletedAt
		copied.CompletedAt = &completed
	}
	copied.Actions = append([]WorkflowAction(nil), s.Actions...)
	return copied
}
