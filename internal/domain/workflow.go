package domain

import "github.com/opsdesk/ticket-workflow/internal/sla"

// WorkflowStep is one position in a workflow: a department plus its expected
// SLA. Step order within the workflow is the only source of truth for step
// numbers (1-based, contiguous).
type WorkflowStep struct {
	DepartmentID   string       `json:"department_id"`
	DepartmentName string       `json:"department_name"`
	SLA            sla.Quantity `json:"sla"`
}

// Workflow is an ordered list of department steps a ticket must pass through.
type Workflow struct {
	ID        string
	Name      string
	IsDefault bool
	Steps     []WorkflowStep
}

// Step returns the 1-based step, or nil when out of range.
func (w *Workflow) Step(number int) *WorkflowStep {
	if w == nil || number < 1 || number > len(w.Steps) {
		return nil
	}
	return &w.Steps[number-1]
}

// StepNumberForDepartment returns the 1-based step bound to the named
// department, or 0 when the department is not part of the workflow.
func (w *Workflow) StepNumberForDepartment(departmentName string) int {
	if w == nil {
		return 0
	}
	for i, step := range w.Steps {
		if step.DepartmentName == departmentName {
			return i + 1
		}
	}
	return 0
}
