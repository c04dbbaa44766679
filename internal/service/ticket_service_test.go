package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/ticket-workflow/internal/domain"
	"github.com/opsdesk/ticket-workflow/internal/events"
	"github.com/opsdesk/ticket-workflow/internal/sla"
)

type ticketFixture struct {
	tickets     *fakeTicketRepo
	catalog     *fakeCatalogRepo
	resolutions *fakeResolutionRepo
	history     *fakeHistoryRepo
	attachments *fakeAttachmentRepo
	dispatcher  *recordingDispatcher
	now         time.Time
	svc         *TicketService
}

func newTicketFixture() *ticketFixture {
	f := &ticketFixture{
		tickets:     newFakeTicketRepo(),
		catalog:     newFakeCatalogRepo(),
		resolutions: &fakeResolutionRepo{},
		history:     &fakeHistoryRepo{},
		attachments: newFakeAttachmentRepo(),
		dispatcher:  &recordingDispatcher{},
		now:         monday,
	}
	f.tickets.clock = func() time.Time { return f.now }
	f.catalog.departments["Intake"] = &domain.Department{ID: "D1", Name: "Intake"}
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:     f.tickets,
		CatalogRepo:    f.catalog,
		ResolutionRepo: f.resolutions,
		HistoryRepo:    f.history,
		AttachmentRepo: f.attachments,
		Dispatcher:     f.dispatcher,
		Locks:          NewTicketLocks(),
		Clock:          func() time.Time { return f.now },
	})
	return f
}

func TestCreateTicket_WithWorkflowBinding(t *testing.T) {
	f := newTicketFixture()
	wf := twoStepWorkflow()
	f.catalog.workflows[wf.ID] = wf
	wfID := wf.ID

	ticket, err := f.svc.CreateTicket(context.Background(), TicketCreateInput{
		Department: "Intake",
		ClientName: "  Acme  ",
		Priority:   domain.TicketPriorityHigh,
		WorkflowID: &wfID,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, "Intake", ticket.Department)
	assert.Equal(t, "Acme", ticket.ClientName)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	require.NotNil(t, ticket.WorkflowID)
	assert.Equal(t, wf.ID, *ticket.WorkflowID)
	assert.Equal(t, 1, ticket.CurrentWorkflowStep)

	require.Len(t, ticket.WorkflowStatus, 2)
	first := ticket.WorkflowStatus[0]
	assert.Equal(t, domain.StepInProgress, first.Status)
	assert.Equal(t, domain.StepOriginRecorded, first.Origin)
	require.NotNil(t, first.StartedAt)
	assert.Equal(t, monday, *first.StartedAt)
	assert.Equal(t, domain.StepPending, ticket.WorkflowStatus[1].Status)

	// step one's 2-working-day SLA drives the due date
	require.NotNil(t, ticket.DueDate)
	assert.Equal(t, wednesday, *ticket.DueDate)

	assert.Contains(t, f.dispatcher.types(), events.EventTicketCreated)
	// creation itself is not a change: the audit log starts empty
	history, _ := f.history.ListByTicket(context.Background(), ticket.ID)
	assert.Empty(t, history)
}

func TestCreateTicket_WithoutWorkflowUsesWorkingDays(t *testing.T) {
	f := newTicketFixture()

	ticket, err := f.svc.CreateTicket(context.Background(), TicketCreateInput{
		Department:  "Intake",
		ClientName:  "Acme",
		WorkingDays: 5,
	})
	require.NoError(t, err)

	assert.Nil(t, ticket.WorkflowID)
	assert.Empty(t, ticket.WorkflowStatus)
	require.NotNil(t, ticket.DueDate)
	assert.Equal(t, monday.AddDate(0, 0, 7), *ticket.DueDate)
}

func TestCreateTicket_LegacySLAOverridesWorkingDays(t *testing.T) {
	f := newTicketFixture()

	ticket, err := f.svc.CreateTicket(context.Background(), TicketCreateInput{
		Department:  "Intake",
		ClientName:  "Acme",
		WorkingDays: 9,
		LegacySLA:   "3 Working Days",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, ticket.WorkingDays)
}

func TestCreateTicket_TicketTypeDefaults(t *testing.T) {
	f := newTicketFixture()
	wf := twoStepWorkflow()
	f.catalog.workflows[wf.ID] = wf
	wfID := wf.ID
	f.catalog.ticketTypes["Service Request"] = &domain.TicketType{
		ID:              "TT1",
		Name:            "Service Request",
		DefaultWD:       7,
		PriorityDefault: domain.TicketPriorityUrgent,
		WorkflowID:      &wfID,
	}

	ticket, err := f.svc.CreateTicket(context.Background(), TicketCreateInput{
		Department: "Intake",
		TicketType: "Service Request",
		ClientName: "Acme",
	})
	require.NoError(t, err)

	assert.Equal(t, 7, ticket.WorkingDays)
	assert.Equal(t, domain.TicketPriorityUrgent, ticket.Priority)
	require.NotNil(t, ticket.WorkflowID)
	assert.Equal(t, wf.ID, *ticket.WorkflowID)
}

func TestCreateTicket_Validation(t *testing.T) {
	f := newTicketFixture()
	ctx := context.Background()

	_, err := f.svc.CreateTicket(ctx, TicketCreateInput{Department: "Intake"})
	requireErrorCode(t, err, "VALIDATION_FAILED")

	_, err = f.svc.CreateTicket(ctx, TicketCreateInput{Department: "Unknown", ClientName: "Acme"})
	requireErrorCode(t, err, "NOT_FOUND")

	missing := "no-such-workflow"
	_, err = f.svc.CreateTicket(ctx, TicketCreateInput{Department: "Intake", ClientName: "Acme", WorkflowID: &missing})
	requireErrorCode(t, err, "NOT_FOUND")
}

func TestUpdateTicket_RecordsSingleHistoryEntry(t *testing.T) {
	f := newTicketFixture()
	ctx := context.Background()
	created, err := f.svc.CreateTicket(ctx, TicketCreateInput{
		Department: "Intake", ClientName: "Acme", WorkingDays: 5,
	})
	require.NoError(t, err)

	f.now = tuesday
	priority := domain.TicketPriorityUrgent
	description := "escalated by client"
	updated, err := f.svc.UpdateTicket(ctx, created.ID, TicketUpdateInput{
		Priority:    &priority,
		Description: &description,
	}, "lead", "client call")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketPriorityUrgent, updated.Priority)
	assert.Equal(t, "escalated by client", updated.Description)

	history, err := f.svc.ListHistory(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "lead", history[0].ChangedBy)
	assert.Equal(t, "client call", history[0].Reason)
	assert.Len(t, history[0].Changes, 2)

	assert.Contains(t, f.dispatcher.types(), events.EventTicketUpdated)
}

func TestUpdateTicket_NoOpWritesNothing(t *testing.T) {
	f := newTicketFixture()
	ctx := context.Background()
	created, err := f.svc.CreateTicket(ctx, TicketCreateInput{
		Department: "Intake", ClientName: "Acme", WorkingDays: 5,
	})
	require.NoError(t, err)

	f.now = tuesday
	same := created.ClientName
	_, err = f.svc.UpdateTicket(ctx, created.ID, TicketUpdateInput{ClientName: &same}, "lead", "")
	require.NoError(t, err)

	history, err := f.svc.ListHistory(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	stored, err := f.tickets.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.UpdatedAt, stored.UpdatedAt)
}

func TestUpdateTicket_WorkingDaysRecomputesDueDateWithoutWorkflow(t *testing.T) {
	f := newTicketFixture()
	ctx := context.Background()
	created, err := f.svc.CreateTicket(ctx, TicketCreateInput{
		Department: "Intake", ClientName: "Acme", WorkingDays: 5,
	})
	require.NoError(t, err)

	f.now = tuesday
	days := 2
	updated, err := f.svc.UpdateTicket(ctx, created.ID, TicketUpdateInput{WorkingDays: &days}, "lead", "")
	require.NoError(t, err)

	require.NotNil(t, updated.DueDate)
	assert.Equal(t, sla.DueDate(created.CreatedAt, sla.Quantity{Value: 2, Unit: sla.UnitDays}), *updated.DueDate)

	invalid := 0
	_, err = f.svc.UpdateTicket(ctx, created.ID, TicketUpdateInput{WorkingDays: &invalid}, "lead", "")
	requireErrorCode(t, err, "VALIDATION_FAILED")
}

func TestGetTicket_ReturnsReconciledView(t *testing.T) {
	f := newTicketFixture()
	wf := twoStepWorkflow()
	f.catalog.workflows[wf.ID] = wf
	wfID := wf.ID
	ctx := context.Background()

	created, err := f.svc.CreateTicket(ctx, TicketCreateInput{
		Department: "Intake", ClientName: "Acme", WorkflowID: &wfID,
	})
	require.NoError(t, err)

	view, err := f.svc.GetTicket(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.ID, view.Ticket.ID)
	require.Len(t, view.Steps, 2)
	require.NotNil(t, view.CurrentStep)
	assert.Equal(t, 1, view.CurrentStep.StepNumber)
	assert.Equal(t, wednesday, view.DueDate)
}

func TestGetTicket_NotFound(t *testing.T) {
	f := newTicketFixture()
	_, err := f.svc.GetTicket(context.Background(), "missing")
	requireErrorCode(t, err, "NOT_FOUND")
}

func TestListResolutions_FillsAttachmentRefs(t *testing.T) {
	f := newTicketFixture()
	ctx := context.Background()
	created, err := f.svc.CreateTicket(ctx, TicketCreateInput{
		Department: "Intake", ClientName: "Acme", WorkingDays: 5,
	})
	require.NoError(t, err)

	resolution := &domain.WorkflowResolution{
		TicketID:       created.ID,
		StepNumber:     1,
		FromDepartment: "Intake",
		ResolutionText: "done",
		ResolvedAt:     tuesday,
	}
	require.NoError(t, f.resolutions.Append(ctx, resolution))
	require.NoError(t, f.attachments.Create(ctx, resolution.ID, &domain.FileAttachment{
		Name: "report.csv", Size: 42, MimeType: "text/csv",
	}))

	resolutions, err := f.svc.ListResolutions(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, resolutions, 1)
	require.Len(t, resolutions[0].Attachments, 1)
	assert.Equal(t, "report.csv", resolutions[0].Attachments[0].Name)
}
