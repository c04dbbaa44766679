package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/ticket-workflow/internal/domain"
	"github.com/opsdesk/ticket-workflow/internal/sla"
)

// ResolutionRepository stores workflow resolutions. The log is append-only:
// there is no update or delete path.
type ResolutionRepository interface {
	Append(ctx context.Context, resolution *domain.WorkflowResolution) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.WorkflowResolution, error)
}

type resolutionRepository struct {
	pool *pgxpool.Pool
}

// NewResolutionRepository builds repository.
func NewResolutionRepository(pool *pgxpool.Pool) ResolutionRepository {
	return &resolutionRepository{pool: pool}
}

func (r *resolutionRepository) Append(ctx context.Context, resolution *domain.WorkflowResolution) error {
	expectedDoc, err := quantityDoc(resolution.ExpectedSLA)
	if err != nil {
		return err
	}
	actualDoc, err := quantityDoc(resolution.ActualTimeTaken)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO workflow_resolutions (ticket_id, step_number, from_department, resolved_by,
            resolution_text, resolved_at, is_revert, expected_sla, actual_time_taken,
            sla_status, is_final_resolution)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		resolution.TicketID,
		resolution.StepNumber,
		resolution.FromDepartment,
		resolution.ResolvedBy,
		resolution.ResolutionText,
		resolution.ResolvedAt,
		resolution.IsRevert,
		expectedDoc,
		actualDoc,
		nullableStatus(resolution.SLAStatus),
		resolution.IsFinalResolution,
	).Scan(&resolution.ID)
}

func (r *resolutionRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.WorkflowResolution, error) {
	const query = `
        SELECT id, ticket_id, step_number, from_department, resolved_by, resolution_text,
               resolved_at, is_revert, expected_sla, actual_time_taken,
               sla_status, is_final_resolution
        FROM workflow_resolutions WHERE ticket_id=$1 ORDER BY resolved_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkflowResolution
	for rows.Next() {
		resolution, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *resolution)
	}
	return result, rows.Err()
}

func scanResolution(row pgx.Row) (*domain.WorkflowResolution, error) {
	var resolution domain.WorkflowResolution
	var expectedDoc, actualDoc []byte
	var status *string
	if err := row.Scan(
		&resolution.ID,
		&resolution.TicketID,
		&resolution.StepNumber,
		&resolution.FromDepartment,
		&resolution.ResolvedBy,
		&resolution.ResolutionText,
		&resolution.ResolvedAt,
		&resolution.IsRevert,
		&expectedDoc,
		&actualDoc,
		&status,
		&resolution.IsFinalResolution,
	); err != nil {
		return nil, err
	}
	var err error
	if resolution.ExpectedSLA, err = quantityFromDoc(expectedDoc); err != nil {
		return nil, err
	}
	if resolution.ActualTimeTaken, err = quantityFromDoc(actualDoc); err != nil {
		return nil, err
	}
	if status != nil {
		resolution.SLAStatus = sla.Status(*status)
	}
	return &resolution, nil
}

func quantityDoc(q *sla.Quantity) ([]byte, error) {
	if q == nil {
		return nil, nil
	}
	return json.Marshal(q)
}

func quantityFromDoc(doc []byte) (*sla.Quantity, error) {
	if len(doc) == 0 {
		return nil, nil
	}
	var q sla.Quantity
	if err := json.Unmarshal(doc, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func nullableStatus(status sla.Status) *string {
	if status == "" {
		return nil
	}
	s := string(status)
	return &s
}
