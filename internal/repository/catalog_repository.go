package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/ticket-workflow/internal/domain"
)

// CatalogRepository provides read-only access to workflow, department and
// ticket-type definitions. The engine never mutates catalog data.
type CatalogRepository interface {
	GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error)
	// GetDefaultWorkflow returns the workflow flagged is_default, falling
	// back to the first workflow by name. (nil, nil) when the catalog holds
	// no workflows: callers treat that as a valid state, not an error.
	GetDefaultWorkflow(ctx context.Context) (*domain.Workflow, error)
	ListWorkflows(ctx context.Context) ([]domain.Workflow, error)
	GetDepartmentByName(ctx context.Context, name string) (*domain.Department, error)
	ListDepartments(ctx context.Context) ([]domain.Department, error)
	GetTicketTypeByName(ctx context.Context, name string) (*domain.TicketType, error)
}

type catalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository instantiates repository.
func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepository{pool: pool}
}

func (r *catalogRepository) GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error) {
	const query = `SELECT id, name, is_default, steps FROM workflows WHERE id=$1`
	return scanWorkflow(r.pool.QueryRow(ctx, query, id))
}

func (r *catalogRepository) GetDefaultWorkflow(ctx context.Context) (*domain.Workflow, error) {
	const query = `SELECT id, name, is_default, steps FROM workflows ORDER BY is_default DESC, name ASC LIMIT 1`
	wf, err := scanWorkflow(r.pool.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return wf, err
}

func (r *catalogRepository) ListWorkflows(ctx context.Context) ([]domain.Workflow, error) {
	const query = `SELECT id, name, is_default, steps FROM workflows ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *wf)
	}
	return result, rows.Err()
}

func scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	var wf domain.Workflow
	var stepsDoc []byte
	if err := row.Scan(&wf.ID, &wf.Name, &wf.IsDefault, &stepsDoc); err != nil {
		return nil, err
	}
	if len(stepsDoc) > 0 {
		if err := json.Unmarshal(stepsDoc, &wf.Steps); err != nil {
			return nil, err
		}
	}
	return &wf, nil
}

func (r *catalogRepository) GetDepartmentByName(ctx context.Context, name string) (*domain.Department, error) {
	const query = `
        SELECT id, name, sub_categories, created_at, updated_at
        FROM departments WHERE name=$1`
	var dept domain.Department
	if err := r.pool.QueryRow(ctx, query, name).Scan(
		&dept.ID,
		&dept.Name,
		&dept.SubCategories,
		&dept.CreatedAt,
		&dept.UpdatedAt,
	); err != nil {
		return nil, err
	}
	types, err := r.ticketTypesForDepartment(ctx, dept.ID)
	if err != nil {
		return nil, err
	}
	dept.TicketTypes = types
	return &dept, nil
}

func (r *catalogRepository) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	const query = `
        SELECT id, name, sub_categories, created_at, updated_at
        FROM departments ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Department
	for rows.Next() {
		var dept domain.Department
		if err := rows.Scan(
			&dept.ID,
			&dept.Name,
			&dept.SubCategories,
			&dept.CreatedAt,
			&dept.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		types, err := r.ticketTypesForDepartment(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].TicketTypes = types
	}
	return result, nil
}

func (r *catalogRepository) GetTicketTypeByName(ctx context.Context, name string) (*domain.TicketType, error) {
	const query = `
        SELECT id, name, default_wd, sub_category, priority_default, workflow_id
        FROM ticket_types WHERE name=$1`
	var tt domain.TicketType
	if err := r.pool.QueryRow(ctx, query, name).Scan(
		&tt.ID,
		&tt.Name,
		&tt.DefaultWD,
		&tt.SubCategory,
		&tt.PriorityDefault,
		&tt.WorkflowID,
	); err != nil {
		return nil, err
	}
	return &tt, nil
}

func (r *catalogRepository) ticketTypesForDepartment(ctx context.Context, departmentID string) ([]domain.TicketType, error) {
	const query = `
        SELECT id, name, default_wd, sub_category, priority_default, workflow_id
        FROM ticket_types WHERE department_id=$1 ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketType
	for rows.Next() {
		var tt domain.TicketType
		if err := rows.Scan(
			&tt.ID,
			&tt.Name,
			&tt.DefaultWD,
			&tt.SubCategory,
			&tt.PriorityDefault,
			&tt.WorkflowID,
		); err != nil {
			return nil, err
		}
		result = append(result, tt)
	}
	return result, rows.Err()
}
