package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/ticket-workflow/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	Department *string
	Assignee   *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	DueBefore  *time.Time
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence. Writes to a single ticket
// row are atomic; the workflow step statuses travel with the row as one
// document so a reader sees a ticket either fully before or fully after a
// transition.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, department, ticket_type, client_name, working_days, priority, status,
               description, assignee, workflow_id, current_workflow_step, workflow_status,
               created_at, updated_at, due_date`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	statusDoc, err := json.Marshal(ticket.WorkflowStatus)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (department, ticket_type, client_name, working_days, priority, status,
                             description, assignee, workflow_id, current_workflow_step, workflow_status, due_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Department,
		ticket.TicketType,
		ticket.ClientName,
		ticket.WorkingDays,
		ticket.Priority,
		ticket.Status,
		ticket.Description,
		ticket.Assignee,
		ticket.WorkflowID,
		ticket.CurrentWorkflowStep,
		statusDoc,
		ticket.DueDate,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	statusDoc, err := json.Marshal(ticket.WorkflowStatus)
	if err != nil {
		return err
	}
	const query = `
        UPDATE tickets SET department=$1, ticket_type=$2, client_name=$3, working_days=$4, priority=$5,
            status=$6, description=$7, assignee=$8, workflow_id=$9, current_workflow_step=$10,
            workflow_status=$11, due_date=$12, updated_at=NOW()
        WHERE id=$13`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Department,
		ticket.TicketType,
		ticket.ClientName,
		ticket.WorkingDays,
		ticket.Priority,
		ticket.Status,
		ticket.Description,
		ticket.Assignee,
		ticket.WorkflowID,
		ticket.CurrentWorkflowStep,
		statusDoc,
		ticket.DueDate,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	row := r.pool.QueryRow(ctx, query, id)
	return scanTicket(row)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if filter.Assignee != nil {
		args = append(args, *filter.Assignee)
		clauses = append(clauses, fmt.Sprintf("assignee=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.DueBefore != nil {
		args = append(args, *filter.DueBefore)
		clauses = append(clauses, fmt.Sprintf("due_date IS NOT NULL AND due_date < $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(client_name) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var statusDoc []byte
	if err := row.Scan(
		&ticket.ID,
		&ticket.Department,
		&ticket.TicketType,
		&ticket.ClientName,
		&ticket.WorkingDays,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Description,
		&ticket.Assignee,
		&ticket.WorkflowID,
		&ticket.CurrentWorkflowStep,
		&statusDoc,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.DueDate,
	); err != nil {
		return nil, err
	}
	if len(statusDoc) > 0 {
		if err := json.Unmarshal(statusDoc, &ticket.WorkflowStatus); err != nil {
			return nil, err
		}
	}
	return &ticket, nil
}
