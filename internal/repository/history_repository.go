package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/ticket-workflow/internal/domain"
)

// HistoryRepository stores ticket audit entries. Strictly append-only;
// listing returns latest first for display.
type HistoryRepository interface {
	Append(ctx context.Context, entry *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) Append(ctx context.Context, entry *domain.TicketHistory) error {
	changesDoc, err := json.Marshal(entry.Changes)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO ticket_history (ticket_id, changed_at, changed_by, reason, changes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.ChangedAt,
		entry.ChangedBy,
		entry.Reason,
		changesDoc,
	).Scan(&entry.ID)
}

func (r *historyRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id, ticket_id, changed_at, changed_by, reason, changes
        FROM ticket_history WHERE ticket_id=$1 ORDER BY changed_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketHistory
	for rows.Next() {
		var entry domain.TicketHistory
		var changesDoc []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ChangedAt,
			&entry.ChangedBy,
			&entry.Reason,
			&changesDoc,
		); err != nil {
			return nil, err
		}
		if len(changesDoc) > 0 {
			if err := json.Unmarshal(changesDoc, &entry.Changes); err != nil {
				return nil, err
			}
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
