package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/ticket-workflow/internal/domain"
)

// AttachmentRepository stores opaque resolution attachments. Payload bytes
// are written and read untouched.
type AttachmentRepository interface {
	Create(ctx context.Context, resolutionID string, attachment *domain.FileAttachment) error
	GetByID(ctx context.Context, id string) (*domain.FileAttachment, error)
	ListRefsByResolution(ctx context.Context, resolutionID string) ([]domain.AttachmentRef, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository builds repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, resolutionID string, attachment *domain.FileAttachment) error {
	const query = `
        INSERT INTO file_attachments (resolution_id, name, size, mime_type, payload)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, uploaded_at`
	return r.pool.QueryRow(ctx, query,
		resolutionID,
		attachment.Name,
		attachment.Size,
		attachment.MimeType,
		attachment.Payload,
	).Scan(&attachment.ID, &attachment.UploadedAt)
}

func (r *attachmentRepository) ListRefsByResolution(ctx context.Context, resolutionID string) ([]domain.AttachmentRef, error) {
	const query = `
        SELECT id, name, size, mime_type
        FROM file_attachments WHERE resolution_id=$1 ORDER BY uploaded_at ASC`
	rows, err := r.pool.Query(ctx, query, resolutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AttachmentRef
	for rows.Next() {
		var ref domain.AttachmentRef
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Size, &ref.MimeType); err != nil {
			return nil, err
		}
		result = append(result, ref)
	}
	return result, rows.Err()
}

func (r *attachmentRepository) GetByID(ctx context.Context, id string) (*domain.FileAttachment, error) {
	const query = `
        SELECT id, name, size, mime_type, payload, uploaded_at
        FROM file_attachments WHERE id=$1`
	var attachment domain.FileAttachment
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&attachment.ID,
		&attachment.Name,
		&attachment.Size,
		&attachment.MimeType,
		&attachment.Payload,
		&attachment.UploadedAt,
	); err != nil {
		return nil, err
	}
	return &attachment, nil
}
