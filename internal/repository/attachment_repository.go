package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AttachmentRepository records attachment metadata linkage. Blob storage is
// delegated to an external collaborator.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.AttachmentReference) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.AttachmentReference, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository builds repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.AttachmentReference) error {
	const query = `
        INSERT INTO ticket_attachments (ticket_id, uploader_id, storage_key, file_name, mime_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		attachment.TicketID,
		attachment.UploaderID,
		attachment.StorageKey,
		attachment.FileName,
		attachment.MimeType,
		attachment.SizeBytes,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.AttachmentReference, error) {
	const query = `
        SELECT id, ticket_id, uploader_id, storage_key, file_name, mime_type, size_bytes, created_at
        FROM ticket_attachments WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AttachmentReference
	for rows.Next() {
		var att domain.AttachmentReference
		if err := rows.Scan(
			&att.ID,
			&att.TicketID,
			&att.UploaderID,
			&att.StorageKey,
			&att.FileName,
			&att.MimeType,
			&att.SizeBytes,
			&att.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, att)
	}
	return result, rows.Err()
}
