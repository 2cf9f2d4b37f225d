package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error)
	GetByPath(ctx context.Context, ticketID, filePath string) (*domain.Attachment, error)
}

const attachmentColumns = `id, ticket_id, uploaded_by_id, file_name, file_path, file_size, mime_type, created_at`

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO attachments (ticket_id, uploaded_by_id, file_name, file_path, file_size, mime_type)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		attachment.TicketID,
		attachment.UploadedByID,
		attachment.FileName,
		attachment.FilePath,
		attachment.FileSize,
		attachment.MimeType,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	if !validID(ticketID) {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+attachmentColumns+` FROM attachments WHERE ticket_id=$1 ORDER BY created_at DESC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.UploadedByID,
			&attachment.FileName,
			&attachment.FilePath,
			&attachment.FileSize,
			&attachment.MimeType,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}

func (r *attachmentRepository) GetByPath(ctx context.Context, ticketID, filePath string) (*domain.Attachment, error) {
	if !validID(ticketID) {
		return nil, pgx.ErrNoRows
	}
	var attachment domain.Attachment
	err := r.pool.QueryRow(ctx, `SELECT `+attachmentColumns+` FROM attachments WHERE ticket_id=$1 AND file_path=$2`, ticketID, filePath).Scan(
		&attachment.ID,
		&attachment.TicketID,
		&attachment.UploadedByID,
		&attachment.FileName,
		&attachment.FilePath,
		&attachment.FileSize,
		&attachment.MimeType,
		&attachment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}
