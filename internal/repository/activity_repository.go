package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-kit/helpdesk-api/internal/domain"
	apperrors "github.com/helpdesk-kit/helpdesk-api/pkg/util/errorutil"
)

// ActivityLogRepository stores the append-only audit trail. There is no
// update operation: entries are written once and removed only when their
// ticket is deleted.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *domain.ActivityLog) error
	GetByID(ctx context.Context, id int64) (*domain.ActivityLog, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.ActivityLog, error)
}

type activityLogRepository struct {
	db DB
}

func (r *activityLogRepository) Create(ctx context.Context, entry *domain.ActivityLog) error {
	const query = `
        INSERT INTO activity_logs (ticket_id, user_id, action, description)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		entry.TicketID,
		entry.UserID,
		entry.Action,
		entry.Description,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return apperrors.ToDomainError(err)
	}
	return nil
}

func (r *activityLogRepository) GetByID(ctx context.Context, id int64) (*domain.ActivityLog, error) {
	const query = `
        SELECT id, ticket_id, user_id, action, description, created_at
        FROM activity_logs WHERE id=$1`
	var entry domain.ActivityLog
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&entry.ID,
		&entry.TicketID,
		&entry.UserID,
		&entry.Action,
		&entry.Description,
		&entry.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("activity log", map[string]any{"id": id})
		}
		return nil, apperrors.ToDomainError(err)
	}
	return &entry, nil
}

func (r *activityLogRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.ActivityLog, error) {
	const query = `
        SELECT id, ticket_id, user_id, action, description, created_at
        FROM activity_logs WHERE ticket_id=$1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	defer rows.Close()

	var result []domain.ActivityLog
	for rows.Next() {
		var entry domain.ActivityLog
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.UserID,
			&entry.Action,
			&entry.Description,
			&entry.CreatedAt,
		); err != nil {
			return nil, apperrors.ToDomainError(err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return result, nil
}
