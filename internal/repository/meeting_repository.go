package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"meetvault/internal/domain"
)

type MeetingRepository struct {
	db *sqlx.DB
}

func NewMeetingRepository(db *sqlx.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

func (r *MeetingRepository) Create(ctx context.Context, m *domain.Meeting) error {
	query := `
        INSERT INTO meetings (group_id, name, meeting_datetime)
        VALUES ($1, $2, $3)
        RETURNING id, transcript, summary, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query, m.GroupID, m.Name, m.MeetingDatetime).
		Scan(&m.ID, &m.Transcript, &m.Summary, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}

	return nil
}

func (r *MeetingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Meeting, error) {
	var meeting domain.Meeting
	query := `SELECT * FROM meetings WHERE id = $1`

	err := r.db.GetContext(ctx, &meeting, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("meeting %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	return &meeting, nil
}

func (r *MeetingRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]domain.Meeting, error) {
	var meetings []domain.Meeting
	query := `SELECT * FROM meetings WHERE group_id = $1 ORDER BY meeting_datetime DESC`

	err := r.db.SelectContext(ctx, &meetings, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}

	return meetings, nil
}

// Update меняет только пользовательские поля. Транскрипт и резюме сюда
// не попадают никогда — см. UpdateDerived и ClearDerived.
func (r *MeetingRepository) Update(ctx context.Context, id uuid.UUID, upd domain.MeetingUpdate) (*domain.Meeting, error) {
	var meeting domain.Meeting
	query := `
        UPDATE meetings
        SET name = COALESCE($1, name),
            meeting_datetime = COALESCE($2, meeting_datetime),
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $3
        RETURNING *`

	err := r.db.QueryRowxContext(ctx, query, upd.Name, upd.MeetingDatetime, id).StructScan(&meeting)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("meeting %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update meeting: %w", err)
	}

	return &meeting, nil
}

// UpdateDerived записывает результат обработки. Вызывается только воркером.
func (r *MeetingRepository) UpdateDerived(ctx context.Context, id uuid.UUID, transcript string, summary domain.MeetingSummary) error {
	query := `
        UPDATE meetings
        SET transcript = $1, summary = $2, updated_at = CURRENT_TIMESTAMP
        WHERE id = $3`

	res, err := r.db.ExecContext(ctx, query, transcript, summary, id)
	if err != nil {
		return fmt.Errorf("failed to update derived fields: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("meeting %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ClearDerived сбрасывает производные поля в пустые значения.
// Идемпотентна: повторный вызов оставляет то же состояние.
func (r *MeetingRepository) ClearDerived(ctx context.Context, id uuid.UUID) error {
	query := `
        UPDATE meetings
        SET transcript = '', summary = '{}'::jsonb, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to clear derived fields: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("meeting %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *MeetingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("meeting %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
