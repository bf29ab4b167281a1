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

type AudioRepository struct {
	db *sqlx.DB
}

func NewAudioRepository(db *sqlx.DB) *AudioRepository {
	return &AudioRepository{db: db}
}

func (r *AudioRepository) Create(ctx context.Context, rec *domain.AudioRecord) error {
	query := `
        INSERT INTO audio_files (group_id, meeting_id, bucket_name, path, original_filename, mimetype, size_bytes, meeting_datetime)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		rec.GroupID,
		rec.MeetingID,
		rec.BucketName,
		rec.Path,
		rec.OriginalFilename,
		rec.MIMEType,
		rec.SizeBytes,
		rec.MeetingDatetime,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audio record: %w", err)
	}

	return nil
}

func (r *AudioRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AudioRecord, error) {
	var rec domain.AudioRecord
	query := `SELECT * FROM audio_files WHERE id = $1`

	err := r.db.GetContext(ctx, &rec, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("audio record %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get audio record: %w", err)
	}

	return &rec, nil
}

func (r *AudioRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]domain.AudioRecord, error) {
	var records []domain.AudioRecord
	query := `SELECT * FROM audio_files WHERE group_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &records, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audio records: %w", err)
	}

	return records, nil
}

func (r *AudioRepository) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]domain.AudioRecord, error) {
	var records []domain.AudioRecord
	query := `SELECT * FROM audio_files WHERE meeting_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &records, query, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audio records by meeting: %w", err)
	}

	return records, nil
}

func (r *AudioRepository) CountByMeeting(ctx context.Context, meetingID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM audio_files WHERE meeting_id = $1`

	err := r.db.GetContext(ctx, &count, query, meetingID)
	if err != nil {
		return 0, fmt.Errorf("failed to count audio records: %w", err)
	}

	return count, nil
}

// SetMeeting привязывает запись к встрече. Проверка "не более одной записи
// на встречу" делается сервисным слоем до вызова.
func (r *AudioRepository) SetMeeting(ctx context.Context, id uuid.UUID, meetingID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE audio_files SET meeting_id = $1 WHERE id = $2`, meetingID, id)
	if err != nil {
		return fmt.Errorf("failed to attach audio record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("audio record %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *AudioRepository) UpdateMetadata(ctx context.Context, id uuid.UUID, upd domain.AudioRecordUpdate) (*domain.AudioRecord, error) {
	var rec domain.AudioRecord
	query := `
        UPDATE audio_files
        SET original_filename = COALESCE($1, original_filename),
            meeting_datetime = COALESCE($2, meeting_datetime)
        WHERE id = $3
        RETURNING *`

	err := r.db.QueryRowxContext(ctx, query, upd.OriginalFilename, upd.MeetingDatetime, id).StructScan(&rec)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("audio record %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update audio record: %w", err)
	}

	return &rec, nil
}

func (r *AudioRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audio_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete audio record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("audio record %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
