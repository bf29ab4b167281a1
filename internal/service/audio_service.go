package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"meetvault/internal/domain"
	"meetvault/internal/service/s3"
)

// Максимальный размер загружаемой аудиозаписи
const maxAudioSize = 500 << 20 // 500 MB

const downloadURLExpiry = time.Hour

// coordinator — часть MeetingService, отвечающая за согласованность
// встреч и аудиозаписей
type coordinator interface {
	AttachAudio(ctx context.Context, meetingID, audioID uuid.UUID) error
	ClearDerived(ctx context.Context, meetingID uuid.UUID) error
}

type processEnqueuer interface {
	EnqueueProcessAudio(ctx context.Context, audioID string) error
}

type UploadAudioInput struct {
	GroupID         uuid.UUID
	MeetingID       *uuid.UUID
	MeetingDatetime *time.Time
}

// AudioService управляет аудиозаписями: загрузка в S3, метаданные в базе,
// постановка обработки в очередь
type AudioService struct {
	audioRepo   audioStore
	groupRepo   groupStore
	coordinator coordinator
	storage     s3.Storage
	enqueuer    processEnqueuer
	log         zerolog.Logger
}

func NewAudioService(audioRepo audioStore, groupRepo groupStore, coord coordinator, storage s3.Storage, enqueuer processEnqueuer, log zerolog.Logger) *AudioService {
	return &AudioService{
		audioRepo:   audioRepo,
		groupRepo:   groupRepo,
		coordinator: coord,
		storage:     storage,
		enqueuer:    enqueuer,
		log:         log,
	}
}

// Upload принимает аудиофайл, кладёт его в S3 и создаёт запись в базе.
// Если указана встреча, у которой уже есть запись, возвращает
// domain.ErrConflict и ничего не загружает.
func (s *AudioService) Upload(ctx context.Context, userID uuid.UUID, file multipart.File, header *multipart.FileHeader, in UploadAudioInput) (*domain.AudioRecord, error) {
	if header.Size == 0 {
		return nil, fmt.Errorf("uploaded file is empty: %w", domain.ErrValidation)
	}
	if header.Size > maxAudioSize {
		return nil, fmt.Errorf("file size exceeds %d bytes: %w", maxAudioSize, domain.ErrValidation)
	}

	if _, err := s.groupRepo.GetMemberRole(ctx, in.GroupID, userID); err != nil {
		return nil, err
	}

	// Проверка "не более одной записи на встречу" до загрузки в S3.
	// Гонка двух параллельных загрузок здесь возможна, проверка
	// носит advisory-характер.
	if in.MeetingID != nil {
		count, err := s.audioRepo.CountByMeeting(ctx, *in.MeetingID)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, fmt.Errorf("meeting already has a recording: %w", domain.ErrConflict)
		}
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := buildAudioKey(in.GroupID, header.Filename)
	if err := s.storage.UploadFile(key, &file, contentType); err != nil {
		return nil, fmt.Errorf("failed to upload audio to storage: %w", err)
	}

	rec := &domain.AudioRecord{
		GroupID:          in.GroupID,
		MeetingID:        in.MeetingID,
		BucketName:       domain.AudioBucketName,
		Path:             key,
		OriginalFilename: header.Filename,
		MIMEType:         contentType,
		SizeBytes:        header.Size,
		MeetingDatetime:  in.MeetingDatetime,
	}
	if err := s.audioRepo.Create(ctx, rec); err != nil {
		// Запись в базе не удалась — подчищаем уже загруженный объект
		if delErr := s.storage.DeleteObject(key); delErr != nil {
			s.log.Warn().Err(delErr).Str("key", key).Msg("failed to clean up orphaned audio object")
		}
		return nil, err
	}

	if rec.MeetingID != nil {
		if err := s.enqueuer.EnqueueProcessAudio(ctx, rec.ID.String()); err != nil {
			s.log.Error().Err(err).Str("audio_id", rec.ID.String()).Msg("failed to enqueue audio processing")
		}
	}

	return rec, nil
}

func (s *AudioService) List(ctx context.Context, userID, groupID uuid.UUID) ([]domain.AudioRecord, error) {
	if _, err := s.groupRepo.GetMemberRole(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.audioRepo.ListByGroup(ctx, groupID)
}

func (s *AudioService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.AudioRecord, error) {
	rec, err := s.audioRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.groupRepo.GetMemberRole(ctx, rec.GroupID, userID); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *AudioService) UpdateMetadata(ctx context.Context, userID, id uuid.UUID, upd domain.AudioRecordUpdate) (*domain.AudioRecord, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.audioRepo.UpdateMetadata(ctx, id, upd)
}

// DownloadURL выдаёт временную ссылку на скачивание записи
func (s *AudioService) DownloadURL(ctx context.Context, userID, id uuid.UUID) (string, error) {
	rec, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	return s.storage.PresignDownloadURL(ctx, rec.Path, downloadURLExpiry)
}

// Attach привязывает запись к встрече и ставит обработку в очередь
func (s *AudioService) Attach(ctx context.Context, userID, id, meetingID uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}

	if err := s.coordinator.AttachAudio(ctx, meetingID, id); err != nil {
		return err
	}

	if err := s.enqueuer.EnqueueProcessAudio(ctx, id.String()); err != nil {
		s.log.Error().Err(err).Str("audio_id", id.String()).Msg("failed to enqueue audio processing")
	}

	return nil
}

// Process повторно ставит запись в очередь обработки
func (s *AudioService) Process(ctx context.Context, userID, id uuid.UUID) error {
	rec, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if rec.MeetingID == nil {
		return fmt.Errorf("audio record is not attached to a meeting: %w", domain.ErrValidation)
	}

	return s.enqueuer.EnqueueProcessAudio(ctx, rec.ID.String())
}

// Delete удаляет запись и сбрасывает производные поля её встречи.
// Порядок строгий: сначала удаление записи, затем сброс. Если сброс
// не удался, запись уже удалена — возвращается PartialDeleteError,
// чтобы вызывающая сторона видела рассинхрон и могла повторить сброс.
func (s *AudioService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	rec, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	// Недоступность S3 не блокирует удаление: осиротевший объект
	// хуже зависшей записи в базе
	if err := s.storage.DeleteObject(rec.Path); err != nil {
		s.log.Warn().Err(err).Str("key", rec.Path).Msg("failed to delete audio object, continuing")
	}

	if err := s.audioRepo.Delete(ctx, id); err != nil {
		return err
	}

	if rec.MeetingID != nil {
		if err := s.coordinator.ClearDerived(ctx, *rec.MeetingID); err != nil && !domain.IsNotFound(err) {
			return &domain.PartialDeleteError{
				AudioID:   id,
				MeetingID: *rec.MeetingID,
				Err:       err,
			}
		}
	}

	return nil
}

func buildAudioKey(groupID uuid.UUID, filename string) string {
	base := filepath.Base(filename)
	base = strings.ReplaceAll(base, " ", "_")
	return fmt.Sprintf("group_%s/%d_%s", groupID, time.Now().UnixNano(), base)
}
