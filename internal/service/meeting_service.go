package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"meetvault/internal/domain"
)

// Хранилища описаны интерфейсами по месту использования,
// реализация — internal/repository
type meetingStore interface {
	Create(ctx context.Context, m *domain.Meeting) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Meeting, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]domain.Meeting, error)
	Update(ctx context.Context, id uuid.UUID, upd domain.MeetingUpdate) (*domain.Meeting, error)
	ClearDerived(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type audioStore interface {
	Create(ctx context.Context, rec *domain.AudioRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AudioRecord, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]domain.AudioRecord, error)
	ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]domain.AudioRecord, error)
	CountByMeeting(ctx context.Context, meetingID uuid.UUID) (int, error)
	SetMeeting(ctx context.Context, id uuid.UUID, meetingID uuid.UUID) error
	UpdateMetadata(ctx context.Context, id uuid.UUID, upd domain.AudioRecordUpdate) (*domain.AudioRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type groupStore interface {
	GetMemberRole(ctx context.Context, groupID, userID uuid.UUID) (string, error)
}

// MeetingService владеет встречами и согласованностью их производных полей
// с аудиозаписями. Инвариант "не более одной записи на встречу" живёт здесь,
// а не в схеме базы: гонка двух параллельных привязок допустима и
// всплывает как конфликт постфактум.
type MeetingService struct {
	meetingRepo meetingStore
	audioRepo   audioStore
	groupRepo   groupStore
	log         zerolog.Logger
}

func NewMeetingService(meetingRepo meetingStore, audioRepo audioStore, groupRepo groupStore, log zerolog.Logger) *MeetingService {
	return &MeetingService{
		meetingRepo: meetingRepo,
		audioRepo:   audioRepo,
		groupRepo:   groupRepo,
		log:         log,
	}
}

func (s *MeetingService) Create(ctx context.Context, userID uuid.UUID, in domain.MeetingCreate) (*domain.Meeting, error) {
	if in.GroupID == uuid.Nil {
		return nil, fmt.Errorf("group_id is required: %w", domain.ErrValidation)
	}
	if in.MeetingDatetime.IsZero() {
		return nil, fmt.Errorf("meeting_datetime is required: %w", domain.ErrValidation)
	}

	// Создавать встречи могут только участники группы
	if _, err := s.groupRepo.GetMemberRole(ctx, in.GroupID, userID); err != nil {
		return nil, err
	}

	meeting := &domain.Meeting{
		GroupID:         in.GroupID,
		Name:            in.Name,
		MeetingDatetime: in.MeetingDatetime,
	}
	if err := s.meetingRepo.Create(ctx, meeting); err != nil {
		return nil, err
	}

	return meeting, nil
}

// List возвращает встречи группы от новых к старым
func (s *MeetingService) List(ctx context.Context, userID, groupID uuid.UUID) ([]domain.Meeting, error) {
	if _, err := s.groupRepo.GetMemberRole(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.meetingRepo.ListByGroup(ctx, groupID)
}

func (s *MeetingService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Meeting, error) {
	meeting, err := s.meetingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.groupRepo.GetMemberRole(ctx, meeting.GroupID, userID); err != nil {
		return nil, err
	}

	return meeting, nil
}

// Status возвращает производный статус обработки вместе с данными,
// из которых он вычислен
func (s *MeetingService) Status(ctx context.Context, userID, id uuid.UUID) (domain.ProcessingStatus, *domain.Meeting, []domain.AudioRecord, error) {
	meeting, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", nil, nil, err
	}

	records, err := s.audioRepo.ListByMeeting(ctx, id)
	if err != nil {
		return "", nil, nil, err
	}

	return domain.ResolveStatus(meeting, records), meeting, records, nil
}

// Update меняет имя и дату встречи. Транскрипт и резюме через этот путь
// изменить нельзя — их пишет только воркер обработки.
func (s *MeetingService) Update(ctx context.Context, userID, id uuid.UUID, upd domain.MeetingUpdate) (*domain.Meeting, error) {
	if err := s.requireAdmin(ctx, userID, id); err != nil {
		return nil, err
	}

	return s.meetingRepo.Update(ctx, id, upd)
}

func (s *MeetingService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.requireAdmin(ctx, userID, id); err != nil {
		return err
	}

	return s.meetingRepo.Delete(ctx, id)
}

// AttachAudio привязывает ранее загруженную запись к встрече.
// Возвращает domain.ErrConflict, если у встречи уже есть запись.
func (s *MeetingService) AttachAudio(ctx context.Context, meetingID, audioID uuid.UUID) error {
	meeting, err := s.meetingRepo.GetByID(ctx, meetingID)
	if err != nil {
		return err
	}

	rec, err := s.audioRepo.GetByID(ctx, audioID)
	if err != nil {
		return err
	}
	if rec.GroupID != meeting.GroupID {
		return fmt.Errorf("audio record belongs to another group: %w", domain.ErrValidation)
	}

	count, err := s.audioRepo.CountByMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("meeting already has a recording: %w", domain.ErrConflict)
	}

	return s.audioRepo.SetMeeting(ctx, audioID, meetingID)
}

// ClearDerived сбрасывает транскрипт и резюме встречи.
// Идемпотентна: повторный вызов не меняет состояние.
func (s *MeetingService) ClearDerived(ctx context.Context, meetingID uuid.UUID) error {
	return s.meetingRepo.ClearDerived(ctx, meetingID)
}

func (s *MeetingService) requireAdmin(ctx context.Context, userID, meetingID uuid.UUID) error {
	meeting, err := s.meetingRepo.GetByID(ctx, meetingID)
	if err != nil {
		return err
	}

	role, err := s.groupRepo.GetMemberRole(ctx, meeting.GroupID, userID)
	if err != nil {
		return err
	}
	if role != domain.RoleAdmin {
		return fmt.Errorf("only group admins can modify meetings: %w", domain.ErrForbidden)
	}

	return nil
}
