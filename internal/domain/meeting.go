package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Meeting struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	GroupID         uuid.UUID      `json:"group_id" db:"group_id"`
	Name            string         `json:"name" db:"name"`
	MeetingDatetime time.Time      `json:"meeting_datetime" db:"meeting_datetime"`
	Transcript      string         `json:"transcript" db:"transcript"`
	Summary         MeetingSummary `json:"summary" db:"summary"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// MeetingSummary — производное поле встречи, заполняется только воркером
// обработки. Пустая структура хранится как '{}'::jsonb и означает
// отсутствие резюме.
type MeetingSummary struct {
	Summary      string   `json:"summary,omitempty"`
	ActionItems  []string `json:"action_items,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

func (s MeetingSummary) IsEmpty() bool {
	return strings.TrimSpace(s.Summary) == ""
}

// Value сериализует резюме в jsonb
func (s MeetingSummary) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}
	return data, nil
}

// Scan читает jsonb-колонку; NULL трактуется как пустое резюме
func (s *MeetingSummary) Scan(src interface{}) error {
	if src == nil {
		*s = MeetingSummary{}
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported summary source type %T", src)
	}

	if len(data) == 0 {
		*s = MeetingSummary{}
		return nil
	}

	return json.Unmarshal(data, s)
}

// HasTranscript — транскрипт считается присутствующим, только если он
// непустой после обрезки пробелов. NULL в базе и "" после сброса
// неотличимы намеренно.
func (m *Meeting) HasTranscript() bool {
	return strings.TrimSpace(m.Transcript) != ""
}

func (m *Meeting) HasSummary() bool {
	return !m.Summary.IsEmpty()
}

type MeetingCreate struct {
	GroupID         uuid.UUID `json:"group_id"`
	Name            string    `json:"name"`
	MeetingDatetime time.Time `json:"meeting_datetime"`
}

// MeetingUpdate — частичное обновление; транскрипт и резюме сюда не входят,
// их пишет только воркер обработки или сбрасывает координатор
type MeetingUpdate struct {
	Name            *string    `json:"name,omitempty"`
	MeetingDatetime *time.Time `json:"meeting_datetime,omitempty"`
}
