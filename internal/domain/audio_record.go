package domain

import (
	"time"

	"github.com/google/uuid"
)

const AudioBucketName = "audio-files"

// AudioRecord — загруженный или записанный аудиофайл группы.
// meeting_id может быть NULL: запись допустимо загрузить до привязки
// к встрече. На одну встречу допускается не более одной записи,
// инвариант обеспечивается сервисным слоем, а не схемой.
type AudioRecord struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	GroupID          uuid.UUID  `json:"group_id" db:"group_id"`
	MeetingID        *uuid.UUID `json:"meeting_id,omitempty" db:"meeting_id"`
	BucketName       string     `json:"bucket_name" db:"bucket_name"`
	Path             string     `json:"path" db:"path"`
	OriginalFilename string     `json:"original_filename" db:"original_filename"`
	MIMEType         string     `json:"mimetype" db:"mimetype"`
	SizeBytes        int64      `json:"size_bytes" db:"size_bytes"`
	MeetingDatetime  *time.Time `json:"meeting_datetime,omitempty" db:"meeting_datetime"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

type AudioRecordUpdate struct {
	OriginalFilename *string    `json:"original_filename,omitempty"`
	MeetingDatetime  *time.Time `json:"meeting_datetime,omitempty"`
}
