package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Общие доменные ошибки, проверяются через errors.Is
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation error")
)

// PartialDeleteError возникает, когда аудиозапись уже удалена,
// а сброс производных полей встречи завершился ошибкой.
// Запись не восстанавливается — промежуточное состояние считается допустимым
// и должно быть показано пользователю явно.
type PartialDeleteError struct {
	AudioID   uuid.UUID
	MeetingID uuid.UUID
	Err       error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("audio %s deleted but meeting %s derived fields were not cleared: %v",
		e.AudioID, e.MeetingID, e.Err)
}

func (e *PartialDeleteError) Unwrap() error {
	return e.Err
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
