package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"meetvault/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// partialDeleteResponse — явный ответ о рассинхроне после частично
// выполненного удаления: запись удалена, сброс полей встречи не прошёл
type partialDeleteResponse struct {
	Error     string `json:"error"`
	AudioID   string `json:"audio_id"`
	MeetingID string `json:"meeting_id"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeError переводит доменные ошибки в HTTP-статусы
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var partial *domain.PartialDeleteError
	if errors.As(err, &partial) {
		log.Error().Err(err).Msg("partial delete")
		writeJSON(w, http.StatusInternalServerError, partialDeleteResponse{
			Error:     "audio deleted but meeting fields were not cleared, retry clearing",
			AudioID:   partial.AudioID.String(),
			MeetingID: partial.MeetingID.String(),
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		log.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
