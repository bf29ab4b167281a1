package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"meetvault/internal/auth"
	"meetvault/internal/domain"
	"meetvault/internal/service"
)

type MeetingHandler struct {
	meetingService *service.MeetingService
	log            zerolog.Logger
}

func NewMeetingHandler(meetingService *service.MeetingService, log zerolog.Logger) *MeetingHandler {
	return &MeetingHandler{meetingService: meetingService, log: log}
}

// statusResponse отдаёт производный статус вместе с данными, из которых
// он вычислен, чтобы клиент мог не делать дополнительных запросов
type statusResponse struct {
	MeetingID    uuid.UUID               `json:"meeting_id"`
	Status       domain.ProcessingStatus `json:"status"`
	Meeting      *domain.Meeting         `json:"meeting"`
	AudioRecords []domain.AudioRecord    `json:"audio_records"`
}

func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var in domain.MeetingCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	meeting, err := h.meetingService.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, meeting)
}

func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	groupID, err := uuid.Parse(r.URL.Query().Get("group_id"))
	if err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return
	}

	meetings, err := h.meetingService.List(r.Context(), userID, groupID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if meetings == nil {
		meetings = []domain.Meeting{}
	}

	writeJSON(w, http.StatusOK, meetings)
}

func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	meetingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid meeting ID", http.StatusBadRequest)
		return
	}

	meeting, err := h.meetingService.Get(r.Context(), userID, meetingID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, meeting)
}

func (h *MeetingHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	meetingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid meeting ID", http.StatusBadRequest)
		return
	}

	status, meeting, records, err := h.meetingService.Status(r.Context(), userID, meetingID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if records == nil {
		records = []domain.AudioRecord{}
	}

	writeJSON(w, http.StatusOK, statusResponse{
		MeetingID:    meetingID,
		Status:       status,
		Meeting:      meeting,
		AudioRecords: records,
	})
}

func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	meetingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid meeting ID", http.StatusBadRequest)
		return
	}

	var upd domain.MeetingUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	meeting, err := h.meetingService.Update(r.Context(), userID, meetingID, upd)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, meeting)
}

func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	meetingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid meeting ID", http.StatusBadRequest)
		return
	}

	if err := h.meetingService.Delete(r.Context(), userID, meetingID); err != nil {
		writeError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
