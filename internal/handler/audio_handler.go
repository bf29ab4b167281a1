package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"meetvault/internal/auth"
	"meetvault/internal/domain"
	"meetvault/internal/service"
)

const maxUploadMemory = 32 << 20 // 32 MB в памяти, остальное на диск

type AudioHandler struct {
	audioService *service.AudioService
	log          zerolog.Logger
}

func NewAudioHandler(audioService *service.AudioService, log zerolog.Logger) *AudioHandler {
	return &AudioHandler{audioService: audioService, log: log}
}

// Upload принимает multipart-форму: file, group_id,
// опционально meeting_id и meeting_datetime (RFC 3339)
func (h *AudioHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	groupID, err := uuid.Parse(r.FormValue("group_id"))
	if err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return
	}

	in := service.UploadAudioInput{GroupID: groupID}

	if raw := r.FormValue("meeting_id"); raw != "" {
		meetingID, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "Invalid meeting ID", http.StatusBadRequest)
			return
		}
		in.MeetingID = &meetingID
	}
	if raw := r.FormValue("meeting_datetime"); raw != "" {
		dt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "Invalid meeting datetime", http.StatusBadRequest)
			return
		}
		in.MeetingDatetime = &dt
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	rec, err := h.audioService.Upload(r.Context(), userID, file, header, in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (h *AudioHandler) List(w http.ResponseWriter, r *http.Request) {
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

	records, err := h.audioService.List(r.Context(), userID, groupID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if records == nil {
		records = []domain.AudioRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

func (h *AudioHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, audioID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	rec, err := h.audioService.Get(r.Context(), userID, audioID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *AudioHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, audioID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	var upd domain.AudioRecordUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rec, err := h.audioService.UpdateMetadata(r.Context(), userID, audioID, upd)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *AudioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, audioID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	if err := h.audioService.Delete(r.Context(), userID, audioID); err != nil {
		writeError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AudioHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	userID, audioID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	url, err := h.audioService.DownloadURL(r.Context(), userID, audioID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *AudioHandler) Attach(w http.ResponseWriter, r *http.Request) {
	userID, audioID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	var body struct {
		MeetingID uuid.UUID `json:"meeting_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.MeetingID == uuid.Nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.audioService.Attach(r.Context(), userID, audioID, body.MeetingID); err != nil {
		writeError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Process перезапускает обработку записи
func (h *AudioHandler) Process(w http.ResponseWriter, r *http.Request) {
	userID, audioID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	if err := h.audioService.Process(r.Context(), userID, audioID); err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *AudioHandler) authAndID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}

	audioID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid audio ID", http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}

	return userID, audioID, true
}
