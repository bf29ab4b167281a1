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

type GroupHandler struct {
	groupService *service.GroupService
	log          zerolog.Logger
}

func NewGroupHandler(groupService *service.GroupService, log zerolog.Logger) *GroupHandler {
	return &GroupHandler{groupService: groupService, log: log}
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var in domain.GroupCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	group, err := h.groupService.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, group)
}

// List возвращает группы текущего пользователя
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	groups, err := h.groupService.ListMine(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if groups == nil {
		groups = []domain.Group{}
	}

	writeJSON(w, http.StatusOK, groups)
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, groupID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	group, err := h.groupService.Get(r.Context(), userID, groupID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, groupID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	var upd domain.GroupUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	group, err := h.groupService.Update(r.Context(), userID, groupID, upd)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, groupID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	if err := h.groupService.Delete(r.Context(), userID, groupID); err != nil {
		writeError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID, groupID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	var body struct {
		UserID uuid.UUID `json:"user_id"`
		Role   string    `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == uuid.Nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Role == "" {
		body.Role = domain.RoleMember
	}

	if err := h.groupService.AddMember(r.Context(), userID, groupID, body.UserID, body.Role); err != nil {
		writeError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, groupID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	memberID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	if err := h.groupService.RemoveMember(r.Context(), userID, groupID, memberID); err != nil {
		writeError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GroupHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID, groupID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	members, err := h.groupService.ListMembers(r.Context(), userID, groupID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if members == nil {
		members = []domain.GroupMember{}
	}

	writeJSON(w, http.StatusOK, members)
}

func (h *GroupHandler) authAndID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}

	groupID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}

	return userID, groupID, true
}
