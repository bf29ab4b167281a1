package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"meetvault/internal/auth"
)

// UserHandler отдаёт профили пользователей из сервиса аутентификации
type UserHandler struct {
	log zerolog.Logger
}

func NewUserHandler(log zerolog.Logger) *UserHandler {
	return &UserHandler{log: log}
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.VerifyToken(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	info, err := auth.GetUser(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to fetch user profile")
		http.Error(w, "Failed to fetch user", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, info)
}
