package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"meetvault/internal/auth"
	"meetvault/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
	log         zerolog.Logger
}

func NewChatHandler(chatService *service.ChatService, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, log: log}
}

type chatRequest struct {
	GroupID  uuid.UUID `json:"group_id"`
	Question string    `json:"question"`
}

// Ask отвечает на вопрос по встречам группы
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupID == uuid.Nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	answer, err := h.chatService.Ask(r.Context(), userID, req.GroupID, req.Question)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
