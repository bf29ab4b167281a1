package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"meetvault/internal/domain"
	"meetvault/internal/openai"
)

const (
	// Бюджет контекста в символах: транскрипты и резюме сверх него
	// в промпт не попадают
	chatContextBudget = 24000

	chatHistoryLimit = 10
	chatHistoryTTL   = 24 * time.Hour

	chatSystemPrompt = `You are an assistant that answers questions about past meetings of a team.
Use only the meeting notes provided below. If the notes do not contain the answer, say so.

Meeting notes:
`
)

type chatCompleter interface {
	ChatCompletion(ctx context.Context, messages []openai.ChatMessage, temperature float32, maxTokens int) (string, error)
}

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatService отвечает на вопросы по встречам группы. Контекст собирается
// из резюме и транскриптов, история диалога хранится в Redis.
type ChatService struct {
	meetingRepo meetingStore
	groupRepo   groupStore
	ai          chatCompleter
	redis       *redis.Client
	log         zerolog.Logger
}

func NewChatService(meetingRepo meetingStore, groupRepo groupStore, ai chatCompleter, rdb *redis.Client, log zerolog.Logger) *ChatService {
	return &ChatService{
		meetingRepo: meetingRepo,
		groupRepo:   groupRepo,
		ai:          ai,
		redis:       rdb,
		log:         log,
	}
}

// Ask отвечает на вопрос по встречам группы
func (s *ChatService) Ask(ctx context.Context, userID, groupID uuid.UUID, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question is required: %w", domain.ErrValidation)
	}

	if _, err := s.groupRepo.GetMemberRole(ctx, groupID, userID); err != nil {
		return "", err
	}

	meetings, err := s.meetingRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return "", err
	}

	notes := buildMeetingNotes(meetings)
	if notes == "" {
		return "", fmt.Errorf("group has no processed meetings yet: %w", domain.ErrValidation)
	}

	messages := []openai.ChatMessage{
		{Role: "system", Content: chatSystemPrompt + notes},
	}
	messages = append(messages, s.loadHistory(ctx, userID, groupID)...)
	messages = append(messages, openai.ChatMessage{Role: "user", Content: question})

	answer, err := s.ai.ChatCompletion(ctx, messages, 0.5, 1024)
	if err != nil {
		return "", fmt.Errorf("failed to get chat answer: %w", err)
	}

	s.saveHistory(ctx, userID, groupID, question, answer)

	return answer, nil
}

// buildMeetingNotes собирает заметки по встречам в пределах бюджета.
// Встречи идут от новых к старым; резюме дешевле транскрипта,
// поэтому добавляется первым.
func buildMeetingNotes(meetings []domain.Meeting) string {
	var b strings.Builder
	for _, m := range meetings {
		if !m.HasTranscript() && !m.HasSummary() {
			continue
		}

		var section strings.Builder
		fmt.Fprintf(&section, "## %s (%s)\n", m.Name, m.MeetingDatetime.Format("2006-01-02"))
		if m.HasSummary() {
			fmt.Fprintf(&section, "Summary: %s\n", m.Summary.Summary)
			if len(m.Summary.ActionItems) > 0 {
				fmt.Fprintf(&section, "Action items: %s\n", strings.Join(m.Summary.ActionItems, "; "))
			}
			if len(m.Summary.Participants) > 0 {
				fmt.Fprintf(&section, "Participants: %s\n", strings.Join(m.Summary.Participants, ", "))
			}
		}
		if m.HasTranscript() && b.Len()+section.Len()+len(m.Transcript) <= chatContextBudget {
			fmt.Fprintf(&section, "Transcript:\n%s\n", m.Transcript)
		}

		if b.Len()+section.Len() > chatContextBudget {
			break
		}
		b.WriteString(section.String())
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

func historyKey(userID, groupID uuid.UUID) string {
	return fmt.Sprintf("chat:history:%s:%s", groupID, userID)
}

// loadHistory читает последние сообщения диалога. История — удобство,
// а не обязательство: при недоступном Redis отвечаем без неё.
func (s *ChatService) loadHistory(ctx context.Context, userID, groupID uuid.UUID) []openai.ChatMessage {
	raw, err := s.redis.LRange(ctx, historyKey(userID, groupID), int64(-chatHistoryLimit*2), -1).Result()
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to load chat history")
		return nil
	}

	messages := make([]openai.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var entry historyEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		messages = append(messages, openai.ChatMessage{Role: entry.Role, Content: entry.Content})
	}

	return messages
}

func (s *ChatService) saveHistory(ctx context.Context, userID, groupID uuid.UUID, question, answer string) {
	key := historyKey(userID, groupID)

	entries := []historyEntry{
		{Role: "user", Content: question},
		{Role: "assistant", Content: answer},
	}
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		if err := s.redis.RPush(ctx, key, data).Err(); err != nil {
			s.log.Warn().Err(err).Msg("failed to save chat history")
			return
		}
	}

	s.redis.LTrim(ctx, key, int64(-chatHistoryLimit*2), -1)
	s.redis.Expire(ctx, key, chatHistoryTTL)
}
