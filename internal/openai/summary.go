package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"meetvault/internal/domain"
)

const (
	// Примерно 3500 токенов на кусок при 4 символах на токен
	defaultChunkChars   = 14000
	defaultOverlapChars = 800

	summarySystemPrompt = `You are a meeting assistant. You produce structured summaries of meeting transcripts.
Respond with a single JSON object and nothing else, using exactly these keys:
"summary" - concise narrative summary, at most 150 words;
"action_items" - list of concrete next steps as strings;
"participants" - names or handles of meeting attendees as strings.`

	partialSummaryPrompt = `Summarize the following part of a meeting transcript in plain text.
Keep decisions, action items and participant names.`
)

// TranscriptSummarizer превращает транскрипт встречи в структурированное
// резюме. Длинные транскрипты режутся на куски с перекрытием, куски
// сводятся по отдельности, затем объединяются финальным запросом.
type TranscriptSummarizer struct {
	client       *Client
	chunkChars   int
	overlapChars int
}

func NewTranscriptSummarizer(client *Client) *TranscriptSummarizer {
	return &TranscriptSummarizer{
		client:       client,
		chunkChars:   defaultChunkChars,
		overlapChars: defaultOverlapChars,
	}
}

// Summarize строит резюме транскрипта
func (s *TranscriptSummarizer) Summarize(ctx context.Context, transcript string) (*domain.MeetingSummary, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, fmt.Errorf("transcript is empty")
	}

	chunks := s.chunk(transcript)

	// Короткий транскрипт сводим одним запросом
	if len(chunks) == 1 {
		return s.summarizeFinal(ctx, chunks[0])
	}

	// Сначала сжимаем каждый кусок в промежуточное текстовое резюме
	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		partial, err := s.client.ChatCompletion(ctx, []ChatMessage{
			{Role: "system", Content: partialSummaryPrompt},
			{Role: "user", Content: chunk},
		}, 0.2, 1024)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		partials = append(partials, partial)
	}

	return s.summarizeFinal(ctx, strings.Join(partials, "\n\n"))
}

func (s *TranscriptSummarizer) summarizeFinal(ctx context.Context, text string) (*domain.MeetingSummary, error) {
	raw, err := s.client.ChatCompletion(ctx, []ChatMessage{
		{Role: "system", Content: summarySystemPrompt},
		{Role: "user", Content: text},
	}, 0.2, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to build final summary: %w", err)
	}

	return parseSummary(raw)
}

// chunk режет транскрипт на куски с перекрытием, чтобы не терять
// контекст на границах
func (s *TranscriptSummarizer) chunk(transcript string) []string {
	runes := []rune(transcript)
	if len(runes) <= s.chunkChars {
		return []string{transcript}
	}

	step := s.chunkChars - s.overlapChars
	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkChars
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}

// parseSummary разбирает ответ модели в структуру резюме.
// Модели иногда заворачивают JSON в markdown-ограждение, снимаем его.
func parseSummary(raw string) (*domain.MeetingSummary, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var summary domain.MeetingSummary
	if err := json.Unmarshal([]byte(cleaned), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse summary response: %w", err)
	}
	if strings.TrimSpace(summary.Summary) == "" {
		return nil, fmt.Errorf("summary response has empty summary field")
	}

	if summary.ActionItems == nil {
		summary.ActionItems = []string{}
	}
	if summary.Participants == nil {
		summary.Participants = []string{}
	}

	return &summary, nil
}
