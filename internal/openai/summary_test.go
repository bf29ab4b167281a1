package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(&Config{
		BaseURL:         srv.URL,
		APIKey:          "test-key",
		TranscribeModel: "gpt-4o-transcribe",
		ChatModel:       "gpt-4o",
		Timeout:         5 * time.Second,
	})
}

func chatHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		resp := map[string]interface{}{
			"id":    "chatcmpl-1",
			"model": "gpt-4o",
			"choices": []map[string]interface{}{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func TestSummarizeShortTranscript(t *testing.T) {
	content := `{"summary":"Team agreed to ship on Friday.","action_items":["prepare release notes"],"participants":["Ann","Bob"]}`
	client := testClient(t, chatHandler(t, content))

	summary, err := NewTranscriptSummarizer(client).Summarize(context.Background(), "Ann: let's ship Friday. Bob: agreed.")
	require.NoError(t, err)
	assert.Equal(t, "Team agreed to ship on Friday.", summary.Summary)
	assert.Equal(t, []string{"prepare release notes"}, summary.ActionItems)
	assert.Equal(t, []string{"Ann", "Bob"}, summary.Participants)
}

func TestSummarizeStripsCodeFence(t *testing.T) {
	content := "```json\n{\"summary\":\"recap\",\"action_items\":[],\"participants\":[]}\n```"
	client := testClient(t, chatHandler(t, content))

	summary, err := NewTranscriptSummarizer(client).Summarize(context.Background(), "short transcript")
	require.NoError(t, err)
	assert.Equal(t, "recap", summary.Summary)
	assert.NotNil(t, summary.ActionItems)
	assert.NotNil(t, summary.Participants)
}

func TestSummarizeRejectsEmptySummaryField(t *testing.T) {
	client := testClient(t, chatHandler(t, `{"summary":"","action_items":["x"]}`))

	_, err := NewTranscriptSummarizer(client).Summarize(context.Background(), "short transcript")
	assert.Error(t, err)
}

func TestSummarizeEmptyTranscript(t *testing.T) {
	client := testClient(t, chatHandler(t, `{"summary":"recap"}`))

	_, err := NewTranscriptSummarizer(client).Summarize(context.Background(), "   ")
	assert.Error(t, err)
}

func TestSummarizeLongTranscriptMapReduce(t *testing.T) {
	var calls int
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Промежуточные запросы получают plain-text промпт, финальный — JSON-промпт
		var content string
		if strings.Contains(req.Messages[0].Content, "JSON") {
			content = `{"summary":"combined recap","action_items":[],"participants":["Ann"]}`
		} else {
			content = fmt.Sprintf("partial %d", calls)
		}

		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})

	s := NewTranscriptSummarizer(client)
	s.chunkChars = 100
	s.overlapChars = 10

	long := strings.Repeat("word word word. ", 40) // ~640 символов, несколько кусков
	summary, err := s.Summarize(context.Background(), long)
	require.NoError(t, err)
	assert.Equal(t, "combined recap", summary.Summary)
	assert.Greater(t, calls, 2, "expected per-chunk calls plus a final reduce call")
}

func TestChunkOverlap(t *testing.T) {
	s := &TranscriptSummarizer{chunkChars: 10, overlapChars: 3}
	chunks := s.chunk("abcdefghijklmnop")

	require.Len(t, chunks, 2)
	assert.Equal(t, "abcdefghij", chunks[0])
	// Следующий кусок начинается с перекрытием в 3 символа
	assert.Equal(t, "hijklmnop", chunks[1])
}

func TestTranscribe(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "gpt-4o-transcribe", r.FormValue("model"))
		assert.Equal(t, "json", r.FormValue("response_format"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "chunk_000.wav", header.Filename)

		json.NewEncoder(w).Encode(map[string]string{"text": "Hello world"})
	})

	text, err := client.Transcribe(context.Background(), "chunk_000.wav", strings.NewReader("fake-wav-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)
}

func TestTranscribeAPIError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "rate limit exceeded", "type": "rate_limit_error"},
		})
	})

	_, err := client.Transcribe(context.Background(), "a.wav", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}
