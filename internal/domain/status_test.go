package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func record() AudioRecord {
	return AudioRecord{ID: uuid.New(), BucketName: AudioBucketName, Path: "group_x/audio.wav"}
}

func TestResolveStatus(t *testing.T) {
	tests := []struct {
		name       string
		audioCount int
		transcript string
		summary    MeetingSummary
		want       ProcessingStatus
	}{
		{"no audio, nothing derived", 0, "", MeetingSummary{}, StatusEmpty},
		{"no audio, transcript only", 0, "hello", MeetingSummary{}, StatusEmpty},
		{"no audio, summary only", 0, "", MeetingSummary{Summary: "recap"}, StatusEmpty},
		{"no audio, both derived", 0, "hello", MeetingSummary{Summary: "recap"}, StatusEmpty},
		{"audio, nothing derived", 1, "", MeetingSummary{}, StatusProcessing},
		{"audio, transcript only", 1, "hello", MeetingSummary{}, StatusProcessing},
		{"audio, summary only", 1, "", MeetingSummary{Summary: "recap"}, StatusProcessing},
		{"audio, both derived", 1, "hello", MeetingSummary{Summary: "recap"}, StatusReady},
		{"whitespace transcript is absent", 1, "  \n\t ", MeetingSummary{Summary: "recap"}, StatusProcessing},
		{"whitespace summary is absent", 1, "hello", MeetingSummary{Summary: "   "}, StatusProcessing},
		{"summary lists without text are absent", 1, "hello", MeetingSummary{ActionItems: []string{"a"}, Participants: []string{"b"}}, StatusProcessing},
		{"more than one record still counts as present", 2, "hello", MeetingSummary{Summary: "recap"}, StatusReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Meeting{ID: uuid.New(), Transcript: tt.transcript, Summary: tt.summary}
			records := make([]AudioRecord, 0, tt.audioCount)
			for i := 0; i < tt.audioCount; i++ {
				records = append(records, record())
			}
			assert.Equal(t, tt.want, ResolveStatus(m, records))
		})
	}
}

func TestResolveStatusScenario(t *testing.T) {
	// Сценарий из жизни: пустая встреча -> загрузка -> транскрипт -> резюме
	m := &Meeting{ID: uuid.New()}
	var records []AudioRecord

	assert.Equal(t, StatusEmpty, ResolveStatus(m, records))

	records = append(records, record())
	assert.Equal(t, StatusProcessing, ResolveStatus(m, records))

	m.Transcript = "Hello world"
	assert.Equal(t, StatusProcessing, ResolveStatus(m, records))

	m.Summary = MeetingSummary{Summary: "recap", ActionItems: []string{}, Participants: []string{}}
	assert.Equal(t, StatusReady, ResolveStatus(m, records))

	// Удаление единственной записи возвращает встречу в empty
	assert.Equal(t, StatusEmpty, ResolveStatus(m, nil))
}

func TestMeetingSummaryScan(t *testing.T) {
	var s MeetingSummary
	assert.NoError(t, s.Scan([]byte(`{"summary":"recap","action_items":["ship it"],"participants":["ann"]}`)))
	assert.Equal(t, "recap", s.Summary)
	assert.Equal(t, []string{"ship it"}, s.ActionItems)
	assert.False(t, s.IsEmpty())

	var empty MeetingSummary
	assert.NoError(t, empty.Scan(nil))
	assert.True(t, empty.IsEmpty())

	var fromObj MeetingSummary
	assert.NoError(t, fromObj.Scan([]byte(`{}`)))
	assert.True(t, fromObj.IsEmpty())
}
