package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TypeProcessAudio ставится в очередь после каждой загрузки аудио,
	// привязанного к встрече, и при явном перезапуске обработки
	TypeProcessAudio = "audio:process"
)

// ProcessAudioPayload сериализуется в задачу, чтобы воркер знал,
// какую запись скачивать из хранилища
type ProcessAudioPayload struct {
	AudioID string `json:"audio_id"`
}

// EnqueueProcessAudio ставит задачу обработки аудио в очередь
func EnqueueProcessAudio(ctx context.Context, client *asynq.Client, payload ProcessAudioPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeProcessAudio, data)
	_, err = client.EnqueueContext(ctx, task, asynq.MaxRetry(5), asynq.Timeout(30*time.Minute))
	if err != nil {
		return fmt.Errorf("failed to enqueue process task: %w", err)
	}

	return nil
}
