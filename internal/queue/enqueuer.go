package queue

import (
	"context"

	"github.com/hibiken/asynq"
)

// Enqueuer — тонкая обёртка над клиентом asynq для сервисного слоя
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) EnqueueProcessAudio(ctx context.Context, audioID string) error {
	return EnqueueProcessAudio(ctx, e.client, ProcessAudioPayload{AudioID: audioID})
}
