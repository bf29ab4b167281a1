package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"meetvault/internal/domain"
	"meetvault/internal/queue"
	"meetvault/internal/service/s3"
)

// Количество кусков, распознаваемых параллельно
const transcribeConcurrency = 3

type audioStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AudioRecord, error)
}

type meetingStore interface {
	UpdateDerived(ctx context.Context, id uuid.UUID, transcript string, summary domain.MeetingSummary) error
}

type transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

type summarizer interface {
	Summarize(ctx context.Context, transcript string) (*domain.MeetingSummary, error)
}

type preparer interface {
	Prepare(ctx context.Context, audio io.Reader) ([]string, func(), error)
}

// Processor выполняет задачу обработки аудио: скачивает запись,
// распознаёт речь и записывает транскрипт с резюме во встречу.
// Ошибки возвращаются в asynq для повторных попыток.
type Processor struct {
	audioRepo   audioStore
	meetingRepo meetingStore
	storage     s3.Storage
	preparer    preparer
	transcriber transcriber
	summarizer  summarizer
	log         zerolog.Logger
}

func NewProcessor(audioRepo audioStore, meetingRepo meetingStore, storage s3.Storage, prep preparer, tr transcriber, sum summarizer, log zerolog.Logger) *Processor {
	return &Processor{
		audioRepo:   audioRepo,
		meetingRepo: meetingRepo,
		storage:     storage,
		preparer:    prep,
		transcriber: tr,
		summarizer:  sum,
		log:         log,
	}
}

// Register привязывает обработчики к маршрутизатору asynq
func (p *Processor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(queue.TypeProcessAudio, p.HandleProcessAudio)
}

func (p *Processor) HandleProcessAudio(ctx context.Context, t *asynq.Task) error {
	var payload queue.ProcessAudioPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	audioID, err := uuid.Parse(payload.AudioID)
	if err != nil {
		return fmt.Errorf("invalid audio id %q: %w", payload.AudioID, asynq.SkipRetry)
	}

	log := p.log.With().Str("audio_id", audioID.String()).Logger()

	rec, err := p.audioRepo.GetByID(ctx, audioID)
	if err != nil {
		// Запись могли удалить, пока задача ждала в очереди
		if domain.IsNotFound(err) {
			log.Info().Msg("audio record is gone, skipping processing")
			return nil
		}
		return err
	}
	if rec.MeetingID == nil {
		log.Info().Msg("audio record is not attached to a meeting, skipping processing")
		return nil
	}

	transcript, err := p.transcribe(ctx, rec)
	if err != nil {
		return err
	}

	summary, err := p.summarizer.Summarize(ctx, transcript)
	if err != nil {
		return fmt.Errorf("failed to summarize transcript: %w", err)
	}

	if err := p.meetingRepo.UpdateDerived(ctx, *rec.MeetingID, transcript, *summary); err != nil {
		return fmt.Errorf("failed to store derived fields: %w", err)
	}

	log.Info().
		Str("meeting_id", rec.MeetingID.String()).
		Int("transcript_len", len(transcript)).
		Msg("audio processed")

	return nil
}

// transcribe скачивает запись, готовит куски и распознаёт их.
// Куски идут параллельно, порядок текста сохраняется.
func (p *Processor) transcribe(ctx context.Context, rec *domain.AudioRecord) (string, error) {
	obj, err := p.storage.GetObject(ctx, rec.Path)
	if err != nil {
		return "", fmt.Errorf("failed to download audio: %w", err)
	}
	defer obj.Close()

	chunks, cleanup, err := p.preparer.Prepare(ctx, obj)
	if err != nil {
		return "", fmt.Errorf("failed to prepare audio: %w", err)
	}
	defer cleanup()

	texts := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(transcribeConcurrency)

	for i, chunkPath := range chunks {
		i, chunkPath := i, chunkPath
		g.Go(func() error {
			f, err := os.Open(chunkPath)
			if err != nil {
				return fmt.Errorf("failed to open chunk: %w", err)
			}
			defer f.Close()

			text, err := p.transcriber.Transcribe(gctx, filepath.Base(chunkPath), f)
			if err != nil {
				return fmt.Errorf("failed to transcribe chunk %d: %w", i, err)
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	transcript := strings.TrimSpace(strings.Join(texts, "\n"))
	if transcript == "" {
		return "", fmt.Errorf("transcription produced empty text")
	}

	return transcript, nil
}
