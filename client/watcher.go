package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"meetvault/internal/domain"
)

// Состояния наблюдателя
type WatcherState string

const (
	StateIdle    WatcherState = "idle"
	StatePolling WatcherState = "polling"
	StateExpired WatcherState = "expired"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultMaxPolls     = 60
)

// StatusFetcher запрашивает статус встречи, реализуется *Client
type StatusFetcher interface {
	MeetingStatus(ctx context.Context, meetingID uuid.UUID) (*MeetingStatus, error)
}

type WatcherOption func(*Watcher)

func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.interval = d }
}

func WithMaxPolls(n int) WatcherOption {
	return func(w *Watcher) { w.maxPolls = n }
}

func WithLogger(log zerolog.Logger) WatcherOption {
	return func(w *Watcher) { w.log = log }
}

// WithOnStatus задаёт колбэк, вызываемый после каждого успешного опроса
func WithOnStatus(fn func(*MeetingStatus)) WatcherOption {
	return func(w *Watcher) { w.onStatus = fn }
}

// Watcher опрашивает статус встречи, пока обработка не завершится
// или не исчерпается лимит опросов. Ошибки отдельных опросов не
// прерывают цикл: временная недоступность сервера — не повод сдаваться.
type Watcher struct {
	fetcher  StatusFetcher
	interval time.Duration
	maxPolls int
	onStatus func(*MeetingStatus)
	log      zerolog.Logger

	mu     sync.Mutex
	state  WatcherState
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatcher(fetcher StatusFetcher, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		fetcher:  fetcher,
		interval: defaultPollInterval,
		maxPolls: defaultMaxPolls,
		log:      zerolog.Nop(),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(w)
	}

	return w
}

func (w *Watcher) State() WatcherState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start запускает наблюдение за встречей. Первый запрос выполняется
// синхронно, его ошибка возвращается вызывающему; цикл опроса стартует,
// только если встреча ещё обрабатывается. Повторный Start перезапускает
// цикл со сброшенным счётчиком опросов: прежний цикл останавливается
// до запуска нового.
func (w *Watcher) Start(ctx context.Context, meetingID uuid.UUID) error {
	w.stopCurrent()

	status, err := w.fetcher.MeetingStatus(ctx, meetingID)
	if err != nil {
		return err
	}
	if w.onStatus != nil {
		w.onStatus(status)
	}
	if status.Status != domain.StatusProcessing {
		w.setState(StateIdle)
		return nil
	}

	w.mu.Lock()
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done
	w.state = StatePolling
	w.mu.Unlock()

	go w.loop(loopCtx, meetingID, done)

	return nil
}

// Stop останавливает опрос и дожидается завершения цикла.
// После возврата наблюдатель в состоянии idle.
func (w *Watcher) Stop() {
	w.stopCurrent()
}

func (w *Watcher) stopCurrent() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.done = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (w *Watcher) loop(ctx context.Context, meetingID uuid.UUID, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for polls := 0; polls < w.maxPolls; polls++ {
		select {
		case <-ctx.Done():
			w.setState(StateIdle)
			return
		case <-ticker.C:
		}

		status, err := w.fetcher.MeetingStatus(ctx, meetingID)
		switch {
		case err != nil && ctx.Err() != nil:
			w.setState(StateIdle)
			return
		case err != nil:
			// Неудачный опрос тоже расходует лимит
			w.log.Warn().Err(err).Str("meeting_id", meetingID.String()).Msg("status poll failed")
		default:
			if w.onStatus != nil {
				w.onStatus(status)
			}
			// Любой статус, кроме processing, завершает наблюдение:
			// ready — обработка закончилась, empty — запись удалили
			if status.Status != domain.StatusProcessing {
				w.setState(StateIdle)
				return
			}
		}
	}

	w.setState(StateExpired)
}

func (w *Watcher) setState(state WatcherState) {
	w.mu.Lock()
	w.state = state
	w.mu.Unlock()
}
