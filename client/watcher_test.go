package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetvault/internal/domain"
)

type step struct {
	status domain.ProcessingStatus
	err    error
}

// scriptedFetcher отдаёт шаги по порядку, последний повторяется
type scriptedFetcher struct {
	mu    sync.Mutex
	steps []step
	calls int
}

func (f *scriptedFetcher) MeetingStatus(_ context.Context, meetingID uuid.UUID) (*MeetingStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	idx := f.calls - 1
	if idx >= len(f.steps) {
		idx = len(f.steps) - 1
	}
	s := f.steps[idx]
	if s.err != nil {
		return nil, s.err
	}

	return &MeetingStatus{MeetingID: meetingID, Status: s.status}, nil
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func processingForever() *scriptedFetcher {
	return &scriptedFetcher{steps: []step{{status: domain.StatusProcessing}}}
}

func fastWatcher(f StatusFetcher, maxPolls int, opts ...WatcherOption) *Watcher {
	opts = append([]WatcherOption{WithInterval(2 * time.Millisecond), WithMaxPolls(maxPolls)}, opts...)
	return NewWatcher(f, opts...)
}

func TestWatcherInitialState(t *testing.T) {
	w := NewWatcher(processingForever())
	assert.Equal(t, StateIdle, w.State())
}

func TestWatcherInitialErrorPropagates(t *testing.T) {
	f := &scriptedFetcher{steps: []step{{err: errors.New("server unavailable")}}}
	w := fastWatcher(f, 60)

	err := w.Start(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, StateIdle, w.State())
	assert.Equal(t, 1, f.callCount())
}

func TestWatcherNoPollingWhenAlreadyReady(t *testing.T) {
	f := &scriptedFetcher{steps: []step{{status: domain.StatusReady}}}
	w := fastWatcher(f, 60)

	require.NoError(t, w.Start(context.Background(), uuid.New()))
	assert.Equal(t, StateIdle, w.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, f.callCount())
}

func TestWatcherStopsOnReady(t *testing.T) {
	f := &scriptedFetcher{steps: []step{
		{status: domain.StatusProcessing},
		{status: domain.StatusProcessing},
		{status: domain.StatusReady},
	}}
	w := fastWatcher(f, 60)

	require.NoError(t, w.Start(context.Background(), uuid.New()))
	require.Eventually(t, func() bool { return w.State() == StateIdle }, time.Second, time.Millisecond)
	assert.Equal(t, 3, f.callCount())
}

func TestWatcherStopsWhenRecordingDeleted(t *testing.T) {
	f := &scriptedFetcher{steps: []step{
		{status: domain.StatusProcessing},
		{status: domain.StatusEmpty},
	}}
	w := fastWatcher(f, 60)

	require.NoError(t, w.Start(context.Background(), uuid.New()))
	require.Eventually(t, func() bool { return w.State() == StateIdle }, time.Second, time.Millisecond)
	assert.Equal(t, 2, f.callCount())
}

func TestWatcherExpiresAfterMaxPolls(t *testing.T) {
	f := processingForever()
	w := fastWatcher(f, 5)

	require.NoError(t, w.Start(context.Background(), uuid.New()))
	require.Eventually(t, func() bool { return w.State() == StateExpired }, time.Second, time.Millisecond)

	// Первый запрос плюс пять опросов цикла
	assert.Equal(t, 6, f.callCount())
}

func TestWatcherSwallowsPollErrors(t *testing.T) {
	f := &scriptedFetcher{steps: []step{
		{status: domain.StatusProcessing},
		{err: errors.New("server unavailable")},
		{err: errors.New("server unavailable")},
		{status: domain.StatusReady},
	}}
	w := fastWatcher(f, 60)

	require.NoError(t, w.Start(context.Background(), uuid.New()))
	require.Eventually(t, func() bool { return w.State() == StateIdle }, time.Second, time.Millisecond)
	assert.Equal(t, 4, f.callCount())
}

func TestWatcherStopIsDeterministic(t *testing.T) {
	f := processingForever()
	w := NewWatcher(f, WithInterval(20*time.Millisecond), WithMaxPolls(60))

	require.NoError(t, w.Start(context.Background(), uuid.New()))
	require.Eventually(t, func() bool { return f.callCount() >= 2 }, time.Second, time.Millisecond)

	w.Stop()
	assert.Equal(t, StateIdle, w.State())

	// После Stop опросы не продолжаются
	calls := f.callCount()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, calls, f.callCount())
}

func TestWatcherRestartResetsBudget(t *testing.T) {
	f := processingForever()
	w := fastWatcher(f, 3)

	require.NoError(t, w.Start(context.Background(), uuid.New()))
	require.Eventually(t, func() bool { return w.State() == StateExpired }, time.Second, time.Millisecond)
	base := f.callCount()
	require.Equal(t, 4, base)

	// Повторный Start перезапускает наблюдение с полным лимитом
	require.NoError(t, w.Start(context.Background(), uuid.New()))
	assert.Equal(t, StatePolling, w.State())

	require.Eventually(t, func() bool { return w.State() == StateExpired }, time.Second, time.Millisecond)
	assert.Equal(t, base+4, f.callCount())
}

func TestWatcherContextCancel(t *testing.T) {
	f := processingForever()
	w := fastWatcher(f, 60)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx, uuid.New()))
	require.Eventually(t, func() bool { return f.callCount() >= 2 }, time.Second, time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return w.State() == StateIdle }, time.Second, time.Millisecond)
}

func TestWatcherReportsStatusUpdates(t *testing.T) {
	f := &scriptedFetcher{steps: []step{
		{status: domain.StatusProcessing},
		{status: domain.StatusReady},
	}}

	var mu sync.Mutex
	var seen []domain.ProcessingStatus
	w := fastWatcher(f, 60, WithOnStatus(func(s *MeetingStatus) {
		mu.Lock()
		seen = append(seen, s.Status)
		mu.Unlock()
	}))

	require.NoError(t, w.Start(context.Background(), uuid.New()))
	require.Eventually(t, func() bool { return w.State() == StateIdle }, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.ProcessingStatus{domain.StatusProcessing, domain.StatusReady}, seen)
}
