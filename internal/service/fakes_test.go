package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"meetvault/internal/domain"
	"meetvault/internal/service/s3"
)

// In-memory заглушки хранилищ для тестов сервисного слоя

type fakeMeetingStore struct {
	mu       sync.Mutex
	meetings map[uuid.UUID]*domain.Meeting

	clearErr   error
	clearCalls int
}

func newFakeMeetingStore() *fakeMeetingStore {
	return &fakeMeetingStore{meetings: make(map[uuid.UUID]*domain.Meeting)}
}

func (f *fakeMeetingStore) Create(_ context.Context, m *domain.Meeting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	cp := *m
	f.meetings[m.ID] = &cp
	return nil
}

func (f *fakeMeetingStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meetings[id]
	if !ok {
		return nil, fmt.Errorf("meeting %s: %w", id, domain.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMeetingStore) ListByGroup(_ context.Context, groupID uuid.UUID) ([]domain.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Meeting
	for _, m := range f.meetings {
		if m.GroupID == groupID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMeetingStore) Update(_ context.Context, id uuid.UUID, upd domain.MeetingUpdate) (*domain.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meetings[id]
	if !ok {
		return nil, fmt.Errorf("meeting %s: %w", id, domain.ErrNotFound)
	}
	if upd.Name != nil {
		m.Name = *upd.Name
	}
	if upd.MeetingDatetime != nil {
		m.MeetingDatetime = *upd.MeetingDatetime
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMeetingStore) ClearDerived(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	if f.clearErr != nil {
		return f.clearErr
	}
	m, ok := f.meetings[id]
	if !ok {
		return fmt.Errorf("meeting %s: %w", id, domain.ErrNotFound)
	}
	m.Transcript = ""
	m.Summary = domain.MeetingSummary{}
	return nil
}

func (f *fakeMeetingStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.meetings[id]; !ok {
		return fmt.Errorf("meeting %s: %w", id, domain.ErrNotFound)
	}
	delete(f.meetings, id)
	return nil
}

// setDerived имитирует запись воркера обработки
func (f *fakeMeetingStore) setDerived(id uuid.UUID, transcript string, summary domain.MeetingSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meetings[id].Transcript = transcript
	f.meetings[id].Summary = summary
}

type fakeAudioStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domain.AudioRecord

	createErr error
}

func newFakeAudioStore() *fakeAudioStore {
	return &fakeAudioStore{records: make(map[uuid.UUID]*domain.AudioRecord)}
}

func (f *fakeAudioStore) Create(_ context.Context, rec *domain.AudioRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	cp := *rec
	f.records[rec.ID] = &cp
	return nil
}

func (f *fakeAudioStore) GetByID(_ context.Context, id uuid.UUID) (*domain.AudioRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, fmt.Errorf("audio record %s: %w", id, domain.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeAudioStore) ListByGroup(_ context.Context, groupID uuid.UUID) ([]domain.AudioRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AudioRecord
	for _, rec := range f.records {
		if rec.GroupID == groupID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeAudioStore) ListByMeeting(_ context.Context, meetingID uuid.UUID) ([]domain.AudioRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AudioRecord
	for _, rec := range f.records {
		if rec.MeetingID != nil && *rec.MeetingID == meetingID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeAudioStore) CountByMeeting(ctx context.Context, meetingID uuid.UUID) (int, error) {
	recs, err := f.ListByMeeting(ctx, meetingID)
	return len(recs), err
}

func (f *fakeAudioStore) SetMeeting(_ context.Context, id uuid.UUID, meetingID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return fmt.Errorf("audio record %s: %w", id, domain.ErrNotFound)
	}
	rec.MeetingID = &meetingID
	return nil
}

func (f *fakeAudioStore) UpdateMetadata(_ context.Context, id uuid.UUID, upd domain.AudioRecordUpdate) (*domain.AudioRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, fmt.Errorf("audio record %s: %w", id, domain.ErrNotFound)
	}
	if upd.OriginalFilename != nil {
		rec.OriginalFilename = *upd.OriginalFilename
	}
	if upd.MeetingDatetime != nil {
		rec.MeetingDatetime = upd.MeetingDatetime
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeAudioStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return fmt.Errorf("audio record %s: %w", id, domain.ErrNotFound)
	}
	delete(f.records, id)
	return nil
}

type fakeGroupStore struct {
	// groupID -> userID -> role
	roles map[uuid.UUID]map[uuid.UUID]string
}

func newFakeGroupStore() *fakeGroupStore {
	return &fakeGroupStore{roles: make(map[uuid.UUID]map[uuid.UUID]string)}
}

func (f *fakeGroupStore) addMember(groupID, userID uuid.UUID, role string) {
	if f.roles[groupID] == nil {
		f.roles[groupID] = make(map[uuid.UUID]string)
	}
	f.roles[groupID][userID] = role
}

func (f *fakeGroupStore) GetMemberRole(_ context.Context, groupID, userID uuid.UUID) (string, error) {
	role, ok := f.roles[groupID][userID]
	if !ok {
		return "", fmt.Errorf("user %s is not a member of group %s: %w", userID, groupID, domain.ErrForbidden)
	}
	return role, nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte

	uploadErr error
	deleteErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) UploadFile(key string, file *multipart.File, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(*file)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) UploadBytes(key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) GetObject(_ context.Context, key string) (s3.S3Object, error) {
	return nil, fmt.Errorf("not implemented in fake")
}

func (f *fakeStorage) DeleteObject(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeStorage) PresignDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://s3.example.com/" + key + "?signed=1", nil
}

type fakeEnqueuer struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (f *fakeEnqueuer) EnqueueProcessAudio(_ context.Context, audioID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.ids = append(f.ids, audioID)
	return nil
}

func (f *fakeEnqueuer) enqueued() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

// multipartFile оборачивает strings.Reader в multipart.File
type multipartFile struct {
	*strings.Reader
}

func (multipartFile) Close() error { return nil }

func testUpload(content, filename, contentType string) (multipart.File, *multipart.FileHeader) {
	header := &multipart.FileHeader{
		Filename: filename,
		Size:     int64(len(content)),
		Header:   map[string][]string{"Content-Type": {contentType}},
	}
	return multipartFile{strings.NewReader(content)}, header
}
