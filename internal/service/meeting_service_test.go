package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetvault/internal/domain"
)

type meetingFixture struct {
	svc      *MeetingService
	meetings *fakeMeetingStore
	audio    *fakeAudioStore
	groups   *fakeGroupStore

	groupID uuid.UUID
	admin   uuid.UUID
	member  uuid.UUID
}

func newMeetingFixture(t *testing.T) *meetingFixture {
	t.Helper()

	f := &meetingFixture{
		meetings: newFakeMeetingStore(),
		audio:    newFakeAudioStore(),
		groups:   newFakeGroupStore(),
		groupID:  uuid.New(),
		admin:    uuid.New(),
		member:   uuid.New(),
	}
	f.groups.addMember(f.groupID, f.admin, domain.RoleAdmin)
	f.groups.addMember(f.groupID, f.member, domain.RoleMember)
	f.svc = NewMeetingService(f.meetings, f.audio, f.groups, zerolog.Nop())

	return f
}

func (f *meetingFixture) createMeeting(t *testing.T) *domain.Meeting {
	t.Helper()
	meeting, err := f.svc.Create(context.Background(), f.admin, domain.MeetingCreate{
		GroupID:         f.groupID,
		Name:            "weekly sync",
		MeetingDatetime: time.Now(),
	})
	require.NoError(t, err)
	return meeting
}

func (f *meetingFixture) createAudio(t *testing.T, meetingID *uuid.UUID) *domain.AudioRecord {
	t.Helper()
	rec := &domain.AudioRecord{
		GroupID:          f.groupID,
		MeetingID:        meetingID,
		BucketName:       domain.AudioBucketName,
		Path:             "group/test.mp3",
		OriginalFilename: "test.mp3",
		MIMEType:         "audio/mpeg",
		SizeBytes:        42,
	}
	require.NoError(t, f.audio.Create(context.Background(), rec))
	return rec
}

func TestMeetingCreateValidation(t *testing.T) {
	f := newMeetingFixture(t)

	_, err := f.svc.Create(context.Background(), f.admin, domain.MeetingCreate{GroupID: f.groupID})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Create(context.Background(), f.admin, domain.MeetingCreate{MeetingDatetime: time.Now()})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMeetingCreateRequiresMembership(t *testing.T) {
	f := newMeetingFixture(t)

	_, err := f.svc.Create(context.Background(), uuid.New(), domain.MeetingCreate{
		GroupID:         f.groupID,
		MeetingDatetime: time.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestMeetingUpdateRequiresAdmin(t *testing.T) {
	f := newMeetingFixture(t)
	meeting := f.createMeeting(t)

	name := "renamed"
	_, err := f.svc.Update(context.Background(), f.member, meeting.ID, domain.MeetingUpdate{Name: &name})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := f.svc.Update(context.Background(), f.admin, meeting.ID, domain.MeetingUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
}

func TestAttachAudio(t *testing.T) {
	f := newMeetingFixture(t)
	meeting := f.createMeeting(t)
	rec := f.createAudio(t, nil)

	require.NoError(t, f.svc.AttachAudio(context.Background(), meeting.ID, rec.ID))

	got, err := f.audio.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MeetingID)
	assert.Equal(t, meeting.ID, *got.MeetingID)
}

func TestAttachAudioConflict(t *testing.T) {
	f := newMeetingFixture(t)
	meeting := f.createMeeting(t)
	f.createAudio(t, &meeting.ID)
	second := f.createAudio(t, nil)

	err := f.svc.AttachAudio(context.Background(), meeting.ID, second.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Вторая запись осталась непривязанной
	got, err := f.audio.GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Nil(t, got.MeetingID)
}

func TestAttachAudioCrossGroup(t *testing.T) {
	f := newMeetingFixture(t)
	meeting := f.createMeeting(t)

	foreign := &domain.AudioRecord{GroupID: uuid.New(), Path: "x", OriginalFilename: "x"}
	require.NoError(t, f.audio.Create(context.Background(), foreign))

	err := f.svc.AttachAudio(context.Background(), meeting.ID, foreign.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestClearDerivedIdempotent(t *testing.T) {
	f := newMeetingFixture(t)
	meeting := f.createMeeting(t)
	f.meetings.setDerived(meeting.ID, "transcript text", domain.MeetingSummary{Summary: "recap"})

	require.NoError(t, f.svc.ClearDerived(context.Background(), meeting.ID))
	require.NoError(t, f.svc.ClearDerived(context.Background(), meeting.ID))

	got, err := f.meetings.GetByID(context.Background(), meeting.ID)
	require.NoError(t, err)
	assert.False(t, got.HasTranscript())
	assert.False(t, got.HasSummary())
}

func TestMeetingStatusTransitions(t *testing.T) {
	f := newMeetingFixture(t)
	ctx := context.Background()
	meeting := f.createMeeting(t)

	status, _, _, err := f.svc.Status(ctx, f.member, meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEmpty, status)

	rec := f.createAudio(t, nil)
	require.NoError(t, f.svc.AttachAudio(ctx, meeting.ID, rec.ID))

	status, _, _, err = f.svc.Status(ctx, f.member, meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, status)

	f.meetings.setDerived(meeting.ID, "transcript text", domain.MeetingSummary{Summary: "recap"})

	status, _, _, err = f.svc.Status(ctx, f.member, meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, status)
}

func TestMeetingStatusForbiddenForOutsider(t *testing.T) {
	f := newMeetingFixture(t)
	meeting := f.createMeeting(t)

	_, _, _, err := f.svc.Status(context.Background(), uuid.New(), meeting.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
