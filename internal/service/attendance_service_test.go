package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/participation-api/internal/domain"
	"github.com/gatherly/participation-api/internal/dto"
	"github.com/gatherly/participation-api/internal/models"
)

func (f *fixture) attendanceService(t *testing.T, cache *redis.Client) AttendanceService {
	t.Helper()
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewAttendanceService(f.store, f.runner, f.stats, NewEmptyDisplayProvider(), cache, time.Minute, validate, zerolog.Nop())
	svc.(*attendanceService).now = func() time.Time { return f.now }
	return svc
}

func (f *fixture) completedActivity(t *testing.T) models.Activity {
	t.Helper()
	return f.createActivity(t, func(a *models.Activity) {
		a.ScheduledAt = f.now.Add(-2 * time.Hour)
	})
}

func (f *fixture) setAttendance(t *testing.T, activityID, userID uuid.UUID, status models.AttendanceStatus) {
	t.Helper()
	participant, err := f.store.Participants.Get(context.Background(), activityID, userID)
	require.NoError(t, err)
	participant.AttendanceStatus = status
	require.NoError(t, f.store.Participants.Update(context.Background(), &participant))
}

func TestMarkAttendanceRequiresCompletedActivity(t *testing.T) {
	f := newFixture(t)
	svc := f.attendanceService(t, nil)
	upcoming := f.createActivity(t, nil)

	_, err := svc.Mark(context.Background(), upcoming.ID, Identity{UserID: upcoming.OrganizerID}, dto.MarkAttendanceRequest{
		Attendances: []dto.AttendanceEntry{{UserID: uuid.New(), Status: "attended"}},
	})
	require.ErrorIs(t, err, domain.ErrActivityNotCompleted)
}

func TestMarkAttendanceRequiresOrganizer(t *testing.T) {
	f := newFixture(t)
	svc := f.attendanceService(t, nil)
	activity := f.completedActivity(t)
	member := f.seedMember(t, activity.ID, models.ParticipationRegistered)

	_, err := svc.Mark(context.Background(), activity.ID, Identity{UserID: member.UserID}, dto.MarkAttendanceRequest{
		Attendances: []dto.AttendanceEntry{{UserID: member.UserID, Status: "attended"}},
	})
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	_, err = svc.Mark(context.Background(), activity.ID, Identity{UserID: uuid.New()}, dto.MarkAttendanceRequest{
		Attendances: []dto.AttendanceEntry{{UserID: member.UserID, Status: "attended"}},
	})
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestMarkAttendancePartialSuccess(t *testing.T) {
	f := newFixture(t)
	svc := f.attendanceService(t, nil)
	activity := f.completedActivity(t)
	attended := f.seedMember(t, activity.ID, models.ParticipationRegistered)
	noShow := f.seedMember(t, activity.ID, models.ParticipationRegistered)
	cancelled := f.seedMember(t, activity.ID, models.ParticipationCancelled)
	outsider := uuid.New()

	response, err := svc.Mark(context.Background(), activity.ID, Identity{UserID: activity.OrganizerID}, dto.MarkAttendanceRequest{
		Attendances: []dto.AttendanceEntry{
			{UserID: attended.UserID, Status: "attended"},
			{UserID: noShow.UserID, Status: "no_show"},
			{UserID: cancelled.UserID, Status: "attended"},
			{UserID: outsider, Status: "attended"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, response.UpdatedCount)
	require.Len(t, response.FailedUpdates, 2)

	reasons := make(map[uuid.UUID]string, len(response.FailedUpdates))
	for _, failure := range response.FailedUpdates {
		reasons[failure.UserID] = failure.Reason
	}
	require.Equal(t, "not registered", reasons[cancelled.UserID])
	require.Equal(t, "not a participant", reasons[outsider])

	row := f.participant(t, activity.ID, attended.UserID)
	require.Equal(t, models.AttendanceAttended, row.AttendanceStatus)

	row = f.participant(t, activity.ID, noShow.UserID)
	require.Equal(t, models.AttendanceNoShow, row.AttendanceStatus)
	require.Equal(t, []uuid.UUID{noShow.UserID}, f.stats.noShows, "no-shows feed the user stats counter")
}

func TestMarkAttendanceTooManyUpdates(t *testing.T) {
	f := newFixture(t)
	svc := f.attendanceService(t, nil)
	activity := f.completedActivity(t)

	entries := make([]dto.AttendanceEntry, 101)
	for i := range entries {
		entries[i] = dto.AttendanceEntry{UserID: uuid.New(), Status: "attended"}
	}

	_, err := svc.Mark(context.Background(), activity.ID, Identity{UserID: activity.OrganizerID}, dto.MarkAttendanceRequest{Attendances: entries})
	require.ErrorIs(t, err, domain.ErrTooManyUpdates)
}

func TestConfirmAttendance(t *testing.T) {
	f := newFixture(t)
	svc := f.attendanceService(t, nil)
	activity := f.completedActivity(t)
	confirmer := f.seedMember(t, activity.ID, models.ParticipationRegistered)
	confirmed := f.seedMember(t, activity.ID, models.ParticipationRegistered)
	f.setAttendance(t, activity.ID, confirmer.UserID, models.AttendanceAttended)
	f.setAttendance(t, activity.ID, confirmed.UserID, models.AttendanceAttended)

	response, err := svc.Confirm(context.Background(), Identity{UserID: confirmer.UserID}, dto.ConfirmAttendanceRequest{
		ActivityID:      activity.ID,
		ConfirmedUserID: confirmed.UserID,
	})
	require.NoError(t, err)
	require.Equal(t, 1, response.VerificationCount)

	row := f.participant(t, activity.ID, confirmed.UserID)
	require.Equal(t, 1, row.VerificationCount)

	_, err = svc.Confirm(context.Background(), Identity{UserID: confirmer.UserID}, dto.ConfirmAttendanceRequest{
		ActivityID:      activity.ID,
		ConfirmedUserID: confirmed.UserID,
	})
	require.ErrorIs(t, err, domain.ErrAlreadyConfirmed)

	row = f.participant(t, activity.ID, confirmed.UserID)
	require.Equal(t, 1, row.VerificationCount, "a duplicate confirmation must not increment again")
}

func TestConfirmAttendanceGuards(t *testing.T) {
	f := newFixture(t)
	svc := f.attendanceService(t, nil)
	activity := f.completedActivity(t)
	confirmer := f.seedMember(t, activity.ID, models.ParticipationRegistered)
	target := f.seedMember(t, activity.ID, models.ParticipationRegistered)

	_, err := svc.Confirm(context.Background(), Identity{UserID: confirmer.UserID}, dto.ConfirmAttendanceRequest{
		ActivityID:      activity.ID,
		ConfirmedUserID: confirmer.UserID,
	})
	require.ErrorIs(t, err, domain.ErrSelfConfirmation)

	// Confirmer has not been marked attended yet.
	_, err = svc.Confirm(context.Background(), Identity{UserID: confirmer.UserID}, dto.ConfirmAttendanceRequest{
		ActivityID:      activity.ID,
		ConfirmedUserID: target.UserID,
	})
	require.ErrorIs(t, err, domain.ErrConfirmerNotAttended)

	f.setAttendance(t, activity.ID, confirmer.UserID, models.AttendanceAttended)
	f.setAttendance(t, activity.ID, target.UserID, models.AttendanceNoShow)

	_, err = svc.Confirm(context.Background(), Identity{UserID: confirmer.UserID}, dto.ConfirmAttendanceRequest{
		ActivityID:      activity.ID,
		ConfirmedUserID: target.UserID,
	})
	require.ErrorIs(t, err, domain.ErrConfirmedNotAttended)

	upcoming := f.createActivity(t, nil)
	_, err = svc.Confirm(context.Background(), Identity{UserID: confirmer.UserID}, dto.ConfirmAttendanceRequest{
		ActivityID:      upcoming.ID,
		ConfirmedUserID: target.UserID,
	})
	require.ErrorIs(t, err, domain.ErrActivityNotCompleted)
}

func TestPendingVerificationsListsUnconfirmedCoAttendees(t *testing.T) {
	f := newFixture(t)
	svc := f.attendanceService(t, nil)
	activity := f.completedActivity(t)
	viewer := f.seedMember(t, activity.ID, models.ParticipationRegistered)
	confirmedPeer := f.seedMember(t, activity.ID, models.ParticipationRegistered)
	unconfirmedPeer := f.seedMember(t, activity.ID, models.ParticipationRegistered)
	f.setAttendance(t, activity.ID, viewer.UserID, models.AttendanceAttended)
	f.setAttendance(t, activity.ID, confirmedPeer.UserID, models.AttendanceAttended)
	f.setAttendance(t, activity.ID, unconfirmedPeer.UserID, models.AttendanceAttended)

	confirmation := models.AttendanceConfirmation{
		ID:              uuid.New(),
		ActivityID:      activity.ID,
		ConfirmerUserID: viewer.UserID,
		ConfirmedUserID: confirmedPeer.UserID,
		CreatedAt:       f.now,
	}
	require.NoError(t, f.store.Confirmations.Create(context.Background(), &confirmation))

	response, err := svc.PendingVerifications(context.Background(), Identity{UserID: viewer.UserID}, 0, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), response.TotalCount)
	require.Len(t, response.PendingVerifications, 1)

	pending := response.PendingVerifications[0]
	require.Equal(t, activity.ID, pending.ActivityID)
	require.Len(t, pending.ParticipantsToConfirm, 1)
	require.Equal(t, unconfirmedPeer.UserID, pending.ParticipantsToConfirm[0].UserID)
}

func TestPendingVerificationsServedFromCache(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	f := newFixture(t)
	svc := f.attendanceService(t, cache)
	activity := f.completedActivity(t)
	viewer := f.seedMember(t, activity.ID, models.ParticipationRegistered)
	peer := f.seedMember(t, activity.ID, models.ParticipationRegistered)
	f.setAttendance(t, activity.ID, viewer.UserID, models.AttendanceAttended)
	f.setAttendance(t, activity.ID, peer.UserID, models.AttendanceAttended)

	first, err := svc.PendingVerifications(context.Background(), Identity{UserID: viewer.UserID}, 0, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), first.TotalCount)

	// Confirm the peer directly in storage; the cached view must not notice.
	confirmation := models.AttendanceConfirmation{
		ID:              uuid.New(),
		ActivityID:      activity.ID,
		ConfirmerUserID: viewer.UserID,
		ConfirmedUserID: peer.UserID,
		CreatedAt:       f.now,
	}
	require.NoError(t, f.store.Confirmations.Create(context.Background(), &confirmation))

	cached, err := svc.PendingVerifications(context.Background(), Identity{UserID: viewer.UserID}, 0, 0)
	require.NoError(t, err)
	require.Equal(t, first.TotalCount, cached.TotalCount, "second read must come from the cache")

	mini.FastForward(2 * time.Minute)

	fresh, err := svc.PendingVerifications(context.Background(), Identity{UserID: viewer.UserID}, 0, 0)
	require.NoError(t, err)
	require.Zero(t, fresh.TotalCount, "expired cache must rebuild from storage")
}

func TestConfirmInvalidatesPendingCache(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	f := newFixture(t)
	svc := f.attendanceService(t, cache)
	activity := f.completedActivity(t)
	viewer := f.seedMember(t, activity.ID, models.ParticipationRegistered)
	peer := f.seedMember(t, activity.ID, models.ParticipationRegistered)
	f.setAttendance(t, activity.ID, viewer.UserID, models.AttendanceAttended)
	f.setAttendance(t, activity.ID, peer.UserID, models.AttendanceAttended)

	first, err := svc.PendingVerifications(context.Background(), Identity{UserID: viewer.UserID}, 0, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), first.TotalCount)

	_, err = svc.Confirm(context.Background(), Identity{UserID: viewer.UserID}, dto.ConfirmAttendanceRequest{
		ActivityID:      activity.ID,
		ConfirmedUserID: peer.UserID,
	})
	require.NoError(t, err)

	fresh, err := svc.PendingVerifications(context.Background(), Identity{UserID: viewer.UserID}, 0, 0)
	require.NoError(t, err)
	require.Zero(t, fresh.TotalCount, "confirming must drop the confirmer's cached view")
}
