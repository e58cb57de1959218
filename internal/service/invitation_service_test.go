package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/participation-api/internal/domain"
	"github.com/gatherly/participation-api/internal/dto"
	"github.com/gatherly/participation-api/internal/models"
)

func (f *fixture) invitationService(t *testing.T) InvitationService {
	t.Helper()
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewInvitationService(f.store, f.runner, f.social, NewEmptyDisplayProvider(), f.events, validate, 72, 168, 100, zerolog.Nop())
	svc.(*invitationService).now = func() time.Time { return f.now }
	return svc
}

func (f *fixture) seedInvitation(t *testing.T, activity models.Activity, invitedUserID uuid.UUID, status models.InvitationStatus, expiresAt time.Time) models.Invitation {
	t.Helper()
	invitation := models.Invitation{
		ID:            uuid.New(),
		ActivityID:    activity.ID,
		InvitedBy:     activity.OrganizerID,
		InvitedUserID: invitedUserID,
		Status:        status,
		InvitedAt:     f.now.Add(-time.Hour),
		ExpiresAt:     expiresAt,
	}
	require.NoError(t, f.db.Create(&invitation).Error)
	return invitation
}

func (f *fixture) inviteOnlyActivity(t *testing.T, mutate func(*models.Activity)) models.Activity {
	t.Helper()
	return f.createActivity(t, func(a *models.Activity) {
		a.AccessType = models.AccessTypeInviteOnly
		if mutate != nil {
			mutate(a)
		}
	})
}

func TestSendInvitationsPartialSuccess(t *testing.T) {
	f := newFixture(t)
	svc := f.invitationService(t)
	activity := f.inviteOnlyActivity(t, nil)

	fresh := uuid.New()
	alreadyInvited := uuid.New()
	f.seedInvitation(t, activity, alreadyInvited, models.InvitationPending, f.now.Add(24*time.Hour))
	alreadyMember := f.seedMember(t, activity.ID, models.ParticipationRegistered)
	blocked := uuid.New()
	f.social.blocked[activity.OrganizerID] = []uuid.UUID{blocked}

	response, err := svc.Send(context.Background(), activity.ID, Identity{UserID: activity.OrganizerID}, dto.SendInvitationsRequest{
		UserIDs: []uuid.UUID{fresh, alreadyInvited, alreadyMember.UserID, blocked},
	})
	require.NoError(t, err)
	require.Equal(t, 1, response.InvitedCount)
	require.Equal(t, 3, response.FailedCount)
	require.Len(t, response.Invitations, 1)
	require.Equal(t, fresh, response.Invitations[0].InvitedUserID)

	reasons := make(map[uuid.UUID]string, len(response.FailedInvitations))
	for _, failure := range response.FailedInvitations {
		reasons[failure.UserID] = failure.Reason
	}
	require.Equal(t, "invitation already pending", reasons[alreadyInvited])
	require.Equal(t, "already a participant", reasons[alreadyMember.UserID])
	require.Equal(t, "user is blocked", reasons[blocked])

	require.Equal(t, []uuid.UUID{fresh}, f.events.invited)

	stored, err := f.store.Invitations.FindPending(context.Background(), activity.ID, fresh)
	require.NoError(t, err)
	require.WithinDuration(t, f.now.Add(72*time.Hour), stored.ExpiresAt, time.Second, "default expiry applies when the request sets none")
}

func TestSendInvitationGuards(t *testing.T) {
	f := newFixture(t)
	svc := f.invitationService(t)

	open := f.createActivity(t, nil)
	_, err := svc.Send(context.Background(), open.ID, Identity{UserID: open.OrganizerID}, dto.SendInvitationsRequest{UserIDs: []uuid.UUID{uuid.New()}})
	require.ErrorIs(t, err, domain.ErrNotInviteOnly)

	inviteOnly := f.inviteOnlyActivity(t, nil)
	member := f.seedMember(t, inviteOnly.ID, models.ParticipationRegistered)
	_, err = svc.Send(context.Background(), inviteOnly.ID, Identity{UserID: member.UserID}, dto.SendInvitationsRequest{UserIDs: []uuid.UUID{uuid.New()}})
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	past := f.inviteOnlyActivity(t, func(a *models.Activity) { a.ScheduledAt = f.now.Add(-time.Hour) })
	_, err = svc.Send(context.Background(), past.ID, Identity{UserID: past.OrganizerID}, dto.SendInvitationsRequest{UserIDs: []uuid.UUID{uuid.New()}})
	require.ErrorIs(t, err, domain.ErrActivityInPast)

	tooMany := make([]uuid.UUID, 51)
	for i := range tooMany {
		tooMany[i] = uuid.New()
	}
	_, err = svc.Send(context.Background(), inviteOnly.ID, Identity{UserID: inviteOnly.OrganizerID}, dto.SendInvitationsRequest{UserIDs: tooMany})
	require.ErrorIs(t, err, domain.ErrTooManyInvitations)
}

func TestAcceptInvitationJoinsActivity(t *testing.T) {
	f := newFixture(t)
	svc := f.invitationService(t)
	activity := f.inviteOnlyActivity(t, nil)
	user := Identity{UserID: uuid.New()}
	invitation := f.seedInvitation(t, activity, user.UserID, models.InvitationPending, f.now.Add(24*time.Hour))

	response, err := svc.Accept(context.Background(), invitation.ID, user)
	require.NoError(t, err)
	require.Equal(t, string(models.InvitationAccepted), response.Status)
	require.Equal(t, string(models.ParticipationRegistered), response.ParticipationStatus)
	require.Nil(t, response.WaitlistPosition)

	stored, err := f.store.Invitations.Get(context.Background(), invitation.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationAccepted, stored.Status)
	require.NotNil(t, stored.RespondedAt)

	row := f.participant(t, activity.ID, user.UserID)
	require.Equal(t, models.ParticipationRegistered, row.ParticipationStatus)
}

func TestAcceptInvitationOnFullActivityWaitlists(t *testing.T) {
	f := newFixture(t)
	svc := f.invitationService(t)
	activity := f.inviteOnlyActivity(t, func(a *models.Activity) {
		a.MaxParticipants = intPtr(1)
	})
	user := Identity{UserID: uuid.New()}
	invitation := f.seedInvitation(t, activity, user.UserID, models.InvitationPending, f.now.Add(24*time.Hour))

	response, err := svc.Accept(context.Background(), invitation.ID, user)
	require.NoError(t, err)
	require.Equal(t, string(models.ParticipationWaitlisted), response.ParticipationStatus)
	require.NotNil(t, response.WaitlistPosition)
	require.Equal(t, 1, *response.WaitlistPosition)
}

func TestAcceptExpiredInvitationFlipsStatus(t *testing.T) {
	f := newFixture(t)
	svc := f.invitationService(t)
	activity := f.inviteOnlyActivity(t, nil)
	user := Identity{UserID: uuid.New()}
	invitation := f.seedInvitation(t, activity, user.UserID, models.InvitationPending, f.now.Add(-time.Minute))

	_, err := svc.Accept(context.Background(), invitation.ID, user)
	require.ErrorIs(t, err, domain.ErrInvitationExpired)

	stored, err := f.store.Invitations.Get(context.Background(), invitation.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationExpired, stored.Status, "lazy expiry must persist the flip")

	_, err = f.store.Participants.Get(context.Background(), activity.ID, user.UserID)
	require.Error(t, err, "an expired invitation must not create a participant")
}

func TestDeclineExpiredInvitationFlipsStatus(t *testing.T) {
	f := newFixture(t)
	svc := f.invitationService(t)
	activity := f.inviteOnlyActivity(t, nil)
	user := Identity{UserID: uuid.New()}
	invitation := f.seedInvitation(t, activity, user.UserID, models.InvitationPending, f.now.Add(-time.Minute))

	_, err := svc.Decline(context.Background(), invitation.ID, user)
	require.ErrorIs(t, err, domain.ErrInvitationExpired)

	stored, err := f.store.Invitations.Get(context.Background(), invitation.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationExpired, stored.Status, "lazy expiry must persist the flip")
}

func TestCancelExpiredInvitationFlipsStatus(t *testing.T) {
	f := newFixture(t)
	svc := f.invitationService(t)
	activity := f.inviteOnlyActivity(t, nil)
	invitation := f.seedInvitation(t, activity, uuid.New(), models.InvitationPending, f.now.Add(-time.Minute))

	_, err := svc.Cancel(context.Background(), invitation.ID, Identity{UserID: activity.OrganizerID})
	require.ErrorIs(t, err, domain.ErrInvitationExpired)

	stored, err := f.store.Invitations.Get(context.Background(), invitation.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationExpired, stored.Status, "lazy expiry must persist the flip")
}

func TestSendInvitationClampsExpiryToConfiguredMax(t *testing.T) {
	f := newFixture(t)
	svc := f.invitationService(t)
	activity := f.inviteOnlyActivity(t, nil)
	invited := uuid.New()

	_, err := svc.Send(context.Background(), activity.ID, Identity{UserID: activity.OrganizerID}, dto.SendInvitationsRequest{
		UserIDs:        []uuid.UUID{invited},
		ExpiresInHours: 9000,
	})
	require.NoError(t, err)

	stored, err := f.store.Invitations.FindPending(context.Background(), activity.ID, invited)
	require.NoError(t, err)
	require.WithinDuration(t, f.now.Add(168*time.Hour), stored.ExpiresAt, time.Second, "expiry beyond the configured maximum is clamped")
}

func TestAcceptInvitationErrors(t *testing.T) {
	f := newFixture(t)
	svc := f.invitationService(t)
	activity := f.inviteOnlyActivity(t, nil)
	user := Identity{UserID: uuid.New()}

	_, err := svc.Accept(context.Background(), uuid.New(), user)
	require.ErrorIs(t, err, domain.ErrInvitationNotFound)

	invitation := f.seedInvitation(t, activity, user.UserID, models.InvitationPending, f.now.Add(24*time.Hour))
	_, err = svc.Accept(context.Background(), invitation.ID, Identity{UserID: uuid.New()})
	require.ErrorIs(t, err, domain.ErrNotYourInvitation)

	responded := f.seedInvitation(t, activity, uuid.New(), models.InvitationDeclined, f.now.Add(24*time.Hour))
	_, err = svc.Accept(context.Background(), responded.ID, Identity{UserID: responded.InvitedUserID})
	require.ErrorIs(t, err, domain.ErrAlreadyResponded)
}

func TestDeclineInvitation(t *testing.T) {
	f := newFixture(t)
	svc := f.invitationService(t)
	activity := f.inviteOnlyActivity(t, nil)
	user := Identity{UserID: uuid.New()}
	invitation := f.seedInvitation(t, activity, user.UserID, models.InvitationPending, f.now.Add(24*time.Hour))

	response, err := svc.Decline(context.Background(), invitation.ID, user)
	require.NoError(t, err)
	require.Equal(t, string(models.InvitationDeclined), response.Status)

	stored, err := f.store.Invitations.Get(context.Background(), invitation.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationDeclined, stored.Status)

	_, err = f.store.Participants.Get(context.Background(), activity.ID, user.UserID)
	require.Error(t, err, "declining must not create a participant")
}

func TestCancelInvitationSenderOnly(t *testing.T) {
	f := newFixture(t)
	svc := f.invitationService(t)
	activity := f.inviteOnlyActivity(t, nil)
	invitation := f.seedInvitation(t, activity, uuid.New(), models.InvitationPending, f.now.Add(24*time.Hour))

	_, err := svc.Cancel(context.Background(), invitation.ID, Identity{UserID: uuid.New()})
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	response, err := svc.Cancel(context.Background(), invitation.ID, Identity{UserID: activity.OrganizerID})
	require.NoError(t, err)
	require.Equal(t, invitation.ID, response.InvitationID)

	stored, err := f.store.Invitations.Get(context.Background(), invitation.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationCancelled, stored.Status)
}

func TestListReceivedExpiresLazily(t *testing.T) {
	f := newFixture(t)
	svc := f.invitationService(t)
	activity := f.inviteOnlyActivity(t, nil)
	user := Identity{UserID: uuid.New()}

	live := f.seedInvitation(t, activity, user.UserID, models.InvitationPending, f.now.Add(24*time.Hour))
	dead := f.seedInvitation(t, activity, user.UserID, models.InvitationPending, f.now.Add(-time.Minute))

	response, err := svc.ListReceived(context.Background(), user, ListInvitationsQuery{})
	require.NoError(t, err)
	require.Equal(t, int64(2), response.TotalCount)

	statuses := make(map[uuid.UUID]string, len(response.Invitations))
	for _, info := range response.Invitations {
		statuses[info.InvitationID] = info.Status
	}
	require.Equal(t, string(models.InvitationPending), statuses[live.ID])
	require.Equal(t, string(models.InvitationExpired), statuses[dead.ID])

	stored, err := f.store.Invitations.Get(context.Background(), dead.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationExpired, stored.Status, "list reads must persist the expiry flip")
}
