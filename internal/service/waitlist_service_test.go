package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/participation-api/internal/domain"
	"github.com/gatherly/participation-api/internal/models"
)

func (f *fixture) waitlistService(t *testing.T) WaitlistService {
	t.Helper()
	return NewWaitlistService(f.store, NewEmptyDisplayProvider(), zerolog.Nop())
}

func TestGetWaitlistOrganizerOnly(t *testing.T) {
	f := newFixture(t)
	svc := f.waitlistService(t)
	activity := f.createActivity(t, func(a *models.Activity) {
		a.MaxParticipants = intPtr(1)
	})
	member := f.seedMember(t, activity.ID, models.ParticipationRegistered)
	f.seedWaitlisted(t, activity.ID, 1)

	_, err := svc.GetWaitlist(context.Background(), activity.ID, Identity{UserID: member.UserID}, 0, 0)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	_, err = svc.GetWaitlist(context.Background(), activity.ID, Identity{UserID: uuid.New()}, 0, 0)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	_, err = svc.GetWaitlist(context.Background(), uuid.New(), Identity{UserID: activity.OrganizerID}, 0, 0)
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
}

func TestGetWaitlistOrderedByPosition(t *testing.T) {
	f := newFixture(t)
	svc := f.waitlistService(t)
	activity := f.createActivity(t, func(a *models.Activity) {
		a.MaxParticipants = intPtr(1)
	})
	first := f.seedWaitlisted(t, activity.ID, 1)
	second := f.seedWaitlisted(t, activity.ID, 2)
	third := f.seedWaitlisted(t, activity.ID, 3)

	response, err := svc.GetWaitlist(context.Background(), activity.ID, Identity{UserID: activity.OrganizerID}, 0, 0)
	require.NoError(t, err)
	require.Equal(t, activity.ID, response.ActivityID)
	require.Equal(t, int64(3), response.TotalCount)
	require.Len(t, response.Waitlist, 3)
	require.Equal(t, first.UserID, response.Waitlist[0].UserID)
	require.Equal(t, second.UserID, response.Waitlist[1].UserID)
	require.Equal(t, third.UserID, response.Waitlist[2].UserID)
	require.Equal(t, 1, response.Waitlist[0].Position)

	page, err := svc.GetWaitlist(context.Background(), activity.ID, Identity{UserID: activity.OrganizerID}, 2, 1)
	require.NoError(t, err)
	require.Equal(t, int64(3), page.TotalCount)
	require.Len(t, page.Waitlist, 2)
	require.Equal(t, second.UserID, page.Waitlist[0].UserID)
}
