package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/participation-api/internal/domain"
	"github.com/gatherly/participation-api/internal/models"
)

func TestTxRunnerLoadsActivityInsideTransaction(t *testing.T) {
	db := setupTestDB(t)
	runner := NewTxRunner(db)

	activity := models.Activity{
		ID:          uuid.New(),
		OrganizerID: uuid.New(),
		Title:       "Board Games Night",
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Status:      models.ActivityStatusPublished,
		AccessType:  models.AccessTypeOpen,
	}
	require.NoError(t, db.Create(&activity).Error)

	err := runner.InActivityTx(context.Background(), activity.ID, func(store Store, loaded models.Activity) error {
		require.Equal(t, activity.ID, loaded.ID)
		require.Equal(t, activity.Title, loaded.Title)

		participant := models.Participant{
			ActivityID:          activity.ID,
			UserID:              uuid.New(),
			Role:                models.RoleMember,
			ParticipationStatus: models.ParticipationRegistered,
			AttendanceStatus:    models.AttendancePending,
			JoinedAt:            time.Now(),
		}
		return store.Participants.Create(context.Background(), &participant)
	})
	require.NoError(t, err)

	count, err := NewParticipantRepository(db).CountRegistered(context.Background(), activity.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestTxRunnerMissingActivity(t *testing.T) {
	db := setupTestDB(t)
	runner := NewTxRunner(db)

	err := runner.InActivityTx(context.Background(), uuid.New(), func(store Store, activity models.Activity) error {
		t.Fatal("callback must not run for a missing activity")
		return nil
	})
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
}

func TestTxRunnerRollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	runner := NewTxRunner(db)

	activity := models.Activity{
		ID:          uuid.New(),
		OrganizerID: uuid.New(),
		Title:       "Climbing Session",
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Status:      models.ActivityStatusPublished,
		AccessType:  models.AccessTypeOpen,
	}
	require.NoError(t, db.Create(&activity).Error)

	boom := errors.New("boom")
	err := runner.InActivityTx(context.Background(), activity.ID, func(store Store, loaded models.Activity) error {
		participant := models.Participant{
			ActivityID:          activity.ID,
			UserID:              uuid.New(),
			Role:                models.RoleMember,
			ParticipationStatus: models.ParticipationRegistered,
			AttendanceStatus:    models.AttendancePending,
			JoinedAt:            time.Now(),
		}
		if err := store.Participants.Create(context.Background(), &participant); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	count, err := NewParticipantRepository(db).CountRegistered(context.Background(), activity.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), count, "failed transaction must leave no rows behind")
}

func TestMapContention(t *testing.T) {
	require.NoError(t, mapContention(nil))
	require.ErrorIs(t, mapContention(domain.ErrAlreadyJoined), domain.ErrAlreadyJoined)
	require.ErrorIs(t, mapContention(errors.New("SQLSTATE 55P03: lock timeout")), domain.ErrContention)
	require.ErrorIs(t, mapContention(errors.New("deadlock detected (SQLSTATE 40P01)")), domain.ErrContention)
	require.ErrorIs(t, mapContention(errors.New("database is locked")), domain.ErrContention)

	other := errors.New("connection refused")
	require.ErrorIs(t, mapContention(other), other)
}
