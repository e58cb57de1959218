package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gatherly/participation-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Activity{},
		&models.Participant{},
		&models.WaitlistEntry{},
		&models.Invitation{},
		&models.AttendanceConfirmation{},
		&models.ParticipationLog{},
	))
	return db
}

func newWaitlistEntry(activityID uuid.UUID, position int) models.WaitlistEntry {
	return models.WaitlistEntry{
		ID:         uuid.New(),
		ActivityID: activityID,
		UserID:     uuid.New(),
		Position:   position,
		CreatedAt:  time.Now().Add(time.Duration(position) * time.Minute),
	}
}

func TestWaitlistRepositoryMaxPosition(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWaitlistRepository(db)
	activityID := uuid.New()

	max, err := repo.MaxPosition(context.Background(), activityID)
	require.NoError(t, err)
	require.Equal(t, 0, max, "empty waitlist starts at position zero")

	for i := 1; i <= 3; i++ {
		entry := newWaitlistEntry(activityID, i)
		require.NoError(t, repo.Create(context.Background(), &entry))
	}

	max, err = repo.MaxPosition(context.Background(), activityID)
	require.NoError(t, err)
	require.Equal(t, 3, max)

	otherMax, err := repo.MaxPosition(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, 0, otherMax, "positions are scoped per activity")
}

func TestWaitlistRepositoryFirstReturnsLowestPosition(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWaitlistRepository(db)
	activityID := uuid.New()

	third := newWaitlistEntry(activityID, 3)
	first := newWaitlistEntry(activityID, 1)
	second := newWaitlistEntry(activityID, 2)
	for _, entry := range []models.WaitlistEntry{third, first, second} {
		e := entry
		require.NoError(t, repo.Create(context.Background(), &e))
	}

	head, err := repo.First(context.Background(), activityID)
	require.NoError(t, err)
	require.Equal(t, 1, head.Position)
	require.Equal(t, first.UserID, head.UserID)
}

func TestWaitlistRepositoryShiftAfterClosesGap(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWaitlistRepository(db)
	activityID := uuid.New()

	entries := make([]models.WaitlistEntry, 0, 4)
	for i := 1; i <= 4; i++ {
		entry := newWaitlistEntry(activityID, i)
		require.NoError(t, repo.Create(context.Background(), &entry))
		entries = append(entries, entry)
	}

	// Remove position 2 and close the gap: 1,3,4 becomes 1,2,3.
	require.NoError(t, repo.Delete(context.Background(), entries[1].ID))
	require.NoError(t, repo.ShiftAfter(context.Background(), activityID, entries[1].Position))

	remaining, total, err := repo.List(context.Background(), activityID, 0, 0)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, remaining, 3)
	for i, entry := range remaining {
		require.Equal(t, i+1, entry.Position, "positions must stay gapless from 1")
	}
	require.Equal(t, entries[0].UserID, remaining[0].UserID)
	require.Equal(t, entries[2].UserID, remaining[1].UserID)
	require.Equal(t, entries[3].UserID, remaining[2].UserID)
}

func TestWaitlistRepositoryDeleteMissingEntry(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWaitlistRepository(db)

	err := repo.Delete(context.Background(), uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestWaitlistRepositoryListPaginates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWaitlistRepository(db)
	activityID := uuid.New()

	for i := 1; i <= 5; i++ {
		entry := newWaitlistEntry(activityID, i)
		require.NoError(t, repo.Create(context.Background(), &entry))
	}

	page, total, err := repo.List(context.Background(), activityID, 2, 2)
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	require.Equal(t, 3, page[0].Position)
	require.Equal(t, 4, page[1].Position)
}
