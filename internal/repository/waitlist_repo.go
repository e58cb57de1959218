package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly/participation-api/internal/models"
)

// WaitlistRepository owns the ordered waitlist entries of an activity.
// Ordering is strictly FIFO by enqueue time; positions are kept gapless from 1
// by shifting the tail whenever an entry is removed.
type WaitlistRepository interface {
	MaxPosition(ctx context.Context, activityID uuid.UUID) (int, error)
	Create(ctx context.Context, entry *models.WaitlistEntry) error
	FindByUser(ctx context.Context, activityID, userID uuid.UUID) (models.WaitlistEntry, error)
	First(ctx context.Context, activityID uuid.UUID) (models.WaitlistEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ShiftAfter(ctx context.Context, activityID uuid.UUID, position int) error
	List(ctx context.Context, activityID uuid.UUID, limit, offset int) ([]models.WaitlistEntry, int64, error)
}

type waitlistRepository struct {
	db *gorm.DB
}

// NewWaitlistRepository instantiates a GORM-backed repository.
func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &waitlistRepository{db: db}
}

func (r *waitlistRepository) MaxPosition(ctx context.Context, activityID uuid.UUID) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).Model(&models.WaitlistEntry{}).
		Where("activity_id = ?", activityID).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}

	return *max, nil
}

func (r *waitlistRepository) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *waitlistRepository) FindByUser(ctx context.Context, activityID, userID uuid.UUID) (models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		First(&entry).Error
	if err != nil {
		return models.WaitlistEntry{}, err
	}

	return entry, nil
}

func (r *waitlistRepository) First(ctx context.Context, activityID uuid.UUID) (models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("position ASC").
		First(&entry).Error
	if err != nil {
		return models.WaitlistEntry{}, err
	}

	return entry, nil
}

func (r *waitlistRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.WaitlistEntry{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *waitlistRepository) ShiftAfter(ctx context.Context, activityID uuid.UUID, position int) error {
	return r.db.WithContext(ctx).Model(&models.WaitlistEntry{}).
		Where("activity_id = ? AND position > ?", activityID, position).
		UpdateColumn("position", gorm.Expr("position - 1")).Error
}

func (r *waitlistRepository) List(ctx context.Context, activityID uuid.UUID, limit, offset int) ([]models.WaitlistEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.WaitlistEntry{}).Where("activity_id = ?", activityID)

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}

	var entries []models.WaitlistEntry
	if err := query.Order("position ASC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
