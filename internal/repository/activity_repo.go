package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly/participation-api/internal/models"
)

// ActivityRepository is the read-only accessor over activity snapshots. The
// participation engine never writes activity rows.
type ActivityRepository interface {
	Get(ctx context.Context, id uuid.UUID) (models.Activity, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Activity, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository instantiates a GORM-backed snapshot accessor.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Get(ctx context.Context, id uuid.UUID) (models.Activity, error) {
	var activity models.Activity
	if err := r.db.WithContext(ctx).First(&activity, "id = ?", id).Error; err != nil {
		return models.Activity{}, err
	}

	return activity, nil
}

func (r *activityRepository) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Activity, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]models.Activity{}, nil
	}

	var activities []models.Activity
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&activities).Error; err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID]models.Activity, len(activities))
	for _, activity := range activities {
		result[activity.ID] = activity
	}

	return result, nil
}
