package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly/participation-api/internal/models"
)

// ConfirmationRepository persists peer attendance confirmations.
type ConfirmationRepository interface {
	Exists(ctx context.Context, activityID, confirmerID, confirmedID uuid.UUID) (bool, error)
	Create(ctx context.Context, confirmation *models.AttendanceConfirmation) error
	ConfirmedUserIDs(ctx context.Context, activityID, confirmerID uuid.UUID) ([]uuid.UUID, error)
}

type confirmationRepository struct {
	db *gorm.DB
}

// NewConfirmationRepository instantiates a GORM-backed repository.
func NewConfirmationRepository(db *gorm.DB) ConfirmationRepository {
	return &confirmationRepository{db: db}
}

func (r *confirmationRepository) Exists(ctx context.Context, activityID, confirmerID, confirmedID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AttendanceConfirmation{}).
		Where("activity_id = ? AND confirmer_user_id = ? AND confirmed_user_id = ?", activityID, confirmerID, confirmedID).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *confirmationRepository) Create(ctx context.Context, confirmation *models.AttendanceConfirmation) error {
	return r.db.WithContext(ctx).Create(confirmation).Error
}

func (r *confirmationRepository) ConfirmedUserIDs(ctx context.Context, activityID, confirmerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.AttendanceConfirmation{}).
		Where("activity_id = ? AND confirmer_user_id = ?", activityID, confirmerID).
		Pluck("confirmed_user_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}
