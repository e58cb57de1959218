package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly/participation-api/internal/models"
)

// ParticipationLogFilter narrows audit trail queries.
type ParticipationLogFilter struct {
	ActivityID *uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	Limit      int
	Offset     int
}

// ParticipationLogRepository persists the ledger audit trail.
type ParticipationLogRepository interface {
	Create(ctx context.Context, entry *models.ParticipationLog) error
	List(ctx context.Context, filter ParticipationLogFilter) ([]models.ParticipationLog, int64, error)
}

type participationLogRepository struct {
	db *gorm.DB
}

// NewParticipationLogRepository constructs the audit trail repository.
func NewParticipationLogRepository(db *gorm.DB) ParticipationLogRepository {
	return &participationLogRepository{db: db}
}

func (r *participationLogRepository) Create(ctx context.Context, entry *models.ParticipationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *participationLogRepository) List(ctx context.Context, filter ParticipationLogFilter) ([]models.ParticipationLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ParticipationLog{})

	if filter.ActivityID != nil {
		query = query.Where("activity_id = ?", *filter.ActivityID)
	}

	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}

	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Offset(filter.Offset).Limit(filter.Limit)
	}

	var entries []models.ParticipationLog
	if err := query.Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
