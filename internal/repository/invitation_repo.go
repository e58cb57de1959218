package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly/participation-api/internal/models"
)

// InvitationFilter narrows invitation listings.
type InvitationFilter struct {
	ActivityID *uuid.UUID
	Status     models.InvitationStatus
	Limit      int
	Offset     int
}

// InvitationRepository owns invitation rows and their lifecycle persistence.
type InvitationRepository interface {
	Get(ctx context.Context, id uuid.UUID) (models.Invitation, error)
	FindPending(ctx context.Context, activityID, userID uuid.UUID) (models.Invitation, error)
	Create(ctx context.Context, invitation *models.Invitation) error
	Update(ctx context.Context, invitation *models.Invitation) error
	ListReceived(ctx context.Context, userID uuid.UUID, filter InvitationFilter) ([]models.Invitation, int64, error)
	ListSent(ctx context.Context, userID uuid.UUID, filter InvitationFilter) ([]models.Invitation, int64, error)
}

type invitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository instantiates a GORM-backed repository.
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) Get(ctx context.Context, id uuid.UUID) (models.Invitation, error) {
	var invitation models.Invitation
	if err := r.db.WithContext(ctx).First(&invitation, "id = ?", id).Error; err != nil {
		return models.Invitation{}, err
	}

	return invitation, nil
}

func (r *invitationRepository) FindPending(ctx context.Context, activityID, userID uuid.UUID) (models.Invitation, error) {
	var invitation models.Invitation
	err := r.db.WithContext(ctx).
		Where("activity_id = ? AND invited_user_id = ? AND status = ?", activityID, userID, models.InvitationPending).
		First(&invitation).Error
	if err != nil {
		return models.Invitation{}, err
	}

	return invitation, nil
}

func (r *invitationRepository) Create(ctx context.Context, invitation *models.Invitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

func (r *invitationRepository) Update(ctx context.Context, invitation *models.Invitation) error {
	return r.db.WithContext(ctx).Save(invitation).Error
}

func (r *invitationRepository) ListReceived(ctx context.Context, userID uuid.UUID, filter InvitationFilter) ([]models.Invitation, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Invitation{}).Where("invited_user_id = ?", userID)
	return r.list(query, filter)
}

func (r *invitationRepository) ListSent(ctx context.Context, userID uuid.UUID, filter InvitationFilter) ([]models.Invitation, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Invitation{}).Where("invited_by = ?", userID)
	return r.list(query, filter)
}

func (r *invitationRepository) list(query *gorm.DB, filter InvitationFilter) ([]models.Invitation, int64, error) {
	if filter.ActivityID != nil {
		query = query.Where("activity_id = ?", *filter.ActivityID)
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Offset(filter.Offset).Limit(filter.Limit)
	}

	var invitations []models.Invitation
	if err := query.Order("invited_at DESC").Find(&invitations).Error; err != nil {
		return nil, 0, err
	}

	return invitations, total, nil
}
