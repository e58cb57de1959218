package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly/participation-api/internal/models"
)

// ParticipantFilter narrows participant listings.
type ParticipantFilter struct {
	Status         models.ParticipationStatus
	Role           models.ParticipantRole
	ExcludeUserIDs []uuid.UUID
	Limit          int
	Offset         int
}

// UserActivitiesFilter narrows a user's activity history.
type UserActivitiesFilter struct {
	Type   string // upcoming, past, organized, attended
	Status models.ParticipationStatus
	Limit  int
	Offset int
}

// UserActivity is one row of a user's activity history: the activity snapshot
// joined with the user's own participation record and the current registered
// headcount.
type UserActivity struct {
	Activity            models.Activity
	Role                models.ParticipantRole
	ParticipationStatus models.ParticipationStatus
	AttendanceStatus    models.AttendanceStatus
	JoinedAt            time.Time
	RegisteredCount     int64
}

// ParticipantRepository owns participant rows and their persistence. All role
// and status transitions are driven by the participation services; no other
// component writes these rows.
type ParticipantRepository interface {
	Get(ctx context.Context, activityID, userID uuid.UUID) (models.Participant, error)
	CountRegistered(ctx context.Context, activityID uuid.UUID) (int64, error)
	Create(ctx context.Context, participant *models.Participant) error
	Update(ctx context.Context, participant *models.Participant) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, activityID uuid.UUID, filter ParticipantFilter) ([]models.Participant, int64, error)
	ListAttended(ctx context.Context, activityID uuid.UUID) ([]models.Participant, error)
	ListUserActivities(ctx context.Context, userID uuid.UUID, filter UserActivitiesFilter, now time.Time) ([]UserActivity, int64, error)
	IncrementVerification(ctx context.Context, activityID, userID uuid.UUID) (int, error)
}

type participantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository instantiates a GORM-backed repository.
func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Get(ctx context.Context, activityID, userID uuid.UUID) (models.Participant, error) {
	var participant models.Participant
	err := r.db.WithContext(ctx).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		First(&participant).Error
	if err != nil {
		return models.Participant{}, err
	}

	return participant, nil
}

func (r *participantRepository) CountRegistered(ctx context.Context, activityID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Participant{}).
		Where("activity_id = ? AND participation_status = ?", activityID, models.ParticipationRegistered).
		Count(&count).Error

	return count, err
}

func (r *participantRepository) Create(ctx context.Context, participant *models.Participant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

func (r *participantRepository) Update(ctx context.Context, participant *models.Participant) error {
	return r.db.WithContext(ctx).Save(participant).Error
}

func (r *participantRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Participant{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *participantRepository) List(ctx context.Context, activityID uuid.UUID, filter ParticipantFilter) ([]models.Participant, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Participant{}).Where("activity_id = ?", activityID)

	if filter.Status != "" {
		query = query.Where("participation_status = ?", filter.Status)
	}

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}

	if len(filter.ExcludeUserIDs) > 0 {
		query = query.Where("user_id NOT IN ?", filter.ExcludeUserIDs)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Offset(filter.Offset).Limit(filter.Limit)
	}

	var participants []models.Participant
	if err := query.Order("joined_at ASC").Find(&participants).Error; err != nil {
		return nil, 0, err
	}

	return participants, total, nil
}

func (r *participantRepository) ListAttended(ctx context.Context, activityID uuid.UUID) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.WithContext(ctx).
		Where("activity_id = ? AND attendance_status = ?", activityID, models.AttendanceAttended).
		Order("joined_at ASC").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}

	return participants, nil
}

func (r *participantRepository) ListUserActivities(ctx context.Context, userID uuid.UUID, filter UserActivitiesFilter, now time.Time) ([]UserActivity, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Participant{}).
		Joins("JOIN activities ON activities.id = participants.activity_id").
		Where("participants.user_id = ?", userID)

	switch filter.Type {
	case "upcoming":
		query = query.Where("activities.scheduled_at > ?", now)
	case "past":
		query = query.Where("activities.scheduled_at <= ?", now)
	case "organized":
		query = query.Where("participants.role = ?", models.RoleOrganizer)
	case "attended":
		query = query.Where("participants.attendance_status = ?", models.AttendanceAttended)
	}

	if filter.Status != "" {
		query = query.Where("participants.participation_status = ?", filter.Status)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Offset(filter.Offset).Limit(filter.Limit)
	}

	var participants []models.Participant
	if err := query.Order("activities.scheduled_at DESC").Find(&participants).Error; err != nil {
		return nil, 0, err
	}

	activityIDs := make([]uuid.UUID, 0, len(participants))
	for _, participant := range participants {
		activityIDs = append(activityIDs, participant.ActivityID)
	}

	activities, err := NewActivityRepository(r.db).GetMany(ctx, activityIDs)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]UserActivity, 0, len(participants))
	for _, participant := range participants {
		activity, ok := activities[participant.ActivityID]
		if !ok {
			continue
		}

		registered, err := r.CountRegistered(ctx, participant.ActivityID)
		if err != nil {
			return nil, 0, err
		}

		rows = append(rows, UserActivity{
			Activity:            activity,
			Role:                participant.Role,
			ParticipationStatus: participant.ParticipationStatus,
			AttendanceStatus:    participant.AttendanceStatus,
			JoinedAt:            participant.JoinedAt,
			RegisteredCount:     registered,
		})
	}

	return rows, total, nil
}

func (r *participantRepository) IncrementVerification(ctx context.Context, activityID, userID uuid.UUID) (int, error) {
	result := r.db.WithContext(ctx).Model(&models.Participant{}).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		UpdateColumn("verification_count", gorm.Expr("verification_count + 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	participant, err := r.Get(ctx, activityID, userID)
	if err != nil {
		return 0, err
	}

	return participant.VerificationCount, nil
}
