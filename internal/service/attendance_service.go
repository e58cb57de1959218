package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/gatherly/participation-api/internal/domain"
	"github.com/gatherly/participation-api/internal/dto"
	"github.com/gatherly/participation-api/internal/models"
	"github.com/gatherly/participation-api/internal/observability"
	"github.com/gatherly/participation-api/internal/repository"
)

// AttendanceService owns attendance marking and peer-confirmation
// bookkeeping for completed activities.
type AttendanceService interface {
	Mark(ctx context.Context, activityID uuid.UUID, actor Identity, payload dto.MarkAttendanceRequest) (dto.MarkAttendanceResponse, error)
	Confirm(ctx context.Context, confirmer Identity, payload dto.ConfirmAttendanceRequest) (dto.ConfirmAttendanceResponse, error)
	PendingVerifications(ctx context.Context, identity Identity, limit, offset int) (dto.PendingVerificationsResponse, error)
}

type attendanceService struct {
	store     repository.Store
	runner    repository.TxRunner
	stats     UserStats
	display   DisplayProvider
	cache     *redis.Client
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewAttendanceService builds the attendance and verification service.
func NewAttendanceService(store repository.Store, runner repository.TxRunner, stats UserStats, display DisplayProvider, cache *redis.Client, cacheTTL time.Duration, validate *validator.Validate, logger zerolog.Logger) AttendanceService {
	return &attendanceService{
		store:     store,
		runner:    runner,
		stats:     stats,
		display:   display,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger.With().Str("component", "attendance_service").Logger(),
		tracer:    otel.Tracer("github.com/gatherly/participation-api/internal/service/attendance"),
		now:       time.Now,
	}
}

func (s *attendanceService) Mark(ctx context.Context, activityID uuid.UUID, actor Identity, payload dto.MarkAttendanceRequest) (dto.MarkAttendanceResponse, error) {
	if len(payload.Attendances) > 100 {
		return dto.MarkAttendanceResponse{}, domain.ErrTooManyUpdates
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.MarkAttendanceResponse{}, err
	}

	now := s.now()
	var updated []dto.AttendanceUpdate
	var failed []dto.FailedAttendanceUpdate
	var noShows []uuid.UUID

	err := s.runner.InActivityTx(ctx, activityID, func(store repository.Store, activity models.Activity) error {
		if !activity.HasOccurred(now) {
			return domain.ErrActivityNotCompleted
		}

		actorRow, err := store.Participants.Get(ctx, activityID, actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotAuthorized
			}
			return err
		}
		if actorRow.Role != models.RoleOrganizer && actorRow.Role != models.RoleCoOrganizer {
			return domain.ErrNotAuthorized
		}

		// Entries fail individually; a non-participant in the batch never
		// rejects the rest.
		for _, entry := range payload.Attendances {
			participant, err := store.Participants.Get(ctx, activityID, entry.UserID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					failed = append(failed, dto.FailedAttendanceUpdate{UserID: entry.UserID, Reason: "not a participant"})
					continue
				}
				return err
			}

			if participant.ParticipationStatus != models.ParticipationRegistered {
				failed = append(failed, dto.FailedAttendanceUpdate{UserID: entry.UserID, Reason: "not registered"})
				continue
			}

			participant.AttendanceStatus = models.AttendanceStatus(entry.Status)
			if err := store.Participants.Update(ctx, &participant); err != nil {
				return err
			}

			if participant.AttendanceStatus == models.AttendanceNoShow {
				noShows = append(noShows, entry.UserID)
			}

			updated = append(updated, dto.AttendanceUpdate{UserID: entry.UserID, Status: entry.Status, UpdatedAt: now})
		}

		return nil
	})
	if err != nil {
		return dto.MarkAttendanceResponse{}, err
	}

	for _, userID := range noShows {
		if err := s.stats.IncrementNoShow(ctx, userID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to increment no-show counter")
		}
	}

	s.invalidatePendingCache(ctx, activityID)

	if updated == nil {
		updated = []dto.AttendanceUpdate{}
	}

	return dto.MarkAttendanceResponse{
		ActivityID:    activityID,
		UpdatedCount:  len(updated),
		Attendances:   updated,
		FailedUpdates: failed,
		Message:       "Attendance updated successfully",
	}, nil
}

func (s *attendanceService) Confirm(ctx context.Context, confirmer Identity, payload dto.ConfirmAttendanceRequest) (dto.ConfirmAttendanceResponse, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.confirm", trace.WithAttributes(
		attribute.String("activity_id", payload.ActivityID.String()),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.ConfirmAttendanceResponse{}, err
	}

	if payload.ConfirmedUserID == confirmer.UserID {
		return dto.ConfirmAttendanceResponse{}, domain.ErrSelfConfirmation
	}

	now := s.now()
	var confirmationID uuid.UUID
	var newCount int

	err := s.runner.InActivityTx(ctx, payload.ActivityID, func(store repository.Store, activity models.Activity) error {
		if !activity.HasOccurred(now) {
			return domain.ErrActivityNotCompleted
		}

		confirmerRow, err := store.Participants.Get(ctx, activity.ID, confirmer.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrConfirmerNotAttended
			}
			return err
		}
		if confirmerRow.AttendanceStatus != models.AttendanceAttended {
			return domain.ErrConfirmerNotAttended
		}

		confirmedRow, err := store.Participants.Get(ctx, activity.ID, payload.ConfirmedUserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrConfirmedNotAttended
			}
			return err
		}
		if confirmedRow.AttendanceStatus != models.AttendanceAttended {
			return domain.ErrConfirmedNotAttended
		}

		exists, err := store.Confirmations.Exists(ctx, activity.ID, confirmer.UserID, payload.ConfirmedUserID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrAlreadyConfirmed
		}

		confirmation := models.AttendanceConfirmation{
			ID:              uuid.New(),
			ActivityID:      activity.ID,
			ConfirmerUserID: confirmer.UserID,
			ConfirmedUserID: payload.ConfirmedUserID,
			CreatedAt:       now,
		}
		if err := store.Confirmations.Create(ctx, &confirmation); err != nil {
			return err
		}
		confirmationID = confirmation.ID

		newCount, err = store.Participants.IncrementVerification(ctx, activity.ID, payload.ConfirmedUserID)
		return err
	})
	if err != nil {
		return dto.ConfirmAttendanceResponse{}, err
	}

	observability.Confirmations().Inc()
	s.invalidatePendingCacheForUser(ctx, confirmer.UserID)

	return dto.ConfirmAttendanceResponse{
		ConfirmationID:    confirmationID,
		ActivityID:        payload.ActivityID,
		ConfirmedUserID:   payload.ConfirmedUserID,
		ConfirmerUserID:   confirmer.UserID,
		CreatedAt:         now,
		VerificationCount: newCount,
		Message:           "Attendance confirmed successfully",
	}, nil
}

func (s *attendanceService) PendingVerifications(ctx context.Context, identity Identity, limit, offset int) (dto.PendingVerificationsResponse, error) {
	cacheKey := s.pendingCacheKey(identity.UserID, limit, offset)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.PendingVerificationsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Str("user_id", identity.UserID.String()).Msg("pending verifications cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read pending verifications cache")
		}
	}

	response, err := s.buildPendingVerifications(ctx, identity, limit, offset)
	if err != nil {
		return dto.PendingVerificationsResponse{}, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store pending verifications cache")
			}
		}
	}

	return response, nil
}

func (s *attendanceService) buildPendingVerifications(ctx context.Context, identity Identity, limit, offset int) (dto.PendingVerificationsResponse, error) {
	now := s.now()
	filter := repository.UserActivitiesFilter{
		Type:   "attended",
		Limit:  normalizeLimit(limit, 20),
		Offset: offset,
	}

	rows, _, err := s.store.Participants.ListUserActivities(ctx, identity.UserID, filter, now)
	if err != nil {
		return dto.PendingVerificationsResponse{}, err
	}

	pending := make([]dto.PendingVerificationActivity, 0, len(rows))
	for _, row := range rows {
		if !row.Activity.HasOccurred(now) {
			continue
		}

		attended, err := s.store.Participants.ListAttended(ctx, row.Activity.ID)
		if err != nil {
			return dto.PendingVerificationsResponse{}, err
		}

		confirmedIDs, err := s.store.Confirmations.ConfirmedUserIDs(ctx, row.Activity.ID, identity.UserID)
		if err != nil {
			return dto.PendingVerificationsResponse{}, err
		}

		confirmed := make(map[uuid.UUID]struct{}, len(confirmedIDs))
		for _, id := range confirmedIDs {
			confirmed[id] = struct{}{}
		}

		unconfirmed := make([]uuid.UUID, 0, len(attended))
		for _, participant := range attended {
			if participant.UserID == identity.UserID {
				continue
			}
			if _, ok := confirmed[participant.UserID]; ok {
				continue
			}
			unconfirmed = append(unconfirmed, participant.UserID)
		}

		if len(unconfirmed) == 0 {
			continue
		}

		displays, err := s.display.UserDisplays(ctx, unconfirmed)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to load display data")
			displays = map[uuid.UUID]UserDisplay{}
		}

		toConfirm := make([]dto.PendingVerificationParticipant, 0, len(unconfirmed))
		for _, userID := range unconfirmed {
			display := displays[userID]
			toConfirm = append(toConfirm, dto.PendingVerificationParticipant{
				UserID:          userID,
				Username:        display.Username,
				ProfilePhotoURL: display.ProfilePhotoURL,
			})
		}

		pending = append(pending, dto.PendingVerificationActivity{
			ActivityID:            row.Activity.ID,
			Title:                 row.Activity.Title,
			ScheduledAt:           row.Activity.ScheduledAt,
			ParticipantsToConfirm: toConfirm,
		})
	}

	return dto.PendingVerificationsResponse{
		TotalCount:           int64(len(pending)),
		PendingVerifications: pending,
	}, nil
}

func (s *attendanceService) pendingCacheKey(userID uuid.UUID, limit, offset int) string {
	return fmt.Sprintf("participation:pending_verifications:%s:%d:%d", userID, limit, offset)
}

// invalidatePendingCache drops cached pending-verification pages after bulk
// attendance changes. Keys are per user and page, so a pattern scan is used.
func (s *attendanceService) invalidatePendingCache(ctx context.Context, activityID uuid.UUID) {
	if s.cache == nil {
		return
	}

	iter := s.cache.Scan(ctx, 0, "participation:pending_verifications:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.cache.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate pending verifications cache")
			return
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to scan pending verifications cache")
	}
}

func (s *attendanceService) invalidatePendingCacheForUser(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}

	iter := s.cache.Scan(ctx, 0, fmt.Sprintf("participation:pending_verifications:%s:*", userID), 100).Iterator()
	for iter.Next(ctx) {
		if err := s.cache.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate pending verifications cache")
			return
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to scan pending verifications cache")
	}
}
