package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
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

// ParticipantListQuery narrows a participant listing request.
type ParticipantListQuery struct {
	Status string
	Role   string
	Limit  int
	Offset int
}

// UserActivitiesQuery narrows a user's activity history request.
type UserActivitiesQuery struct {
	Type   string
	Status string
	Limit  int
	Offset int
}

// ParticipationService is the participation ledger: it owns participant rows
// and every join/leave/cancel/role transition, including the waitlist
// promotions those transitions trigger.
type ParticipationService interface {
	Join(ctx context.Context, activityID uuid.UUID, identity Identity) (dto.JoinActivityResponse, error)
	Leave(ctx context.Context, activityID uuid.UUID, identity Identity) (dto.LeaveActivityResponse, error)
	Cancel(ctx context.Context, activityID uuid.UUID, identity Identity, payload dto.CancelParticipationRequest) (dto.CancelParticipationResponse, error)
	Promote(ctx context.Context, activityID uuid.UUID, actor Identity, payload dto.RoleChangeRequest) (dto.RoleChangeResponse, error)
	Demote(ctx context.Context, activityID uuid.UUID, actor Identity, payload dto.RoleChangeRequest) (dto.RoleChangeResponse, error)
	ListParticipants(ctx context.Context, activityID uuid.UUID, viewer Identity, query ParticipantListQuery) (dto.ListParticipantsResponse, error)
	UserActivities(ctx context.Context, userID uuid.UUID, viewer Identity, query UserActivitiesQuery) (dto.UserActivitiesResponse, error)
}

type participationService struct {
	store                 repository.Store
	runner                repository.TxRunner
	social                SocialGraph
	display               DisplayProvider
	events                EventPublisher
	validator             *validator.Validate
	sanitizer             *bluemonday.Policy
	logger                zerolog.Logger
	tracer                trace.Tracer
	verificationThreshold int
	premiumExemptCapacity int
	now                   func() time.Time
}

// NewParticipationService builds the participation ledger service.
func NewParticipationService(store repository.Store, runner repository.TxRunner, social SocialGraph, display DisplayProvider, events EventPublisher, validate *validator.Validate, verificationThreshold, premiumExemptCapacity int, logger zerolog.Logger) ParticipationService {
	return &participationService{
		store:                 store,
		runner:                runner,
		social:                social,
		display:               display,
		events:                events,
		validator:             validate,
		sanitizer:             bluemonday.StrictPolicy(),
		logger:                logger.With().Str("component", "participation_service").Logger(),
		tracer:                otel.Tracer("github.com/gatherly/participation-api/internal/service/participation"),
		verificationThreshold: verificationThreshold,
		premiumExemptCapacity: premiumExemptCapacity,
		now:                   time.Now,
	}
}

func (s *participationService) Join(ctx context.Context, activityID uuid.UUID, identity Identity) (dto.JoinActivityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "participation.join", trace.WithAttributes(
		attribute.String("activity_id", activityID.String()),
	))
	defer span.End()

	now := s.now()
	var outcome joinOutcome

	err := s.runner.InActivityTx(ctx, activityID, func(store repository.Store, activity models.Activity) error {
		result, err := executeJoin(ctx, store, activity, identity, s.social, joinPolicy{
			premiumExemptCapacity: s.premiumExemptCapacity,
		}, now)
		if err != nil {
			return err
		}
		outcome = result

		return writeLog(ctx, store, activityID, identity.UserID, models.LogActionJoin, map[string]interface{}{
			"participation_status": string(result.status),
		})
	})
	if err != nil {
		observability.Joins().WithLabelValues("rejected").Inc()
		return dto.JoinActivityResponse{}, err
	}

	if outcome.status == models.ParticipationWaitlisted {
		observability.Joins().WithLabelValues("waitlisted").Inc()
		s.logger.Info().Str("activity_id", activityID.String()).Str("user_id", identity.UserID.String()).
			Int("position", *outcome.position).Msg("user waitlisted")

		return dto.JoinActivityResponse{
			ActivityID:          activityID,
			UserID:              identity.UserID,
			ParticipationStatus: string(models.ParticipationWaitlisted),
			WaitlistPosition:    outcome.position,
			JoinedAt:            now,
			Message:             fmt.Sprintf("Activity is full. You have been added to the waitlist at position %d.", *outcome.position),
		}, nil
	}

	observability.Joins().WithLabelValues("registered").Inc()
	s.logger.Info().Str("activity_id", activityID.String()).Str("user_id", identity.UserID.String()).Msg("user joined activity")

	return dto.JoinActivityResponse{
		ActivityID:          activityID,
		UserID:              identity.UserID,
		Role:                string(outcome.role),
		ParticipationStatus: string(models.ParticipationRegistered),
		JoinedAt:            now,
		Message:             "Successfully joined activity",
	}, nil
}

func (s *participationService) Leave(ctx context.Context, activityID uuid.UUID, identity Identity) (dto.LeaveActivityResponse, error) {
	now := s.now()
	var promoted *models.WaitlistEntry

	err := s.runner.InActivityTx(ctx, activityID, func(store repository.Store, activity models.Activity) error {
		if activity.HasOccurred(now) {
			return domain.ErrActivityInPast
		}

		participant, err := store.Participants.Get(ctx, activityID, identity.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotParticipant
			}
			return err
		}

		if participant.Role == models.RoleOrganizer {
			return domain.ErrIsOrganizer
		}

		wasRegistered := participant.ParticipationStatus == models.ParticipationRegistered
		wasWaitlisted := participant.ParticipationStatus == models.ParticipationWaitlisted
		if !wasRegistered && !wasWaitlisted {
			return domain.ErrNotParticipant
		}

		if err := store.Participants.Delete(ctx, participant.ID); err != nil {
			return err
		}

		if wasWaitlisted {
			if err := removeWaitlistEntry(ctx, store, activityID, identity.UserID); err != nil {
				return err
			}
		} else {
			promoted, err = promoteNext(ctx, store, activity, now)
			if err != nil {
				return err
			}
		}

		return writeLog(ctx, store, activityID, identity.UserID, models.LogActionLeave, map[string]interface{}{
			"was_waitlisted": wasWaitlisted,
		})
	})
	if err != nil {
		return dto.LeaveActivityResponse{}, err
	}

	response := dto.LeaveActivityResponse{
		ActivityID: activityID,
		UserID:     identity.UserID,
		LeftAt:     now,
		Message:    "Successfully left activity",
	}

	if promoted != nil {
		observability.Promotions().Inc()
		s.events.WaitlistPromoted(ctx, activityID, promoted.UserID)
		response.WaitlistPromoted = &dto.WaitlistPromotedInfo{UserID: promoted.UserID, PromotedAt: now}
	}

	return response, nil
}

func (s *participationService) Cancel(ctx context.Context, activityID uuid.UUID, identity Identity, payload dto.CancelParticipationRequest) (dto.CancelParticipationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CancelParticipationResponse{}, err
	}

	now := s.now()
	reason := s.sanitizer.Sanitize(payload.Reason)
	var promoted *models.WaitlistEntry

	err := s.runner.InActivityTx(ctx, activityID, func(store repository.Store, activity models.Activity) error {
		if activity.HasOccurred(now) {
			return domain.ErrActivityInPast
		}

		participant, err := store.Participants.Get(ctx, activityID, identity.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotParticipant
			}
			return err
		}

		switch participant.ParticipationStatus {
		case models.ParticipationCancelled:
			return domain.ErrAlreadyCancelled
		case models.ParticipationRegistered, models.ParticipationWaitlisted:
		default:
			return domain.ErrNotParticipant
		}

		wasRegistered := participant.ParticipationStatus == models.ParticipationRegistered

		participant.ParticipationStatus = models.ParticipationCancelled
		participant.CancellationReason = reason
		if err := store.Participants.Update(ctx, &participant); err != nil {
			return err
		}

		if wasRegistered {
			promoted, err = promoteNext(ctx, store, activity, now)
			if err != nil {
				return err
			}
		} else if err := removeWaitlistEntry(ctx, store, activityID, identity.UserID); err != nil {
			return err
		}

		return writeLog(ctx, store, activityID, identity.UserID, models.LogActionCancel, map[string]interface{}{
			"reason": reason,
		})
	})
	if err != nil {
		return dto.CancelParticipationResponse{}, err
	}

	response := dto.CancelParticipationResponse{
		ActivityID:          activityID,
		UserID:              identity.UserID,
		ParticipationStatus: string(models.ParticipationCancelled),
		LeftAt:              now,
		Message:             "Participation cancelled successfully",
	}

	if promoted != nil {
		observability.Promotions().Inc()
		s.events.WaitlistPromoted(ctx, activityID, promoted.UserID)
		response.WaitlistPromoted = &dto.WaitlistPromotedInfo{UserID: promoted.UserID, PromotedAt: now}
	}

	return response, nil
}

func (s *participationService) Promote(ctx context.Context, activityID uuid.UUID, actor Identity, payload dto.RoleChangeRequest) (dto.RoleChangeResponse, error) {
	return s.changeRole(ctx, activityID, actor, payload.UserID, true)
}

func (s *participationService) Demote(ctx context.Context, activityID uuid.UUID, actor Identity, payload dto.RoleChangeRequest) (dto.RoleChangeResponse, error) {
	return s.changeRole(ctx, activityID, actor, payload.UserID, false)
}

func (s *participationService) changeRole(ctx context.Context, activityID uuid.UUID, actor Identity, targetID uuid.UUID, promote bool) (dto.RoleChangeResponse, error) {
	now := s.now()
	var newRole models.ParticipantRole

	err := s.runner.InActivityTx(ctx, activityID, func(store repository.Store, activity models.Activity) error {
		if actor.UserID != activity.OrganizerID {
			return domain.ErrNotOrganizer
		}

		target, err := store.Participants.Get(ctx, activityID, targetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if promote {
					return domain.ErrTargetNotMember
				}
				return domain.ErrNotCoOrganizer
			}
			return err
		}

		action := models.LogActionDemote
		if promote {
			action = models.LogActionPromote
			switch target.Role {
			case models.RoleCoOrganizer:
				return domain.ErrAlreadyCoOrganizer
			case models.RoleMember:
			default:
				return domain.ErrTargetNotMember
			}
			if target.ParticipationStatus != models.ParticipationRegistered {
				return domain.ErrTargetNotMember
			}
			target.Role = models.RoleCoOrganizer
		} else {
			if target.Role != models.RoleCoOrganizer {
				return domain.ErrNotCoOrganizer
			}
			target.Role = models.RoleMember
		}

		newRole = target.Role
		if err := store.Participants.Update(ctx, &target); err != nil {
			return err
		}

		return writeLog(ctx, store, activityID, actor.UserID, action, map[string]interface{}{
			"target_user_id": targetID.String(),
			"new_role":       string(target.Role),
		})
	})
	if err != nil {
		return dto.RoleChangeResponse{}, err
	}

	message := "User demoted to member successfully"
	if promote {
		message = "User promoted to co-organizer successfully"
	}

	return dto.RoleChangeResponse{
		ActivityID: activityID,
		UserID:     targetID,
		Role:       string(newRole),
		ChangedAt:  now,
		Message:    message,
	}, nil
}

func (s *participationService) ListParticipants(ctx context.Context, activityID uuid.UUID, viewer Identity, query ParticipantListQuery) (dto.ListParticipantsResponse, error) {
	if _, err := s.store.Activities.Get(ctx, activityID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ListParticipantsResponse{}, domain.ErrActivityNotFound
		}
		return dto.ListParticipantsResponse{}, err
	}

	filter := repository.ParticipantFilter{
		Status: models.ParticipationStatus(query.Status),
		Role:   models.ParticipantRole(query.Role),
		Limit:  normalizeLimit(query.Limit, 50),
		Offset: query.Offset,
	}

	privileged, err := s.isOrganizerOrCoOrganizer(ctx, activityID, viewer.UserID)
	if err != nil {
		return dto.ListParticipantsResponse{}, err
	}

	if !privileged {
		blocked, err := s.social.BlockedUserIDs(ctx, viewer.UserID)
		if err != nil {
			return dto.ListParticipantsResponse{}, err
		}
		filter.ExcludeUserIDs = blocked
	}

	participants, total, err := s.store.Participants.List(ctx, activityID, filter)
	if err != nil {
		return dto.ListParticipantsResponse{}, err
	}

	userIDs := make([]uuid.UUID, 0, len(participants))
	for _, participant := range participants {
		userIDs = append(userIDs, participant.UserID)
	}

	displays, err := s.display.UserDisplays(ctx, userIDs)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load display data")
		displays = map[uuid.UUID]UserDisplay{}
	}

	infos := make([]dto.ParticipantInfo, 0, len(participants))
	for _, participant := range participants {
		display := displays[participant.UserID]
		infos = append(infos, dto.ParticipantInfo{
			UserID:              participant.UserID,
			Username:            display.Username,
			FirstName:           display.FirstName,
			LastName:            display.LastName,
			ProfilePhotoURL:     display.ProfilePhotoURL,
			Role:                string(participant.Role),
			ParticipationStatus: string(participant.ParticipationStatus),
			AttendanceStatus:    string(participant.AttendanceStatus),
			JoinedAt:            participant.JoinedAt,
			IsVerified:          participant.Verified(s.verificationThreshold),
			VerificationCount:   participant.VerificationCount,
		})
	}

	return dto.ListParticipantsResponse{
		ActivityID:   activityID,
		TotalCount:   total,
		Participants: infos,
	}, nil
}

func (s *participationService) UserActivities(ctx context.Context, userID uuid.UUID, viewer Identity, query UserActivitiesQuery) (dto.UserActivitiesResponse, error) {
	// Viewing another user's history fails silently when blocked: an empty
	// response is indistinguishable from an empty history.
	if viewer.UserID != userID {
		blocked, err := s.social.IsBlocked(ctx, userID, viewer.UserID)
		if err != nil {
			return dto.UserActivitiesResponse{}, err
		}
		if blocked {
			return dto.UserActivitiesResponse{UserID: userID, Activities: []dto.ActivityInfo{}}, nil
		}
	}

	filter := repository.UserActivitiesFilter{
		Type:   query.Type,
		Status: models.ParticipationStatus(query.Status),
		Limit:  normalizeLimit(query.Limit, 20),
		Offset: query.Offset,
	}

	rows, total, err := s.store.Participants.ListUserActivities(ctx, userID, filter, s.now())
	if err != nil {
		return dto.UserActivitiesResponse{}, err
	}

	organizerIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		organizerIDs = append(organizerIDs, row.Activity.OrganizerID)
	}

	displays, err := s.display.UserDisplays(ctx, organizerIDs)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load display data")
		displays = map[uuid.UUID]UserDisplay{}
	}

	activities := make([]dto.ActivityInfo, 0, len(rows))
	for _, row := range rows {
		activities = append(activities, dto.ActivityInfo{
			ActivityID:          row.Activity.ID,
			Title:               row.Activity.Title,
			ScheduledAt:         row.Activity.ScheduledAt,
			LocationName:        row.Activity.LocationName,
			City:                row.Activity.City,
			OrganizerUserID:     row.Activity.OrganizerID,
			OrganizerUsername:   displays[row.Activity.OrganizerID].Username,
			CurrentParticipants: row.RegisteredCount,
			MaxParticipants:     row.Activity.MaxParticipants,
			ActivityType:        row.Activity.ActivityType,
			Role:                string(row.Role),
			ParticipationStatus: string(row.ParticipationStatus),
			AttendanceStatus:    string(row.AttendanceStatus),
			JoinedAt:            row.JoinedAt,
		})
	}

	return dto.UserActivitiesResponse{
		UserID:     userID,
		TotalCount: total,
		Activities: activities,
	}, nil
}

func (s *participationService) isOrganizerOrCoOrganizer(ctx context.Context, activityID, userID uuid.UUID) (bool, error) {
	participant, err := s.store.Participants.Get(ctx, activityID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	return participant.Role == models.RoleOrganizer || participant.Role == models.RoleCoOrganizer, nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 100 {
		return 100
	}
	return limit
}
