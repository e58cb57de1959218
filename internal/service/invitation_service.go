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
	"gorm.io/gorm"

	"github.com/gatherly/participation-api/internal/domain"
	"github.com/gatherly/participation-api/internal/dto"
	"github.com/gatherly/participation-api/internal/models"
	"github.com/gatherly/participation-api/internal/observability"
	"github.com/gatherly/participation-api/internal/repository"
)

// ListInvitationsQuery narrows received/sent invitation listings.
type ListInvitationsQuery struct {
	ActivityID *uuid.UUID
	Status     string
	Limit      int
	Offset     int
}

// InvitationService owns the invitation lifecycle: bulk sending with partial
// success, lazy expiry, and the conversion of an acceptance into a join that
// obeys the same capacity and waitlist rules as a direct join.
type InvitationService interface {
	Send(ctx context.Context, activityID uuid.UUID, sender Identity, payload dto.SendInvitationsRequest) (dto.SendInvitationsResponse, error)
	Accept(ctx context.Context, invitationID uuid.UUID, identity Identity) (dto.AcceptInvitationResponse, error)
	Decline(ctx context.Context, invitationID uuid.UUID, identity Identity) (dto.DeclineInvitationResponse, error)
	Cancel(ctx context.Context, invitationID uuid.UUID, sender Identity) (dto.CancelInvitationResponse, error)
	ListReceived(ctx context.Context, identity Identity, query ListInvitationsQuery) (dto.ReceivedInvitationsResponse, error)
	ListSent(ctx context.Context, identity Identity, query ListInvitationsQuery) (dto.SentInvitationsResponse, error)
}

type invitationService struct {
	store                 repository.Store
	runner                repository.TxRunner
	social                SocialGraph
	display               DisplayProvider
	events                EventPublisher
	validator             *validator.Validate
	sanitizer             *bluemonday.Policy
	logger                zerolog.Logger
	defaultExpiryHours    int
	maxExpiryHours        int
	premiumExemptCapacity int
	now                   func() time.Time
}

// NewInvitationService builds the invitation lifecycle service.
func NewInvitationService(store repository.Store, runner repository.TxRunner, social SocialGraph, display DisplayProvider, events EventPublisher, validate *validator.Validate, defaultExpiryHours, maxExpiryHours, premiumExemptCapacity int, logger zerolog.Logger) InvitationService {
	return &invitationService{
		store:                 store,
		runner:                runner,
		social:                social,
		display:               display,
		events:                events,
		validator:             validate,
		sanitizer:             bluemonday.StrictPolicy(),
		logger:                logger.With().Str("component", "invitation_service").Logger(),
		defaultExpiryHours:    defaultExpiryHours,
		maxExpiryHours:        maxExpiryHours,
		premiumExemptCapacity: premiumExemptCapacity,
		now:                   time.Now,
	}
}

func (s *invitationService) Send(ctx context.Context, activityID uuid.UUID, sender Identity, payload dto.SendInvitationsRequest) (dto.SendInvitationsResponse, error) {
	if len(payload.UserIDs) > 50 {
		return dto.SendInvitationsResponse{}, domain.ErrTooManyInvitations
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.SendInvitationsResponse{}, err
	}

	now := s.now()
	message := s.sanitizer.Sanitize(payload.Message)
	expiryHours := payload.ExpiresInHours
	if expiryHours <= 0 {
		expiryHours = s.defaultExpiryHours
	}
	if s.maxExpiryHours > 0 && expiryHours > s.maxExpiryHours {
		expiryHours = s.maxExpiryHours
	}

	var created []dto.InvitationCreated
	var failed []dto.FailedInvitation

	err := s.runner.InActivityTx(ctx, activityID, func(store repository.Store, activity models.Activity) error {
		if activity.AccessType != models.AccessTypeInviteOnly {
			return domain.ErrNotInviteOnly
		}

		if activity.HasOccurred(now) {
			return domain.ErrActivityInPast
		}

		senderRow, err := store.Participants.Get(ctx, activityID, sender.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotAuthorized
			}
			return err
		}
		if senderRow.Role != models.RoleOrganizer && senderRow.Role != models.RoleCoOrganizer {
			return domain.ErrNotAuthorized
		}

		// Recipients fail individually; one bad recipient never rejects the
		// whole batch.
		for _, userID := range payload.UserIDs {
			reason, err := s.invitationBlocker(ctx, store, activity, userID)
			if err != nil {
				return err
			}
			if reason != "" {
				failed = append(failed, dto.FailedInvitation{UserID: userID, Reason: reason})
				continue
			}

			invitation := models.Invitation{
				ID:            uuid.New(),
				ActivityID:    activityID,
				InvitedBy:     sender.UserID,
				InvitedUserID: userID,
				Status:        models.InvitationPending,
				Message:       message,
				InvitedAt:     now,
				ExpiresAt:     now.Add(time.Duration(expiryHours) * time.Hour),
			}
			if err := store.Invitations.Create(ctx, &invitation); err != nil {
				return err
			}

			created = append(created, dto.InvitationCreated{
				InvitationID:  invitation.ID,
				InvitedUserID: userID,
				InvitedAt:     invitation.InvitedAt,
				ExpiresAt:     invitation.ExpiresAt,
			})
		}

		return nil
	})
	if err != nil {
		return dto.SendInvitationsResponse{}, err
	}

	invitedIDs := make([]uuid.UUID, 0, len(created))
	for _, invitation := range created {
		invitedIDs = append(invitedIDs, invitation.InvitedUserID)
	}
	s.events.InvitationsSent(ctx, activityID, invitedIDs)
	observability.Invitations().WithLabelValues("sent").Add(float64(len(created)))
	observability.Invitations().WithLabelValues("failed").Add(float64(len(failed)))

	s.logger.Info().Str("activity_id", activityID.String()).
		Int("invited", len(created)).Int("failed", len(failed)).Msg("invitations sent")

	if created == nil {
		created = []dto.InvitationCreated{}
	}
	if failed == nil {
		failed = []dto.FailedInvitation{}
	}

	return dto.SendInvitationsResponse{
		ActivityID:        activityID,
		InvitedCount:      len(created),
		FailedCount:       len(failed),
		Invitations:       created,
		FailedInvitations: failed,
		Message:           invitationSummary(len(created)),
	}, nil
}

// invitationBlocker returns the per-recipient failure reason, or empty when
// the recipient may be invited.
func (s *invitationService) invitationBlocker(ctx context.Context, store repository.Store, activity models.Activity, userID uuid.UUID) (string, error) {
	if _, err := store.Invitations.FindPending(ctx, activity.ID, userID); err == nil {
		return "invitation already pending", nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	participant, err := store.Participants.Get(ctx, activity.ID, userID)
	if err == nil {
		if participant.ParticipationStatus == models.ParticipationRegistered || participant.ParticipationStatus == models.ParticipationWaitlisted {
			return "already a participant", nil
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	blocked, err := s.social.IsBlocked(ctx, activity.OrganizerID, userID)
	if err != nil {
		return "", err
	}
	if blocked {
		return "user is blocked", nil
	}

	return "", nil
}

func (s *invitationService) Accept(ctx context.Context, invitationID uuid.UUID, identity Identity) (dto.AcceptInvitationResponse, error) {
	invitation, err := s.loadOwnInvitation(ctx, invitationID, identity)
	if err != nil {
		return dto.AcceptInvitationResponse{}, err
	}

	now := s.now()
	var outcome joinOutcome

	err = s.runner.InActivityTx(ctx, invitation.ActivityID, func(store repository.Store, activity models.Activity) error {
		current, err := store.Invitations.Get(ctx, invitationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrInvitationNotFound
			}
			return err
		}

		if err := s.ensurePending(&current, now); err != nil {
			return err
		}

		current.Status = models.InvitationAccepted
		current.RespondedAt = &now
		if err := store.Invitations.Update(ctx, &current); err != nil {
			return err
		}

		// Acceptance bypasses the invite-only direct-join gate but obeys
		// every other join rule, capacity included.
		outcome, err = executeJoin(ctx, store, activity, identity, s.social, joinPolicy{
			bypassInviteGate:      true,
			premiumExemptCapacity: s.premiumExemptCapacity,
		}, now)
		if err != nil {
			return err
		}

		return writeLog(ctx, store, activity.ID, identity.UserID, models.LogActionJoin, map[string]interface{}{
			"invitation_id":        invitationID.String(),
			"participation_status": string(outcome.status),
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvitationExpired) {
			s.markExpired(ctx, invitationID)
		}
		return dto.AcceptInvitationResponse{}, err
	}

	observability.Invitations().WithLabelValues("accepted").Inc()

	return dto.AcceptInvitationResponse{
		InvitationID:        invitationID,
		ActivityID:          invitation.ActivityID,
		Status:              string(models.InvitationAccepted),
		ParticipationStatus: string(outcome.status),
		WaitlistPosition:    outcome.position,
		RespondedAt:         now,
		Message:             "Invitation accepted and joined activity successfully",
	}, nil
}

func (s *invitationService) Decline(ctx context.Context, invitationID uuid.UUID, identity Identity) (dto.DeclineInvitationResponse, error) {
	invitation, err := s.loadOwnInvitation(ctx, invitationID, identity)
	if err != nil {
		return dto.DeclineInvitationResponse{}, err
	}

	now := s.now()

	err = s.runner.InActivityTx(ctx, invitation.ActivityID, func(store repository.Store, activity models.Activity) error {
		current, err := store.Invitations.Get(ctx, invitationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrInvitationNotFound
			}
			return err
		}

		if err := s.ensurePending(&current, now); err != nil {
			return err
		}

		current.Status = models.InvitationDeclined
		current.RespondedAt = &now

		return store.Invitations.Update(ctx, &current)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvitationExpired) {
			s.markExpired(ctx, invitationID)
		}
		return dto.DeclineInvitationResponse{}, err
	}

	observability.Invitations().WithLabelValues("declined").Inc()

	return dto.DeclineInvitationResponse{
		InvitationID: invitationID,
		ActivityID:   invitation.ActivityID,
		Status:       string(models.InvitationDeclined),
		RespondedAt:  now,
		Message:      "Invitation declined",
	}, nil
}

func (s *invitationService) Cancel(ctx context.Context, invitationID uuid.UUID, sender Identity) (dto.CancelInvitationResponse, error) {
	invitation, err := s.store.Invitations.Get(ctx, invitationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CancelInvitationResponse{}, domain.ErrInvitationNotFound
		}
		return dto.CancelInvitationResponse{}, err
	}

	if invitation.InvitedBy != sender.UserID {
		return dto.CancelInvitationResponse{}, domain.ErrNotAuthorized
	}

	now := s.now()

	err = s.runner.InActivityTx(ctx, invitation.ActivityID, func(store repository.Store, activity models.Activity) error {
		current, err := store.Invitations.Get(ctx, invitationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrInvitationNotFound
			}
			return err
		}

		if err := s.ensurePending(&current, now); err != nil {
			return err
		}

		current.Status = models.InvitationCancelled
		current.RespondedAt = &now

		return store.Invitations.Update(ctx, &current)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvitationExpired) {
			s.markExpired(ctx, invitationID)
		}
		return dto.CancelInvitationResponse{}, err
	}

	return dto.CancelInvitationResponse{
		InvitationID: invitationID,
		ActivityID:   invitation.ActivityID,
		CancelledAt:  now,
		Message:      "Invitation cancelled successfully",
	}, nil
}

func (s *invitationService) ListReceived(ctx context.Context, identity Identity, query ListInvitationsQuery) (dto.ReceivedInvitationsResponse, error) {
	filter := repository.InvitationFilter{
		ActivityID: query.ActivityID,
		Status:     models.InvitationStatus(query.Status),
		Limit:      normalizeLimit(query.Limit, 20),
		Offset:     query.Offset,
	}

	invitations, total, err := s.store.Invitations.ListReceived(ctx, identity.UserID, filter)
	if err != nil {
		return dto.ReceivedInvitationsResponse{}, err
	}

	invitations = s.expireLazily(ctx, invitations)

	activityIDs := make([]uuid.UUID, 0, len(invitations))
	userIDs := make([]uuid.UUID, 0, len(invitations))
	for _, invitation := range invitations {
		activityIDs = append(activityIDs, invitation.ActivityID)
		userIDs = append(userIDs, invitation.InvitedBy)
	}

	activities, err := s.store.Activities.GetMany(ctx, activityIDs)
	if err != nil {
		return dto.ReceivedInvitationsResponse{}, err
	}

	displays, err := s.display.UserDisplays(ctx, userIDs)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load display data")
		displays = map[uuid.UUID]UserDisplay{}
	}

	infos := make([]dto.ReceivedInvitationInfo, 0, len(invitations))
	for _, invitation := range invitations {
		activity := activities[invitation.ActivityID]
		infos = append(infos, dto.ReceivedInvitationInfo{
			InvitationID:        invitation.ID,
			ActivityID:          invitation.ActivityID,
			ActivityTitle:       activity.Title,
			ActivityScheduledAt: activity.ScheduledAt,
			InvitedByUserID:     invitation.InvitedBy,
			InvitedByUsername:   displays[invitation.InvitedBy].Username,
			Status:              string(invitation.Status),
			Message:             invitation.Message,
			InvitedAt:           invitation.InvitedAt,
			ExpiresAt:           invitation.ExpiresAt,
			RespondedAt:         invitation.RespondedAt,
		})
	}

	return dto.ReceivedInvitationsResponse{TotalCount: total, Invitations: infos}, nil
}

func (s *invitationService) ListSent(ctx context.Context, identity Identity, query ListInvitationsQuery) (dto.SentInvitationsResponse, error) {
	filter := repository.InvitationFilter{
		ActivityID: query.ActivityID,
		Status:     models.InvitationStatus(query.Status),
		Limit:      normalizeLimit(query.Limit, 20),
		Offset:     query.Offset,
	}

	invitations, total, err := s.store.Invitations.ListSent(ctx, identity.UserID, filter)
	if err != nil {
		return dto.SentInvitationsResponse{}, err
	}

	invitations = s.expireLazily(ctx, invitations)

	activityIDs := make([]uuid.UUID, 0, len(invitations))
	userIDs := make([]uuid.UUID, 0, len(invitations))
	for _, invitation := range invitations {
		activityIDs = append(activityIDs, invitation.ActivityID)
		userIDs = append(userIDs, invitation.InvitedUserID)
	}

	activities, err := s.store.Activities.GetMany(ctx, activityIDs)
	if err != nil {
		return dto.SentInvitationsResponse{}, err
	}

	displays, err := s.display.UserDisplays(ctx, userIDs)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load display data")
		displays = map[uuid.UUID]UserDisplay{}
	}

	infos := make([]dto.SentInvitationInfo, 0, len(invitations))
	for _, invitation := range invitations {
		infos = append(infos, dto.SentInvitationInfo{
			InvitationID:    invitation.ID,
			ActivityID:      invitation.ActivityID,
			ActivityTitle:   activities[invitation.ActivityID].Title,
			InvitedUserID:   invitation.InvitedUserID,
			InvitedUsername: displays[invitation.InvitedUserID].Username,
			Status:          string(invitation.Status),
			Message:         invitation.Message,
			InvitedAt:       invitation.InvitedAt,
			ExpiresAt:       invitation.ExpiresAt,
			RespondedAt:     invitation.RespondedAt,
		})
	}

	return dto.SentInvitationsResponse{TotalCount: total, Invitations: infos}, nil
}

func (s *invitationService) loadOwnInvitation(ctx context.Context, invitationID uuid.UUID, identity Identity) (models.Invitation, error) {
	invitation, err := s.store.Invitations.Get(ctx, invitationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Invitation{}, domain.ErrInvitationNotFound
		}
		return models.Invitation{}, err
	}

	if invitation.InvitedUserID != identity.UserID {
		return models.Invitation{}, domain.ErrNotYourInvitation
	}

	return invitation, nil
}

// ensurePending rejects invitations that are no longer actionable. It never
// writes: the expiry error rolls the surrounding transaction back, so the
// lazy pending-to-expired flip must be persisted by markExpired afterwards.
func (s *invitationService) ensurePending(invitation *models.Invitation, now time.Time) error {
	if invitation.Status != models.InvitationPending {
		return domain.ErrAlreadyResponded
	}

	if invitation.ExpiredBy(now) {
		return domain.ErrInvitationExpired
	}

	return nil
}

// markExpired persists the lazy expiry flip in its own transaction, after the
// activity transaction that detected the stale deadline has rolled back.
func (s *invitationService) markExpired(ctx context.Context, invitationID uuid.UUID) {
	invitation, err := s.store.Invitations.Get(ctx, invitationID)
	if err != nil {
		s.logger.Warn().Err(err).Str("invitation_id", invitationID.String()).Msg("failed to load invitation for expiry")
		return
	}

	if invitation.Status != models.InvitationPending {
		return
	}

	invitation.Status = models.InvitationExpired
	if err := s.store.Invitations.Update(ctx, &invitation); err != nil {
		s.logger.Warn().Err(err).Str("invitation_id", invitationID.String()).Msg("failed to expire invitation")
	}
}

// expireLazily flips stored-pending-but-expired invitations on read so
// listings never show an acceptable invitation that is already dead.
func (s *invitationService) expireLazily(ctx context.Context, invitations []models.Invitation) []models.Invitation {
	now := s.now()
	for i := range invitations {
		if invitations[i].Status == models.InvitationPending && invitations[i].ExpiredBy(now) {
			invitations[i].Status = models.InvitationExpired
			if err := s.store.Invitations.Update(ctx, &invitations[i]); err != nil {
				s.logger.Warn().Err(err).Str("invitation_id", invitations[i].ID.String()).Msg("failed to expire invitation")
			}
		}
	}

	return invitations
}

func invitationSummary(count int) string {
	if count == 1 {
		return "1 invitation sent successfully"
	}

	return fmt.Sprintf("%d invitation(s) sent successfully", count)
}
