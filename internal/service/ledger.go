package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gatherly/participation-api/internal/domain"
	"github.com/gatherly/participation-api/internal/models"
	"github.com/gatherly/participation-api/internal/repository"
)

// joinPolicy tunes the shared join algorithm for its two entry points: direct
// joins and invitation acceptance (which bypasses the invite-only gate).
type joinPolicy struct {
	bypassInviteGate      bool
	premiumExemptCapacity int
}

// joinOutcome is the result of a successful join: either a registered member
// or a waitlisted user with an assigned position.
type joinOutcome struct {
	status   models.ParticipationStatus
	role     models.ParticipantRole
	position *int
}

// executeJoin runs the capacity-checked join algorithm inside an already
// activity-locked transaction. Invitation acceptance and direct joining both
// funnel through here so they obey identical capacity and waitlist rules.
func executeJoin(ctx context.Context, store repository.Store, activity models.Activity, identity Identity, social SocialGraph, policy joinPolicy, now time.Time) (joinOutcome, error) {
	if identity.IsBanned {
		return joinOutcome{}, domain.ErrUserBanned
	}

	if activity.Status != models.ActivityStatusPublished {
		return joinOutcome{}, domain.ErrActivityNotPublished
	}

	if activity.HasOccurred(now) {
		return joinOutcome{}, domain.ErrActivityInPast
	}

	if identity.UserID == activity.OrganizerID {
		return joinOutcome{}, domain.ErrUserIsOrganizer
	}

	existing, err := store.Participants.Get(ctx, activity.ID, identity.UserID)
	revive := false
	switch {
	case err == nil:
		switch existing.ParticipationStatus {
		case models.ParticipationCancelled, models.ParticipationDeclined:
			revive = true
		default:
			return joinOutcome{}, domain.ErrAlreadyJoined
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return joinOutcome{}, err
	}

	blocked, err := social.IsBlocked(ctx, activity.OrganizerID, identity.UserID)
	if err != nil {
		return joinOutcome{}, err
	}
	if blocked {
		return joinOutcome{}, domain.ErrBlockedUser
	}

	switch activity.AccessType {
	case models.AccessTypeFriendsOnly:
		friends, err := social.AreFriends(ctx, activity.OrganizerID, identity.UserID)
		if err != nil {
			return joinOutcome{}, err
		}
		if !friends {
			return joinOutcome{}, domain.ErrFriendsOnly
		}
	case models.AccessTypeInviteOnly:
		if !policy.bypassInviteGate {
			if err := requireAcceptedInvitation(ctx, store, activity.ID, identity.UserID); err != nil {
				return joinOutcome{}, err
			}
		}
	}

	if activity.InPremiumWindow(now) && !identity.Premium() && !premiumExempt(activity, policy.premiumExemptCapacity) {
		return joinOutcome{}, domain.ErrPremiumOnlyPeriod
	}

	registered, err := store.Participants.CountRegistered(ctx, activity.ID)
	if err != nil {
		return joinOutcome{}, err
	}

	hasSlot := activity.Unlimited() || registered < int64(*activity.MaxParticipants)
	if hasSlot {
		if err := upsertParticipant(ctx, store, existing, revive, activity.ID, identity.UserID, models.ParticipationRegistered, now); err != nil {
			return joinOutcome{}, err
		}

		return joinOutcome{status: models.ParticipationRegistered, role: models.RoleMember}, nil
	}

	position, err := enqueueWaitlist(ctx, store, activity.ID, identity.UserID, now)
	if err != nil {
		return joinOutcome{}, err
	}

	if err := upsertParticipant(ctx, store, existing, revive, activity.ID, identity.UserID, models.ParticipationWaitlisted, now); err != nil {
		return joinOutcome{}, err
	}

	return joinOutcome{status: models.ParticipationWaitlisted, role: models.RoleMember, position: &position}, nil
}

// requireAcceptedInvitation enforces the invite-only direct-join gate: the
// user must hold an accepted invitation for this activity.
func requireAcceptedInvitation(ctx context.Context, store repository.Store, activityID, userID uuid.UUID) error {
	filter := repository.InvitationFilter{ActivityID: &activityID, Status: models.InvitationAccepted, Limit: 1}
	invitations, _, err := store.Invitations.ListReceived(ctx, userID, filter)
	if err != nil {
		return err
	}
	if len(invitations) == 0 {
		return domain.ErrInviteOnly
	}

	return nil
}

// premiumExempt reports whether the activity is large enough to skip the
// premium-only joining window.
func premiumExempt(activity models.Activity, exemptCapacity int) bool {
	if activity.Unlimited() {
		return true
	}

	return exemptCapacity > 0 && *activity.MaxParticipants >= exemptCapacity
}

func upsertParticipant(ctx context.Context, store repository.Store, existing models.Participant, revive bool, activityID, userID uuid.UUID, status models.ParticipationStatus, now time.Time) error {
	if revive {
		existing.ParticipationStatus = status
		existing.Role = models.RoleMember
		existing.AttendanceStatus = models.AttendancePending
		existing.CancellationReason = ""
		existing.JoinedAt = now
		return store.Participants.Update(ctx, &existing)
	}

	participant := models.Participant{
		ActivityID:          activityID,
		UserID:              userID,
		Role:                models.RoleMember,
		ParticipationStatus: status,
		AttendanceStatus:    models.AttendancePending,
		JoinedAt:            now,
	}

	return store.Participants.Create(ctx, &participant)
}

// enqueueWaitlist appends the user at the tail of the activity's waitlist and
// returns the assigned position (1 when the waitlist is empty).
func enqueueWaitlist(ctx context.Context, store repository.Store, activityID, userID uuid.UUID, now time.Time) (int, error) {
	max, err := store.Waitlist.MaxPosition(ctx, activityID)
	if err != nil {
		return 0, err
	}

	entry := models.WaitlistEntry{
		ID:         uuid.New(),
		ActivityID: activityID,
		UserID:     userID,
		Position:   max + 1,
		CreatedAt:  now,
	}
	if err := store.Waitlist.Create(ctx, &entry); err != nil {
		return 0, err
	}

	return entry.Position, nil
}

// promoteNext converts the head of the waitlist into a registered participant
// and renumbers the remaining entries so positions stay gapless from 1. It
// returns nil when the waitlist is empty. Must run inside the same
// activity-locked transaction as the leave or cancel that freed the slot.
func promoteNext(ctx context.Context, store repository.Store, activity models.Activity, now time.Time) (*models.WaitlistEntry, error) {
	entry, err := store.Waitlist.First(ctx, activity.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	participant, err := store.Participants.Get(ctx, activity.ID, entry.UserID)
	switch {
	case err == nil:
		participant.ParticipationStatus = models.ParticipationRegistered
		participant.Role = models.RoleMember
		if err := store.Participants.Update(ctx, &participant); err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		created := models.Participant{
			ActivityID:          activity.ID,
			UserID:              entry.UserID,
			Role:                models.RoleMember,
			ParticipationStatus: models.ParticipationRegistered,
			AttendanceStatus:    models.AttendancePending,
			JoinedAt:            now,
		}
		if err := store.Participants.Create(ctx, &created); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := store.Waitlist.Delete(ctx, entry.ID); err != nil {
		return nil, err
	}

	if err := store.Waitlist.ShiftAfter(ctx, activity.ID, entry.Position); err != nil {
		return nil, err
	}

	// The entry row is gone at this point, so the notification timestamp
	// lives in the audit log.
	if err := writeLog(ctx, store, activity.ID, entry.UserID, models.LogActionWaitlist, map[string]interface{}{
		"promoted_from_position": entry.Position,
		"notified_at":            now.Format(time.RFC3339),
	}); err != nil {
		return nil, err
	}

	return &entry, nil
}

// removeWaitlistEntry deletes the user's waitlist entry and closes the gap it
// leaves behind.
func removeWaitlistEntry(ctx context.Context, store repository.Store, activityID, userID uuid.UUID) error {
	entry, err := store.Waitlist.FindByUser(ctx, activityID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if err := store.Waitlist.Delete(ctx, entry.ID); err != nil {
		return err
	}

	return store.Waitlist.ShiftAfter(ctx, activityID, entry.Position)
}

func writeLog(ctx context.Context, store repository.Store, activityID, actorID uuid.UUID, action string, metadata map[string]interface{}) error {
	entry := models.ParticipationLog{
		ActivityID: activityID,
		ActorID:    actorID,
		Action:     action,
		Metadata:   datatypes.JSONMap(metadata),
	}

	return store.Logs.Create(ctx, &entry)
}
