package dto

import (
	"time"

	"github.com/google/uuid"
)

// SendInvitationsRequest is a bulk invitation request for one activity.
type SendInvitationsRequest struct {
	UserIDs        []uuid.UUID `json:"user_ids" validate:"required,min=1,max=50"`
	Message        string      `json:"message" validate:"omitempty,max=1000"`
	// Upper bound comes from configuration; the service clamps to it.
	ExpiresInHours int `json:"expires_in_hours" validate:"omitempty,min=1"`
}

// InvitationCreated is one successfully created invitation.
type InvitationCreated struct {
	InvitationID  uuid.UUID `json:"invitation_id"`
	InvitedUserID uuid.UUID `json:"invited_user_id"`
	InvitedAt     time.Time `json:"invited_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// FailedInvitation reports one recipient that could not be invited, with the
// per-recipient reason. Partial success is the normal case for bulk sends.
type FailedInvitation struct {
	UserID uuid.UUID `json:"user_id"`
	Reason string    `json:"reason"`
}

// SendInvitationsResponse summarizes a bulk send.
type SendInvitationsResponse struct {
	ActivityID        uuid.UUID           `json:"activity_id"`
	InvitedCount      int                 `json:"invited_count"`
	FailedCount       int                 `json:"failed_count"`
	Invitations       []InvitationCreated `json:"invitations"`
	FailedInvitations []FailedInvitation  `json:"failed_invitations"`
	Message           string              `json:"message"`
}

// AcceptInvitationResponse reports the accepted invitation and the outcome of
// the join it triggered (registered or waitlisted).
type AcceptInvitationResponse struct {
	InvitationID        uuid.UUID `json:"invitation_id"`
	ActivityID          uuid.UUID `json:"activity_id"`
	Status              string    `json:"status"`
	ParticipationStatus string    `json:"participation_status"`
	WaitlistPosition    *int      `json:"waitlist_position,omitempty"`
	RespondedAt         time.Time `json:"responded_at"`
	Message             string    `json:"message"`
}

// DeclineInvitationResponse reports a declined invitation.
type DeclineInvitationResponse struct {
	InvitationID uuid.UUID `json:"invitation_id"`
	ActivityID   uuid.UUID `json:"activity_id"`
	Status       string    `json:"status"`
	RespondedAt  time.Time `json:"responded_at"`
	Message      string    `json:"message"`
}

// CancelInvitationResponse reports a sender-cancelled invitation.
type CancelInvitationResponse struct {
	InvitationID uuid.UUID `json:"invitation_id"`
	ActivityID   uuid.UUID `json:"activity_id"`
	CancelledAt  time.Time `json:"cancelled_at"`
	Message      string    `json:"message"`
}

// ReceivedInvitationInfo is one invitation from the recipient's point of view.
type ReceivedInvitationInfo struct {
	InvitationID        uuid.UUID  `json:"invitation_id"`
	ActivityID          uuid.UUID  `json:"activity_id"`
	ActivityTitle       string     `json:"activity_title,omitempty"`
	ActivityScheduledAt time.Time  `json:"activity_scheduled_at"`
	InvitedByUserID     uuid.UUID  `json:"invited_by_user_id"`
	InvitedByUsername   string     `json:"invited_by_username,omitempty"`
	Status              string     `json:"status"`
	Message             string     `json:"message,omitempty"`
	InvitedAt           time.Time  `json:"invited_at"`
	ExpiresAt           time.Time  `json:"expires_at"`
	RespondedAt         *time.Time `json:"responded_at"`
}

// ReceivedInvitationsResponse is a paginated recipient listing.
type ReceivedInvitationsResponse struct {
	TotalCount  int64                    `json:"total_count"`
	Invitations []ReceivedInvitationInfo `json:"invitations"`
}

// SentInvitationInfo is one invitation from the sender's point of view.
type SentInvitationInfo struct {
	InvitationID    uuid.UUID  `json:"invitation_id"`
	ActivityID      uuid.UUID  `json:"activity_id"`
	ActivityTitle   string     `json:"activity_title,omitempty"`
	InvitedUserID   uuid.UUID  `json:"invited_user_id"`
	InvitedUsername string     `json:"invited_username,omitempty"`
	Status          string     `json:"status"`
	Message         string     `json:"message,omitempty"`
	InvitedAt       time.Time  `json:"invited_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	RespondedAt     *time.Time `json:"responded_at"`
}

// SentInvitationsResponse is a paginated sender listing.
type SentInvitationsResponse struct {
	TotalCount  int64                `json:"total_count"`
	Invitations []SentInvitationInfo `json:"invitations"`
}
