package models

import (
	"time"

	"github.com/google/uuid"
)

// InvitationStatus tracks the invitation lifecycle. Every state other than
// pending is terminal.
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationDeclined  InvitationStatus = "declined"
	InvitationExpired   InvitationStatus = "expired"
	InvitationCancelled InvitationStatus = "cancelled"
)

// Invitation is a time-bounded offer to join an invite-only activity. At most
// one pending invitation exists per (activity, invited user).
type Invitation struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"invitation_id"`
	ActivityID    uuid.UUID        `gorm:"type:uuid;not null;index:idx_invitation_activity_user" json:"activity_id"`
	InvitedBy     uuid.UUID        `gorm:"type:uuid;not null;index" json:"invited_by_user_id"`
	InvitedUserID uuid.UUID        `gorm:"type:uuid;not null;index:idx_invitation_activity_user;index" json:"invited_user_id"`
	Status        InvitationStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	Message       string           `gorm:"size:1000" json:"message,omitempty"`
	InvitedAt     time.Time        `gorm:"not null" json:"invited_at"`
	ExpiresAt     time.Time        `gorm:"not null" json:"expires_at"`
	RespondedAt   *time.Time       `json:"responded_at"`
}

// ExpiredBy reports whether the invitation's deadline has passed. Expiry is
// evaluated lazily: a stored status of pending past this deadline is treated
// as expired and flipped on next touch.
func (i Invitation) ExpiredBy(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}
