package models

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantRole is the role a user holds within one activity. The organizer
// role is assigned when the activity is created and never changes.
type ParticipantRole string

const (
	RoleOrganizer   ParticipantRole = "organizer"
	RoleCoOrganizer ParticipantRole = "co_organizer"
	RoleMember      ParticipantRole = "member"
)

// ParticipationStatus tracks a participant's registration state.
type ParticipationStatus string

const (
	ParticipationRegistered ParticipationStatus = "registered"
	ParticipationCancelled  ParticipationStatus = "cancelled"
	ParticipationDeclined   ParticipationStatus = "declined"
	ParticipationWaitlisted ParticipationStatus = "waitlisted"
)

// AttendanceStatus tracks whether a participant showed up.
type AttendanceStatus string

const (
	AttendancePending  AttendanceStatus = "pending"
	AttendanceAttended AttendanceStatus = "attended"
	AttendanceNoShow   AttendanceStatus = "no_show"
)

// Participant is a user's membership record in a single activity. At most one
// row exists per (activity, user); rows with status cancelled or declined do
// not count toward capacity.
type Participant struct {
	ID                  uint                `gorm:"primaryKey" json:"id"`
	ActivityID          uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_participant_activity_user" json:"activity_id"`
	UserID              uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_participant_activity_user" json:"user_id"`
	Role                ParticipantRole     `gorm:"size:20;not null;default:member" json:"role"`
	ParticipationStatus ParticipationStatus `gorm:"size:20;not null;default:registered" json:"participation_status"`
	AttendanceStatus    AttendanceStatus    `gorm:"size:20;not null;default:pending" json:"attendance_status"`
	CancellationReason  string              `gorm:"size:500" json:"cancellation_reason,omitempty"`
	VerificationCount   int                 `gorm:"not null;default:0" json:"verification_count"`
	JoinedAt            time.Time           `gorm:"not null" json:"joined_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// CountsTowardCapacity reports whether the row occupies a registered slot.
func (p Participant) CountsTowardCapacity() bool {
	return p.ParticipationStatus == ParticipationRegistered
}

// Verified derives the peer-verification flag from the configured threshold.
func (p Participant) Verified(threshold int) bool {
	if threshold <= 0 {
		return false
	}
	return p.VerificationCount >= threshold
}
