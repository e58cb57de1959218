package dto

import (
	"time"

	"github.com/google/uuid"
)

// CancelParticipationRequest carries the optional cancellation reason.
type CancelParticipationRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// RoleChangeRequest identifies the participant being promoted or demoted.
type RoleChangeRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// JoinActivityResponse reports the outcome of a join attempt. WaitlistPosition
// is set only when the activity was full and the user was queued instead.
type JoinActivityResponse struct {
	ActivityID          uuid.UUID `json:"activity_id"`
	UserID              uuid.UUID `json:"user_id"`
	Role                string    `json:"role,omitempty"`
	ParticipationStatus string    `json:"participation_status"`
	WaitlistPosition    *int      `json:"waitlist_position,omitempty"`
	JoinedAt            time.Time `json:"joined_at"`
	Message             string    `json:"message"`
}

// WaitlistPromotedInfo identifies the user promoted into a freed slot.
type WaitlistPromotedInfo struct {
	UserID     uuid.UUID `json:"user_id"`
	PromotedAt time.Time `json:"promoted_at"`
}

// LeaveActivityResponse reports a completed leave and any resulting promotion.
type LeaveActivityResponse struct {
	ActivityID       uuid.UUID             `json:"activity_id"`
	UserID           uuid.UUID             `json:"user_id"`
	LeftAt           time.Time             `json:"left_at"`
	WaitlistPromoted *WaitlistPromotedInfo `json:"waitlist_promoted,omitempty"`
	Message          string                `json:"message"`
}

// CancelParticipationResponse reports a cancellation kept as audit trail.
type CancelParticipationResponse struct {
	ActivityID          uuid.UUID             `json:"activity_id"`
	UserID              uuid.UUID             `json:"user_id"`
	ParticipationStatus string                `json:"participation_status"`
	LeftAt              time.Time             `json:"left_at"`
	WaitlistPromoted    *WaitlistPromotedInfo `json:"waitlist_promoted,omitempty"`
	Message             string                `json:"message"`
}

// RoleChangeResponse reports a promotion or demotion.
type RoleChangeResponse struct {
	ActivityID uuid.UUID `json:"activity_id"`
	UserID     uuid.UUID `json:"user_id"`
	Role       string    `json:"role"`
	ChangedAt  time.Time `json:"changed_at"`
	Message    string    `json:"message"`
}

// ParticipantInfo is one participant row enriched with display data.
type ParticipantInfo struct {
	UserID              uuid.UUID `json:"user_id"`
	Username            string    `json:"username,omitempty"`
	FirstName           string    `json:"first_name,omitempty"`
	LastName            string    `json:"last_name,omitempty"`
	ProfilePhotoURL     string    `json:"profile_photo_url,omitempty"`
	Role                string    `json:"role"`
	ParticipationStatus string    `json:"participation_status"`
	AttendanceStatus    string    `json:"attendance_status"`
	JoinedAt            time.Time `json:"joined_at"`
	IsVerified          bool      `json:"is_verified"`
	VerificationCount   int       `json:"verification_count"`
}

// ListParticipantsResponse is a filtered, paginated participant listing.
type ListParticipantsResponse struct {
	ActivityID   uuid.UUID         `json:"activity_id"`
	TotalCount   int64             `json:"total_count"`
	Participants []ParticipantInfo `json:"participants"`
}

// ActivityInfo is one row of a user's activity history.
type ActivityInfo struct {
	ActivityID          uuid.UUID `json:"activity_id"`
	Title               string    `json:"title"`
	ScheduledAt         time.Time `json:"scheduled_at"`
	LocationName        string    `json:"location_name,omitempty"`
	City                string    `json:"city,omitempty"`
	OrganizerUserID     uuid.UUID `json:"organizer_user_id"`
	OrganizerUsername   string    `json:"organizer_username,omitempty"`
	CurrentParticipants int64     `json:"current_participants_count"`
	MaxParticipants     *int      `json:"max_participants"`
	ActivityType        string    `json:"activity_type,omitempty"`
	Role                string    `json:"role"`
	ParticipationStatus string    `json:"participation_status"`
	AttendanceStatus    string    `json:"attendance_status"`
	JoinedAt            time.Time `json:"joined_at"`
}

// UserActivitiesResponse lists a user's activities for a viewer.
type UserActivitiesResponse struct {
	UserID     uuid.UUID      `json:"user_id"`
	TotalCount int64          `json:"total_count"`
	Activities []ActivityInfo `json:"activities"`
}
