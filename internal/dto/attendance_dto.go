package dto

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceEntry sets one participant's attendance outcome.
type AttendanceEntry struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Status string    `json:"status" validate:"required,oneof=attended no_show"`
}

// MarkAttendanceRequest is a bulk attendance update for one activity.
type MarkAttendanceRequest struct {
	Attendances []AttendanceEntry `json:"attendances" validate:"required,min=1,max=100,dive"`
}

// AttendanceUpdate is one applied attendance change.
type AttendanceUpdate struct {
	UserID    uuid.UUID `json:"user_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FailedAttendanceUpdate reports one entry that could not be applied.
type FailedAttendanceUpdate struct {
	UserID uuid.UUID `json:"user_id"`
	Reason string    `json:"reason"`
}

// MarkAttendanceResponse summarizes a bulk attendance update; failed entries
// are reported individually rather than failing the whole request.
type MarkAttendanceResponse struct {
	ActivityID    uuid.UUID                `json:"activity_id"`
	UpdatedCount  int                      `json:"updated_count"`
	Attendances   []AttendanceUpdate       `json:"attendances"`
	FailedUpdates []FailedAttendanceUpdate `json:"failed_updates,omitempty"`
	Message       string                   `json:"message"`
}

// ConfirmAttendanceRequest is a peer verification of another attendee.
type ConfirmAttendanceRequest struct {
	ActivityID      uuid.UUID `json:"activity_id" validate:"required"`
	ConfirmedUserID uuid.UUID `json:"confirmed_user_id" validate:"required"`
}

// ConfirmAttendanceResponse reports a recorded confirmation and the confirmed
// user's new verification count.
type ConfirmAttendanceResponse struct {
	ConfirmationID    uuid.UUID `json:"confirmation_id"`
	ActivityID        uuid.UUID `json:"activity_id"`
	ConfirmedUserID   uuid.UUID `json:"confirmed_user_id"`
	ConfirmerUserID   uuid.UUID `json:"confirmer_user_id"`
	CreatedAt         time.Time `json:"created_at"`
	VerificationCount int       `json:"verification_count_updated"`
	Message           string    `json:"message"`
}

// PendingVerificationParticipant is a co-attendee not yet confirmed.
type PendingVerificationParticipant struct {
	UserID          uuid.UUID `json:"user_id"`
	Username        string    `json:"username,omitempty"`
	ProfilePhotoURL string    `json:"profile_photo_url,omitempty"`
}

// PendingVerificationActivity groups unconfirmed co-attendees per activity.
type PendingVerificationActivity struct {
	ActivityID            uuid.UUID                        `json:"activity_id"`
	Title                 string                           `json:"title"`
	ScheduledAt           time.Time                        `json:"scheduled_at"`
	ParticipantsToConfirm []PendingVerificationParticipant `json:"participants_to_confirm"`
}

// PendingVerificationsResponse lists activities where the caller attended but
// has not yet confirmed every other attended participant.
type PendingVerificationsResponse struct {
	TotalCount           int64                         `json:"total_count"`
	PendingVerifications []PendingVerificationActivity `json:"pending_verifications"`
}
