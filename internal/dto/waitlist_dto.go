package dto

import (
	"time"

	"github.com/google/uuid"
)

// WaitlistEntryInfo is one queued user, ordered by position.
type WaitlistEntryInfo struct {
	WaitlistID      uuid.UUID  `json:"waitlist_id"`
	UserID          uuid.UUID  `json:"user_id"`
	Username        string     `json:"username,omitempty"`
	FirstName       string     `json:"first_name,omitempty"`
	ProfilePhotoURL string     `json:"profile_photo_url,omitempty"`
	Position        int        `json:"position"`
	CreatedAt       time.Time  `json:"created_at"`
	NotifiedAt      *time.Time `json:"notified_at"`
}

// WaitlistResponse is the organizer-facing waitlist view.
type WaitlistResponse struct {
	ActivityID uuid.UUID           `json:"activity_id"`
	TotalCount int64               `json:"total_count"`
	Waitlist   []WaitlistEntryInfo `json:"waitlist"`
}
