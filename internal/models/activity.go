package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityStatus captures the publication lifecycle of an activity.
type ActivityStatus string

const (
	ActivityStatusDraft     ActivityStatus = "draft"
	ActivityStatusPublished ActivityStatus = "published"
	ActivityStatusCancelled ActivityStatus = "cancelled"
)

// AccessType controls who may join an activity directly.
type AccessType string

const (
	AccessTypeOpen        AccessType = "open"
	AccessTypeFriendsOnly AccessType = "friends_only"
	AccessTypeInviteOnly  AccessType = "invite_only"
)

// Activity is the scheduling, capacity and access snapshot of a group
// activity. The participation engine reads it but never mutates it; the row
// is owned by the activity management service.
type Activity struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"activity_id"`
	OrganizerID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"organizer_user_id"`
	Title            string         `gorm:"size:255;not null" json:"title"`
	ActivityType     string         `gorm:"size:64" json:"activity_type"`
	LocationName     string         `gorm:"size:255" json:"location_name"`
	City             string         `gorm:"size:128" json:"city"`
	ScheduledAt      time.Time      `gorm:"not null;index" json:"scheduled_at"`
	Status           ActivityStatus `gorm:"size:20;not null;default:draft" json:"status"`
	AccessType       AccessType     `gorm:"size:20;not null;default:open" json:"access_type"`
	MaxParticipants  *int           `json:"max_participants"`
	PremiumOnlyUntil *time.Time     `json:"premium_only_until"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Unlimited reports whether the activity has no capacity limit.
func (a Activity) Unlimited() bool {
	return a.MaxParticipants == nil
}

// HasOccurred reports whether the scheduled time has passed.
func (a Activity) HasOccurred(now time.Time) bool {
	return !a.ScheduledAt.After(now)
}

// InPremiumWindow reports whether the premium-only joining window is still
// open at the given instant.
func (a Activity) InPremiumWindow(now time.Time) bool {
	return a.PremiumOnlyUntil != nil && a.PremiumOnlyUntil.After(now)
}
