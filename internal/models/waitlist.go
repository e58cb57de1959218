package models

import (
	"time"

	"github.com/google/uuid"
)

// WaitlistEntry is one position in an activity's FIFO waitlist. Positions
// within an activity form a gapless sequence starting at 1, ordered by
// enqueue time; the manager renumbers remaining entries whenever one leaves.
type WaitlistEntry struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"waitlist_id"`
	ActivityID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_waitlist_activity_user;index:idx_waitlist_activity_position" json:"activity_id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_waitlist_activity_user" json:"user_id"`
	Position   int        `gorm:"not null;index:idx_waitlist_activity_position" json:"position"`
	CreatedAt  time.Time  `json:"created_at"`
	NotifiedAt *time.Time `json:"notified_at"`
}
