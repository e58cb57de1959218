package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceConfirmation records one attended participant vouching that
// another also attended. The (activity, confirmer, confirmed) triple is
// unique; each row increments the confirmed user's verification count exactly
// once.
type AttendanceConfirmation struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"confirmation_id"`
	ActivityID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_confirmation_triple" json:"activity_id"`
	ConfirmerUserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_confirmation_triple" json:"confirmer_user_id"`
	ConfirmedUserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_confirmation_triple" json:"confirmed_user_id"`
	CreatedAt       time.Time `json:"created_at"`
}
