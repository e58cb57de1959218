package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Ledger actions recorded in the participation audit trail.
const (
	LogActionJoin     = "join"
	LogActionLeave    = "leave"
	LogActionCancel   = "cancel"
	LogActionPromote  = "promote"
	LogActionDemote   = "demote"
	LogActionWaitlist = "waitlist"
)

// ParticipationLog captures auditable ledger mutations (joins, leaves,
// cancellations with their reason, role changes, waitlist promotions).
type ParticipationLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActivityID uuid.UUID         `gorm:"type:uuid;not null;index" json:"activity_id"`
	ActorID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"actor_id"`
	Action     string            `gorm:"size:32;not null" json:"action"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}
