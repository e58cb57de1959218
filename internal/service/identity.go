package service

import "github.com/google/uuid"

// Subscription levels carried by the identity context.
const (
	SubscriptionFree    = "free"
	SubscriptionClub    = "club"
	SubscriptionPremium = "premium"
)

// Identity is the already-authenticated principal acting on the engine. It is
// supplied by the JWT boundary and trusted as-is.
type Identity struct {
	UserID            uuid.UUID
	Email             string
	SubscriptionLevel string
	IsBanned          bool
	OrgID             *uuid.UUID
}

// Premium reports whether the identity holds a premium subscription.
func (i Identity) Premium() bool {
	return i.SubscriptionLevel == SubscriptionPremium
}
