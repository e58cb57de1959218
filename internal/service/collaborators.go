package service

import (
	"context"

	"github.com/google/uuid"
)

// SocialGraph answers blocking and friendship questions. The participation
// engine consumes it as an opaque predicate; the social service owns the data.
type SocialGraph interface {
	// IsBlocked reports whether owner has blocked user.
	IsBlocked(ctx context.Context, ownerID, userID uuid.UUID) (bool, error)
	// AreFriends reports whether the two users are friends.
	AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error)
	// BlockedUserIDs returns the users the viewer has blocked or is blocked by,
	// used to filter participant listings.
	BlockedUserIDs(ctx context.Context, viewerID uuid.UUID) ([]uuid.UUID, error)
}

// UserStats is the external owner of user-level counters such as no-shows.
type UserStats interface {
	IncrementNoShow(ctx context.Context, userID uuid.UUID) error
}

// UserDisplay carries denormalized display fields for list responses.
type UserDisplay struct {
	Username        string
	FirstName       string
	LastName        string
	ProfilePhotoURL string
}

// DisplayProvider enriches list responses with user display data owned by the
// profile service.
type DisplayProvider interface {
	UserDisplays(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]UserDisplay, error)
}

type openSocialGraph struct{}

// NewOpenSocialGraph returns a SocialGraph with no blocks and universal
// friendship, for deployments where the social service is not yet wired.
func NewOpenSocialGraph() SocialGraph {
	return openSocialGraph{}
}

func (openSocialGraph) IsBlocked(ctx context.Context, ownerID, userID uuid.UUID) (bool, error) {
	return false, nil
}

func (openSocialGraph) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	return true, nil
}

func (openSocialGraph) BlockedUserIDs(ctx context.Context, viewerID uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

type discardUserStats struct{}

// NewDiscardUserStats returns a UserStats sink that drops updates.
func NewDiscardUserStats() UserStats {
	return discardUserStats{}
}

func (discardUserStats) IncrementNoShow(ctx context.Context, userID uuid.UUID) error {
	return nil
}

type emptyDisplayProvider struct{}

// NewEmptyDisplayProvider returns a DisplayProvider that supplies no display
// fields; responses fall back to bare identifiers.
func NewEmptyDisplayProvider() DisplayProvider {
	return emptyDisplayProvider{}
}

func (emptyDisplayProvider) UserDisplays(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]UserDisplay, error) {
	return map[uuid.UUID]UserDisplay{}, nil
}
