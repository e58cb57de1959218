package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/gatherly/participation-api/internal/domain"
	"github.com/gatherly/participation-api/internal/dto"
	"github.com/gatherly/participation-api/internal/models"
	"github.com/gatherly/participation-api/internal/repository"
)

// WaitlistService exposes the organizer-facing waitlist view. Enqueue and
// promotion are internal ledger operations; they run only inside the join,
// leave and cancel transactions.
type WaitlistService interface {
	GetWaitlist(ctx context.Context, activityID uuid.UUID, viewer Identity, limit, offset int) (dto.WaitlistResponse, error)
}

type waitlistService struct {
	store   repository.Store
	display DisplayProvider
	logger  zerolog.Logger
}

// NewWaitlistService builds the waitlist view service.
func NewWaitlistService(store repository.Store, display DisplayProvider, logger zerolog.Logger) WaitlistService {
	return &waitlistService{
		store:   store,
		display: display,
		logger:  logger.With().Str("component", "waitlist_service").Logger(),
	}
}

func (s *waitlistService) GetWaitlist(ctx context.Context, activityID uuid.UUID, viewer Identity, limit, offset int) (dto.WaitlistResponse, error) {
	if _, err := s.store.Activities.Get(ctx, activityID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.WaitlistResponse{}, domain.ErrActivityNotFound
		}
		return dto.WaitlistResponse{}, err
	}

	viewerRow, err := s.store.Participants.Get(ctx, activityID, viewer.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.WaitlistResponse{}, domain.ErrNotAuthorized
		}
		return dto.WaitlistResponse{}, err
	}

	if viewerRow.Role != models.RoleOrganizer && viewerRow.Role != models.RoleCoOrganizer {
		return dto.WaitlistResponse{}, domain.ErrNotAuthorized
	}

	entries, total, err := s.store.Waitlist.List(ctx, activityID, normalizeLimit(limit, 50), offset)
	if err != nil {
		return dto.WaitlistResponse{}, err
	}

	userIDs := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		userIDs = append(userIDs, entry.UserID)
	}

	displays, err := s.display.UserDisplays(ctx, userIDs)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load display data")
		displays = map[uuid.UUID]UserDisplay{}
	}

	waitlist := make([]dto.WaitlistEntryInfo, 0, len(entries))
	for _, entry := range entries {
		display := displays[entry.UserID]
		waitlist = append(waitlist, dto.WaitlistEntryInfo{
			WaitlistID:      entry.ID,
			UserID:          entry.UserID,
			Username:        display.Username,
			FirstName:       display.FirstName,
			ProfilePhotoURL: display.ProfilePhotoURL,
			Position:        entry.Position,
			CreatedAt:       entry.CreatedAt,
			NotifiedAt:      entry.NotifiedAt,
		})
	}

	return dto.WaitlistResponse{
		ActivityID: activityID,
		TotalCount: total,
		Waitlist:   waitlist,
	}, nil
}
