package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/gatherly/participation-api/internal/service"
	"github.com/gatherly/participation-api/internal/utils"
)

// WaitlistHandler exposes the organizer-facing waitlist view.
type WaitlistHandler struct {
	service service.WaitlistService
	logger  zerolog.Logger
}

// NewWaitlistHandler constructs the handler.
func NewWaitlistHandler(service service.WaitlistService, logger zerolog.Logger) *WaitlistHandler {
	return &WaitlistHandler{
		service: service,
		logger:  logger.With().Str("component", "waitlist_handler").Logger(),
	}
}

// Register attaches waitlist endpoints to the router group.
func (h *WaitlistHandler) Register(router fiber.Router) {
	router.Get("/activities/:activityId/waitlist", h.getWaitlist)
}

func (h *WaitlistHandler) getWaitlist(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	activityID, err := parseUUIDParam(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	limit, offset, err := parsePagination(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.GetWaitlist(c.Context(), activityID, identity, limit, offset)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "waitlist retrieved", response)
}
