package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/gatherly/participation-api/internal/dto"
	"github.com/gatherly/participation-api/internal/service"
	"github.com/gatherly/participation-api/internal/utils"
)

// ParticipationHandler wires the participation ledger HTTP routes.
type ParticipationHandler struct {
	service service.ParticipationService
	logger  zerolog.Logger
}

// NewParticipationHandler constructs the handler.
func NewParticipationHandler(service service.ParticipationService, logger zerolog.Logger) *ParticipationHandler {
	return &ParticipationHandler{
		service: service,
		logger:  logger.With().Str("component", "participation_handler").Logger(),
	}
}

// Register attaches participation endpoints to the router group.
func (h *ParticipationHandler) Register(router fiber.Router) {
	router.Post("/activities/:activityId/join", h.join)
	router.Delete("/activities/:activityId/leave", h.leave)
	router.Post("/activities/:activityId/cancel", h.cancel)
	router.Post("/activities/:activityId/promote", h.promote)
	router.Post("/activities/:activityId/demote", h.demote)
	router.Get("/activities/:activityId/participants", h.listParticipants)
	router.Get("/users/me/activities", h.myActivities)
	router.Get("/users/:userId/activities", h.userActivities)
}

func (h *ParticipationHandler) join(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	activityID, err := parseUUIDParam(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Join(c.Context(), activityID, identity)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, response.Message, response)
}

func (h *ParticipationHandler) leave(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	activityID, err := parseUUIDParam(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Leave(c.Context(), activityID, identity)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, response.Message, response)
}

func (h *ParticipationHandler) cancel(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	activityID, err := parseUUIDParam(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CancelParticipationRequest
	if err := c.BodyParser(&payload); err != nil && err != fiber.ErrUnprocessableEntity {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Cancel(c.Context(), activityID, identity, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, response.Message, response)
}

func (h *ParticipationHandler) promote(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	activityID, err := parseUUIDParam(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.RoleChangeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Promote(c.Context(), activityID, identity, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, response.Message, response)
}

func (h *ParticipationHandler) demote(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	activityID, err := parseUUIDParam(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.RoleChangeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Demote(c.Context(), activityID, identity, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, response.Message, response)
}

func (h *ParticipationHandler) listParticipants(c *fiber.Ctx) error {
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

	query := service.ParticipantListQuery{
		Status: c.Query("status"),
		Role:   c.Query("role"),
		Limit:  limit,
		Offset: offset,
	}

	response, err := h.service.ListParticipants(c.Context(), activityID, identity, query)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "participants retrieved", response)
}

func (h *ParticipationHandler) myActivities(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	limit, offset, err := parsePagination(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	query := service.UserActivitiesQuery{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	}

	response, err := h.service.UserActivities(c.Context(), identity.UserID, identity, query)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "activities retrieved", response)
}

// userActivities serves another user's history. The service applies the
// privacy rule: a viewer blocked by the target sees an empty listing.
func (h *ParticipationHandler) userActivities(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	userID, err := parseUUIDParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	limit, offset, err := parsePagination(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	query := service.UserActivitiesQuery{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	}

	response, err := h.service.UserActivities(c.Context(), userID, identity, query)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "activities retrieved", response)
}
