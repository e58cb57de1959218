package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gatherly/participation-api/internal/dto"
	"github.com/gatherly/participation-api/internal/service"
	"github.com/gatherly/participation-api/internal/utils"
)

// InvitationHandler wires the invitation lifecycle HTTP routes.
type InvitationHandler struct {
	service service.InvitationService
	logger  zerolog.Logger
}

// NewInvitationHandler constructs the handler.
func NewInvitationHandler(service service.InvitationService, logger zerolog.Logger) *InvitationHandler {
	return &InvitationHandler{
		service: service,
		logger:  logger.With().Str("component", "invitation_handler").Logger(),
	}
}

// Register attaches invitation endpoints to the router group.
func (h *InvitationHandler) Register(router fiber.Router) {
	router.Post("/activities/:activityId/invitations", h.send)
	router.Post("/invitations/:invitationId/accept", h.accept)
	router.Post("/invitations/:invitationId/decline", h.decline)
	router.Delete("/invitations/:invitationId", h.cancel)
	router.Get("/invitations/received", h.listReceived)
	router.Get("/invitations/sent", h.listSent)
}

func (h *InvitationHandler) send(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	activityID, err := parseUUIDParam(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SendInvitationsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Send(c.Context(), activityID, identity, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, response.Message, response)
}

func (h *InvitationHandler) accept(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	invitationID, err := parseUUIDParam(c, "invitationId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Accept(c.Context(), invitationID, identity)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, response.Message, response)
}

func (h *InvitationHandler) decline(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	invitationID, err := parseUUIDParam(c, "invitationId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Decline(c.Context(), invitationID, identity)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, response.Message, response)
}

func (h *InvitationHandler) cancel(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	invitationID, err := parseUUIDParam(c, "invitationId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Cancel(c.Context(), invitationID, identity)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, response.Message, response)
}

func (h *InvitationHandler) listReceived(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	query, err := h.listQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.ListReceived(c.Context(), identity, query)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "invitations retrieved", response)
}

func (h *InvitationHandler) listSent(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	query, err := h.listQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.ListSent(c.Context(), identity, query)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "invitations retrieved", response)
}

func (h *InvitationHandler) listQuery(c *fiber.Ctx) (service.ListInvitationsQuery, error) {
	limit, offset, err := parsePagination(c)
	if err != nil {
		return service.ListInvitationsQuery{}, err
	}

	query := service.ListInvitationsQuery{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	}

	if raw := c.Query("activity_id"); raw != "" {
		activityID, err := uuid.Parse(raw)
		if err != nil {
			return service.ListInvitationsQuery{}, err
		}
		query.ActivityID = &activityID
	}

	return query, nil
}
