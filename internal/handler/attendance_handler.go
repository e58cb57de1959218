package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/gatherly/participation-api/internal/dto"
	"github.com/gatherly/participation-api/internal/service"
	"github.com/gatherly/participation-api/internal/utils"
)

// AttendanceHandler wires attendance marking and verification HTTP routes.
type AttendanceHandler struct {
	service service.AttendanceService
	logger  zerolog.Logger
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service service.AttendanceService, logger zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		logger:  logger.With().Str("component", "attendance_handler").Logger(),
	}
}

// Register attaches attendance endpoints to the router group.
func (h *AttendanceHandler) Register(router fiber.Router) {
	router.Post("/activities/:activityId/attendance", h.mark)
	router.Post("/attendance/confirm", h.confirm)
	router.Get("/users/me/pending-verifications", h.pendingVerifications)
}

func (h *AttendanceHandler) mark(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	activityID, err := parseUUIDParam(c, "activityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.MarkAttendanceRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Mark(c.Context(), activityID, identity, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, response.Message, response)
}

func (h *AttendanceHandler) confirm(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.ConfirmAttendanceRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Confirm(c.Context(), identity, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, response.Message, response)
}

func (h *AttendanceHandler) pendingVerifications(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	limit, offset, err := parsePagination(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.PendingVerifications(c.Context(), identity, limit, offset)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "pending verifications retrieved", response)
}
