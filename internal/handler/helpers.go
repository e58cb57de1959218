package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gatherly/participation-api/internal/domain"
	"github.com/gatherly/participation-api/internal/middleware"
	"github.com/gatherly/participation-api/internal/service"
	"github.com/gatherly/participation-api/internal/utils"
)

func identityFromContext(c *fiber.Ctx) (service.Identity, bool) {
	return middleware.IdentityFromLocals(c)
}

func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	value := c.Params(name)
	parsed, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, errors.New("invalid identifier")
	}
	return parsed, nil
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parsePagination(c *fiber.Ctx) (limit, offset int, err error) {
	limit, err = parseQueryInt(c, "limit")
	if err != nil {
		return 0, 0, errors.New("invalid limit")
	}
	offset, err = parseQueryInt(c, "offset")
	if err != nil {
		return 0, 0, errors.New("invalid offset")
	}
	if limit < 0 || offset < 0 {
		return 0, 0, errors.New("pagination values must not be negative")
	}
	return limit, offset, nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// statusForKind maps a domain failure class to its HTTP status. Contention is
// the only retryable class and is surfaced as 503 with a Retry-After hint.
func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindForbidden:
		return fiber.StatusForbidden
	case domain.KindContention:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusBadRequest
	}
}

func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		if domainErr.Retryable() {
			c.Set("Retry-After", "1")
		}
		return utils.SendErrorCode(c, statusForKind(domainErr.Kind), domainErr.Code, domainErr.Message)
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	}

	requestLogger(logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
