package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gatherly/participation-api/internal/service"
	"github.com/gatherly/participation-api/internal/utils"
)

// IdentityKey is the Locals key under which the authenticated identity is stored.
const IdentityKey = "identity"

// JWTProtected returns a middleware that validates JWT bearer tokens and
// stores the decoded identity in the request context.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		identity, err := identityFromClaims(claims)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token subject")
		}

		c.Locals(IdentityKey, identity)

		return c.Next()
	}
}

// IdentityFromLocals retrieves the authenticated identity stored by JWTProtected.
func IdentityFromLocals(c *fiber.Ctx) (service.Identity, bool) {
	identity, ok := c.Locals(IdentityKey).(service.Identity)
	return identity, ok
}

func identityFromClaims(claims jwt.MapClaims) (service.Identity, error) {
	subject, err := claims.GetSubject()
	if err != nil {
		return service.Identity{}, err
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return service.Identity{}, fmt.Errorf("parse subject: %w", err)
	}

	identity := service.Identity{
		UserID:            userID,
		SubscriptionLevel: service.SubscriptionFree,
	}

	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}

	if level, ok := claims["subscription_level"].(string); ok && level != "" {
		identity.SubscriptionLevel = strings.ToLower(strings.TrimSpace(level))
	}

	if banned, ok := claims["is_banned"].(bool); ok {
		identity.IsBanned = banned
	}

	if raw, ok := claims["org_id"].(string); ok && raw != "" {
		if orgID, err := uuid.Parse(raw); err == nil {
			identity.OrgID = &orgID
		}
	}

	return identity, nil
}
