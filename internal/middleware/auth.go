// Package middleware provides HTTP middleware components for the application.
// It includes authentication, authorization, and request metrics for the
// fiber web framework.
package middleware

import (
	"strings"

	"ledgerwallet/internal/utils"
	"ledgerwallet/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthMiddleware validates bearer tokens signed with the shared HS256 secret.
type AuthMiddleware struct {
	secret string
	logger *zap.Logger
}

func NewAuthMiddleware(secret string, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{
		secret: secret,
		logger: logger,
	}
}

// Handler validates the bearer token and stores its claims in Locals.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return response.Error(c, fiber.StatusUnauthorized, "missing authorization header")
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return response.Error(c, fiber.StatusUnauthorized, "invalid authorization format")
	}

	claims, err := utils.ParseToken(m.secret, strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		m.logger.Debug("token validation failed", zap.Error(err))
		return response.Error(c, fiber.StatusUnauthorized, "invalid token")
	}

	c.Locals(utils.ClaimsLocal, claims)
	return c.Next()
}

// RequireScope returns a middleware that checks for a specific scope and, when
// the route has an :id parameter, that the token may access that account.
func RequireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := utils.GetClaims(c)
		if err != nil {
			return response.Unauthorized(c)
		}

		if !claims.HasScope(scope) {
			return response.Forbidden(c, "insufficient scope")
		}
		if id := c.Params("id"); id != "" && !claims.CanAccess(id) {
			return response.Forbidden(c, "account not accessible")
		}

		return c.Next()
	}
}
