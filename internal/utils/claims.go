package utils

import (
	"errors"

	"ledgerwallet/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ClaimsLocal is the fiber.Ctx locals key holding the verified claims.
const ClaimsLocal = "claims"

// GetClaims extracts the verified claims from the Fiber context.
// It returns an error if the claims are missing or of an invalid type.
func GetClaims(c *fiber.Ctx) (*models.Claims, error) {
	v := c.Locals(ClaimsLocal)
	if v == nil {
		return nil, errors.New("claims not found in context")
	}

	claims, ok := v.(*models.Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}
