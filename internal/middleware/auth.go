package middleware

import (
	"strconv"
	"strings"

	"github.com/fitclub-app/GymClubBack/internal/models"
	"github.com/fitclub-app/GymClubBack/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// AuthRequired validates the bearer token and stores the resolved
// principal in the request locals. The role is normalized to the
// closed role set here; downstream code never sees free-form strings.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
				"code":  "UNAUTHORIZED",
			})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
				"code":  "UNAUTHORIZED",
			})
		}

		claims, err := utils.ValidateToken(parts[1], secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
				"code":  "UNAUTHORIZED",
			})
		}

		role, ok := models.NormalizeRole(claims.Role)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
				"code":  "UNAUTHORIZED",
			})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("role", role)
		c.Locals("gym_id", claims.GymID)

		return c.Next()
	}
}

// PrincipalFromLocals rebuilds the principal stored by AuthRequired.
func PrincipalFromLocals(c *fiber.Ctx) (models.Principal, bool) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return models.Principal{}, false
	}
	role, ok := c.Locals("role").(string)
	if !ok {
		return models.Principal{}, false
	}
	gymIDStr, ok := c.Locals("gym_id").(string)
	if !ok {
		return models.Principal{}, false
	}

	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil || userID <= 0 {
		return models.Principal{}, false
	}
	gymID, err := strconv.ParseInt(gymIDStr, 10, 64)
	if err != nil || gymID <= 0 {
		return models.Principal{}, false
	}

	return models.Principal{UserID: userID, Role: role, GymID: gymID}, true
}
