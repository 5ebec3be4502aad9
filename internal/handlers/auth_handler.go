package handlers

import (
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"github.com/fitclub-app/GymClubBack/internal/middleware"
	"github.com/fitclub-app/GymClubBack/internal/repository"
	"github.com/fitclub-app/GymClubBack/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type AuthHandler struct {
	userRepo  *repository.UserRepository
	gymRepo   *repository.GymRepository
	jwtSecret string
}

func NewAuthHandler(
	userRepo *repository.UserRepository,
	gymRepo *repository.GymRepository,
	jwtSecret string,
) *AuthHandler {
	return &AuthHandler{userRepo: userRepo, gymRepo: gymRepo, jwtSecret: jwtSecret}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", codeValidation)
	}

	parsedEmail, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid email format", codeValidation)
	}
	req.Email = strings.ToLower(parsedEmail.Address)

	user, err := h.userRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errorJSON(c, fiber.StatusUnauthorized, "Invalid email or password", codeUnauthorized)
		}
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to lookup user", codeInternal)
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		return errorJSON(c, fiber.StatusUnauthorized, "Invalid email or password", codeUnauthorized)
	}

	token, err := utils.GenerateToken(
		strconv.FormatInt(user.ID, 10),
		user.Role,
		strconv.FormatInt(user.GymID, 10),
		h.jwtSecret,
	)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to generate token", codeInternal)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":           user.ID,
			"gym_id":       user.GymID,
			"email":        user.Email,
			"role":         user.Role,
			"display_name": user.DisplayName,
		},
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromLocals(c)
	if !ok {
		return unauthorized(c)
	}

	user, err := h.userRepo.GetByID(c.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errorJSON(c, fiber.StatusNotFound, "User not found", codeNotFound)
		}
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to fetch user", codeInternal)
	}

	gym, err := h.gymRepo.GetByID(c.Context(), user.GymID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errorJSON(c, fiber.StatusNotFound, "Gym not found", codeNotFound)
		}
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to fetch gym", codeInternal)
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":           user.ID,
			"gym_id":       user.GymID,
			"email":        user.Email,
			"role":         user.Role,
			"display_name": user.DisplayName,
		},
		"gym": fiber.Map{
			"id":   gym.ID,
			"name": gym.Name,
			"tier": gym.SubscriptionTier,
		},
	})
}
