package handlers

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fitclub-app/GymClubBack/internal/middleware"
	"github.com/fitclub-app/GymClubBack/internal/models"
	"github.com/fitclub-app/GymClubBack/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type goalApplicationService interface {
	ListActiveGoals(ctx context.Context, principal models.Principal) (*services.GoalBoard, error)
	GetGoal(ctx context.Context, principal models.Principal, goalID int64) (*models.GoalView, error)
	CreateGoal(ctx context.Context, principal models.Principal, input services.CreateGoalInput) (*models.GoalView, error)
	CastVote(ctx context.Context, principal models.Principal, goalID, optionID int64) (*services.VoteResult, error)
	RecordContribution(ctx context.Context, principal models.Principal, goalID, amount int64) (*models.GoalView, error)
}

type GoalHandler struct {
	service  goalApplicationService
	validate *validator.Validate
}

func NewGoalHandler(service *services.GoalService) *GoalHandler {
	return &GoalHandler{service: service, validate: validator.New()}
}

type createGoalOptionRequest struct {
	Name         string  `json:"name" validate:"required,min=1,max=120"`
	Description  *string `json:"description,omitempty"`
	ImageURL     *string `json:"image_url,omitempty" validate:"omitempty,url"`
	TargetAmount float64 `json:"target_amount" validate:"required,gt=0"`
}

type createGoalRequest struct {
	Name         string                    `json:"name" validate:"required,min=1,max=200"`
	Description  *string                   `json:"description,omitempty"`
	VotingEndsAt string                    `json:"voting_ends_at" validate:"required"`
	IsVisible    *bool                     `json:"is_visible,omitempty"`
	Options      []createGoalOptionRequest `json:"options" validate:"required,min=2,max=6,dive"`
}

type castVoteRequest struct {
	OptionID int64 `json:"option_id" validate:"required,gt=0"`
}

type contributionRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// displayToCents converts a client-facing currency amount into integer
// cents, the only unit the rest of the system works in.
func displayToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (h *GoalHandler) ListGoals(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromLocals(c)
	if !ok {
		return unauthorized(c)
	}

	board, err := h.service.ListActiveGoals(c.Context(), principal)
	if err != nil {
		return mapGoalError(c, err)
	}

	return c.JSON(fiber.Map{
		"voting_goals":       board.VotingGoals,
		"fundraising_goals":  board.FundraisingGoals,
		"recently_completed": board.RecentlyCompleted,
	})
}

func (h *GoalHandler) GetGoal(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromLocals(c)
	if !ok {
		return unauthorized(c)
	}

	goalID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || goalID <= 0 {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid goal id", codeValidation)
	}

	goal, err := h.service.GetGoal(c.Context(), principal, goalID)
	if err != nil {
		return mapGoalError(c, err)
	}

	return c.JSON(fiber.Map{"goal": goal})
}

func (h *GoalHandler) CreateGoal(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromLocals(c)
	if !ok {
		return unauthorized(c)
	}

	var req createGoalRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", codeValidation)
	}
	if err := h.validate.Struct(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "A goal needs a name and 2 to 6 options", codeValidation)
	}

	votingEndsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.VotingEndsAt))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "voting_ends_at must be a valid RFC3339 timestamp", codeValidation)
	}

	isVisible := true
	if req.IsVisible != nil {
		isVisible = *req.IsVisible
	}

	options := make([]services.CreateGoalOption, 0, len(req.Options))
	for _, opt := range req.Options {
		options = append(options, services.CreateGoalOption{
			Name:         opt.Name,
			Description:  opt.Description,
			ImageURL:     opt.ImageURL,
			TargetAmount: displayToCents(opt.TargetAmount),
		})
	}

	goal, err := h.service.CreateGoal(c.Context(), principal, services.CreateGoalInput{
		Name:         req.Name,
		Description:  req.Description,
		VotingEndsAt: votingEndsAt,
		IsVisible:    isVisible,
		Options:      options,
	})
	if err != nil {
		return mapGoalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"goal":    goal,
	})
}

func (h *GoalHandler) CastVote(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromLocals(c)
	if !ok {
		return unauthorized(c)
	}

	goalID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || goalID <= 0 {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid goal id", codeValidation)
	}

	var req castVoteRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", codeValidation)
	}
	if err := h.validate.Struct(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "option_id is required", codeValidation)
	}

	result, err := h.service.CastVote(c.Context(), principal, goalID, req.OptionID)
	if err != nil {
		return mapGoalError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"changed":     result.Changed,
		"total_votes": result.TotalVotes,
		"options":     result.Options,
	})
}

func (h *GoalHandler) RecordContribution(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromLocals(c)
	if !ok {
		return unauthorized(c)
	}

	goalID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || goalID <= 0 {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid goal id", codeValidation)
	}

	var req contributionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", codeValidation)
	}
	if err := h.validate.Struct(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "amount must be greater than zero", codeValidation)
	}

	goal, err := h.service.RecordContribution(c.Context(), principal, goalID, displayToCents(req.Amount))
	if err != nil {
		return mapGoalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"goal":    goal,
	})
}
