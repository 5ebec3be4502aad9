package handlers

import (
	"errors"

	"github.com/fitclub-app/GymClubBack/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

// Machine-readable error codes. Clients branch on these; the error
// string is for humans.
const (
	codeValidation          = "VALIDATION"
	codeInvalidInput        = "INVALID_INPUT"
	codeNotYourTurn         = "NOT_YOUR_TURN"
	codeDuplicateRequest    = "DUPLICATE_REQUEST"
	codeNotFound            = "NOT_FOUND"
	codeGoalNotFound        = "GOAL_NOT_FOUND"
	codeForbidden           = "FORBIDDEN"
	codeTierRequired        = "TIER_REQUIRED"
	codeVotingNotActive     = "VOTING_NOT_ACTIVE"
	codeVotingEnded         = "VOTING_ENDED"
	codeInvalidOption       = "INVALID_OPTION"
	codeFundraisingInactive = "FUNDRAISING_NOT_ACTIVE"
	codeTransactionConflict = "TRANSACTION_CONFLICT"
	codeUnauthorized        = "UNAUTHORIZED"
	codeInternal            = "INTERNAL_ERROR"
)

func errorJSON(c *fiber.Ctx, status int, message, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": message, "code": code})
}

func unauthorized(c *fiber.Ctx) error {
	return errorJSON(c, fiber.StatusUnauthorized, "Invalid token", codeUnauthorized)
}

func tierRequired(c *fiber.Ctx, feature string) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error":         "Feature not included in the gym's subscription tier",
		"code":          codeTierRequired,
		"required_tier": services.RequiredTierFor(feature),
	})
}

// mapNegotiationError translates engine sentinels into the HTTP
// contract. "Not your turn" is a protocol-state problem, not an
// identity problem, so it maps to 400 rather than 403.
func mapNegotiationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return errorJSON(c, fiber.StatusBadRequest, "Invalid session terms", codeInvalidInput)
	case errors.Is(err, services.ErrInvalidReason):
		return errorJSON(c, fiber.StatusBadRequest, "Cancellation reason must be at least 10 characters", codeValidation)
	case errors.Is(err, services.ErrNotYourTurn):
		return errorJSON(c, fiber.StatusBadRequest, "It is not your turn to respond", codeNotYourTurn)
	case errors.Is(err, services.ErrDuplicateRequest):
		return errorJSON(c, fiber.StatusConflict, "An active request already exists for this pair", codeDuplicateRequest)
	case errors.Is(err, services.ErrForbidden):
		return errorJSON(c, fiber.StatusForbidden, "Forbidden", codeForbidden)
	case errors.Is(err, services.ErrTierRequired):
		return tierRequired(c, services.FeatureSessionScheduling)
	case errors.Is(err, services.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return errorJSON(c, fiber.StatusNotFound, "Request or session not found", codeNotFound)
	default:
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to process session request", codeInternal)
	}
}

func mapGoalError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return errorJSON(c, fiber.StatusBadRequest, "Invalid input", codeValidation)
	case errors.Is(err, services.ErrInvalidOption):
		return errorJSON(c, fiber.StatusBadRequest, "Option does not belong to this goal", codeInvalidOption)
	case errors.Is(err, services.ErrVotingNotActive):
		return errorJSON(c, fiber.StatusBadRequest, "Voting is not active for this goal", codeVotingNotActive)
	case errors.Is(err, services.ErrVotingEnded):
		return errorJSON(c, fiber.StatusBadRequest, "Voting has ended for this goal", codeVotingEnded)
	case errors.Is(err, services.ErrFundraisingNotActive):
		return errorJSON(c, fiber.StatusBadRequest, "Goal is not accepting contributions", codeFundraisingInactive)
	case errors.Is(err, services.ErrTransactionConflict):
		return errorJSON(c, fiber.StatusConflict, "Vote conflicted with a concurrent change, retry", codeTransactionConflict)
	case errors.Is(err, services.ErrForbidden):
		return errorJSON(c, fiber.StatusForbidden, "Forbidden", codeForbidden)
	case errors.Is(err, services.ErrTierRequired):
		return tierRequired(c, services.FeatureChallenges)
	case errors.Is(err, services.ErrGoalNotFound), errors.Is(err, pgx.ErrNoRows):
		return errorJSON(c, fiber.StatusNotFound, "Goal not found", codeGoalNotFound)
	default:
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to process goal request", codeInternal)
	}
}
