package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/fitclub-app/GymClubBack/internal/middleware"
	"github.com/fitclub-app/GymClubBack/internal/models"
	"github.com/fitclub-app/GymClubBack/internal/repository"
	"github.com/fitclub-app/GymClubBack/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type negotiationApplicationService interface {
	CreateRequest(ctx context.Context, principal models.Principal, input services.CreateRequestInput) (*models.SessionRequestDetail, error)
	Respond(ctx context.Context, principal models.Principal, requestID int64, input services.RespondInput) (*services.RespondResult, error)
	ListRequests(ctx context.Context, principal models.Principal) ([]models.SessionRequestDetail, error)
	CancelSession(ctx context.Context, principal models.Principal, sessionID int64, reason string) (*models.ScheduledSession, error)
	CompleteSession(ctx context.Context, principal models.Principal, sessionID int64) (*models.ScheduledSession, error)
	ListSessions(ctx context.Context, principal models.Principal, filter repository.ScheduledSessionListFilter) ([]models.ScheduledSession, error)
}

type SessionHandler struct {
	service  negotiationApplicationService
	validate *validator.Validate
}

func NewSessionHandler(service *services.NegotiationService) *SessionHandler {
	return &SessionHandler{service: service, validate: validator.New()}
}

type createSessionRequestRequest struct {
	CounterpartyID  int64   `json:"counterparty_id" validate:"required,gt=0"`
	SessionType     string  `json:"session_type" validate:"required,oneof=training consultation checkin"`
	ProposedAt      string  `json:"proposed_at" validate:"required"`
	DurationMinutes int     `json:"duration_minutes" validate:"required,oneof=30 45 60 90"`
	Location        string  `json:"location" validate:"required,oneof=gym virtual"`
	Note            *string `json:"note,omitempty"`
}

type respondRequest struct {
	Action          string  `json:"action" validate:"required,oneof=accept decline counter"`
	ProposedAt      *string `json:"proposed_at,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
	Location        *string `json:"location,omitempty"`
	Note            *string `json:"note,omitempty"`
}

type cancelSessionRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *SessionHandler) CreateRequest(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromLocals(c)
	if !ok {
		return unauthorized(c)
	}

	var req createSessionRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", codeValidation)
	}
	if err := h.validate.Struct(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid session terms", codeInvalidInput)
	}

	proposedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ProposedAt))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "proposed_at must be a valid RFC3339 timestamp", codeInvalidInput)
	}

	detail, err := h.service.CreateRequest(c.Context(), principal, services.CreateRequestInput{
		CounterpartyID: req.CounterpartyID,
		SessionType:    req.SessionType,
		Terms: services.ProposalTerms{
			ProposedAt:  proposedAt,
			DurationMin: req.DurationMinutes,
			Location:    req.Location,
			Note:        req.Note,
		},
	})
	if err != nil {
		return mapNegotiationError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"request": detail,
	})
}

func (h *SessionHandler) ListRequests(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromLocals(c)
	if !ok {
		return unauthorized(c)
	}

	requests, err := h.service.ListRequests(c.Context(), principal)
	if err != nil {
		return mapNegotiationError(c, err)
	}

	return c.JSON(fiber.Map{"requests": requests})
}

func (h *SessionHandler) Respond(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromLocals(c)
	if !ok {
		return unauthorized(c)
	}

	requestID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || requestID <= 0 {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request id", codeValidation)
	}

	var req respondRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", codeValidation)
	}
	if err := h.validate.Struct(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "action must be accept, decline or counter", codeValidation)
	}

	input := services.RespondInput{Action: req.Action}
	if req.Action == services.ActionCounter {
		if req.ProposedAt == nil || req.DurationMinutes == nil || req.Location == nil {
			return errorJSON(c, fiber.StatusBadRequest, "Counter requires proposed_at, duration_minutes and location", codeInvalidInput)
		}
		proposedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.ProposedAt))
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "proposed_at must be a valid RFC3339 timestamp", codeInvalidInput)
		}
		input.Terms = &services.ProposalTerms{
			ProposedAt:  proposedAt,
			DurationMin: *req.DurationMinutes,
			Location:    *req.Location,
			Note:        req.Note,
		}
	}

	result, err := h.service.Respond(c.Context(), principal, requestID, input)
	if err != nil {
		return mapNegotiationError(c, err)
	}

	response := fiber.Map{
		"success": true,
		"action":  result.Action,
		"request": result.Request,
	}
	if result.Session != nil {
		response["session"] = result.Session
	}
	return c.JSON(response)
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromLocals(c)
	if !ok {
		return unauthorized(c)
	}

	timeframe := strings.TrimSpace(c.Query("timeframe"))
	if timeframe != "" && timeframe != "upcoming" && timeframe != "past" {
		return errorJSON(c, fiber.StatusBadRequest, "timeframe must be upcoming or past", codeValidation)
	}

	sessions, err := h.service.ListSessions(c.Context(), principal, repository.ScheduledSessionListFilter{
		Status:    strings.TrimSpace(c.Query("status")),
		Timeframe: timeframe,
	})
	if err != nil {
		return mapNegotiationError(c, err)
	}

	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SessionHandler) CancelSession(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromLocals(c)
	if !ok {
		return unauthorized(c)
	}

	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid session id", codeValidation)
	}

	var req cancelSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", codeValidation)
	}
	if err := h.validate.Struct(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "A cancellation reason is required", codeValidation)
	}

	session, err := h.service.CancelSession(c.Context(), principal, sessionID, req.Reason)
	if err != nil {
		return mapNegotiationError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "session": session})
}

func (h *SessionHandler) CompleteSession(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromLocals(c)
	if !ok {
		return unauthorized(c)
	}

	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid session id", codeValidation)
	}

	session, err := h.service.CompleteSession(c.Context(), principal, sessionID)
	if err != nil {
		return mapNegotiationError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "session": session})
}
