package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fitclub-app/GymClubBack/internal/metrics"
	"github.com/fitclub-app/GymClubBack/internal/models"
	"github.com/fitclub-app/GymClubBack/internal/repository"
	notifyws "github.com/fitclub-app/GymClubBack/internal/websocket"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrDuplicateRequest = errors.New("active request already exists")
	ErrInvalidReason    = errors.New("cancellation reason too short")
)

// Negotiation actions a party may take on an active request.
const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
	ActionCounter = "counter"
)

// minLeadTime is how far in the future a proposed session must be.
const minLeadTime = 24 * time.Hour

const minCancelReasonLen = 10

type userReader interface {
	GetGymMemberWithRole(ctx context.Context, gymID, userID int64, role string) (*models.User, error)
}

// Notifier is the slice of the websocket hub the services publish
// events through. A typed nil *notifyws.Hub is a valid no-op notifier;
// its methods are nil-receiver safe.
type Notifier interface {
	Notify(userIDs []int64, event notifyws.Event)
	NotifyGym(gymID int64, event notifyws.Event)
}

// NegotiationService runs the turn-based protocol by which a coach and
// a member converge on an appointment, and manages the confirmed
// sessions that accepted negotiations produce.
type NegotiationService struct {
	db           *pgxpool.Pool
	requestRepo  *repository.SessionRequestRepository
	proposalRepo *repository.SessionProposalRepository
	sessionRepo  *repository.ScheduledSessionRepository
	userRepo     userReader
	gate         FeatureGate
	hub          Notifier
}

func NewNegotiationService(
	db *pgxpool.Pool,
	requestRepo *repository.SessionRequestRepository,
	proposalRepo *repository.SessionProposalRepository,
	sessionRepo *repository.ScheduledSessionRepository,
	userRepo userReader,
	gate FeatureGate,
	hub Notifier,
) *NegotiationService {
	return &NegotiationService{
		db:           db,
		requestRepo:  requestRepo,
		proposalRepo: proposalRepo,
		sessionRepo:  sessionRepo,
		userRepo:     userRepo,
		gate:         gate,
		hub:          hub,
	}
}

type ProposalTerms struct {
	ProposedAt  time.Time
	DurationMin int
	Location    string
	Note        *string
}

type CreateRequestInput struct {
	CounterpartyID int64
	SessionType    string
	Terms          ProposalTerms
}

type RespondInput struct {
	Action string
	Terms  *ProposalTerms
}

// RespondResult carries whichever entities the action produced: the
// updated request always, the scheduled session only on accept.
type RespondResult struct {
	Action  string
	Request *models.SessionRequest
	Session *models.ScheduledSession
}

func (s *NegotiationService) CreateRequest(
	ctx context.Context,
	principal models.Principal,
	input CreateRequestInput,
) (*models.SessionRequestDetail, error) {
	party, ok := principal.Party()
	if !ok {
		return nil, ErrForbidden
	}
	if err := s.checkGate(ctx, principal.GymID, FeatureSessionScheduling); err != nil {
		return nil, err
	}

	if input.CounterpartyID <= 0 || input.CounterpartyID == principal.UserID {
		return nil, ErrInvalidInput
	}
	if !validSessionType(input.SessionType) {
		return nil, ErrInvalidInput
	}
	if err := validateProposalTerms(time.Now(), input.Terms); err != nil {
		return nil, err
	}

	coachID, memberID := principal.UserID, input.CounterpartyID
	counterpartyRole := models.RoleMember
	if party == models.PartyMember {
		coachID, memberID = input.CounterpartyID, principal.UserID
		counterpartyRole = models.RoleCoach
	}

	if _, err := s.userRepo.GetGymMemberWithRole(
		ctx, principal.GymID, input.CounterpartyID, counterpartyRole,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidInput
		}
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRequestRepo := repository.NewSessionRequestRepository(tx)
	txProposalRepo := repository.NewSessionProposalRepository(tx)

	request, err := txRequestRepo.Create(ctx, repository.CreateSessionRequestInput{
		GymID:       principal.GymID,
		CoachID:     coachID,
		MemberID:    memberID,
		SessionType: input.SessionType,
		ProposedAt:  input.Terms.ProposedAt.UTC(),
		DurationMin: input.Terms.DurationMin,
		Location:    input.Terms.Location,
		Note:        input.Terms.Note,
		InitiatedBy: party,
		Awaiting:    otherParty(party),
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDuplicateRequest
		}
		return nil, err
	}

	proposal, err := txProposalRepo.Create(ctx, repository.CreateProposalInput{
		RequestID:   request.ID,
		ProposedBy:  party,
		ProposedAt:  input.Terms.ProposedAt.UTC(),
		DurationMin: input.Terms.DurationMin,
		Location:    input.Terms.Location,
		Note:        input.Terms.Note,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.NegotiationActions.WithLabelValues("create").Inc()
	s.hub.Notify([]int64{request.CoachID, request.MemberID}, notifyws.Event{
		Type:      "session_request.created",
		RequestID: request.ID,
	})

	return &models.SessionRequestDetail{
		SessionRequest: *request,
		Proposals:      []models.SessionProposal{*proposal},
	}, nil
}

func (s *NegotiationService) Respond(
	ctx context.Context,
	principal models.Principal,
	requestID int64,
	input RespondInput,
) (*RespondResult, error) {
	party, ok := principal.Party()
	if !ok {
		return nil, ErrForbidden
	}
	if err := s.checkGate(ctx, principal.GymID, FeatureSessionScheduling); err != nil {
		return nil, err
	}

	switch input.Action {
	case ActionAccept, ActionDecline:
	case ActionCounter:
		if input.Terms == nil {
			return nil, ErrInvalidInput
		}
		if err := validateProposalTerms(time.Now(), *input.Terms); err != nil {
			return nil, err
		}
	default:
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRequestRepo := repository.NewSessionRequestRepository(tx)
	txProposalRepo := repository.NewSessionProposalRepository(tx)
	txSessionRepo := repository.NewScheduledSessionRepository(tx)

	request, err := txRequestRepo.GetActiveByIDForUpdate(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !isParty(request, principal.UserID, party) || request.GymID != principal.GymID {
		return nil, ErrNotFound
	}
	if request.AwaitingTurn != party {
		return nil, ErrNotYourTurn
	}

	result := &RespondResult{Action: input.Action}

	switch input.Action {
	case ActionAccept:
		if _, err := txProposalRepo.RespondToLatest(
			ctx, request.ID, models.ProposalResponseAccepted,
		); err != nil {
			return nil, err
		}
		updated, err := txRequestRepo.MarkTerminal(
			ctx, request.ID, models.RequestStatusAccepted, party,
		)
		if err != nil {
			return nil, err
		}
		session, err := txSessionRepo.Create(ctx, repository.CreateScheduledSessionInput{
			GymID:             updated.GymID,
			CoachID:           updated.CoachID,
			MemberID:          updated.MemberID,
			SessionType:       updated.SessionType,
			ScheduledAt:       updated.ProposedAt,
			DurationMin:       updated.DurationMin,
			Location:          updated.Location,
			Note:              updated.Note,
			OriginalRequestID: updated.ID,
		})
		if err != nil {
			return nil, err
		}
		result.Request = updated
		result.Session = session

	case ActionDecline:
		if _, err := txProposalRepo.RespondToLatest(
			ctx, request.ID, models.ProposalResponseDeclined,
		); err != nil {
			return nil, err
		}
		updated, err := txRequestRepo.MarkTerminal(
			ctx, request.ID, models.RequestStatusDeclined, party,
		)
		if err != nil {
			return nil, err
		}
		result.Request = updated

	case ActionCounter:
		if _, err := txProposalRepo.RespondToLatest(
			ctx, request.ID, models.ProposalResponseCountered,
		); err != nil {
			return nil, err
		}
		if _, err := txProposalRepo.Create(ctx, repository.CreateProposalInput{
			RequestID:   request.ID,
			ProposedBy:  party,
			ProposedAt:  input.Terms.ProposedAt.UTC(),
			DurationMin: input.Terms.DurationMin,
			Location:    input.Terms.Location,
			Note:        input.Terms.Note,
		}); err != nil {
			return nil, err
		}
		updated, err := txRequestRepo.ApplyCounter(ctx, repository.CounterSessionRequestInput{
			RequestID:   request.ID,
			ProposedAt:  input.Terms.ProposedAt.UTC(),
			DurationMin: input.Terms.DurationMin,
			Location:    input.Terms.Location,
			Note:        input.Terms.Note,
			CounteredBy: party,
			Awaiting:    otherParty(party),
		})
		if err != nil {
			return nil, err
		}
		result.Request = updated
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.NegotiationActions.WithLabelValues(input.Action).Inc()
	if result.Session != nil {
		metrics.SessionsScheduled.Inc()
	}
	s.hub.Notify([]int64{result.Request.CoachID, result.Request.MemberID}, notifyws.Event{
		Type:      "session_request." + result.Request.Status,
		RequestID: result.Request.ID,
	})

	return result, nil
}

func (s *NegotiationService) ListRequests(
	ctx context.Context,
	principal models.Principal,
) ([]models.SessionRequestDetail, error) {
	party, ok := principal.Party()
	if !ok {
		return nil, ErrForbidden
	}

	requests, err := s.requestRepo.ListActiveForActor(ctx, principal.UserID, party)
	if err != nil {
		return nil, err
	}

	details := make([]models.SessionRequestDetail, 0, len(requests))
	for _, request := range requests {
		proposals, err := s.proposalRepo.ListByRequestID(ctx, request.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, models.SessionRequestDetail{
			SessionRequest: request,
			Proposals:      proposals,
		})
	}
	return details, nil
}

func (s *NegotiationService) CancelSession(
	ctx context.Context,
	principal models.Principal,
	sessionID int64,
	reason string,
) (*models.ScheduledSession, error) {
	party, ok := principal.Party()
	if !ok {
		return nil, ErrForbidden
	}
	if err := s.checkGate(ctx, principal.GymID, FeatureSessionScheduling); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if len(reason) < minCancelReasonLen {
		return nil, ErrInvalidReason
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !canAccessSession(session, principal.UserID, party) || session.GymID != principal.GymID {
		return nil, ErrNotFound
	}

	cancelled, err := s.sessionRepo.Cancel(ctx, sessionID, party, reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.hub.Notify([]int64{cancelled.CoachID, cancelled.MemberID}, notifyws.Event{
		Type:      "session.cancelled",
		SessionID: cancelled.ID,
	})
	return cancelled, nil
}

// CompleteSession is coach-only. There is deliberately no guard
// against completing before scheduled_at: coaches may close out a
// session early or retroactively.
func (s *NegotiationService) CompleteSession(
	ctx context.Context,
	principal models.Principal,
	sessionID int64,
) (*models.ScheduledSession, error) {
	if principal.Role != models.RoleCoach {
		return nil, ErrForbidden
	}
	if err := s.checkGate(ctx, principal.GymID, FeatureSessionScheduling); err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if session.CoachID != principal.UserID || session.GymID != principal.GymID {
		return nil, ErrNotFound
	}

	completed, err := s.sessionRepo.Complete(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.hub.Notify([]int64{completed.CoachID, completed.MemberID}, notifyws.Event{
		Type:      "session.completed",
		SessionID: completed.ID,
	})
	return completed, nil
}

func (s *NegotiationService) ListSessions(
	ctx context.Context,
	principal models.Principal,
	filter repository.ScheduledSessionListFilter,
) ([]models.ScheduledSession, error) {
	party, ok := principal.Party()
	if !ok {
		return nil, ErrForbidden
	}

	return s.sessionRepo.List(ctx, repository.ScheduledSessionListFilter{
		ActorID:   principal.UserID,
		Party:     party,
		Status:    filter.Status,
		Timeframe: filter.Timeframe,
	})
}

func (s *NegotiationService) checkGate(ctx context.Context, gymID int64, feature string) error {
	allowed, err := s.gate.IsFeatureAllowed(ctx, gymID, feature)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrTierRequired
	}
	return nil
}

func otherParty(party string) string {
	if party == models.PartyCoach {
		return models.PartyMember
	}
	return models.PartyCoach
}

func isParty(request *models.SessionRequest, userID int64, party string) bool {
	if party == models.PartyCoach {
		return request.CoachID == userID
	}
	return request.MemberID == userID
}

func canAccessSession(session *models.ScheduledSession, userID int64, party string) bool {
	if party == models.PartyCoach {
		return session.CoachID == userID
	}
	return session.MemberID == userID
}

func validSessionType(sessionType string) bool {
	switch sessionType {
	case models.SessionTypeTraining, models.SessionTypeConsultation, models.SessionTypeCheckin:
		return true
	}
	return false
}

func validDuration(durationMin int) bool {
	switch durationMin {
	case 30, 45, 60, 90:
		return true
	}
	return false
}

func validLocation(location string) bool {
	return location == models.LocationGym || location == models.LocationVirtual
}

func validateProposalTerms(now time.Time, terms ProposalTerms) error {
	if terms.ProposedAt.Before(now.Add(minLeadTime)) {
		return ErrInvalidInput
	}
	if !validDuration(terms.DurationMin) {
		return ErrInvalidInput
	}
	if !validLocation(terms.Location) {
		return ErrInvalidInput
	}
	return nil
}
