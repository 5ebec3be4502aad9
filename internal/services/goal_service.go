package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/fitclub-app/GymClubBack/internal/metrics"
	"github.com/fitclub-app/GymClubBack/internal/models"
	"github.com/fitclub-app/GymClubBack/internal/repository"
	notifyws "github.com/fitclub-app/GymClubBack/internal/websocket"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrGoalNotFound         = errors.New("goal not found")
	ErrVotingNotActive      = errors.New("voting is not active")
	ErrVotingEnded          = errors.New("voting has ended")
	ErrInvalidOption        = errors.New("invalid option")
	ErrFundraisingNotActive = errors.New("fundraising is not active")
	ErrTransactionConflict  = errors.New("transaction conflict, retry")
)

const (
	minGoalOptions = 2
	maxGoalOptions = 6

	// recentlyCompletedWindow bounds the "recently completed" list on
	// the goal board.
	recentlyCompletedWindow = 30 * 24 * time.Hour

	voteTxAttempts = 3
)

// GoalService runs the gym-wide equipment poll: single-choice voting
// with one mutable ballot per member, lazy closing of expired polls,
// and the fundraising phase the winning option turns into.
type GoalService struct {
	db               *pgxpool.Pool
	goalRepo         *repository.GoalRepository
	optionRepo       *repository.GoalOptionRepository
	voteRepo         *repository.GoalVoteRepository
	contributionRepo *repository.GoalContributionRepository
	gate             FeatureGate
	hub              Notifier
}

func NewGoalService(
	db *pgxpool.Pool,
	goalRepo *repository.GoalRepository,
	optionRepo *repository.GoalOptionRepository,
	voteRepo *repository.GoalVoteRepository,
	contributionRepo *repository.GoalContributionRepository,
	gate FeatureGate,
	hub Notifier,
) *GoalService {
	return &GoalService{
		db:               db,
		goalRepo:         goalRepo,
		optionRepo:       optionRepo,
		voteRepo:         voteRepo,
		contributionRepo: contributionRepo,
		gate:             gate,
		hub:              hub,
	}
}

// VoteResult reports what the cast did and the refreshed standings.
type VoteResult struct {
	Changed          bool
	PreviousOptionID *int64
	TotalVotes       int
	Options          []models.GoalOptionView
}

type GoalBoard struct {
	VotingGoals       []models.GoalView
	FundraisingGoals  []models.GoalView
	RecentlyCompleted []models.GoalView
}

type CreateGoalOption struct {
	Name         string
	Description  *string
	ImageURL     *string
	TargetAmount int64
}

type CreateGoalInput struct {
	Name         string
	Description  *string
	VotingEndsAt time.Time
	IsVisible    bool
	Options      []CreateGoalOption
}

// CastVote records or changes the member's ballot. The whole
// read-then-write runs in one transaction under the goal's row lock;
// serialization losers are retried a few times before surfacing
// ErrTransactionConflict.
func (s *GoalService) CastVote(
	ctx context.Context,
	principal models.Principal,
	goalID int64,
	optionID int64,
) (*VoteResult, error) {
	if principal.Role != models.RoleMember {
		return nil, ErrForbidden
	}
	if err := s.checkGate(ctx, principal.GymID, FeatureChallenges); err != nil {
		return nil, err
	}
	if optionID <= 0 {
		return nil, ErrInvalidOption
	}

	var result *VoteResult
	err := retry.Do(
		func() error {
			var txErr error
			result, txErr = s.castVoteTx(ctx, principal, goalID, optionID)
			return txErr
		},
		retry.Attempts(voteTxAttempts),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return repository.IsRetryableTxError(err) || errors.Is(err, ErrTransactionConflict)
		}),
	)
	if err != nil {
		if repository.IsRetryableTxError(err) {
			return nil, ErrTransactionConflict
		}
		return nil, err
	}

	options, totalVotes, err := s.loadStandings(ctx, s.optionRepo, goalID)
	if err != nil {
		return nil, err
	}
	result.Options = options
	result.TotalVotes = totalVotes

	if result.Changed {
		metrics.GoalVotes.Inc()
		s.hub.NotifyGym(principal.GymID, notifyws.Event{
			Type:   "goal.vote_cast",
			GoalID: goalID,
		})
	}
	return result, nil
}

func (s *GoalService) castVoteTx(
	ctx context.Context,
	principal models.Principal,
	goalID int64,
	optionID int64,
) (*VoteResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txGoalRepo := repository.NewGoalRepository(tx)
	txOptionRepo := repository.NewGoalOptionRepository(tx)
	txVoteRepo := repository.NewGoalVoteRepository(tx)

	goal, err := txGoalRepo.GetByIDForGymForUpdate(ctx, goalID, principal.GymID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}
	if goal.Status != models.GoalStatusVoting {
		return nil, ErrVotingNotActive
	}
	// Deadline is checked even before the lazy sweep has closed the
	// poll, so an expired goal never accepts a late ballot.
	if !goal.VotingEndsAt.After(time.Now()) {
		return nil, ErrVotingEnded
	}

	if _, err := txOptionRepo.GetByIDForGoal(ctx, optionID, goalID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidOption
		}
		return nil, err
	}

	result := &VoteResult{}

	existing, err := txVoteRepo.Get(ctx, goalID, principal.UserID)
	switch {
	case err != nil && errors.Is(err, pgx.ErrNoRows):
		if err := txVoteRepo.Create(ctx, goalID, principal.UserID, optionID); err != nil {
			if repository.IsUniqueViolation(err) {
				// Lost a first-ballot race for the same member.
				return nil, ErrTransactionConflict
			}
			return nil, err
		}
		if err := txOptionRepo.AdjustVoteCount(ctx, optionID, 1); err != nil {
			return nil, err
		}
		result.Changed = true

	case err != nil:
		return nil, err

	case existing.OptionID == optionID:
		// Idempotent re-vote for the same option.
		result.Changed = false

	default:
		if err := txVoteRepo.ChangeOption(ctx, goalID, principal.UserID, optionID); err != nil {
			return nil, err
		}
		if err := txOptionRepo.AdjustVoteCount(ctx, existing.OptionID, -1); err != nil {
			return nil, err
		}
		if err := txOptionRepo.AdjustVoteCount(ctx, optionID, 1); err != nil {
			return nil, err
		}
		previous := existing.OptionID
		result.Changed = true
		result.PreviousOptionID = &previous
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// CloseExpiredVoting is the lazy sweep: every expired poll of the gym
// is moved into fundraising with the top-voted option as the target.
// Ties break toward the lowest display order. Idempotent; polls closed
// by a concurrent sweep are skipped.
func (s *GoalService) CloseExpiredVoting(ctx context.Context, gymID int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txGoalRepo := repository.NewGoalRepository(tx)
	txOptionRepo := repository.NewGoalOptionRepository(tx)

	expired, err := txGoalRepo.ListExpiredVotingForUpdate(ctx, gymID)
	if err != nil {
		return err
	}

	closed := make([]int64, 0, len(expired))
	for _, goal := range expired {
		options, err := txOptionRepo.ListByGoalID(ctx, goal.ID)
		if err != nil {
			return err
		}
		winner, ok := winningOption(options)
		if !ok {
			continue
		}
		if _, err := txGoalRepo.StartFundraising(ctx, goal.ID, winner.ID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return err
		}
		closed = append(closed, goal.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	for _, goalID := range closed {
		metrics.GoalsClosed.Inc()
		s.hub.NotifyGym(gymID, notifyws.Event{
			Type:   "goal.fundraising_started",
			GoalID: goalID,
		})
	}
	return nil
}

// winningOption picks the highest vote count; options arrive ordered
// by display order, so the first maximum seen wins ties.
func winningOption(options []models.GoalOption) (models.GoalOption, bool) {
	if len(options) == 0 {
		return models.GoalOption{}, false
	}
	winner := options[0]
	for _, option := range options[1:] {
		if option.VoteCount > winner.VoteCount {
			winner = option
		}
	}
	return winner, true
}

// ListActiveGoals sweeps expired polls, then returns the gym's goal
// board. Members and coaches only see visible goals.
func (s *GoalService) ListActiveGoals(
	ctx context.Context,
	principal models.Principal,
) (*GoalBoard, error) {
	if err := s.CloseExpiredVoting(ctx, principal.GymID); err != nil {
		return nil, err
	}

	visibleOnly := principal.Role == models.RoleMember || principal.Role == models.RoleCoach

	voting, err := s.goalRepo.ListByStatus(ctx, principal.GymID, models.GoalStatusVoting, visibleOnly)
	if err != nil {
		return nil, err
	}
	fundraising, err := s.goalRepo.ListByStatus(ctx, principal.GymID, models.GoalStatusFundraising, visibleOnly)
	if err != nil {
		return nil, err
	}
	completed, err := s.goalRepo.ListRecentlyCompleted(
		ctx, principal.GymID, time.Now().Add(-recentlyCompletedWindow), visibleOnly,
	)
	if err != nil {
		return nil, err
	}

	board := &GoalBoard{
		VotingGoals:       make([]models.GoalView, 0, len(voting)),
		FundraisingGoals:  make([]models.GoalView, 0, len(fundraising)),
		RecentlyCompleted: make([]models.GoalView, 0, len(completed)),
	}
	for _, goal := range voting {
		view, err := s.buildGoalView(ctx, goal)
		if err != nil {
			return nil, err
		}
		board.VotingGoals = append(board.VotingGoals, *view)
	}
	for _, goal := range fundraising {
		view, err := s.buildGoalView(ctx, goal)
		if err != nil {
			return nil, err
		}
		board.FundraisingGoals = append(board.FundraisingGoals, *view)
	}
	for _, goal := range completed {
		view, err := s.buildGoalView(ctx, goal)
		if err != nil {
			return nil, err
		}
		board.RecentlyCompleted = append(board.RecentlyCompleted, *view)
	}
	return board, nil
}

func (s *GoalService) GetGoal(
	ctx context.Context,
	principal models.Principal,
	goalID int64,
) (*models.GoalView, error) {
	goal, err := s.goalRepo.GetByIDForGym(ctx, goalID, principal.GymID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}
	if !goal.IsVisible && principal.Role != models.RoleAdmin && principal.Role != models.RoleOwner {
		return nil, ErrGoalNotFound
	}
	return s.buildGoalView(ctx, *goal)
}

// RecordContribution appends a ledger row and rolls the amount into
// the goal's running total. Crossing the winning option's target
// completes the goal; completion is one-way.
func (s *GoalService) RecordContribution(
	ctx context.Context,
	principal models.Principal,
	goalID int64,
	amount int64,
) (*models.GoalView, error) {
	if principal.Role != models.RoleMember {
		return nil, ErrForbidden
	}
	if err := s.checkGate(ctx, principal.GymID, FeatureChallenges); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txGoalRepo := repository.NewGoalRepository(tx)
	txOptionRepo := repository.NewGoalOptionRepository(tx)
	txContributionRepo := repository.NewGoalContributionRepository(tx)

	goal, err := txGoalRepo.GetByIDForGymForUpdate(ctx, goalID, principal.GymID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}
	if goal.Status != models.GoalStatusFundraising || goal.WinningOptionID == nil {
		return nil, ErrFundraisingNotActive
	}

	winning, err := txOptionRepo.GetByIDForGoal(ctx, *goal.WinningOptionID, goalID)
	if err != nil {
		return nil, err
	}

	if _, err := txContributionRepo.Create(ctx, repository.CreateContributionInput{
		GoalID:    goalID,
		MemberID:  principal.UserID,
		Amount:    amount,
		Reference: uuid.NewString(),
	}); err != nil {
		return nil, err
	}

	updated, err := txGoalRepo.AddToCurrentAmount(ctx, goalID, amount)
	if err != nil {
		return nil, err
	}

	goalCompleted := false
	if updated.CurrentAmount >= winning.TargetAmount {
		if updated, err = txGoalRepo.MarkCompleted(ctx, goalID); err != nil {
			return nil, err
		}
		goalCompleted = true
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.GoalContributions.Inc()
	if goalCompleted {
		s.hub.NotifyGym(principal.GymID, notifyws.Event{
			Type:   "goal.completed",
			GoalID: goalID,
		})
	}
	return s.buildGoalView(ctx, *updated)
}

func (s *GoalService) CreateGoal(
	ctx context.Context,
	principal models.Principal,
	input CreateGoalInput,
) (*models.GoalView, error) {
	if principal.Role != models.RoleAdmin && principal.Role != models.RoleOwner {
		return nil, ErrForbidden
	}
	if err := s.checkGate(ctx, principal.GymID, FeatureChallenges); err != nil {
		return nil, err
	}
	if err := validateCreateGoalInput(time.Now(), input); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txGoalRepo := repository.NewGoalRepository(tx)
	txOptionRepo := repository.NewGoalOptionRepository(tx)

	goal, err := txGoalRepo.Create(ctx, repository.CreateGoalInput{
		GymID:        principal.GymID,
		Name:         strings.TrimSpace(input.Name),
		Description:  input.Description,
		VotingEndsAt: input.VotingEndsAt.UTC(),
		IsVisible:    input.IsVisible,
	})
	if err != nil {
		return nil, err
	}

	options := make([]models.GoalOption, 0, len(input.Options))
	for i, optionInput := range input.Options {
		option, err := txOptionRepo.Create(ctx, repository.CreateGoalOptionInput{
			GoalID:       goal.ID,
			Name:         strings.TrimSpace(optionInput.Name),
			Description:  optionInput.Description,
			ImageURL:     optionInput.ImageURL,
			TargetAmount: optionInput.TargetAmount,
			DisplayOrder: i,
		})
		if err != nil {
			return nil, err
		}
		options = append(options, *option)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	view := buildGoalViewFromOptions(*goal, options)
	return &view, nil
}

func validateCreateGoalInput(now time.Time, input CreateGoalInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return ErrInvalidInput
	}
	if !input.VotingEndsAt.After(now) {
		return ErrInvalidInput
	}
	if len(input.Options) < minGoalOptions || len(input.Options) > maxGoalOptions {
		return ErrInvalidInput
	}
	for _, option := range input.Options {
		if strings.TrimSpace(option.Name) == "" || option.TargetAmount <= 0 {
			return ErrInvalidInput
		}
	}
	return nil
}

func (s *GoalService) buildGoalView(
	ctx context.Context,
	goal models.Goal,
) (*models.GoalView, error) {
	options, err := s.optionRepo.ListByGoalID(ctx, goal.ID)
	if err != nil {
		return nil, err
	}
	view := buildGoalViewFromOptions(goal, options)
	return &view, nil
}

func buildGoalViewFromOptions(goal models.Goal, options []models.GoalOption) models.GoalView {
	optionViews, totalVotes := buildOptionViews(options)
	return models.GoalView{
		Goal:                 goal,
		CurrentAmountDisplay: centsToDisplay(goal.CurrentAmount),
		TotalVotes:           totalVotes,
		Options:              optionViews,
	}
}

func (s *GoalService) loadStandings(
	ctx context.Context,
	optionRepo *repository.GoalOptionRepository,
	goalID int64,
) ([]models.GoalOptionView, int, error) {
	options, err := optionRepo.ListByGoalID(ctx, goalID)
	if err != nil {
		return nil, 0, err
	}
	views, totalVotes := buildOptionViews(options)
	return views, totalVotes, nil
}

func buildOptionViews(options []models.GoalOption) ([]models.GoalOptionView, int) {
	totalVotes := 0
	for _, option := range options {
		totalVotes += option.VoteCount
	}

	views := make([]models.GoalOptionView, 0, len(options))
	for _, option := range options {
		views = append(views, models.GoalOptionView{
			GoalOption:          option,
			TargetAmountDisplay: centsToDisplay(option.TargetAmount),
			Percentage:          votePercentage(option.VoteCount, totalVotes),
		})
	}
	return views, totalVotes
}

// votePercentage avoids dividing by zero: with no votes at all, every
// option reads 0%.
func votePercentage(voteCount, totalVotes int) int {
	if totalVotes == 0 {
		return 0
	}
	return int(math.Round(float64(voteCount) / float64(totalVotes) * 100))
}

// Money is tracked in integer cents everywhere inside the system and
// converted to currency units only at the boundary.
func centsToDisplay(cents int64) float64 {
	return float64(cents) / 100
}

func (s *GoalService) checkGate(ctx context.Context, gymID int64, feature string) error {
	allowed, err := s.gate.IsFeatureAllowed(ctx, gymID, feature)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrTierRequired
	}
	return nil
}
