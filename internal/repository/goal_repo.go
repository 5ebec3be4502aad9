package repository

import (
	"context"
	"time"

	"github.com/fitclub-app/GymClubBack/internal/models"
	"github.com/jackc/pgx/v5"
)

type CreateGoalInput struct {
	GymID        int64
	Name         string
	Description  *string
	VotingEndsAt time.Time
	IsVisible    bool
}

type GoalRepository struct {
	db DBTX
}

func NewGoalRepository(db DBTX) *GoalRepository {
	return &GoalRepository{db: db}
}

const goalColumns = `
	id, gym_id, name, description, status, voting_ends_at, current_amount,
	winning_option_id, is_visible, completed_at, created_at, updated_at`

func scanGoal(row pgx.Row) (*models.Goal, error) {
	var goal models.Goal
	err := row.Scan(
		&goal.ID,
		&goal.GymID,
		&goal.Name,
		&goal.Description,
		&goal.Status,
		&goal.VotingEndsAt,
		&goal.CurrentAmount,
		&goal.WinningOptionID,
		&goal.IsVisible,
		&goal.CompletedAt,
		&goal.CreatedAt,
		&goal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *GoalRepository) Create(ctx context.Context, input CreateGoalInput) (*models.Goal, error) {
	query := `
		INSERT INTO goals (gym_id, name, description, status, voting_ends_at, is_visible)
		VALUES ($1, $2, $3, 'voting', $4, $5)
		RETURNING` + goalColumns + `
	`
	return scanGoal(r.db.QueryRow(
		ctx,
		query,
		input.GymID,
		input.Name,
		input.Description,
		input.VotingEndsAt,
		input.IsVisible,
	))
}

func (r *GoalRepository) GetByIDForGym(
	ctx context.Context,
	goalID int64,
	gymID int64,
) (*models.Goal, error) {
	query := `
		SELECT` + goalColumns + `
		FROM goals
		WHERE id = $1 AND gym_id = $2
	`
	return scanGoal(r.db.QueryRow(ctx, query, goalID, gymID))
}

// GetByIDForGymForUpdate locks the goal row. All vote and contribution
// transactions take this lock first, which serializes the vote-count
// increments and the fundraising total per goal.
func (r *GoalRepository) GetByIDForGymForUpdate(
	ctx context.Context,
	goalID int64,
	gymID int64,
) (*models.Goal, error) {
	query := `
		SELECT` + goalColumns + `
		FROM goals
		WHERE id = $1 AND gym_id = $2
		FOR UPDATE
	`
	return scanGoal(r.db.QueryRow(ctx, query, goalID, gymID))
}

func (r *GoalRepository) ListByStatus(
	ctx context.Context,
	gymID int64,
	status string,
	visibleOnly bool,
) ([]models.Goal, error) {
	query := `
		SELECT` + goalColumns + `
		FROM goals
		WHERE gym_id = $1 AND status = $2 AND (NOT $3 OR is_visible)
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, gymID, status, visibleOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := make([]models.Goal, 0)
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *goal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *GoalRepository) ListRecentlyCompleted(
	ctx context.Context,
	gymID int64,
	since time.Time,
	visibleOnly bool,
) ([]models.Goal, error) {
	query := `
		SELECT` + goalColumns + `
		FROM goals
		WHERE gym_id = $1 AND status = 'completed' AND completed_at >= $2
		  AND (NOT $3 OR is_visible)
		ORDER BY completed_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, gymID, since, visibleOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := make([]models.Goal, 0)
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *goal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return goals, nil
}

// ListExpiredVotingForUpdate locks every expired-but-open poll in the
// gym so the lazy sweep closes each one exactly once.
func (r *GoalRepository) ListExpiredVotingForUpdate(
	ctx context.Context,
	gymID int64,
) ([]models.Goal, error) {
	query := `
		SELECT` + goalColumns + `
		FROM goals
		WHERE gym_id = $1 AND status = 'voting' AND voting_ends_at <= NOW()
		ORDER BY id ASC
		FOR UPDATE
	`
	rows, err := r.db.Query(ctx, query, gymID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := make([]models.Goal, 0)
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *goal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return goals, nil
}

// StartFundraising is scoped to status = 'voting'; a goal another
// sweep already closed reads as pgx.ErrNoRows and is skipped.
func (r *GoalRepository) StartFundraising(
	ctx context.Context,
	goalID int64,
	winningOptionID int64,
) (*models.Goal, error) {
	query := `
		UPDATE goals
		SET status = 'fundraising',
		    winning_option_id = $2,
		    current_amount = 0,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'voting'
		RETURNING` + goalColumns + `
	`
	return scanGoal(r.db.QueryRow(ctx, query, goalID, winningOptionID))
}

func (r *GoalRepository) AddToCurrentAmount(
	ctx context.Context,
	goalID int64,
	amount int64,
) (*models.Goal, error) {
	query := `
		UPDATE goals
		SET current_amount = current_amount + $2, updated_at = NOW()
		WHERE id = $1 AND status = 'fundraising'
		RETURNING` + goalColumns + `
	`
	return scanGoal(r.db.QueryRow(ctx, query, goalID, amount))
}

func (r *GoalRepository) MarkCompleted(ctx context.Context, goalID int64) (*models.Goal, error) {
	query := `
		UPDATE goals
		SET status = 'completed', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'fundraising'
		RETURNING` + goalColumns + `
	`
	return scanGoal(r.db.QueryRow(ctx, query, goalID))
}
