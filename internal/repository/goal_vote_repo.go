package repository

import (
	"context"

	"github.com/fitclub-app/GymClubBack/internal/models"
)

type GoalVoteRepository struct {
	db DBTX
}

func NewGoalVoteRepository(db DBTX) *GoalVoteRepository {
	return &GoalVoteRepository{db: db}
}

func (r *GoalVoteRepository) Get(
	ctx context.Context,
	goalID int64,
	memberID int64,
) (*models.GoalVote, error) {
	query := `
		SELECT goal_id, member_id, option_id, updated_at
		FROM goal_votes
		WHERE goal_id = $1 AND member_id = $2
	`
	var vote models.GoalVote
	err := r.db.QueryRow(ctx, query, goalID, memberID).Scan(
		&vote.GoalID,
		&vote.MemberID,
		&vote.OptionID,
		&vote.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *GoalVoteRepository) Create(
	ctx context.Context,
	goalID int64,
	memberID int64,
	optionID int64,
) error {
	query := `
		INSERT INTO goal_votes (goal_id, member_id, option_id)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.Exec(ctx, query, goalID, memberID, optionID)
	return err
}

// ChangeOption overwrites the member's ballot slot in place; the row
// is never deleted and re-inserted, so the one-vote invariant holds at
// every instant.
func (r *GoalVoteRepository) ChangeOption(
	ctx context.Context,
	goalID int64,
	memberID int64,
	optionID int64,
) error {
	query := `
		UPDATE goal_votes
		SET option_id = $3, updated_at = NOW()
		WHERE goal_id = $1 AND member_id = $2
	`
	_, err := r.db.Exec(ctx, query, goalID, memberID, optionID)
	return err
}

func (r *GoalVoteRepository) CountByGoal(ctx context.Context, goalID int64) (int, error) {
	query := `SELECT COUNT(*) FROM goal_votes WHERE goal_id = $1`
	var count int
	if err := r.db.QueryRow(ctx, query, goalID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
