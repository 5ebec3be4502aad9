package repository

import (
	"context"

	"github.com/fitclub-app/GymClubBack/internal/models"
)

type CreateContributionInput struct {
	GoalID    int64
	MemberID  int64
	Amount    int64
	Reference string
}

type GoalContributionRepository struct {
	db DBTX
}

func NewGoalContributionRepository(db DBTX) *GoalContributionRepository {
	return &GoalContributionRepository{db: db}
}

func (r *GoalContributionRepository) Create(
	ctx context.Context,
	input CreateContributionInput,
) (*models.GoalContribution, error) {
	query := `
		INSERT INTO goal_contributions (goal_id, member_id, amount, reference)
		VALUES ($1, $2, $3, $4)
		RETURNING id, goal_id, member_id, amount, reference, created_at
	`
	var contribution models.GoalContribution
	err := r.db.QueryRow(
		ctx,
		query,
		input.GoalID,
		input.MemberID,
		input.Amount,
		input.Reference,
	).Scan(
		&contribution.ID,
		&contribution.GoalID,
		&contribution.MemberID,
		&contribution.Amount,
		&contribution.Reference,
		&contribution.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &contribution, nil
}
