package repository

import (
	"context"

	"github.com/fitclub-app/GymClubBack/internal/models"
	"github.com/jackc/pgx/v5"
)

type CreateGoalOptionInput struct {
	GoalID       int64
	Name         string
	Description  *string
	ImageURL     *string
	TargetAmount int64
	DisplayOrder int
}

type GoalOptionRepository struct {
	db DBTX
}

func NewGoalOptionRepository(db DBTX) *GoalOptionRepository {
	return &GoalOptionRepository{db: db}
}

const goalOptionColumns = `
	id, goal_id, name, description, image_url, target_amount, vote_count, display_order`

func scanGoalOption(row pgx.Row) (*models.GoalOption, error) {
	var option models.GoalOption
	err := row.Scan(
		&option.ID,
		&option.GoalID,
		&option.Name,
		&option.Description,
		&option.ImageURL,
		&option.TargetAmount,
		&option.VoteCount,
		&option.DisplayOrder,
	)
	if err != nil {
		return nil, err
	}
	return &option, nil
}

func (r *GoalOptionRepository) Create(
	ctx context.Context,
	input CreateGoalOptionInput,
) (*models.GoalOption, error) {
	query := `
		INSERT INTO goal_options (goal_id, name, description, image_url, target_amount, display_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING` + goalOptionColumns + `
	`
	return scanGoalOption(r.db.QueryRow(
		ctx,
		query,
		input.GoalID,
		input.Name,
		input.Description,
		input.ImageURL,
		input.TargetAmount,
		input.DisplayOrder,
	))
}

func (r *GoalOptionRepository) GetByIDForGoal(
	ctx context.Context,
	optionID int64,
	goalID int64,
) (*models.GoalOption, error) {
	query := `
		SELECT` + goalOptionColumns + `
		FROM goal_options
		WHERE id = $1 AND goal_id = $2
	`
	return scanGoalOption(r.db.QueryRow(ctx, query, optionID, goalID))
}

func (r *GoalOptionRepository) ListByGoalID(
	ctx context.Context,
	goalID int64,
) ([]models.GoalOption, error) {
	query := `
		SELECT` + goalOptionColumns + `
		FROM goal_options
		WHERE goal_id = $1
		ORDER BY display_order ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	options := make([]models.GoalOption, 0)
	for rows.Next() {
		option, err := scanGoalOption(rows)
		if err != nil {
			return nil, err
		}
		options = append(options, *option)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return options, nil
}

func (r *GoalOptionRepository) AdjustVoteCount(
	ctx context.Context,
	optionID int64,
	delta int,
) error {
	query := `
		UPDATE goal_options
		SET vote_count = vote_count + $2
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, optionID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
