package repository

import (
	"context"

	"github.com/fitclub-app/GymClubBack/internal/models"
)

type GymRepository struct {
	db DBTX
}

func NewGymRepository(db DBTX) *GymRepository {
	return &GymRepository{db: db}
}

func (r *GymRepository) GetByID(ctx context.Context, gymID int64) (*models.Gym, error) {
	query := `
		SELECT id, name, subscription_tier, created_at, updated_at
		FROM gyms
		WHERE id = $1
	`
	var gym models.Gym
	err := r.db.QueryRow(ctx, query, gymID).Scan(
		&gym.ID,
		&gym.Name,
		&gym.SubscriptionTier,
		&gym.CreatedAt,
		&gym.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &gym, nil
}
