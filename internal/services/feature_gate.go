package services

import (
	"context"
	"errors"

	"github.com/fitclub-app/GymClubBack/internal/models"
	"github.com/jackc/pgx/v5"
)

const (
	FeatureSessionScheduling = "sessionScheduling"
	FeatureChallenges        = "challenges"
)

var ErrTierRequired = errors.New("subscription tier required")

type gymReader interface {
	GetByID(ctx context.Context, gymID int64) (*models.Gym, error)
}

// FeatureGate answers whether a tenant's subscription covers a
// feature. Engines consult it before every mutating operation.
type FeatureGate interface {
	IsFeatureAllowed(ctx context.Context, gymID int64, feature string) (bool, error)
}

// TierFeatureGate gates features on the gym's subscription tier:
// basic gyms get neither engine, pro and elite get both.
type TierFeatureGate struct {
	gymRepo gymReader
}

func NewTierFeatureGate(gymRepo gymReader) *TierFeatureGate {
	return &TierFeatureGate{gymRepo: gymRepo}
}

func (g *TierFeatureGate) IsFeatureAllowed(
	ctx context.Context,
	gymID int64,
	feature string,
) (bool, error) {
	gym, err := g.gymRepo.GetByID(ctx, gymID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return tierAllowsFeature(gym.SubscriptionTier, feature), nil
}

func tierAllowsFeature(tier, feature string) bool {
	switch feature {
	case FeatureSessionScheduling, FeatureChallenges:
		return tier == models.TierPro || tier == models.TierElite
	default:
		return false
	}
}

// RequiredTierFor names the cheapest tier that unlocks a feature, used
// in upgrade-prompt error payloads.
func RequiredTierFor(feature string) string {
	switch feature {
	case FeatureSessionScheduling, FeatureChallenges:
		return models.TierPro
	default:
		return models.TierElite
	}
}
