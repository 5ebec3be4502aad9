package models

import (
	"strings"
	"time"
)

const (
	RoleMember = "member"
	RoleCoach  = "coach"
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
)

// NormalizeRole maps free-form role input onto the closed role set.
// Roles are normalized once at the trust boundary; downstream code
// compares against the constants only.
func NormalizeRole(role string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleMember:
		return RoleMember, true
	case RoleCoach:
		return RoleCoach, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleOwner:
		return RoleOwner, true
	default:
		return "", false
	}
}

type User struct {
	ID           int64     `json:"id"`
	GymID        int64     `json:"gym_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const (
	TierBasic = "basic"
	TierPro   = "pro"
	TierElite = "elite"
)

type Gym struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	SubscriptionTier string    `json:"subscription_tier"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Principal is the authenticated caller as resolved by the auth middleware.
type Principal struct {
	UserID int64
	Role   string
	GymID  int64
}

// Party identifies which side of a negotiation acted. Coaches act as
// "coach"; members act as "member". Admins and owners are not parties.
func (p Principal) Party() (string, bool) {
	switch p.Role {
	case RoleCoach:
		return PartyCoach, true
	case RoleMember:
		return PartyMember, true
	default:
		return "", false
	}
}
