package models

import "time"

const (
	GoalStatusVoting      = "voting"
	GoalStatusFundraising = "fundraising"
	GoalStatusCompleted   = "completed"
)

// Goal is a gym-scoped poll that turns into a fundraiser once voting
// closes. Status moves strictly voting -> fundraising -> completed.
// Money fields hold integer cents; handlers convert at the boundary.
type Goal struct {
	ID              int64      `json:"id"`
	GymID           int64      `json:"gym_id"`
	Name            string     `json:"name"`
	Description     *string    `json:"description"`
	Status          string     `json:"status"`
	VotingEndsAt    time.Time  `json:"voting_ends_at"`
	CurrentAmount   int64      `json:"-"`
	WinningOptionID *int64     `json:"winning_option_id"`
	IsVisible       bool       `json:"is_visible"`
	CompletedAt     *time.Time `json:"completed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type GoalOption struct {
	ID           int64   `json:"id"`
	GoalID       int64   `json:"goal_id"`
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	ImageURL     *string `json:"image_url"`
	TargetAmount int64   `json:"-"`
	VoteCount    int     `json:"vote_count"`
	DisplayOrder int     `json:"display_order"`
}

// GoalVote is a member's one mutable ballot per goal, keyed by
// (goal_id, member_id). Re-voting overwrites the slot.
type GoalVote struct {
	GoalID    int64     `json:"goal_id"`
	MemberID  int64     `json:"member_id"`
	OptionID  int64     `json:"option_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

type GoalContribution struct {
	ID        int64     `json:"id"`
	GoalID    int64     `json:"goal_id"`
	MemberID  int64     `json:"member_id"`
	Amount    int64     `json:"-"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

// GoalOptionView is the read-side shape of an option: target amount in
// currency units and the option's share of the vote.
type GoalOptionView struct {
	GoalOption
	TargetAmountDisplay float64 `json:"target_amount"`
	Percentage          int     `json:"percentage"`
}

type GoalView struct {
	Goal
	CurrentAmountDisplay float64          `json:"current_amount"`
	TotalVotes           int              `json:"total_votes"`
	Options              []GoalOptionView `json:"options"`
}
