package models

import "time"

const (
	PartyCoach  = "coach"
	PartyMember = "member"
)

const (
	RequestStatusPending   = "pending"
	RequestStatusCountered = "countered"
	RequestStatusAccepted  = "accepted"
	RequestStatusDeclined  = "declined"
)

const (
	SessionTypeTraining     = "training"
	SessionTypeConsultation = "consultation"
	SessionTypeCheckin      = "checkin"
)

const (
	LocationGym     = "gym"
	LocationVirtual = "virtual"
)

// SessionRequest is an in-flight negotiation between one coach and one
// member. The live proposal terms are mirrored onto it from the newest
// SessionProposal; AwaitingTurn names the party expected to act next.
type SessionRequest struct {
	ID           int64      `json:"id"`
	GymID        int64      `json:"gym_id"`
	CoachID      int64      `json:"coach_id"`
	MemberID     int64      `json:"member_id"`
	SessionType  string     `json:"session_type"`
	ProposedAt   time.Time  `json:"proposed_at"`
	DurationMin  int        `json:"duration_minutes"`
	Location     string     `json:"location"`
	Note         *string    `json:"note"`
	InitiatedBy  string     `json:"initiated_by"`
	Status       string     `json:"status"`
	AwaitingTurn string     `json:"awaiting_turn"`
	CounterCount int        `json:"counter_count"`
	LastActionBy string     `json:"last_action_by"`
	LastActionAt time.Time  `json:"last_action_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

const (
	ProposalResponseAccepted  = "accepted"
	ProposalResponseDeclined  = "declined"
	ProposalResponseCountered = "countered"
)

// SessionProposal is one append-only entry in a request's negotiation
// history. Response stays nil until the counterparty acts on it.
type SessionProposal struct {
	ID          int64      `json:"id"`
	RequestID   int64      `json:"request_id"`
	ProposedBy  string     `json:"proposed_by"`
	ProposedAt  time.Time  `json:"proposed_at"`
	DurationMin int        `json:"duration_minutes"`
	Location    string     `json:"location"`
	Note        *string    `json:"note"`
	Response    *string    `json:"response"`
	ResponseAt  *time.Time `json:"response_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

type SessionRequestDetail struct {
	SessionRequest
	Proposals []SessionProposal `json:"proposals,omitempty"`
}
