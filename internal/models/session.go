package models

import "time"

const (
	SessionStatusConfirmed = "confirmed"
	SessionStatusCompleted = "completed"
	SessionStatusCancelled = "cancelled"
)

// ScheduledSession is a confirmed appointment. It is created exactly
// once, atomically with the owning request's accepted transition.
type ScheduledSession struct {
	ID                 int64      `json:"id"`
	GymID              int64      `json:"gym_id"`
	CoachID            int64      `json:"coach_id"`
	MemberID           int64      `json:"member_id"`
	SessionType        string     `json:"session_type"`
	ScheduledAt        time.Time  `json:"scheduled_at"`
	DurationMin        int        `json:"duration_minutes"`
	Location           string     `json:"location"`
	Note               *string    `json:"note"`
	Status             string     `json:"status"`
	OriginalRequestID  int64      `json:"original_request_id"`
	CancelledAt        *time.Time `json:"cancelled_at"`
	CancelledBy        *string    `json:"cancelled_by"`
	CancellationReason *string    `json:"cancellation_reason"`
	CompletedAt        *time.Time `json:"completed_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
