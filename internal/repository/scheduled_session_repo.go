package repository

import (
	"context"
	"strings"
	"time"

	"github.com/fitclub-app/GymClubBack/internal/models"
	"github.com/jackc/pgx/v5"
)

type CreateScheduledSessionInput struct {
	GymID             int64
	CoachID           int64
	MemberID          int64
	SessionType       string
	ScheduledAt       time.Time
	DurationMin       int
	Location          string
	Note              *string
	OriginalRequestID int64
}

type ScheduledSessionListFilter struct {
	ActorID   int64
	Party     string
	Status    string
	Timeframe string
}

type ScheduledSessionRepository struct {
	db DBTX
}

func NewScheduledSessionRepository(db DBTX) *ScheduledSessionRepository {
	return &ScheduledSessionRepository{db: db}
}

const scheduledSessionColumns = `
	id, gym_id, coach_id, member_id, session_type, scheduled_at, duration_min,
	location, note, status, original_request_id, cancelled_at, cancelled_by,
	cancellation_reason, completed_at, created_at, updated_at`

func scanScheduledSession(row pgx.Row) (*models.ScheduledSession, error) {
	var session models.ScheduledSession
	err := row.Scan(
		&session.ID,
		&session.GymID,
		&session.CoachID,
		&session.MemberID,
		&session.SessionType,
		&session.ScheduledAt,
		&session.DurationMin,
		&session.Location,
		&session.Note,
		&session.Status,
		&session.OriginalRequestID,
		&session.CancelledAt,
		&session.CancelledBy,
		&session.CancellationReason,
		&session.CompletedAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *ScheduledSessionRepository) Create(
	ctx context.Context,
	input CreateScheduledSessionInput,
) (*models.ScheduledSession, error) {
	query := `
		INSERT INTO scheduled_sessions (
			gym_id, coach_id, member_id, session_type, scheduled_at, duration_min,
			location, note, status, original_request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'confirmed', $9)
		RETURNING` + scheduledSessionColumns + `
	`
	return scanScheduledSession(r.db.QueryRow(
		ctx,
		query,
		input.GymID,
		input.CoachID,
		input.MemberID,
		input.SessionType,
		input.ScheduledAt,
		input.DurationMin,
		input.Location,
		input.Note,
		input.OriginalRequestID,
	))
}

func (r *ScheduledSessionRepository) GetByID(
	ctx context.Context,
	sessionID int64,
) (*models.ScheduledSession, error) {
	query := `
		SELECT` + scheduledSessionColumns + `
		FROM scheduled_sessions
		WHERE id = $1
	`
	return scanScheduledSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *ScheduledSessionRepository) List(
	ctx context.Context,
	filter ScheduledSessionListFilter,
) ([]models.ScheduledSession, error) {
	actorColumn := "member_id"
	if filter.Party == models.PartyCoach {
		actorColumn = "coach_id"
	}

	args := []any{filter.ActorID}
	whereParts := []string{actorColumn + " = $1"}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, "status = $2")
	}

	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		whereParts = append(
			whereParts,
			"(scheduled_at + (duration_min * INTERVAL '1 minute')) > NOW()",
		)
	case "past":
		whereParts = append(
			whereParts,
			"(scheduled_at + (duration_min * INTERVAL '1 minute')) <= NOW()",
		)
	}

	query := `
		SELECT` + scheduledSessionColumns + `
		FROM scheduled_sessions
		WHERE ` + strings.Join(whereParts, " AND ") + `
		ORDER BY scheduled_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.ScheduledSession, 0)
	for rows.Next() {
		session, err := scanScheduledSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Cancel is scoped to status = 'confirmed', so cancelling a session
// that was already cancelled or completed reads as pgx.ErrNoRows.
func (r *ScheduledSessionRepository) Cancel(
	ctx context.Context,
	sessionID int64,
	cancelledBy string,
	reason string,
) (*models.ScheduledSession, error) {
	query := `
		UPDATE scheduled_sessions
		SET status = 'cancelled',
		    cancelled_at = NOW(),
		    cancelled_by = $2,
		    cancellation_reason = $3,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
		RETURNING` + scheduledSessionColumns + `
	`
	return scanScheduledSession(r.db.QueryRow(ctx, query, sessionID, cancelledBy, reason))
}

func (r *ScheduledSessionRepository) Complete(
	ctx context.Context,
	sessionID int64,
) (*models.ScheduledSession, error) {
	query := `
		UPDATE scheduled_sessions
		SET status = 'completed', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
		RETURNING` + scheduledSessionColumns + `
	`
	return scanScheduledSession(r.db.QueryRow(ctx, query, sessionID))
}
