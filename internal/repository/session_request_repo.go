package repository

import (
	"context"
	"time"

	"github.com/fitclub-app/GymClubBack/internal/models"
	"github.com/jackc/pgx/v5"
)

type CreateSessionRequestInput struct {
	GymID       int64
	CoachID     int64
	MemberID    int64
	SessionType string
	ProposedAt  time.Time
	DurationMin int
	Location    string
	Note        *string
	InitiatedBy string
	Awaiting    string
}

type CounterSessionRequestInput struct {
	RequestID   int64
	ProposedAt  time.Time
	DurationMin int
	Location    string
	Note        *string
	CounteredBy string
	Awaiting    string
}

type SessionRequestRepository struct {
	db DBTX
}

func NewSessionRequestRepository(db DBTX) *SessionRequestRepository {
	return &SessionRequestRepository{db: db}
}

const sessionRequestColumns = `
	id, gym_id, coach_id, member_id, session_type, proposed_at, duration_min,
	location, note, initiated_by, status, awaiting_turn, counter_count,
	last_action_by, last_action_at, created_at, updated_at`

func scanSessionRequest(row pgx.Row) (*models.SessionRequest, error) {
	var req models.SessionRequest
	err := row.Scan(
		&req.ID,
		&req.GymID,
		&req.CoachID,
		&req.MemberID,
		&req.SessionType,
		&req.ProposedAt,
		&req.DurationMin,
		&req.Location,
		&req.Note,
		&req.InitiatedBy,
		&req.Status,
		&req.AwaitingTurn,
		&req.CounterCount,
		&req.LastActionBy,
		&req.LastActionAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *SessionRequestRepository) Create(
	ctx context.Context,
	input CreateSessionRequestInput,
) (*models.SessionRequest, error) {
	query := `
		INSERT INTO session_requests (
			gym_id, coach_id, member_id, session_type, proposed_at, duration_min,
			location, note, initiated_by, status, awaiting_turn, last_action_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending', $10, $9)
		RETURNING` + sessionRequestColumns + `
	`
	return scanSessionRequest(r.db.QueryRow(
		ctx,
		query,
		input.GymID,
		input.CoachID,
		input.MemberID,
		input.SessionType,
		input.ProposedAt,
		input.DurationMin,
		input.Location,
		input.Note,
		input.InitiatedBy,
		input.Awaiting,
	))
}

// GetActiveByIDForUpdate locks the request row for the span of the
// enclosing transaction. Only pending/countered requests are visible,
// so terminal requests read as pgx.ErrNoRows.
func (r *SessionRequestRepository) GetActiveByIDForUpdate(
	ctx context.Context,
	requestID int64,
) (*models.SessionRequest, error) {
	query := `
		SELECT` + sessionRequestColumns + `
		FROM session_requests
		WHERE id = $1 AND status IN ('pending', 'countered')
		FOR UPDATE
	`
	return scanSessionRequest(r.db.QueryRow(ctx, query, requestID))
}

func (r *SessionRequestRepository) ListActiveForActor(
	ctx context.Context,
	actorID int64,
	party string,
) ([]models.SessionRequest, error) {
	actorColumn := "member_id"
	if party == models.PartyCoach {
		actorColumn = "coach_id"
	}

	query := `
		SELECT` + sessionRequestColumns + `
		FROM session_requests
		WHERE ` + actorColumn + ` = $1 AND status IN ('pending', 'countered')
		ORDER BY last_action_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]models.SessionRequest, 0)
	for rows.Next() {
		req, err := scanSessionRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

// MarkTerminal moves an active request into accepted or declined.
// Scoping on the active statuses keeps the transition idempotent under
// concurrent responders: the second caller sees pgx.ErrNoRows.
func (r *SessionRequestRepository) MarkTerminal(
	ctx context.Context,
	requestID int64,
	status string,
	actedBy string,
) (*models.SessionRequest, error) {
	query := `
		UPDATE session_requests
		SET status = $2, last_action_by = $3, last_action_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'countered')
		RETURNING` + sessionRequestColumns + `
	`
	return scanSessionRequest(r.db.QueryRow(ctx, query, requestID, status, actedBy))
}

// ApplyCounter mirrors the new live terms onto the request, bumps the
// counter round and hands the turn to the other party.
func (r *SessionRequestRepository) ApplyCounter(
	ctx context.Context,
	input CounterSessionRequestInput,
) (*models.SessionRequest, error) {
	query := `
		UPDATE session_requests
		SET proposed_at = $2,
		    duration_min = $3,
		    location = $4,
		    note = $5,
		    status = 'countered',
		    counter_count = counter_count + 1,
		    awaiting_turn = $6,
		    last_action_by = $7,
		    last_action_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'countered')
		RETURNING` + sessionRequestColumns + `
	`
	return scanSessionRequest(r.db.QueryRow(
		ctx,
		query,
		input.RequestID,
		input.ProposedAt,
		input.DurationMin,
		input.Location,
		input.Note,
		input.Awaiting,
		input.CounteredBy,
	))
}
