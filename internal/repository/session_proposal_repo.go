package repository

import (
	"context"
	"time"

	"github.com/fitclub-app/GymClubBack/internal/models"
	"github.com/jackc/pgx/v5"
)

type CreateProposalInput struct {
	RequestID   int64
	ProposedBy  string
	ProposedAt  time.Time
	DurationMin int
	Location    string
	Note        *string
}

type SessionProposalRepository struct {
	db DBTX
}

func NewSessionProposalRepository(db DBTX) *SessionProposalRepository {
	return &SessionProposalRepository{db: db}
}

const sessionProposalColumns = `
	id, request_id, proposed_by, proposed_at, duration_min, location, note,
	response, response_at, created_at`

func scanSessionProposal(row pgx.Row) (*models.SessionProposal, error) {
	var proposal models.SessionProposal
	err := row.Scan(
		&proposal.ID,
		&proposal.RequestID,
		&proposal.ProposedBy,
		&proposal.ProposedAt,
		&proposal.DurationMin,
		&proposal.Location,
		&proposal.Note,
		&proposal.Response,
		&proposal.ResponseAt,
		&proposal.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

func (r *SessionProposalRepository) Create(
	ctx context.Context,
	input CreateProposalInput,
) (*models.SessionProposal, error) {
	query := `
		INSERT INTO session_proposals (request_id, proposed_by, proposed_at, duration_min, location, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING` + sessionProposalColumns + `
	`
	return scanSessionProposal(r.db.QueryRow(
		ctx,
		query,
		input.RequestID,
		input.ProposedBy,
		input.ProposedAt,
		input.DurationMin,
		input.Location,
		input.Note,
	))
}

// RespondToLatest stamps the response on the newest open proposal of a
// request. The history is append-only; earlier rows keep whatever
// response they already carry.
func (r *SessionProposalRepository) RespondToLatest(
	ctx context.Context,
	requestID int64,
	response string,
) (*models.SessionProposal, error) {
	query := `
		UPDATE session_proposals
		SET response = $2, response_at = NOW()
		WHERE id = (
			SELECT id FROM session_proposals
			WHERE request_id = $1 AND response IS NULL
			ORDER BY id DESC
			LIMIT 1
		)
		RETURNING` + sessionProposalColumns + `
	`
	return scanSessionProposal(r.db.QueryRow(ctx, query, requestID, response))
}

func (r *SessionProposalRepository) ListByRequestID(
	ctx context.Context,
	requestID int64,
) ([]models.SessionProposal, error) {
	query := `
		SELECT` + sessionProposalColumns + `
		FROM session_proposals
		WHERE request_id = $1
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	proposals := make([]models.SessionProposal, 0)
	for rows.Next() {
		proposal, err := scanSessionProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, *proposal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return proposals, nil
}
