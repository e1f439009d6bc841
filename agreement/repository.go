package agreement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound            = errors.New("agreement: not found")
	ErrParticipantNotFound = errors.New("agreement: participant not found")
)

type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, a Agreement) (Agreement, error)
	FindDraftByParticipant(ctx context.Context, tx pgx.Tx, participantID string) (Agreement, error)
	LatestByParticipant(ctx context.Context, tx pgx.Tx, participantID string) (Agreement, error)
	MarkPending(ctx context.Context, tx pgx.Tx, id string, sentAt time.Time) (Agreement, error)
	ParticipantName(ctx context.Context, tx pgx.Tx, participantID string) (string, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const agreementColumns = `id, participant_id, status::text, content, generated_date, sent_date,
    valid_from, valid_until, created_at`

func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, a Agreement) (Agreement, error) {
	query := `
        INSERT INTO service_agreements (id, participant_id, status, content, generated_date, valid_from, valid_until)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3::agreement_status, $4, $5, $6, $7)
        RETURNING ` + agreementColumns

	row := tx.QueryRow(ctx, query,
		a.ID,
		a.ParticipantID,
		a.Status,
		a.Content,
		a.GeneratedDate,
		a.ValidFrom,
		a.ValidUntil,
	)
	created, err := scanAgreement(row)
	if err != nil {
		return Agreement{}, fmt.Errorf("agreement: create: %w", err)
	}
	return created, nil
}

func (r *PGRepository) FindDraftByParticipant(ctx context.Context, tx pgx.Tx, participantID string) (Agreement, error) {
	query := `
        SELECT ` + agreementColumns + `
        FROM service_agreements
        WHERE participant_id = $1 AND status = 'draft'
        ORDER BY created_at DESC
        LIMIT 1
    `
	a, err := scanAgreement(tx.QueryRow(ctx, query, participantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agreement{}, ErrNotFound
		}
		return Agreement{}, fmt.Errorf("agreement: find draft: %w", err)
	}
	return a, nil
}

// LatestByParticipant returns the most recently created agreement for the
// participant, regardless of status.
func (r *PGRepository) LatestByParticipant(ctx context.Context, tx pgx.Tx, participantID string) (Agreement, error) {
	query := `
        SELECT ` + agreementColumns + `
        FROM service_agreements
        WHERE participant_id = $1
        ORDER BY created_at DESC
        LIMIT 1
    `
	a, err := scanAgreement(tx.QueryRow(ctx, query, participantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agreement{}, ErrNotFound
		}
		return Agreement{}, fmt.Errorf("agreement: latest by participant: %w", err)
	}
	return a, nil
}

func (r *PGRepository) MarkPending(ctx context.Context, tx pgx.Tx, id string, sentAt time.Time) (Agreement, error) {
	query := `
        UPDATE service_agreements
        SET status = 'pending',
            sent_date = $2
        WHERE id = $1
        RETURNING ` + agreementColumns

	a, err := scanAgreement(tx.QueryRow(ctx, query, id, sentAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agreement{}, ErrNotFound
		}
		return Agreement{}, fmt.Errorf("agreement: mark pending: %w", err)
	}
	return a, nil
}

func (r *PGRepository) ParticipantName(ctx context.Context, tx pgx.Tx, participantID string) (string, error) {
	var first, last string
	err := tx.QueryRow(ctx, `SELECT first_name, last_name FROM participants WHERE id = $1`, participantID).
		Scan(&first, &last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrParticipantNotFound
		}
		return "", fmt.Errorf("agreement: participant name: %w", err)
	}
	return first + " " + last, nil
}

func scanAgreement(row pgx.Row) (Agreement, error) {
	var a Agreement
	return a, row.Scan(
		&a.ID,
		&a.ParticipantID,
		&a.Status,
		&a.Content,
		&a.GeneratedDate,
		&a.SentDate,
		&a.ValidFrom,
		&a.ValidUntil,
		&a.CreatedAt,
	)
}
