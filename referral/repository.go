package referral

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("referral: not found")
)

type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, c Case) (Case, error)
	Get(ctx context.Context, id string) (Case, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Case, error)
	UpdateStage(ctx context.Context, tx pgx.Tx, id, stage string) error
	LinkParticipant(ctx context.Context, tx pgx.Tx, id, participantID string) error
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const caseColumns = `id, participant_id, first_name, last_name, email, phone, date_of_birth,
    ndis_number, primary_disability, address_line, suburb, state, postcode,
    funding_type, referral_source, workflow_status, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, c Case) (Case, error) {
	query := `
        INSERT INTO referrals (id, first_name, last_name, email, phone, date_of_birth,
            ndis_number, primary_disability, address_line, suburb, state, postcode,
            funding_type, referral_source, workflow_status)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        RETURNING ` + caseColumns

	row := tx.QueryRow(ctx, query,
		c.ID,
		c.FirstName,
		c.LastName,
		c.Email,
		c.Phone,
		c.DateOfBirth,
		c.NDISNumber,
		c.PrimaryDisability,
		c.AddressLine,
		c.Suburb,
		c.State,
		c.Postcode,
		c.FundingType,
		c.ReferralSource,
		c.CurrentStage,
	)
	created, err := scanCase(row)
	if err != nil {
		return Case{}, fmt.Errorf("referral: create: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (Case, error) {
	query := `SELECT ` + caseColumns + ` FROM referrals WHERE id = $1`

	c, err := scanCase(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Case{}, ErrNotFound
		}
		return Case{}, fmt.Errorf("referral: get: %w", err)
	}
	return c, nil
}

// GetForUpdate loads a case under a row lock, serializing concurrent stage
// transitions for the same referral.
func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Case, error) {
	query := `SELECT ` + caseColumns + ` FROM referrals WHERE id = $1 FOR UPDATE`

	c, err := scanCase(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Case{}, ErrNotFound
		}
		return Case{}, fmt.Errorf("referral: get for update: %w", err)
	}
	return c, nil
}

func (r *PGRepository) UpdateStage(ctx context.Context, tx pgx.Tx, id, stage string) error {
	tag, err := tx.Exec(ctx, `
        UPDATE referrals
        SET workflow_status = $2,
            updated_at = now()
        WHERE id = $1
    `, id, stage)
	if err != nil {
		return fmt.Errorf("referral: update stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) LinkParticipant(ctx context.Context, tx pgx.Tx, id, participantID string) error {
	tag, err := tx.Exec(ctx, `
        UPDATE referrals
        SET participant_id = $2,
            updated_at = now()
        WHERE id = $1
    `, id, participantID)
	if err != nil {
		return fmt.Errorf("referral: link participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCase(row pgx.Row) (Case, error) {
	var c Case
	return c, row.Scan(
		&c.ID,
		&c.ParticipantID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.Phone,
		&c.DateOfBirth,
		&c.NDISNumber,
		&c.PrimaryDisability,
		&c.AddressLine,
		&c.Suburb,
		&c.State,
		&c.Postcode,
		&c.FundingType,
		&c.ReferralSource,
		&c.CurrentStage,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}
