package participant

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("participant: not found")
)

type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	FindByReferral(ctx context.Context, tx pgx.Tx, referralID string) (Record, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const recordColumns = `id, referral_id, first_name, last_name, email, phone, date_of_birth,
    ndis_number, primary_disability, state, active, created_at`

func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, rec Record) (Record, error) {
	query := `
        INSERT INTO participants (id, referral_id, first_name, last_name, email, phone,
            date_of_birth, ndis_number, primary_disability, state, active)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING ` + recordColumns

	row := tx.QueryRow(ctx, query,
		rec.ID,
		rec.ReferralID,
		rec.FirstName,
		rec.LastName,
		rec.Email,
		rec.Phone,
		rec.DateOfBirth,
		rec.NDISNumber,
		rec.PrimaryDisability,
		rec.State,
		rec.Active,
	)
	created, err := scanRecord(row)
	if err != nil {
		return Record{}, fmt.Errorf("participant: create: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (Record, error) {
	query := `SELECT ` + recordColumns + ` FROM participants WHERE id = $1`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("participant: get: %w", err)
	}
	return rec, nil
}

func (r *PGRepository) FindByReferral(ctx context.Context, tx pgx.Tx, referralID string) (Record, error) {
	query := `SELECT ` + recordColumns + ` FROM participants WHERE referral_id = $1`

	rec, err := scanRecord(tx.QueryRow(ctx, query, referralID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("participant: find by referral: %w", err)
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	return rec, row.Scan(
		&rec.ID,
		&rec.ReferralID,
		&rec.FirstName,
		&rec.LastName,
		&rec.Email,
		&rec.Phone,
		&rec.DateOfBirth,
		&rec.NDISNumber,
		&rec.PrimaryDisability,
		&rec.State,
		&rec.Active,
		&rec.CreatedAt,
	)
}
