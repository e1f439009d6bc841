package funding

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("funding: plan not found")
)

type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, p Plan) (Plan, error)
	FindByParticipant(ctx context.Context, tx pgx.Tx, participantID string) (Plan, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const planColumns = `id, participant_id, core_budget, capacity_building_budget, capital_budget,
    valid_from, valid_until, created_at`

func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, p Plan) (Plan, error) {
	query := `
        INSERT INTO funding_plans (id, participant_id, core_budget, capacity_building_budget,
            capital_budget, valid_from, valid_until)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7)
        RETURNING ` + planColumns

	row := tx.QueryRow(ctx, query,
		p.ID,
		p.ParticipantID,
		p.CoreBudget,
		p.CapacityBuildingBudget,
		p.CapitalBudget,
		p.ValidFrom,
		p.ValidUntil,
	)
	created, err := scanPlan(row)
	if err != nil {
		return Plan{}, fmt.Errorf("funding: create plan: %w", err)
	}
	return created, nil
}

func (r *PGRepository) FindByParticipant(ctx context.Context, tx pgx.Tx, participantID string) (Plan, error) {
	query := `SELECT ` + planColumns + ` FROM funding_plans WHERE participant_id = $1`

	p, err := scanPlan(tx.QueryRow(ctx, query, participantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Plan{}, ErrNotFound
		}
		return Plan{}, fmt.Errorf("funding: find by participant: %w", err)
	}
	return p, nil
}

func scanPlan(row pgx.Row) (Plan, error) {
	var p Plan
	return p, row.Scan(
		&p.ID,
		&p.ParticipantID,
		&p.CoreBudget,
		&p.CapacityBuildingBudget,
		&p.CapitalBudget,
		&p.ValidFrom,
		&p.ValidUntil,
		&p.CreatedAt,
	)
}
