package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the append-only audit store. There is no update or delete.
type Repository interface {
	Append(ctx context.Context, tx pgx.Tx, e Entry) error
	History(ctx context.Context, referralID string) ([]Entry, error)
	HistoryAll(ctx context.Context) ([]Entry, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Append(ctx context.Context, tx pgx.Tx, e Entry) error {
	if e.PerformedBy == "" {
		e.PerformedBy = PerformedBySystem
	}
	_, err := tx.Exec(ctx, `
        INSERT INTO workflow_audit (referral_id, from_stage, to_stage, action, performed_by, notes)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, e.ReferralID, e.FromStage, e.ToStage, e.Action, e.PerformedBy, e.Notes)
	if err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

// History returns the referral's transitions, most recent first.
func (r *PGRepository) History(ctx context.Context, referralID string) ([]Entry, error) {
	const query = `
        SELECT id, referral_id, from_stage, to_stage, action, performed_by, notes, created_at
        FROM workflow_audit
        WHERE referral_id = $1
        ORDER BY id DESC
    `
	rows, err := r.pool.Query(ctx, query, referralID)
	if err != nil {
		return nil, fmt.Errorf("audit: history: %w", err)
	}
	return collectEntries(rows)
}

// HistoryAll returns the whole log, most recent first. Consumed by the ops
// dashboard feed.
func (r *PGRepository) HistoryAll(ctx context.Context) ([]Entry, error) {
	const query = `
        SELECT id, referral_id, from_stage, to_stage, action, performed_by, notes, created_at
        FROM workflow_audit
        ORDER BY id DESC
    `
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("audit: history all: %w", err)
	}
	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.ReferralID,
			&e.FromStage,
			&e.ToStage,
			&e.Action,
			&e.PerformedBy,
			&e.Notes,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate entries: %w", err)
	}
	return out, nil
}
