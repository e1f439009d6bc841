package staffing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrStaffNotFound = errors.New("staffing: staff not found")
)

type Repository interface {
	FindAvailable(ctx context.Context, tx pgx.Tx, positions []string, limit int) ([]Staff, error)
	CreateStaff(ctx context.Context, s Staff) (Staff, error)
	CreateService(ctx context.Context, tx pgx.Tx, svc ScheduledService) (ScheduledService, error)
	ServicesByParticipant(ctx context.Context, tx pgx.Tx, participantID string) ([]ScheduledService, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) FindAvailable(ctx context.Context, tx pgx.Tx, positions []string, limit int) ([]Staff, error) {
	const query = `
        SELECT id, first_name, last_name, position, active, hired_at
        FROM staff
        WHERE active AND position = ANY($1)
        ORDER BY hired_at ASC
        LIMIT $2
    `
	rows, err := tx.Query(ctx, query, positions, limit)
	if err != nil {
		return nil, fmt.Errorf("staffing: find available: %w", err)
	}
	defer rows.Close()

	out := make([]Staff, 0, limit)
	for rows.Next() {
		var s Staff
		if err := rows.Scan(&s.ID, &s.FirstName, &s.LastName, &s.Position, &s.Active, &s.HiredAt); err != nil {
			return nil, fmt.Errorf("staffing: scan staff: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("staffing: iterate staff: %w", err)
	}
	return out, nil
}

func (r *PGRepository) CreateStaff(ctx context.Context, s Staff) (Staff, error) {
	const query = `
        INSERT INTO staff (id, first_name, last_name, position, active)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5)
        RETURNING id, first_name, last_name, position, active, hired_at
    `
	var created Staff
	err := r.pool.QueryRow(ctx, query, s.ID, s.FirstName, s.LastName, s.Position, s.Active).
		Scan(&created.ID, &created.FirstName, &created.LastName, &created.Position, &created.Active, &created.HiredAt)
	if err != nil {
		return Staff{}, fmt.Errorf("staffing: create staff: %w", err)
	}
	return created, nil
}

func (r *PGRepository) CreateService(ctx context.Context, tx pgx.Tx, svc ScheduledService) (ScheduledService, error) {
	const query = `
        INSERT INTO services (id, participant_id, staff_id, name, hourly_rate, duration_hours, frequency)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7)
        RETURNING id, participant_id, staff_id, name, hourly_rate, duration_hours, frequency, created_at
    `
	var created ScheduledService
	err := tx.QueryRow(ctx, query,
		svc.ID,
		svc.ParticipantID,
		svc.StaffID,
		svc.Name,
		svc.HourlyRate,
		svc.DurationHours,
		svc.Frequency,
	).Scan(
		&created.ID,
		&created.ParticipantID,
		&created.StaffID,
		&created.Name,
		&created.HourlyRate,
		&created.DurationHours,
		&created.Frequency,
		&created.CreatedAt,
	)
	if err != nil {
		return ScheduledService{}, fmt.Errorf("staffing: create service: %w", err)
	}
	return created, nil
}

func (r *PGRepository) ServicesByParticipant(ctx context.Context, tx pgx.Tx, participantID string) ([]ScheduledService, error) {
	const query = `
        SELECT id, participant_id, staff_id, name, hourly_rate, duration_hours, frequency, created_at
        FROM services
        WHERE participant_id = $1
        ORDER BY created_at ASC
    `
	rows, err := tx.Query(ctx, query, participantID)
	if err != nil {
		return nil, fmt.Errorf("staffing: services by participant: %w", err)
	}
	defer rows.Close()

	out := []ScheduledService{}
	for rows.Next() {
		var svc ScheduledService
		if err := rows.Scan(
			&svc.ID,
			&svc.ParticipantID,
			&svc.StaffID,
			&svc.Name,
			&svc.HourlyRate,
			&svc.DurationHours,
			&svc.Frequency,
			&svc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("staffing: scan service: %w", err)
		}
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("staffing: iterate services: %w", err)
	}
	return out, nil
}
