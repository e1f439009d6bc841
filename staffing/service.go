package staffing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNoStaffAvailable is returned when no active staff hold an eligible
// position. The message is surfaced verbatim to the initiating UI.
var ErrNoStaffAvailable = errors.New("No available staff found")

const (
	allocationSize     = 2
	defaultServiceName = "Daily Living Support"
	defaultHourlyRate  = 67.56
	defaultDuration    = 2
	defaultFrequency   = "weekly"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service allocates staff to participants and records the scheduled services.
type Service struct {
	pool        TxBeginner
	repo        Repository
	matcher     Matcher
	idGenerator func() string
	now         func() time.Time
}

func NewService(pool TxBeginner, repo Repository, matcher Matcher) *Service {
	if matcher == nil {
		matcher = NewFirstAvailableMatcher(repo)
	}
	return &Service{
		pool:        pool,
		repo:        repo,
		matcher:     matcher,
		idGenerator: func() string { return uuid.NewString() },
		now:         time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

// EnsureAllocation allocates up to two eligible staff to the participant and
// creates a scheduled service per staff member. A participant who already has
// services keeps them; the existing staff ids are returned so a retried
// advance cannot double-allocate.
func (s *Service) EnsureAllocation(ctx context.Context, tx pgx.Tx, participantID string) ([]string, error) {
	existing, err := s.repo.ServicesByParticipant(ctx, tx, participantID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		ids := make([]string, 0, len(existing))
		for _, svc := range existing {
			ids = append(ids, svc.StaffID)
		}
		return ids, nil
	}

	staff, err := s.matcher.Match(ctx, tx, participantID, allocationSize)
	if err != nil {
		return nil, err
	}
	if len(staff) == 0 {
		return nil, ErrNoStaffAvailable
	}

	ids := make([]string, 0, len(staff))
	for _, member := range staff {
		if _, err := s.repo.CreateService(ctx, tx, ScheduledService{
			ID:            s.idGenerator(),
			ParticipantID: participantID,
			StaffID:       member.ID,
			Name:          defaultServiceName,
			HourlyRate:    defaultHourlyRate,
			DurationHours: defaultDuration,
			Frequency:     defaultFrequency,
		}); err != nil {
			return nil, err
		}
		ids = append(ids, member.ID)
	}
	return ids, nil
}

// Allocate is the standalone entry point behind
// POST /api/participants/{id}/allocate-staff.
func (s *Service) Allocate(ctx context.Context, participantID string) ([]string, error) {
	if participantID == "" {
		return nil, fmt.Errorf("staffing: missing participant id")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("staffing: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ids, err := s.EnsureAllocation(ctx, tx, participantID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("staffing: commit tx: %w", err)
	}
	return ids, nil
}
