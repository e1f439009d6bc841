package funding

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Default one-year plan budgets, representative of a core-heavy NDIS plan.
const (
	defaultCoreBudget             = 45000.00
	defaultCapacityBuildingBudget = 12000.00
	defaultCapitalBudget          = 8000.00
)

// Service verifies participant funding and provisions default plans.
type Service struct {
	repo        Repository
	idGenerator func() string
	now         func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:        repo,
		idGenerator: func() string { return uuid.NewString() },
		now:         time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Verify checks the participant's funding with the NDIS plan system.
// The external integration is not built yet; verification currently records
// the check and succeeds.
// TODO: call the PRODA plan lookup once provider API access is approved.
func (s *Service) Verify(ctx context.Context, tx pgx.Tx, participantID string) error {
	slog.InfoContext(ctx, "funding verification passed", "participant_id", participantID)
	return nil
}

// EnsurePlan creates the participant's default one-year funding plan if none
// exists. Safe to call repeatedly.
func (s *Service) EnsurePlan(ctx context.Context, tx pgx.Tx, participantID string) (string, error) {
	existing, err := s.repo.FindByParticipant(ctx, tx, participantID)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	now := s.now()
	created, err := s.repo.Create(ctx, tx, Plan{
		ID:                     s.idGenerator(),
		ParticipantID:          participantID,
		CoreBudget:             defaultCoreBudget,
		CapacityBuildingBudget: defaultCapacityBuildingBudget,
		CapitalBudget:          defaultCapitalBudget,
		ValidFrom:              now,
		ValidUntil:             now.AddDate(1, 0, 0),
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}
