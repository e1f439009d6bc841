package staffing

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Matcher selects staff for a participant allocation. The interface exists so
// a scoring strategy (location, qualifications, caseload) can replace the
// default without touching the workflow engine.
type Matcher interface {
	Match(ctx context.Context, tx pgx.Tx, participantID string, limit int) ([]Staff, error)
}

// FirstAvailableMatcher picks the first N active staff holding an eligible
// position, ordered by hire date.
type FirstAvailableMatcher struct {
	repo      Repository
	positions []string
}

func NewFirstAvailableMatcher(repo Repository) *FirstAvailableMatcher {
	return &FirstAvailableMatcher{repo: repo, positions: EligiblePositions}
}

func (m *FirstAvailableMatcher) Match(ctx context.Context, tx pgx.Tx, participantID string, limit int) ([]Staff, error) {
	return m.repo.FindAvailable(ctx, tx, m.positions, limit)
}
