package agreement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const providerName = "Sunrise Community Care"

var contentTemplate = template.Must(template.New("agreement").Parse(strings.TrimSpace(`
SERVICE AGREEMENT

Provider:    {{.Provider}}
Participant: {{.Participant}}

This agreement covers NDIS supports delivered by {{.Provider}} to
{{.Participant}} from {{.ValidFrom}} until {{.ValidUntil}}. Supports are
delivered in line with the participant's NDIS plan and the NDIS Code of
Conduct. Either party may end this agreement with 14 days written notice.
`)))

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service generates and dispatches service agreements.
type Service struct {
	pool        TxBeginner
	repo        Repository
	idGenerator func() string
	now         func() time.Time
}

func NewService(pool TxBeginner, repo Repository) *Service {
	return &Service{
		pool:        pool,
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

// EnsureDraft renders and stores a draft agreement for the participant with a
// one-year validity window. An existing draft is returned instead of creating
// a second one, so a retried workflow advance cannot duplicate agreements.
func (s *Service) EnsureDraft(ctx context.Context, tx pgx.Tx, participantID string) (string, error) {
	existing, err := s.repo.FindDraftByParticipant(ctx, tx, participantID)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	name, err := s.repo.ParticipantName(ctx, tx, participantID)
	if err != nil {
		return "", err
	}

	now := s.now()
	validFrom := now
	validUntil := now.AddDate(1, 0, 0)

	var content strings.Builder
	if err := contentTemplate.Execute(&content, map[string]string{
		"Provider":    providerName,
		"Participant": name,
		"ValidFrom":   validFrom.Format("2 January 2006"),
		"ValidUntil":  validUntil.Format("2 January 2006"),
	}); err != nil {
		return "", fmt.Errorf("agreement: render content: %w", err)
	}

	created, err := s.repo.Create(ctx, tx, Agreement{
		ID:            s.idGenerator(),
		ParticipantID: participantID,
		Status:        StatusDraft,
		Content:       content.String(),
		GeneratedDate: now,
		ValidFrom:     validFrom,
		ValidUntil:    validUntil,
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// SendLatest marks the participant's most recently created agreement as
// pending with a sent date. A participant with no agreement is a no-op; the
// workflow moves on and the agreement can be dispatched manually later.
func (s *Service) SendLatest(ctx context.Context, tx pgx.Tx, participantID string) error {
	latest, err := s.repo.LatestByParticipant(ctx, tx, participantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if _, err := s.repo.MarkPending(ctx, tx, latest.ID, s.now()); err != nil {
		return err
	}
	return nil
}

// Generate is the standalone entry point behind
// POST /api/participants/{id}/agreements.
func (s *Service) Generate(ctx context.Context, participantID string) (string, error) {
	if participantID == "" {
		return "", fmt.Errorf("agreement: missing participant id")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("agreement: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	id, err := s.EnsureDraft(ctx, tx, participantID)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("agreement: commit tx: %w", err)
	}
	return id, nil
}

// Send is the standalone entry point behind POST /api/agreements/{id}/send.
// Unlike SendLatest it fails loudly when the agreement does not exist.
func (s *Service) Send(ctx context.Context, agreementID string) error {
	if agreementID == "" {
		return fmt.Errorf("agreement: missing agreement id")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("agreement: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.repo.MarkPending(ctx, tx, agreementID, s.now()); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("agreement: commit tx: %w", err)
	}
	return nil
}
