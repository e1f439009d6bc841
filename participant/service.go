package participant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"careflow/referral"
)

const (
	defaultDisability = "not specified"
	defaultState      = "NSW"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ReferralStore is the slice of the referral package this service needs.
type ReferralStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (referral.Case, error)
	LinkParticipant(ctx context.Context, tx pgx.Tx, id, participantID string) error
}

// Service creates participant records from verified referrals.
type Service struct {
	pool        TxBeginner
	repo        Repository
	referrals   ReferralStore
	idGenerator func() string
	now         func() time.Time
}

func NewService(pool TxBeginner, repo Repository, referrals ReferralStore) *Service {
	return &Service{
		pool:        pool,
		repo:        repo,
		referrals:   referrals,
		idGenerator: func() string { return uuid.NewString() },
		now:         time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

// EnsureFromReferral creates the participant for a referral case if one does
// not already exist and links it back onto the referral row. Safe to call
// repeatedly; the second call returns the existing participant id.
func (s *Service) EnsureFromReferral(ctx context.Context, tx pgx.Tx, c *referral.Case) (string, error) {
	existing, err := s.repo.FindByReferral(ctx, tx, c.ID)
	if err == nil {
		c.ParticipantID = &existing.ID
		return existing.ID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	rec := Record{
		ID:                s.idGenerator(),
		ReferralID:        c.ID,
		FirstName:         c.FirstName,
		LastName:          c.LastName,
		Email:             c.Email,
		Phone:             c.Phone,
		DateOfBirth:       c.DateOfBirth,
		NDISNumber:        c.NDISNumber,
		PrimaryDisability: c.PrimaryDisability,
		State:             c.State,
		Active:            true,
	}
	if rec.NDISNumber == "" {
		rec.NDISNumber = s.syntheticNDISNumber()
	}
	if rec.PrimaryDisability == "" {
		rec.PrimaryDisability = defaultDisability
	}
	if rec.State == "" {
		rec.State = defaultState
	}

	created, err := s.repo.Create(ctx, tx, rec)
	if err != nil {
		return "", err
	}
	if err := s.referrals.LinkParticipant(ctx, tx, c.ID, created.ID); err != nil {
		return "", err
	}
	c.ParticipantID = &created.ID
	return created.ID, nil
}

// CreateFromReferral is the standalone, idempotent entry point behind
// POST /api/referrals/{id}/participant.
func (s *Service) CreateFromReferral(ctx context.Context, referralID string) (string, error) {
	if referralID == "" {
		return "", fmt.Errorf("participant: missing referral id")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("participant: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := s.referrals.GetForUpdate(ctx, tx, referralID)
	if err != nil {
		return "", err
	}

	id, err := s.EnsureFromReferral(ctx, tx, &c)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("participant: commit tx: %w", err)
	}
	return id, nil
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("participant: missing id")
	}
	return s.repo.Get(ctx, id)
}

// syntheticNDISNumber produces an NDIS-style identifier (43 followed by eight
// digits) for referrals that arrive without one.
func (s *Service) syntheticNDISNumber() string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s.idGenerator())
	for len(digits) < 8 {
		digits += "0"
	}
	return "43" + digits[:8]
}
