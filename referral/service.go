package referral

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DefaultStage is the stage every new referral enters the workflow at.
const DefaultStage = "referral_received"

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service handles referral intake. Stage mutations are owned by the
// transition engine and are deliberately not exposed here.
type Service struct {
	pool         TxBeginner
	repo         Repository
	idGenerator  func() string
	now          func() time.Time
	defaultStage string
}

type CreateParams struct {
	FirstName         string
	LastName          string
	Email             string
	Phone             string
	DateOfBirth       string
	NDISNumber        string
	PrimaryDisability string
	AddressLine       string
	Suburb            string
	State             string
	Postcode          string
	FundingType       string
	ReferralSource    string
}

func NewService(pool TxBeginner, repo Repository) *Service {
	return &Service{
		pool:         pool,
		repo:         repo,
		idGenerator:  func() string { return uuid.NewString() },
		now:          time.Now,
		defaultStage: DefaultStage,
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

func (s *Service) Create(ctx context.Context, params CreateParams) (Case, error) {
	if params.FirstName == "" || params.LastName == "" {
		return Case{}, fmt.Errorf("referral: first and last name required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Case{}, fmt.Errorf("referral: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	c := Case{
		ID:                s.idGenerator(),
		FirstName:         params.FirstName,
		LastName:          params.LastName,
		Email:             params.Email,
		Phone:             params.Phone,
		DateOfBirth:       params.DateOfBirth,
		NDISNumber:        params.NDISNumber,
		PrimaryDisability: params.PrimaryDisability,
		AddressLine:       params.AddressLine,
		Suburb:            params.Suburb,
		State:             params.State,
		Postcode:          params.Postcode,
		FundingType:       params.FundingType,
		ReferralSource:    params.ReferralSource,
		CurrentStage:      s.defaultStage,
	}

	created, err := s.repo.Create(ctx, tx, c)
	if err != nil {
		return Case{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Case{}, fmt.Errorf("referral: commit tx: %w", err)
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (Case, error) {
	if id == "" {
		return Case{}, fmt.Errorf("referral: missing id")
	}
	return s.repo.Get(ctx, id)
}
