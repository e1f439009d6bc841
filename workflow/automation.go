package workflow

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"careflow/referral"
)

// ParticipantStore creates participant records from verified referrals.
type ParticipantStore interface {
	EnsureFromReferral(ctx context.Context, tx pgx.Tx, c *referral.Case) (string, error)
}

// AgreementStore generates and dispatches service agreements.
type AgreementStore interface {
	EnsureDraft(ctx context.Context, tx pgx.Tx, participantID string) (string, error)
	SendLatest(ctx context.Context, tx pgx.Tx, participantID string) error
}

// FundingStore verifies funding and provisions plans.
type FundingStore interface {
	Verify(ctx context.Context, tx pgx.Tx, participantID string) error
	EnsurePlan(ctx context.Context, tx pgx.Tx, participantID string) (string, error)
}

// StaffAllocator allocates support staff and schedules their services.
type StaffAllocator interface {
	EnsureAllocation(ctx context.Context, tx pgx.Tx, participantID string) ([]string, error)
}

// AutomationFunc is the side-effecting action run when an automated stage is
// entered. Every automation must tolerate re-invocation: a failed advance
// leaves the stage unchanged, so a retry runs the same automation again.
type AutomationFunc func(ctx context.Context, tx pgx.Tx, c *referral.Case) error

// Automations maps stage id to its automation. Manual stages have no entry.
type Automations map[string]AutomationFunc

type AutomationDeps struct {
	Participants ParticipantStore
	Agreements   AgreementStore
	Funding      FundingStore
	Staffing     StaffAllocator
}

var errParticipantNotLinked = errors.New("referral has no linked participant")

// NewAutomations builds the dispatch table for the onboarding chain.
func NewAutomations(d AutomationDeps) Automations {
	return Automations{
		StageDataVerified: func(ctx context.Context, tx pgx.Tx, c *referral.Case) error {
			_, err := d.Participants.EnsureFromReferral(ctx, tx, c)
			return err
		},
		StageServiceAgreementPrepared: func(ctx context.Context, tx pgx.Tx, c *referral.Case) error {
			id, err := linkedParticipant(c)
			if err != nil {
				return err
			}
			_, err = d.Agreements.EnsureDraft(ctx, tx, id)
			return err
		},
		StageAgreementSent: func(ctx context.Context, tx pgx.Tx, c *referral.Case) error {
			id, err := linkedParticipant(c)
			if err != nil {
				return err
			}
			return d.Agreements.SendLatest(ctx, tx, id)
		},
		StageFundingVerification: func(ctx context.Context, tx pgx.Tx, c *referral.Case) error {
			id, err := linkedParticipant(c)
			if err != nil {
				return err
			}
			return d.Funding.Verify(ctx, tx, id)
		},
		StageFundingVerified: func(ctx context.Context, tx pgx.Tx, c *referral.Case) error {
			id, err := linkedParticipant(c)
			if err != nil {
				return err
			}
			_, err = d.Funding.EnsurePlan(ctx, tx, id)
			return err
		},
		StageStaffAllocation: func(ctx context.Context, tx pgx.Tx, c *referral.Case) error {
			id, err := linkedParticipant(c)
			if err != nil {
				return err
			}
			_, err = d.Staffing.EnsureAllocation(ctx, tx, id)
			return err
		},
		// staff_allocation already created the scheduled services.
		StageWorkerAllocated: func(ctx context.Context, tx pgx.Tx, c *referral.Case) error {
			return nil
		},
	}
}

// Run executes the automation for the target stage. Manual stages are a
// no-op success.
func (a Automations) Run(ctx context.Context, tx pgx.Tx, c *referral.Case, target Stage) error {
	if !target.Automated {
		return nil
	}
	fn, ok := a[target.ID]
	if !ok {
		return &AutomationError{Stage: target.ID, Err: errors.New("no automation registered")}
	}
	if err := fn(ctx, tx, c); err != nil {
		return &AutomationError{Stage: target.ID, Err: err}
	}
	return nil
}

func linkedParticipant(c *referral.Case) (string, error) {
	if c.ParticipantID == nil || *c.ParticipantID == "" {
		return "", errParticipantNotLinked
	}
	return *c.ParticipantID, nil
}
