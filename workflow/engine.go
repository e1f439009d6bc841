package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"careflow/audit"
	"careflow/referral"
)

// ActionStageAdvancement labels every audit entry the engine writes.
const ActionStageAdvancement = "stage_advancement"

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ReferralStore is the slice of the referral repository the engine needs.
type ReferralStore interface {
	Get(ctx context.Context, id string) (referral.Case, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (referral.Case, error)
	UpdateStage(ctx context.Context, tx pgx.Tx, id, stage string) error
}

// AuditLog records transitions and serves history reads.
type AuditLog interface {
	Append(ctx context.Context, tx pgx.Tx, e audit.Entry) error
	History(ctx context.Context, referralID string) ([]audit.Entry, error)
}

// OutboxWriter publishes workflow events for the notification collaborators.
type OutboxWriter interface {
	Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error
}

// Recorder counts advance outcomes for the metrics endpoint.
type Recorder interface {
	Advanced(stage string)
	Failed(reason string)
}

// Engine orchestrates a single stage advance: load under lock, resolve the
// target, validate, run automation, persist, audit. Everything happens in one
// transaction, so concurrent advances on the same referral serialize on the
// row lock and a failure anywhere leaves the referral at its previous stage.
type Engine struct {
	pool        TxBeginner
	registry    *Registry
	referrals   ReferralStore
	automations Automations
	auditLog    AuditLog
	outbox      OutboxWriter
	recorder    Recorder
	outboxTopic string
	now         func() time.Time
}

func NewEngine(pool TxBeginner, registry *Registry, referrals ReferralStore, automations Automations, auditLog AuditLog) *Engine {
	return &Engine{
		pool:        pool,
		registry:    registry,
		referrals:   referrals,
		automations: automations,
		auditLog:    auditLog,
		outboxTopic: "workflow.stage_advanced",
		now:         time.Now,
	}
}

func (e *Engine) WithOutbox(w OutboxWriter) *Engine {
	e.outbox = w
	return e
}

func (e *Engine) WithRecorder(r Recorder) *Engine {
	e.recorder = r
	return e
}

func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Registry exposes the injected stage chain for read-only consumers.
func (e *Engine) Registry() *Registry {
	return e.registry
}

type AdvanceParams struct {
	ReferralID  string
	TargetStage string
	Actor       string
	Notes       string
}

type AdvanceResult struct {
	FromStage    string
	CurrentStage string
}

// Advance moves the referral to the explicit target stage, or to the
// successor of its current stage when none is given.
func (e *Engine) Advance(ctx context.Context, params AdvanceParams) (AdvanceResult, error) {
	res, err := e.advance(ctx, params)
	if e.recorder != nil {
		if err != nil {
			e.recorder.Failed(failureReason(err))
		} else {
			e.recorder.Advanced(res.CurrentStage)
		}
	}
	return res, err
}

func (e *Engine) advance(ctx context.Context, params AdvanceParams) (AdvanceResult, error) {
	if params.ReferralID == "" {
		return AdvanceResult{}, fmt.Errorf("workflow: missing referral id")
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return AdvanceResult{}, fmt.Errorf("workflow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := e.referrals.GetForUpdate(ctx, tx, params.ReferralID)
	if err != nil {
		return AdvanceResult{}, err
	}

	target, err := e.resolveTarget(c, params.TargetStage)
	if err != nil {
		return AdvanceResult{}, err
	}

	if err := validateFields(c, target); err != nil {
		return AdvanceResult{}, err
	}

	if err := e.automations.Run(ctx, tx, &c, target); err != nil {
		return AdvanceResult{}, err
	}

	fromStage := c.CurrentStage
	if err := e.referrals.UpdateStage(ctx, tx, c.ID, target.ID); err != nil {
		return AdvanceResult{}, err
	}

	actor := params.Actor
	if actor == "" {
		actor = audit.PerformedBySystem
	}
	if err := e.auditLog.Append(ctx, tx, audit.Entry{
		ReferralID:  c.ID,
		FromStage:   fromStage,
		ToStage:     target.ID,
		Action:      ActionStageAdvancement,
		PerformedBy: actor,
		Notes:       params.Notes,
		CreatedAt:   e.now(),
	}); err != nil {
		return AdvanceResult{}, err
	}

	if e.outbox != nil {
		if err := e.outbox.Enqueue(ctx, tx, e.outboxTopic, map[string]any{
			"referral_id": c.ID,
			"from_stage":  fromStage,
			"to_stage":    target.ID,
			"actor":       actor,
		}); err != nil {
			return AdvanceResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return AdvanceResult{}, fmt.Errorf("workflow: commit tx: %w", err)
	}

	slog.InfoContext(ctx, "stage advanced",
		"referral_id", c.ID, "from", fromStage, "to", target.ID, "actor", actor)

	return AdvanceResult{FromStage: fromStage, CurrentStage: target.ID}, nil
}

// resolveTarget picks the explicit target when one is given. The engine does
// not stop a caller from jumping stages; only the required-fields gate does.
func (e *Engine) resolveTarget(c referral.Case, explicit string) (Stage, error) {
	if explicit != "" {
		return e.registry.Stage(explicit)
	}
	current, err := e.registry.Stage(c.CurrentStage)
	if err != nil {
		return Stage{}, err
	}
	if current.NextStage == "" {
		return Stage{}, ErrNoNextStage
	}
	return e.registry.Stage(current.NextStage)
}

// Status describes where a referral sits in the chain.
type Status struct {
	CurrentStage string
	StageConfig  Stage
	CanAdvance   bool
	History      []audit.Entry
}

// Status reports the referral's current stage, its configuration, whether an
// advance to the successor would pass the validation gate, and the
// transition history (most recent first).
func (e *Engine) Status(ctx context.Context, referralID string) (Status, error) {
	if referralID == "" {
		return Status{}, fmt.Errorf("workflow: missing referral id")
	}

	c, err := e.referrals.Get(ctx, referralID)
	if err != nil {
		return Status{}, err
	}

	stage, err := e.registry.Stage(c.CurrentStage)
	if err != nil {
		return Status{}, err
	}

	canAdvance := false
	if stage.NextStage != "" {
		next, err := e.registry.Stage(stage.NextStage)
		if err != nil {
			return Status{}, err
		}
		canAdvance = validateFields(c, next) == nil
	}

	history, err := e.auditLog.History(ctx, c.ID)
	if err != nil {
		return Status{}, err
	}

	return Status{
		CurrentStage: c.CurrentStage,
		StageConfig:  stage,
		CanAdvance:   canAdvance,
		History:      history,
	}, nil
}

func failureReason(err error) string {
	var missing *MissingFieldError
	var auto *AutomationError
	switch {
	case errors.Is(err, referral.ErrNotFound), errors.Is(err, ErrStageNotFound):
		return "not_found"
	case errors.Is(err, ErrNoNextStage):
		return "no_next_stage"
	case errors.As(err, &missing):
		return "validation"
	case errors.As(err, &auto):
		return "automation"
	default:
		return "internal"
	}
}
