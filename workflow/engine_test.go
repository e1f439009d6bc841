package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"careflow/audit"
	"careflow/referral"
)

type fakeTx struct {
	committed bool
	rolled    bool
}

func (f *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (f *fakeTx) Commit(ctx context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if !f.committed {
		f.rolled = true
	}
	return nil
}

func (f *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn {
	return nil
}

type fakePool struct {
	tx *fakeTx
}

func (f *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	return f.tx, nil
}

type fakeReferralStore struct {
	cases     map[string]referral.Case
	updateErr error
}

func (f *fakeReferralStore) Get(ctx context.Context, id string) (referral.Case, error) {
	c, ok := f.cases[id]
	if !ok {
		return referral.Case{}, referral.ErrNotFound
	}
	return c, nil
}

func (f *fakeReferralStore) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (referral.Case, error) {
	return f.Get(ctx, id)
}

func (f *fakeReferralStore) UpdateStage(ctx context.Context, tx pgx.Tx, id, stage string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	c, ok := f.cases[id]
	if !ok {
		return referral.ErrNotFound
	}
	c.CurrentStage = stage
	f.cases[id] = c
	return nil
}

type fakeAuditLog struct {
	entries []audit.Entry
}

func (f *fakeAuditLog) Append(ctx context.Context, tx pgx.Tx, e audit.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAuditLog) History(ctx context.Context, referralID string) ([]audit.Entry, error) {
	var out []audit.Entry
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].ReferralID == referralID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

type fakeOutbox struct {
	topics   []string
	payloads []map[string]any
}

func (f *fakeOutbox) Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error {
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeRecorder struct {
	advanced []string
	failed   []string
}

func (f *fakeRecorder) Advanced(stage string) { f.advanced = append(f.advanced, stage) }
func (f *fakeRecorder) Failed(reason string)  { f.failed = append(f.failed, reason) }

func completeCase(stage string) referral.Case {
	pid := "participant-1"
	return referral.Case{
		ID:                "referral-1",
		ParticipantID:     &pid,
		FirstName:         "Jane",
		LastName:          "Doe",
		Email:             "jane.doe@example.com",
		Phone:             "0400 000 000",
		DateOfBirth:       "1990-04-12",
		NDISNumber:        "4301234567",
		PrimaryDisability: "autism",
		AddressLine:       "1 Example St",
		Suburb:            "Parramatta",
		State:             "NSW",
		Postcode:          "2150",
		FundingType:       "plan_managed",
		CurrentStage:      stage,
	}
}

func noopAutomations() Automations {
	automations := Automations{}
	for _, stage := range Onboarding().Stages() {
		if stage.Automated {
			automations[stage.ID] = func(ctx context.Context, tx pgx.Tx, c *referral.Case) error {
				return nil
			}
		}
	}
	return automations
}

func newTestEngine(store *fakeReferralStore, automations Automations, auditLog *fakeAuditLog) (*Engine, *fakePool) {
	pool := &fakePool{}
	engine := NewEngine(pool, Onboarding(), store, automations, auditLog).
		WithClock(func() time.Time { return time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC) })
	return engine, pool
}

func TestAdvanceUnknownReferral(t *testing.T) {
	store := &fakeReferralStore{cases: map[string]referral.Case{}}
	engine, _ := newTestEngine(store, noopAutomations(), &fakeAuditLog{})

	_, err := engine.Advance(context.Background(), AdvanceParams{ReferralID: "missing"})
	if !errors.Is(err, referral.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdvanceUnknownTargetStage(t *testing.T) {
	c := completeCase(StageReferralReceived)
	store := &fakeReferralStore{cases: map[string]referral.Case{c.ID: c}}
	engine, _ := newTestEngine(store, noopAutomations(), &fakeAuditLog{})

	_, err := engine.Advance(context.Background(), AdvanceParams{ReferralID: c.ID, TargetStage: "plan_review"})
	if !errors.Is(err, ErrStageNotFound) {
		t.Fatalf("expected ErrStageNotFound, got %v", err)
	}
}

func TestAdvanceAtTerminalStage(t *testing.T) {
	c := completeCase(StageServiceCommenced)
	store := &fakeReferralStore{cases: map[string]referral.Case{c.ID: c}}
	engine, _ := newTestEngine(store, noopAutomations(), &fakeAuditLog{})

	_, err := engine.Advance(context.Background(), AdvanceParams{ReferralID: c.ID})
	if !errors.Is(err, ErrNoNextStage) {
		t.Fatalf("expected ErrNoNextStage, got %v", err)
	}
	if store.cases[c.ID].CurrentStage != StageServiceCommenced {
		t.Errorf("terminal advance changed the stage")
	}
}

func TestAdvanceValidationFailureLeavesStage(t *testing.T) {
	c := completeCase(StageReferralReceived)
	c.NDISNumber = ""
	store := &fakeReferralStore{cases: map[string]referral.Case{c.ID: c}}
	auditLog := &fakeAuditLog{}
	engine, pool := newTestEngine(store, noopAutomations(), auditLog)

	_, err := engine.Advance(context.Background(), AdvanceParams{ReferralID: c.ID})
	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if missing.Field != "ndisNumber" {
		t.Errorf("expected missing ndisNumber, got %q", missing.Field)
	}
	if store.cases[c.ID].CurrentStage != StageReferralReceived {
		t.Errorf("failed advance changed the stage")
	}
	if len(auditLog.entries) != 0 {
		t.Errorf("failed advance wrote an audit entry")
	}
	if pool.tx.committed {
		t.Errorf("failed advance committed its transaction")
	}
	if !pool.tx.rolled {
		t.Errorf("failed advance did not roll back")
	}
}

func TestAdvanceAutomationFailureLeavesStage(t *testing.T) {
	c := completeCase(StageReferralReceived)
	store := &fakeReferralStore{cases: map[string]referral.Case{c.ID: c}}
	auditLog := &fakeAuditLog{}

	boom := errors.New("participant insert failed")
	automations := noopAutomations()
	automations[StageDataVerified] = func(ctx context.Context, tx pgx.Tx, c *referral.Case) error {
		return boom
	}
	engine, pool := newTestEngine(store, automations, auditLog)

	_, err := engine.Advance(context.Background(), AdvanceParams{ReferralID: c.ID})
	var auto *AutomationError
	if !errors.As(err, &auto) {
		t.Fatalf("expected AutomationError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
	if store.cases[c.ID].CurrentStage != StageReferralReceived {
		t.Errorf("failed advance changed the stage")
	}
	if len(auditLog.entries) != 0 {
		t.Errorf("failed advance wrote an audit entry")
	}
	if pool.tx.committed {
		t.Errorf("failed advance committed its transaction")
	}
}

func TestAdvanceToSuccessor(t *testing.T) {
	c := completeCase(StageReferralReceived)
	store := &fakeReferralStore{cases: map[string]referral.Case{c.ID: c}}
	auditLog := &fakeAuditLog{}
	outbox := &fakeOutbox{}
	engine, pool := newTestEngine(store, noopAutomations(), auditLog)
	engine.WithOutbox(outbox)

	res, err := engine.Advance(context.Background(), AdvanceParams{
		ReferralID: c.ID,
		Actor:      "intake.officer",
		Notes:      "phone screening complete",
	})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if res.FromStage != StageReferralReceived || res.CurrentStage != StageDataVerified {
		t.Fatalf("unexpected transition %s -> %s", res.FromStage, res.CurrentStage)
	}
	if store.cases[c.ID].CurrentStage != StageDataVerified {
		t.Errorf("stage not persisted")
	}
	if !pool.tx.committed {
		t.Errorf("successful advance did not commit")
	}

	if len(auditLog.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(auditLog.entries))
	}
	entry := auditLog.entries[0]
	if entry.ReferralID != c.ID {
		t.Errorf("audit entry missing referral id, got %q", entry.ReferralID)
	}
	if entry.FromStage != StageReferralReceived || entry.ToStage != StageDataVerified {
		t.Errorf("audit entry recorded %s -> %s", entry.FromStage, entry.ToStage)
	}
	if entry.Action != ActionStageAdvancement {
		t.Errorf("audit entry action %q", entry.Action)
	}
	if entry.PerformedBy != "intake.officer" {
		t.Errorf("audit entry performed by %q", entry.PerformedBy)
	}
	if entry.Notes != "phone screening complete" {
		t.Errorf("audit entry notes %q", entry.Notes)
	}

	if len(outbox.topics) != 1 || outbox.topics[0] != "workflow.stage_advanced" {
		t.Errorf("expected one outbox event, got %v", outbox.topics)
	}
}

func TestAdvanceDefaultsActorToSystem(t *testing.T) {
	c := completeCase(StageAgreementSent)
	store := &fakeReferralStore{cases: map[string]referral.Case{c.ID: c}}
	auditLog := &fakeAuditLog{}
	engine, _ := newTestEngine(store, noopAutomations(), auditLog)

	if _, err := engine.Advance(context.Background(), AdvanceParams{ReferralID: c.ID}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if len(auditLog.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(auditLog.entries))
	}
	if auditLog.entries[0].PerformedBy != audit.PerformedBySystem {
		t.Errorf("expected system actor, got %q", auditLog.entries[0].PerformedBy)
	}
}

func TestAdvanceExplicitTarget(t *testing.T) {
	c := completeCase(StageAgreementSent)
	store := &fakeReferralStore{cases: map[string]referral.Case{c.ID: c}}
	engine, _ := newTestEngine(store, noopAutomations(), &fakeAuditLog{})

	res, err := engine.Advance(context.Background(), AdvanceParams{
		ReferralID:  c.ID,
		TargetStage: StageFundingVerification,
	})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if res.CurrentStage != StageFundingVerification {
		t.Errorf("expected funding_verification, got %s", res.CurrentStage)
	}
}

func TestAdvanceRecordsMetrics(t *testing.T) {
	c := completeCase(StageReferralReceived)
	store := &fakeReferralStore{cases: map[string]referral.Case{c.ID: c}}
	recorder := &fakeRecorder{}
	engine, _ := newTestEngine(store, noopAutomations(), &fakeAuditLog{})
	engine.WithRecorder(recorder)

	if _, err := engine.Advance(context.Background(), AdvanceParams{ReferralID: c.ID}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := engine.Advance(context.Background(), AdvanceParams{ReferralID: "missing"}); err == nil {
		t.Fatal("expected failure for missing referral")
	}

	if len(recorder.advanced) != 1 || recorder.advanced[0] != StageDataVerified {
		t.Errorf("expected one advance for data_verified, got %v", recorder.advanced)
	}
	if len(recorder.failed) != 1 || recorder.failed[0] != "not_found" {
		t.Errorf("expected one not_found failure, got %v", recorder.failed)
	}
}

func TestStatusReportsGateAndHistory(t *testing.T) {
	c := completeCase(StageReferralReceived)
	store := &fakeReferralStore{cases: map[string]referral.Case{c.ID: c}}
	auditLog := &fakeAuditLog{}
	engine, _ := newTestEngine(store, noopAutomations(), auditLog)
	ctx := context.Background()

	status, err := engine.Status(ctx, c.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CurrentStage != StageReferralReceived {
		t.Errorf("expected referral_received, got %s", status.CurrentStage)
	}
	if !status.CanAdvance {
		t.Errorf("expected complete case to be advanceable")
	}
	if len(status.History) != 0 {
		t.Errorf("expected empty history, got %d entries", len(status.History))
	}

	if _, err := engine.Advance(ctx, AdvanceParams{ReferralID: c.ID}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	status, err = engine.Status(ctx, c.ID)
	if err != nil {
		t.Fatalf("status after advance: %v", err)
	}
	if status.CurrentStage != StageDataVerified {
		t.Errorf("expected data_verified, got %s", status.CurrentStage)
	}
	if len(status.History) != 1 {
		t.Fatalf("expected one history entry, got %d", len(status.History))
	}
}

func TestStatusBlockedByGate(t *testing.T) {
	c := completeCase(StageDataVerified)
	c.Email = ""
	store := &fakeReferralStore{cases: map[string]referral.Case{c.ID: c}}
	engine, _ := newTestEngine(store, noopAutomations(), &fakeAuditLog{})

	status, err := engine.Status(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CanAdvance {
		t.Errorf("expected canAdvance=false while email is missing")
	}
}

func TestStatusAtTerminalStage(t *testing.T) {
	c := completeCase(StageServiceCommenced)
	store := &fakeReferralStore{cases: map[string]referral.Case{c.ID: c}}
	engine, _ := newTestEngine(store, noopAutomations(), &fakeAuditLog{})

	status, err := engine.Status(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CanAdvance {
		t.Errorf("terminal stage reported as advanceable")
	}
}
