package audit

import "time"

// PerformedBySystem is recorded when no human actor initiated a transition.
const PerformedBySystem = "system"

// Entry is one immutable stage-transition record. Entries carry the referral
// id so per-referral history is a filtered read, not the global log.
type Entry struct {
	ID          int64
	ReferralID  string
	FromStage   string
	ToStage     string
	Action      string
	PerformedBy string
	Notes       string
	CreatedAt   time.Time
}
