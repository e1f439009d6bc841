package agreement

import "time"

// Status represents the lifecycle of a service agreement.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusPending Status = "pending"
	StatusSigned  Status = "signed"
)

// Agreement mirrors the service_agreements table.
type Agreement struct {
	ID            string
	ParticipantID string
	Status        Status
	Content       string
	GeneratedDate time.Time
	SentDate      *time.Time
	ValidFrom     time.Time
	ValidUntil    time.Time
	CreatedAt     time.Time
}
