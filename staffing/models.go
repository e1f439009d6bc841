package staffing

import "time"

// Staff captures the subset of HR's staff data the allocator reads.
type Staff struct {
	ID        string
	FirstName string
	LastName  string
	Position  string
	Active    bool
	HiredAt   time.Time
}

// ScheduledService links an allocated staff member to a participant with the
// support definition they deliver. Created once; never mutated by the
// workflow engine afterwards.
type ScheduledService struct {
	ID            string
	ParticipantID string
	StaffID       string
	Name          string
	HourlyRate    float64
	DurationHours int
	Frequency     string
	CreatedAt     time.Time
}

// EligiblePositions are the position titles considered for participant
// allocation. Selection is first-N-available; there is no geographic or
// qualification scoring.
var EligiblePositions = []string{
	"Support Worker",
	"Senior Support Worker",
	"Support Coordinator",
}
