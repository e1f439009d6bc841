package funding

import "time"

// Plan mirrors the funding_plans table. Budgets are the representative NDIS
// split across the three support purposes.
type Plan struct {
	ID                     string
	ParticipantID          string
	CoreBudget             float64
	CapacityBuildingBudget float64
	CapitalBudget          float64
	ValidFrom              time.Time
	ValidUntil             time.Time
	CreatedAt              time.Time
}

// Total is the whole-of-plan budget.
func (p Plan) Total() float64 {
	return p.CoreBudget + p.CapacityBuildingBudget + p.CapitalBudget
}
