package workflow

import "fmt"

// Stage ids of the participant onboarding chain.
const (
	StageReferralReceived         = "referral_received"
	StageDataVerified             = "data_verified"
	StageServiceAgreementPrepared = "service_agreement_prepared"
	StageAgreementSent            = "agreement_sent"
	StageAgreementSigned          = "agreement_signed"
	StageFundingVerification      = "funding_verification"
	StageFundingVerified          = "funding_verified"
	StageStaffAllocation          = "staff_allocation"
	StageWorkerAllocated          = "worker_allocated"
	StageMeetGreetScheduled       = "meet_greet_scheduled"
	StageMeetGreetCompleted       = "meet_greet_completed"
	StageServiceCommenced         = "service_commenced"
)

// Stage is one step of the onboarding workflow. Automated stages run a
// system action on entry; manual stages advance only on an explicit human
// action. A stage with an empty NextStage is terminal.
type Stage struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Automated      bool     `json:"automated"`
	RequiredFields []string `json:"requiredFields,omitempty"`
	NextStage      string   `json:"nextStage,omitempty"`
}

// Registry holds a validated workflow chain. It is immutable after
// construction and safe for concurrent use; build it once at startup and
// inject it into the engine.
type Registry struct {
	stages  map[string]Stage
	ordered []Stage
}

// NewRegistry validates the stage definitions and returns a registry.
// The definitions must form a single forward chain: every NextStage
// references a defined stage, exactly one stage is terminal, exactly one is
// the entry point, and walking the chain visits every stage once.
func NewRegistry(stages []Stage) (*Registry, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("workflow: registry needs at least one stage")
	}

	byID := make(map[string]Stage, len(stages))
	referenced := make(map[string]bool, len(stages))
	terminals := 0
	for _, s := range stages {
		if s.ID == "" {
			return nil, fmt.Errorf("workflow: stage with empty id")
		}
		if _, dup := byID[s.ID]; dup {
			return nil, fmt.Errorf("workflow: duplicate stage id %q", s.ID)
		}
		byID[s.ID] = s
		if s.NextStage == "" {
			terminals++
		}
	}
	for _, s := range stages {
		if s.NextStage == "" {
			continue
		}
		if _, ok := byID[s.NextStage]; !ok {
			return nil, fmt.Errorf("workflow: stage %q references unknown next stage %q", s.ID, s.NextStage)
		}
		if referenced[s.NextStage] {
			return nil, fmt.Errorf("workflow: stage %q is referenced by more than one stage", s.NextStage)
		}
		referenced[s.NextStage] = true
	}
	if terminals != 1 {
		return nil, fmt.Errorf("workflow: expected exactly one terminal stage, found %d", terminals)
	}

	initial := ""
	for _, s := range stages {
		if !referenced[s.ID] {
			if initial != "" {
				return nil, fmt.Errorf("workflow: more than one entry stage (%q and %q)", initial, s.ID)
			}
			initial = s.ID
		}
	}
	if initial == "" {
		return nil, fmt.Errorf("workflow: no entry stage, chain has a cycle")
	}

	ordered := make([]Stage, 0, len(stages))
	for id := initial; id != ""; id = byID[id].NextStage {
		ordered = append(ordered, byID[id])
	}
	if len(ordered) != len(stages) {
		return nil, fmt.Errorf("workflow: chain from %q visits %d of %d stages", initial, len(ordered), len(stages))
	}

	return &Registry{stages: byID, ordered: ordered}, nil
}

// Stage looks up a stage definition by id.
func (r *Registry) Stage(id string) (Stage, error) {
	s, ok := r.stages[id]
	if !ok {
		return Stage{}, ErrStageNotFound
	}
	return s, nil
}

// Initial returns the chain's entry stage.
func (r *Registry) Initial() Stage {
	return r.ordered[0]
}

// Stages returns the full chain in intake-to-terminal order.
func (r *Registry) Stages() []Stage {
	out := make([]Stage, len(r.ordered))
	copy(out, r.ordered)
	return out
}

var onboardingStages = []Stage{
	{
		ID:          StageReferralReceived,
		Name:        "Referral received",
		Description: "Intake has recorded the referral and the onboarding journey has begun.",
		NextStage:   StageDataVerified,
	},
	{
		ID:             StageDataVerified,
		Name:           "Data verified",
		Description:    "Identity and NDIS details confirmed; the participant record is created.",
		Automated:      true,
		RequiredFields: []string{"firstName", "lastName", "dateOfBirth", "ndisNumber", "primaryDisability"},
		NextStage:      StageServiceAgreementPrepared,
	},
	{
		ID:             StageServiceAgreementPrepared,
		Name:           "Service agreement prepared",
		Description:    "A draft service agreement has been generated for the participant.",
		Automated:      true,
		RequiredFields: []string{"email", "phone"},
		NextStage:      StageAgreementSent,
	},
	{
		ID:             StageAgreementSent,
		Name:           "Agreement sent",
		Description:    "The service agreement has been dispatched for signing.",
		Automated:      true,
		RequiredFields: []string{"email"},
		NextStage:      StageAgreementSigned,
	},
	{
		ID:          StageAgreementSigned,
		Name:        "Agreement signed",
		Description: "The participant or their nominee has signed the service agreement.",
		NextStage:   StageFundingVerification,
	},
	{
		ID:             StageFundingVerification,
		Name:           "Funding verification",
		Description:    "The participant's NDIS plan funding is being checked.",
		Automated:      true,
		RequiredFields: []string{"ndisNumber", "fundingType"},
		NextStage:      StageFundingVerified,
	},
	{
		ID:          StageFundingVerified,
		Name:        "Funding verified",
		Description: "Funding confirmed; a funding plan is recorded for the participant.",
		Automated:   true,
		NextStage:   StageStaffAllocation,
	},
	{
		ID:             StageStaffAllocation,
		Name:           "Staff allocation",
		Description:    "Support staff are selected and scheduled services created.",
		Automated:      true,
		RequiredFields: []string{"suburb", "state"},
		NextStage:      StageWorkerAllocated,
	},
	{
		ID:          StageWorkerAllocated,
		Name:        "Worker allocated",
		Description: "Allocated workers confirmed against the participant's schedule.",
		Automated:   true,
		NextStage:   StageMeetGreetScheduled,
	},
	{
		ID:          StageMeetGreetScheduled,
		Name:        "Meet and greet scheduled",
		Description: "An introduction between participant and workers has been booked.",
		NextStage:   StageMeetGreetCompleted,
	},
	{
		ID:          StageMeetGreetCompleted,
		Name:        "Meet and greet completed",
		Description: "The introduction took place and both parties agreed to proceed.",
		NextStage:   StageServiceCommenced,
	},
	{
		ID:          StageServiceCommenced,
		Name:        "Service commenced",
		Description: "Supports have started; onboarding is complete.",
	},
}

// Onboarding returns the participant onboarding registry. The definition is
// static, so a validation failure is a programming error.
func Onboarding() *Registry {
	r, err := NewRegistry(onboardingStages)
	if err != nil {
		panic(err)
	}
	return r
}
