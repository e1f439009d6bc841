package referral

import "time"

// Case is one prospective participant's onboarding journey. It is created at
// intake and never deleted; its workflow stage is only ever mutated through
// the transition engine.
type Case struct {
	ID                string
	ParticipantID     *string
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
	CurrentStage      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Field reads an intake attribute by its API name. Unknown names read as
// empty, which the validation gate treats as missing.
func (c Case) Field(name string) string {
	switch name {
	case "firstName":
		return c.FirstName
	case "lastName":
		return c.LastName
	case "email":
		return c.Email
	case "phone":
		return c.Phone
	case "dateOfBirth":
		return c.DateOfBirth
	case "ndisNumber":
		return c.NDISNumber
	case "primaryDisability":
		return c.PrimaryDisability
	case "addressLine":
		return c.AddressLine
	case "suburb":
		return c.Suburb
	case "state":
		return c.State
	case "postcode":
		return c.Postcode
	case "fundingType":
		return c.FundingType
	case "referralSource":
		return c.ReferralSource
	default:
		return ""
	}
}
