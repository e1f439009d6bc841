package participant

import "time"

// Record mirrors the participants table. A participant exists from the
// data-verification stage onwards; before that only the referral case does.
type Record struct {
	ID                string
	ReferralID        string
	FirstName         string
	LastName          string
	Email             string
	Phone             string
	DateOfBirth       string
	NDISNumber        string
	PrimaryDisability string
	State             string
	Active            bool
	CreatedAt         time.Time
}
