package workflow

import (
	"strings"

	"careflow/referral"
)

// validateFields checks the referral holds every field the target stage
// requires, failing on the first one that is absent or blank. A stage with no
// required fields passes trivially. The gate runs before any automation or
// persistence, so a failure leaves the referral untouched.
func validateFields(c referral.Case, target Stage) error {
	for _, field := range target.RequiredFields {
		if strings.TrimSpace(c.Field(field)) == "" {
			return &MissingFieldError{Field: field}
		}
	}
	return nil
}
