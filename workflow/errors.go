package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrStageNotFound reports an explicit target stage missing from the registry.
	ErrStageNotFound = errors.New("workflow: stage not found")
	// ErrNoNextStage reports an advance without a target on a terminal stage.
	ErrNoNextStage = errors.New("workflow: current stage has no next stage")
)

// MissingFieldError reports the first required field the referral is missing
// for a target stage. The gate is fail-fast; later missing fields are not
// accumulated.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("workflow: required field %q is missing", e.Field)
}

// AutomationError wraps a failure from a stage automation. The referral's
// stage is left untouched when one is returned.
type AutomationError struct {
	Stage string
	Err   error
}

func (e *AutomationError) Error() string {
	return fmt.Sprintf("workflow: automation for stage %s failed: %v", e.Stage, e.Err)
}

func (e *AutomationError) Unwrap() error {
	return e.Err
}
