package store

import (
	"fmt"

	"github.com/jonathan/cv-builder/internal/types"
)

// PersistError represents a failed save. The in-memory document is left untouched.
type PersistError struct {
	Op    string // identity, create or update
	Cause error
}

func (e *PersistError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("persist error: %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("persist error: %s", e.Op)
}

func (e *PersistError) Unwrap() error {
	return e.Cause
}

// SectionTypeError indicates Update received a value whose Go type does not match the section
type SectionTypeError struct {
	Section types.Section
	Got     any
}

func (e *SectionTypeError) Error() string {
	return fmt.Sprintf("section %s: unexpected value type %T", e.Section, e.Got)
}

// StepRangeError indicates a step number outside 1..FinalStep
type StepRangeError struct {
	Step int
}

func (e *StepRangeError) Error() string {
	return fmt.Sprintf("step %d out of range 1..%d", e.Step, FinalStep)
}
