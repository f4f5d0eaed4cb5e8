package domain

import (
	"errors"
	"fmt"
)

// ErrMissingRequiredField is matched by every MissingFieldError.
var ErrMissingRequiredField = errors.New("missing required field")

// MissingFieldError reports a mandatory column absent from an input table.
// Linkage cannot proceed without it.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// Is makes errors.Is(err, ErrMissingRequiredField) succeed.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingRequiredField
}
