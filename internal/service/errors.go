package service

import (
	"errors"
	"fmt"
)

// ValidationError is a local precondition failure. It is shown to the user as
// a warning and never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	errNoStudent = &ValidationError{Field: "student", Message: "Please select a student first"}
	errNoPart    = &ValidationError{Field: "part", Message: "Please select a part to grade"}
)

func invalidField(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
