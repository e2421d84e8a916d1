// Package core provides the error taxonomy, timeouts and access gate shared by
// the analytics and maintenance services.
package core

import (
	"errors"
	"fmt"

	"github.com/peternagy/consultadmin/internal/types"
)

// ConnectionError indicates the store could not be reached at all.
type ConnectionError struct {
	Reason string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connection error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("connection error: %s", e.Reason)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ValidationError indicates malformed input to a maintenance or write operation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Kind classifies err into the error taxonomy. Anything that is neither a
// connection nor a validation failure is unknown.
func Kind(err error) types.ErrorKind {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return types.ErrorConnection
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return types.ErrorValidation
	}
	return types.ErrorUnknown
}
