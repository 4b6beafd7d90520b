package repo

import (
	"errors"
	"fmt"
)

// Repository errors are local and typed; callers translate them into
// domain-level errors.
var (
	ErrNotFound             = errors.New("entity not found")
	ErrConflict             = errors.New("entity already exists")
	ErrIllegalUpdate        = errors.New("illegal update")
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// IllegalArgumentError reports a query argument that violates an index
// contract, such as a fan-out limit that is not divisible by the number of
// criteria.
type IllegalArgumentError struct {
	Reason string
}

func (e *IllegalArgumentError) Error() string {
	return fmt.Sprintf("illegal argument: %s", e.Reason)
}

// IsIllegalArgument reports whether err is an IllegalArgumentError.
func IsIllegalArgument(err error) bool {
	var iae *IllegalArgumentError
	return errors.As(err, &iae)
}
