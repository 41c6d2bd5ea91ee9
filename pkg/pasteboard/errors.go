package pasteboard

import (
	"errors"
	"fmt"
)

var (
	ErrResourceUnavailable   = errors.New("pasteboard: general pasteboard unavailable")
	ErrNoCompatibleData      = errors.New("pasteboard: no compatible data")
	ErrWriteRejected         = errors.New("pasteboard: write rejected")
	ErrMissingRepresentation = errors.New("pasteboard: missing representation")
)

// Causes of ErrNoCompatibleData, kept apart for diagnostics.
var (
	ErrReadNull  = fmt.Errorf("%w: readObjectsForClasses:options: returned nil", ErrNoCompatibleData)
	ErrReadEmpty = fmt.Errorf("%w: readObjectsForClasses:options: returned no items", ErrNoCompatibleData)
)
