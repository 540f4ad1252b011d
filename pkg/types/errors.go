package types

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is returned when a comparator or coercer is requested for an unregistered tag.
	ErrUnknownType = errors.New("unknown type")

	// ErrCoercion is returned when a raw value cannot be converted to the requested type.
	ErrCoercion = errors.New("coercion error")
)

func NewUnknownTypeError(tag Tag) error {
	return fmt.Errorf("%w %q", ErrUnknownType, string(tag))
}

func NewCoercionError(tag Tag, raw any, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: cannot convert %#v (%T) to %s: %v", ErrCoercion, raw, raw, tag, cause)
	}
	return fmt.Errorf("%w: cannot convert %#v (%T) to %s", ErrCoercion, raw, raw, tag)
}
