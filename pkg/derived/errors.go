package derived

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for malformed recipes, e.g., a window smaller than one.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDetached is returned when a detached derived dataset is asked to recompute.
	ErrDetached = errors.New("derived dataset is detached")
)

func NewInvalidArgumentError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func NewDetachedError(name string) error {
	return fmt.Errorf("%w: %s", ErrDetached, name)
}
