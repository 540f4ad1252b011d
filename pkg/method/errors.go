package method

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMethod is returned when an aggregation method name is not registered.
	ErrUnknownMethod = errors.New("unknown aggregation method")

	// ErrUnknownPreprocessor is returned when a preprocessor name is not registered.
	ErrUnknownPreprocessor = errors.New("unknown preprocessor")

	// ErrMethod is returned when a method or a preprocessor fails on its input.
	ErrMethod = errors.New("aggregation failed")
)

func NewUnknownMethodError(name string) error {
	return fmt.Errorf("%w %q", ErrUnknownMethod, name)
}

func NewUnknownPreprocessorError(name string) error {
	return fmt.Errorf("%w %q", ErrUnknownPreprocessor, name)
}

func NewMethodError(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMethod, name, err)
}
