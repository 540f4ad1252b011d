package dataset

import (
	"errors"
	"fmt"

	"github.com/l7mp/dataset/pkg/types"
)

var (
	// ErrUnknownColumn is returned when a column name does not exist.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrUnknownRow is returned when a row id does not exist.
	ErrUnknownRow = errors.New("unknown row")

	// ErrDuplicateColumn is returned when a column name is already taken.
	ErrDuplicateColumn = errors.New("duplicate column")

	// ErrRowShape is returned when row data does not match the declared columns.
	ErrRowShape = errors.New("row shape mismatch")

	// ErrIndexOutOfRange is returned when a row position is invalid.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNotSyncable is returned when events are bound on a dataset that does not emit them.
	ErrNotSyncable = errors.New("dataset is not syncable")

	// ErrCycle is returned when a dataset would become its own ancestor.
	ErrCycle = errors.New("cyclic derivation")

	ErrUnknownType = types.ErrUnknownType
	ErrCoercion    = types.ErrCoercion
)

func NewUnknownColumnError(name string) error {
	return fmt.Errorf("%w %q", ErrUnknownColumn, name)
}

func NewUnknownRowError(id RowID) error {
	return fmt.Errorf("%w: id %d", ErrUnknownRow, id)
}

func NewDuplicateColumnError(name string) error {
	return fmt.Errorf("%w %q", ErrDuplicateColumn, name)
}

func NewRowShapeError(message string) error {
	return fmt.Errorf("%w: %s", ErrRowShape, message)
}

func NewIndexOutOfRangeError(pos, length int) error {
	return fmt.Errorf("%w: position %d, length %d", ErrIndexOutOfRange, pos, length)
}

func NewCycleError(child, parent string) error {
	return fmt.Errorf("%w: %s cannot be derived from its own descendant %s", ErrCycle, child, parent)
}
