package xform

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrOpExists is returned by Stage.CreateOp when the op name is already
// listed in the node's op order.
var ErrOpExists = errors.New("transform op already exists")

type InvalidTargetError struct {
	Path string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid prim path to transform: %q", e.Path)
}

type UnresolvedRotationKindError struct {
	Path string
	Type OpType
}

func (e *UnresolvedRotationKindError) Error() string {
	return fmt.Sprintf("failed to determine rotation order and type from %v on %q", e.Type, e.Path)
}

type NotSupportedError struct {
	Operation string
}

func (e *NotSupportedError) Error() string {
	return e.Operation + " is not supported"
}

type OpCreationRaceError struct {
	Path string
	Op   Op
	Err  error
}

func (e *OpCreationRaceError) Error() string {
	return fmt.Sprintf("failed to create %v on %q after resetting op order: %v", e.Op, e.Path, e.Err)
}

func (e *OpCreationRaceError) Unwrap() error {
	return e.Err
}
