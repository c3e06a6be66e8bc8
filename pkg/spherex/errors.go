package spherex

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                      = errors.New("spherex: source not found")
	ErrNoData                        = errors.New("spherex: no data array")
	ErrMissingUnit                   = errors.New("spherex: missing unit")
	ErrInvalidUnit                   = errors.New("spherex: invalid unit")
	ErrShapeMismatch                 = errors.New("spherex: shape mismatch")
	ErrUnsupportedFlagRepresentation = errors.New("spherex: flag collections are not supported")
	ErrUnsupportedContainerType      = errors.New("spherex: unsupported container type")
	ErrUnknownUncertainty            = errors.New("spherex: unknown uncertainty kind")
	ErrFlagDefsWithoutFlags          = errors.New("spherex: flag definitions without flags")
)

// ShapeError reports a companion array whose shape differs from the data.
type ShapeError struct {
	Component string
	Data      []int
	Got       []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("spherex: %s shape %v does not match data shape %v", e.Component, e.Got, e.Data)
}

func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }
