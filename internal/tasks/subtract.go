// Package tasks holds pixel-arithmetic pipeline steps over spherex images.
package tasks

import (
	"errors"
	"fmt"

	"github.com/samcharles93/spherex/pkg/fits"
	"github.com/samcharles93/spherex/pkg/spherex"
)

var ErrShapeMismatch = errors.New("tasks: input and subtract image shapes do not match")

// SubtractComment is recorded in the output header.
const SubtractComment = "Dark current subtracted"

// Subtract returns input minus sub as a new image. Masks and flags are
// combined with OR, and uncertainties are propagated in quadrature using the
// input's uncertainty kind. Neither argument is modified.
func Subtract(input, sub *spherex.Image) (*spherex.Image, error) {
	if input == nil || sub == nil {
		return nil, spherex.ErrNoData
	}
	if !fits.SameShape(input.Shape(), sub.Shape()) {
		return nil, fmt.Errorf("%w: %v vs %v", ErrShapeMismatch, input.Shape(), sub.Shape())
	}
	if sub.Unit != input.Unit {
		return nil, fmt.Errorf("tasks: unit %q cannot be subtracted from %q", sub.Unit, input.Unit)
	}

	out := input.Clone()
	for i, v := range sub.Data.Data {
		out.Data.Data[i] -= v
	}

	switch {
	case out.Mask == nil && sub.Mask != nil:
		out.Mask = sub.Mask.Clone()
	case out.Mask != nil && sub.Mask != nil:
		for i, m := range sub.Mask.Data {
			out.Mask.Data[i] = out.Mask.Data[i] || m
		}
	}

	switch {
	case out.Flags == nil && sub.Flags != nil:
		out.Flags = sub.Flags.Clone()
		out.FlagDefs = sub.FlagDefs
	case out.Flags != nil && sub.Flags != nil:
		for i, f := range sub.Flags.Data {
			out.Flags.Data[i] |= f
		}
		if out.FlagDefs == nil {
			out.FlagDefs = sub.FlagDefs
		}
	}

	if err := propagate(out, input.Uncertainty, sub.Uncertainty); err != nil {
		return nil, err
	}

	out.Meta.Add(fits.Commentary(fits.KeyComment, SubtractComment))
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func propagate(out *spherex.Image, a, b *spherex.Uncertainty) error {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		out.Uncertainty = &spherex.Uncertainty{Kind: b.Kind, Values: b.Values.Clone()}
		return nil
	case b == nil:
		return nil
	}
	va, vb := a.Variance(), b.Variance()
	for i := range va {
		va[i] += vb[i]
	}
	u, err := spherex.FromVariance(a.Kind, a.Values.Shape, va)
	if err != nil {
		return err
	}
	out.Uncertainty = u
	return nil
}
