package spherex

import (
	"fmt"

	"github.com/samcharles93/spherex/pkg/bitmask"
	"github.com/samcharles93/spherex/pkg/fits"
)

// Image is a science array with its optional companion layers. Optional
// layers are nil when absent. An Image is owned by one holder at a time and
// is not safe for concurrent mutation.
type Image struct {
	Data        *fits.Array[float64]
	Mask        *fits.Array[bool]
	Uncertainty *Uncertainty
	Flags       *fits.Array[uint32]
	FlagDefs    *bitmask.Table
	Unit        Unit
	Meta        fits.Header
	WCS         fits.Header
}

// FlagCollection is a set of named boolean layers. It is recognised only so
// that it can be rejected; flags must be a single integer bitfield array.
type FlagCollection map[string]*fits.Array[bool]

// Option configures an Image built by New.
type Option func(*Image) error

// New builds a validated Image.
func New(data *fits.Array[float64], unit Unit, opts ...Option) (*Image, error) {
	img := &Image{Data: data, Unit: unit}
	for _, opt := range opts {
		if err := opt(img); err != nil {
			return nil, err
		}
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return img, nil
}

func WithMask(mask *fits.Array[bool]) Option {
	return func(img *Image) error {
		img.Mask = mask
		return nil
	}
}

func WithUncertainty(kind UncertaintyKind, values *fits.Array[float64]) Option {
	return func(img *Image) error {
		if _, err := ParseUncertaintyKind(string(kind)); err != nil {
			return err
		}
		img.Uncertainty = &Uncertainty{Kind: kind, Values: values}
		return nil
	}
}

// WithFlags attaches a bitfield array and its definitions. flags may be any
// integer array of at most 32 bits per element; it is widened to uint32
// with its bit pattern preserved.
func WithFlags(flags any, defs *bitmask.Table) Option {
	return func(img *Image) error {
		arr, err := toFlagArray(flags)
		if err != nil {
			return err
		}
		img.Flags = arr
		img.FlagDefs = defs
		return nil
	}
}

func WithMeta(meta fits.Header) Option {
	return func(img *Image) error {
		img.Meta = meta
		return nil
	}
}

func WithWCS(wcs fits.Header) Option {
	return func(img *Image) error {
		img.WCS = wcs
		return nil
	}
}

func toFlagArray(flags any) (*fits.Array[uint32], error) {
	switch f := flags.(type) {
	case nil:
		return nil, nil
	case FlagCollection, *FlagCollection:
		return nil, ErrUnsupportedFlagRepresentation
	case *fits.Array[uint32]:
		return f, nil
	case *fits.Array[int32]:
		return widenFlags(f, func(v int32) uint32 { return uint32(v) }), nil
	case *fits.Array[uint16]:
		return widenFlags(f, func(v uint16) uint32 { return uint32(v) }), nil
	case *fits.Array[int16]:
		return widenFlags(f, func(v int16) uint32 { return uint32(uint16(v)) }), nil
	case *fits.Array[uint8]:
		return widenFlags(f, func(v uint8) uint32 { return uint32(v) }), nil
	default:
		return nil, fmt.Errorf("spherex: unsupported flags type %T", flags)
	}
}

func widenFlags[T fits.Element](a *fits.Array[T], conv func(T) uint32) *fits.Array[uint32] {
	if a == nil {
		return nil
	}
	out := make([]uint32, len(a.Data))
	for i, v := range a.Data {
		out[i] = conv(v)
	}
	return &fits.Array[uint32]{Shape: append([]int(nil), a.Shape...), Data: out}
}

// Validate checks the container invariants.
func (img *Image) Validate() error {
	if img == nil || img.Data == nil {
		return ErrNoData
	}
	if len(img.Data.Shape) == 0 || product(img.Data.Shape) != len(img.Data.Data) {
		return fmt.Errorf("spherex: data: %w: shape %v with %d elements", fits.ErrShape, img.Data.Shape, len(img.Data.Data))
	}
	if img.Unit == "" {
		return ErrMissingUnit
	}
	shape := img.Data.Shape
	if img.Mask != nil {
		if err := checkShape("mask", shape, img.Mask.Shape, len(img.Mask.Data)); err != nil {
			return err
		}
	}
	if u := img.Uncertainty; u != nil {
		if u.Values == nil {
			return fmt.Errorf("spherex: uncertainty has no values")
		}
		if err := checkShape("uncertainty", shape, u.Values.Shape, len(u.Values.Data)); err != nil {
			return err
		}
		if _, err := ParseUncertaintyKind(string(u.Kind)); err != nil {
			return err
		}
	}
	if img.Flags != nil {
		if err := checkShape("flags", shape, img.Flags.Shape, len(img.Flags.Data)); err != nil {
			return err
		}
	} else if img.FlagDefs.Len() > 0 {
		return ErrFlagDefsWithoutFlags
	}
	return nil
}

func checkShape(component string, data, got []int, n int) error {
	if !fits.SameShape(data, got) {
		return &ShapeError{Component: component, Data: data, Got: got}
	}
	if n != product(got) {
		return fmt.Errorf("spherex: %s: %w: %d elements for shape %v", component, fits.ErrShape, n, got)
	}
	return nil
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Shape returns the data shape.
func (img *Image) Shape() []int {
	if img == nil || img.Data == nil {
		return nil
	}
	return append([]int(nil), img.Data.Shape...)
}

// Clone returns a deep copy. Flag definitions are shared since tables are
// immutable.
func (img *Image) Clone() *Image {
	if img == nil {
		return nil
	}
	return &Image{
		Data:        img.Data.Clone(),
		Mask:        img.Mask.Clone(),
		Uncertainty: img.Uncertainty.clone(),
		Flags:       img.Flags.Clone(),
		FlagDefs:    img.FlagDefs,
		Unit:        img.Unit,
		Meta:        img.Meta.Clone(),
		WCS:         img.WCS.Clone(),
	}
}

// FlagMask returns a mask that is true wherever any of the named flags is
// set. With no names, any set bit counts.
func (img *Image) FlagMask(names ...string) (*fits.Array[bool], error) {
	if img.Flags == nil {
		return nil, fmt.Errorf("spherex: image has no flags")
	}
	want := ^uint32(0)
	if len(names) > 0 {
		if img.FlagDefs == nil {
			return nil, fmt.Errorf("spherex: image has no flag definitions")
		}
		w, err := img.FlagDefs.Mask(names...)
		if err != nil {
			return nil, err
		}
		want = w
	}
	out := make([]bool, len(img.Flags.Data))
	for i, v := range img.Flags.Data {
		out[i] = v&want != 0
	}
	return &fits.Array[bool]{Shape: img.Shape(), Data: out}, nil
}
