package spherex

import (
	"github.com/samcharles93/spherex/internal/logger"
	"github.com/samcharles93/spherex/pkg/fits"
)

const (
	DefaultMaskName           = "MASK"
	DefaultUncertaintyName    = "VARIANCE"
	DefaultFlagsName          = "FLAGS"
	DefaultUncertaintyTypeKey = "UTYPE"

	// KeyUnit holds the physical unit of an array.
	KeyUnit = "BUNIT"
)

// ReadOptions locates the layers of an Image inside a file. A zero Ref
// disables the layer, except Data which defaults to the first HDU.
type ReadOptions struct {
	Data        fits.Ref
	Mask        fits.Ref
	Uncertainty fits.Ref
	Flags       fits.Ref

	// Unit overrides BUNIT from the header.
	Unit Unit

	// UncertaintyTypeKey names the record holding the uncertainty kind.
	UncertaintyTypeKey string

	Logger logger.Logger
}

// DefaultReadOptions matches the layout written by Encode with
// DefaultWriteOptions.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		Data:               fits.At(0),
		Mask:               fits.Named(DefaultMaskName),
		Uncertainty:        fits.Named(DefaultUncertaintyName),
		Flags:              fits.Named(DefaultFlagsName),
		UncertaintyTypeKey: DefaultUncertaintyTypeKey,
	}
}

func (o *ReadOptions) normalise() ReadOptions {
	var out ReadOptions
	if o == nil {
		out = DefaultReadOptions()
	} else {
		out = *o
	}
	if out.Data.IsZero() {
		out.Data = fits.At(0)
	}
	if out.UncertaintyTypeKey == "" {
		out.UncertaintyTypeKey = DefaultUncertaintyTypeKey
	}
	if out.Logger == nil {
		out.Logger = logger.Discard()
	}
	return out
}

// WriteOptions controls the layout produced by Encode. An empty extension
// name omits that layer.
type WriteOptions struct {
	MaskName        string
	UncertaintyName string
	FlagsName       string

	// DataName is written as EXTNAME of the data extension when set.
	DataName string

	// WCSRelax keeps SIP distortion terms and the -SIP projection suffix.
	WCSRelax bool

	UncertaintyTypeKey string

	// Compress gzips the output of WriteFile.
	Compress bool
}

func DefaultWriteOptions() WriteOptions {
	return WriteOptions{
		MaskName:           DefaultMaskName,
		UncertaintyName:    DefaultUncertaintyName,
		FlagsName:          DefaultFlagsName,
		WCSRelax:           true,
		UncertaintyTypeKey: DefaultUncertaintyTypeKey,
	}
}

func (o *WriteOptions) normalise() WriteOptions {
	var out WriteOptions
	if o == nil {
		out = DefaultWriteOptions()
	} else {
		out = *o
	}
	if out.UncertaintyTypeKey == "" {
		out.UncertaintyTypeKey = DefaultUncertaintyTypeKey
	}
	return out
}

// ReadRefs is the decode-side counterpart of o: the layers it writes are
// found by their extension names. An unnamed data extension is located by
// scanning forward from the primary HDU.
func (o WriteOptions) ReadRefs() ReadOptions {
	data := fits.Named(o.DataName)
	if data.IsZero() {
		data = fits.At(0)
	}
	return ReadOptions{
		Data:               data,
		Mask:               fits.Named(o.MaskName),
		Uncertainty:        fits.Named(o.UncertaintyName),
		Flags:              fits.Named(o.FlagsName),
		UncertaintyTypeKey: o.UncertaintyTypeKey,
	}
}
