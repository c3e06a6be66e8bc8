package spherex

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/samcharles93/spherex/pkg/bitmask"
	"github.com/samcharles93/spherex/pkg/fits"
)

// ReadFile decodes the image stored at path. A missing file is not an error:
// the result is (nil, nil) so callers can treat it as "no image".
func ReadFile(path string, opts *ReadOptions) (*Image, error) {
	o := opts.normalise()
	f, err := fits.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			o.Logger.Debug("image source not found", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("spherex: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	img, err := decodeFile(f, o)
	if err != nil {
		return nil, fmt.Errorf("spherex: decode %s: %w", path, err)
	}
	return img, nil
}

// Decode reads an image from a random-access source of the given size.
// Only ReadFile treats an absent input as a soft failure; a nil reader
// here is ErrNotFound.
func Decode(r io.ReaderAt, size int64, opts *ReadOptions) (*Image, error) {
	if r == nil {
		return nil, ErrNotFound
	}
	f, err := fits.OpenReaderAt(r, size)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return decodeFile(f, opts.normalise())
}

// DecodeBytes reads an image from an in-memory file (plain or gzip).
// Empty input is ErrNotFound.
func DecodeBytes(data []byte, opts *ReadOptions) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	f, err := fits.Parse(data)
	if err != nil {
		return nil, err
	}
	return decodeFile(f, opts.normalise())
}

func decodeFile(f *fits.File, o ReadOptions) (*Image, error) {
	dataHDU, header, err := locateData(f, o)
	if err != nil {
		return nil, err
	}
	data, err := fits.ReadArray[float64](dataHDU)
	if err != nil {
		return nil, fmt.Errorf("data HDU %d: %w", dataHDU.Index, err)
	}

	unit := o.Unit
	if unit == "" {
		if s, ok := header.Text(KeyUnit); ok {
			if unit, err = ParseUnit(s); err != nil && !errors.Is(err, ErrMissingUnit) {
				return nil, err
			}
		}
	}
	if unit == "" {
		return nil, ErrMissingUnit
	}

	header = fits.StripStructural(header).Filter(func(c fits.Card) bool {
		switch c.Key {
		case KeyUnit, "EXTNAME", "EXTVER", "INHERIT":
			return false
		}
		return true
	})
	meta, wcs := splitWCS(header)
	img := &Image{Data: data, Unit: unit, Meta: meta, WCS: wcs}

	if h, ok := findLayer(f, o.Mask); ok {
		if img.Mask, err = fits.ReadArray[bool](h); err != nil {
			return nil, fmt.Errorf("mask HDU %d: %w", h.Index, err)
		}
	}

	if h, ok := findLayer(f, o.Uncertainty); ok {
		vals, err := fits.ReadArray[float64](h)
		if err != nil {
			return nil, fmt.Errorf("uncertainty HDU %d: %w", h.Index, err)
		}
		tag, _ := h.Header.Text(o.UncertaintyTypeKey)
		kind, err := ParseUncertaintyKind(tag)
		if err != nil {
			return nil, fmt.Errorf("uncertainty HDU %d: %w", h.Index, err)
		}
		img.Uncertainty = &Uncertainty{Kind: kind, Values: vals}
	}

	if h, ok := findLayer(f, o.Flags); ok {
		if img.Flags, err = fits.ReadArray[uint32](h); err != nil {
			return nil, fmt.Errorf("flags HDU %d: %w", h.Index, err)
		}
		defs, skipped := bitmask.ParseHeader(h.Header)
		for _, s := range skipped {
			o.Logger.Debug("flag definition skipped", "key", s.Key, "err", s.Err)
		}
		img.FlagDefs = defs
	}

	if err := img.Validate(); err != nil {
		return nil, err
	}
	return img, nil
}

// locateData resolves the data HDU. When the selected HDU carries no data,
// the first later image HDU with data that is not claimed by another layer
// is used instead and its header is appended to the selected one.
func locateData(f *fits.File, o ReadOptions) (*fits.HDU, fits.Header, error) {
	h, ok := f.Find(o.Data)
	if !ok {
		return nil, nil, fmt.Errorf("%w: data %s", fits.ErrHDUNotFound, o.Data)
	}
	if h.HasData() {
		return h, h.Header.Clone(), nil
	}

	for _, next := range f.HDUs[h.Index+1:] {
		if !next.IsImage() || !next.HasData() {
			continue
		}
		if o.Mask.Matches(next) || o.Uncertainty.Matches(next) || o.Flags.Matches(next) {
			continue
		}
		header := fits.StripStructural(h.Header)
		header.Merge(fits.StripStructural(next.Header))
		return next, header, nil
	}
	return nil, nil, ErrNoData
}

func findLayer(f *fits.File, r fits.Ref) (*fits.HDU, bool) {
	if r.IsZero() {
		return nil, false
	}
	h, ok := f.Find(r)
	if !ok || !h.HasData() {
		return nil, false
	}
	return h, true
}
