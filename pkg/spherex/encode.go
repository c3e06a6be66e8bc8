package spherex

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/samcharles93/spherex/pkg/fits"
)

// Encode writes v as a multi-extension file. The extension order is fixed:
// a header-only primary, the flags (if any), the data, the mask (if any),
// and the uncertainty (if any). v must be an Image or *Image.
func Encode(w io.Writer, v any, opts *WriteOptions) error {
	img, err := asImage(v)
	if err != nil {
		return err
	}
	if err := img.Validate(); err != nil {
		return err
	}
	o := opts.normalise()

	fw, err := fits.NewWriter(w)
	if err != nil {
		return err
	}

	if err := fw.WriteHeaderOnly(nil); err != nil {
		return fmt.Errorf("spherex: primary: %w", err)
	}

	if img.Flags != nil && o.FlagsName != "" {
		h := fits.Header{{Key: "EXTNAME", Value: o.FlagsName}}
		h = append(h, img.FlagDefs.HeaderCards()...)
		if err := fits.WriteArray(fw, img.Flags, h); err != nil {
			return fmt.Errorf("spherex: flags: %w", err)
		}
	}

	if err := fits.WriteArray(fw, img.Data, dataHeader(img, o)); err != nil {
		return fmt.Errorf("spherex: data: %w", err)
	}

	if img.Mask != nil && o.MaskName != "" {
		h := fits.Header{{Key: "EXTNAME", Value: o.MaskName}}
		if err := fits.WriteArray(fw, img.Mask, h); err != nil {
			return fmt.Errorf("spherex: mask: %w", err)
		}
	}

	if u := img.Uncertainty; u != nil && o.UncertaintyName != "" {
		h := fits.Header{
			{Key: "EXTNAME", Value: o.UncertaintyName},
			{Key: o.UncertaintyTypeKey, Value: string(u.Kind), Comment: "class of the uncertainty"},
		}
		if err := fits.WriteArray(fw, u.Values, h); err != nil {
			return fmt.Errorf("spherex: uncertainty: %w", err)
		}
	}

	return fw.Close()
}

func asImage(v any) (*Image, error) {
	switch img := v.(type) {
	case *Image:
		if img != nil {
			return img, nil
		}
	case Image:
		return &img, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedContainerType, v)
}

func dataHeader(img *Image, o WriteOptions) fits.Header {
	h := make(fits.Header, 0, len(img.Meta)+len(img.WCS)+2)
	if o.DataName != "" {
		h = append(h, fits.Card{Key: "EXTNAME", Value: o.DataName})
	}
	for _, c := range img.Meta {
		switch strings.ToUpper(c.Key) {
		case KeyUnit, "EXTNAME":
			continue
		}
		h = append(h, c)
	}
	h = append(h, wcsCards(img.WCS, o.WCSRelax)...)
	h = append(h, fits.Card{Key: KeyUnit, Value: string(img.Unit), Comment: "physical unit of the array data"})
	return h
}

// EncodeBytes returns the encoded file.
func EncodeBytes(v any, opts *WriteOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, v, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes v to path through a temporary file in the same
// directory, so readers never observe a partial file. The output is gzip
// compressed when path ends in ".gz" or opts.Compress is set.
func WriteFile(path string, v any, opts *WriteOptions) (err error) {
	o := opts.normalise()
	if _, err := asImage(v); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if o.Compress || strings.HasSuffix(strings.ToLower(path), ".gz") {
		zw := gzip.NewWriter(tmp)
		zw.Name = strings.TrimSuffix(filepath.Base(path), ".gz")
		if err = Encode(zw, v, &o); err != nil {
			return err
		}
		if err = zw.Close(); err != nil {
			return err
		}
	} else if err = Encode(tmp, v, &o); err != nil {
		return err
	}

	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
