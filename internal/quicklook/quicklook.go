// Package quicklook renders the data array of an image as a greyscale PNG.
package quicklook

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"slices"
	"strings"

	"github.com/nfnt/resize"

	"github.com/samcharles93/spherex/pkg/spherex"
)

type Options struct {
	// MaxWidth and MaxHeight bound the output; zero means no bound.
	MaxWidth  int
	MaxHeight int

	// Low and High are the percentiles mapped to black and white.
	Low  float64
	High float64

	// Interpolation is one of nearest, bilinear, bicubic, lanczos3.
	Interpolation string

	// HideMasked paints masked pixels black.
	HideMasked bool
}

func DefaultOptions() Options {
	return Options{MaxWidth: 512, MaxHeight: 512, Low: 0.5, High: 99.5, Interpolation: "lanczos3"}
}

func interpolation(name string) (resize.InterpolationFunction, error) {
	switch strings.ToLower(name) {
	case "", "lanczos3":
		return resize.Lanczos3, nil
	case "nearest":
		return resize.NearestNeighbor, nil
	case "bilinear":
		return resize.Bilinear, nil
	case "bicubic":
		return resize.Bicubic, nil
	case "mitchell":
		return resize.MitchellNetravali, nil
	}
	return 0, fmt.Errorf("quicklook: unknown interpolation %q", name)
}

// Render maps the first 2-D plane of img to 8-bit grey. Row 0 of the array
// is drawn at the bottom, following the FITS convention.
func Render(img *spherex.Image, opts Options) (image.Image, error) {
	if img == nil || img.Data == nil {
		return nil, spherex.ErrNoData
	}
	if opts.Low < 0 || opts.High > 100 || opts.Low >= opts.High {
		return nil, fmt.Errorf("quicklook: invalid percentiles %g..%g", opts.Low, opts.High)
	}
	interp, err := interpolation(opts.Interpolation)
	if err != nil {
		return nil, err
	}

	shape := img.Data.Shape
	nx, ny := shape[len(shape)-1], 1
	if len(shape) > 1 {
		ny = shape[len(shape)-2]
	}
	if nx == 0 || ny == 0 {
		return nil, spherex.ErrNoData
	}
	plane := img.Data.Data[:nx*ny]

	var mask []bool
	if opts.HideMasked && img.Mask != nil {
		mask = img.Mask.Data[:nx*ny]
	}

	lo, hi := stretch(plane, mask, opts.Low, opts.High)
	gray := image.NewGray(image.Rect(0, 0, nx, ny))
	for y := 0; y < ny; y++ {
		row := gray.Pix[(ny-1-y)*gray.Stride:]
		for x := 0; x < nx; x++ {
			i := y*nx + x
			if mask != nil && mask[i] {
				continue
			}
			row[x] = scale(plane[i], lo, hi)
		}
	}

	w, h := fit(nx, ny, opts.MaxWidth, opts.MaxHeight)
	if w == nx && h == ny {
		return gray, nil
	}
	return resize.Resize(uint(w), uint(h), gray, interp), nil
}

// WritePNG renders img and encodes it to w.
func WritePNG(w io.Writer, img *spherex.Image, opts Options) error {
	out, err := Render(img, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, out)
}

func stretch(data []float64, mask []bool, low, high float64) (float64, float64) {
	vals := make([]float64, 0, len(data))
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) || (mask != nil && mask[i]) {
			continue
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return 0, 1
	}
	slices.Sort(vals)
	return percentile(vals, low), percentile(vals, high)
}

func percentile(sorted []float64, p float64) float64 {
	pos := p / 100 * float64(len(sorted)-1)
	i := int(pos)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(i)
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}

func scale(v, lo, hi float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	if hi <= lo {
		if v >= hi {
			return 255
		}
		return 0
	}
	t := (v - lo) / (hi - lo)
	switch {
	case t <= 0:
		return 0
	case t >= 1:
		return 255
	}
	return uint8(math.Round(t * 255))
}

// fit scales (w, h) down to the bounds keeping the aspect ratio.
func fit(w, h, maxW, maxH int) (int, int) {
	s := 1.0
	if maxW > 0 && w > maxW {
		s = math.Min(s, float64(maxW)/float64(w))
	}
	if maxH > 0 && h > maxH {
		s = math.Min(s, float64(maxH)/float64(h))
	}
	if s == 1 {
		return w, h
	}
	return max(1, int(math.Round(float64(w)*s))), max(1, int(math.Round(float64(h)*s)))
}
