package spherex

import (
	"io"
	"math"
	"slices"

	"github.com/goccy/go-json"

	"github.com/samcharles93/spherex/pkg/bitmask"
	"github.com/samcharles93/spherex/pkg/fits"
)

// Summary describes an image for inspection tools and the HTTP API.
type Summary struct {
	Shape       []int           `json:"shape"`
	Unit        Unit            `json:"unit"`
	Stats       Stats           `json:"stats"`
	Mask        *MaskSummary    `json:"mask,omitempty"`
	Uncertainty UncertaintyKind `json:"uncertainty,omitempty"`
	Flags       *FlagSummary    `json:"flags,omitempty"`
	MetaKeys    []string        `json:"meta_keys,omitempty"`
	WCSKeys     []string        `json:"wcs_keys,omitempty"`
	Extensions  []Extension     `json:"extensions,omitempty"`
}

// Stats are computed over finite data values.
type Stats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Finite int     `json:"finite"`
}

type MaskSummary struct {
	Masked int `json:"masked"`
}

// FlagSummary counts pixels per flag. Unknown counts pixels with bits no
// definition covers.
type FlagSummary struct {
	Definitions []bitmask.Entry `json:"definitions,omitempty"`
	Counts      map[string]int  `json:"counts,omitempty"`
	Unknown     int             `json:"unknown"`
}

// Extension describes one HDU of an encoded file.
type Extension struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	BitPix  int    `json:"bitpix"`
	Shape   []int  `json:"shape,omitempty"`
	ExtType string `json:"exttype,omitempty"`
}

// Summarize describes img.
func Summarize(img *Image) Summary {
	s := Summary{
		Shape:    img.Shape(),
		Unit:     img.Unit,
		Stats:    computeStats(img.Data.Data),
		MetaKeys: img.Meta.Keys(),
		WCSKeys:  img.WCS.Keys(),
	}
	if img.Mask != nil {
		n := 0
		for _, m := range img.Mask.Data {
			if m {
				n++
			}
		}
		s.Mask = &MaskSummary{Masked: n}
	}
	if img.Uncertainty != nil {
		s.Uncertainty = img.Uncertainty.Kind
	}
	if img.Flags != nil {
		fs := &FlagSummary{Definitions: img.FlagDefs.Entries(), Counts: map[string]int{}}
		for _, word := range img.Flags.Data {
			names, unknown := img.FlagDefs.Describe(word)
			for _, n := range names {
				fs.Counts[n]++
			}
			if unknown != 0 {
				fs.Unknown++
			}
		}
		s.Flags = fs
	}
	return s
}

// DescribeFile lists the HDUs of f.
func DescribeFile(f *fits.File) []Extension {
	out := make([]Extension, 0, f.Len())
	for _, h := range f.HDUs {
		ext := Extension{Index: h.Index, Name: h.Name(), BitPix: int(h.BitPix())}
		if h.HasData() {
			ext.Shape = h.Shape()
		}
		ext.ExtType, _ = h.Header.Text(bitmask.KeyExtType)
		out = append(out, ext)
	}
	return out
}

func computeStats(data []float64) Stats {
	st := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		st.Finite++
		sum += v
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
	}
	if st.Finite == 0 {
		return Stats{}
	}
	st.Mean = sum / float64(st.Finite)
	return st
}

// WriteJSON encodes s, indented when pretty is set.
func (s Summary) WriteJSON(w io.Writer, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(s)
}

// Ranked returns flag names by pixel count, most frequent first.
func (f *FlagSummary) Ranked() []string {
	names := make([]string, 0, len(f.Counts))
	for n := range f.Counts {
		names = append(names, n)
	}
	slices.SortFunc(names, func(a, b string) int {
		if d := f.Counts[b] - f.Counts[a]; d != 0 {
			return d
		}
		if a < b {
			return -1
		}
		return 1
	})
	return names
}
