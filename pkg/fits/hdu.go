package fits

import (
	"fmt"
	"strconv"
	"strings"
)

// HDU is one header-data unit. Data holds the raw big-endian payload without
// block padding; for files opened with Open it may alias a read-only mapping.
type HDU struct {
	Index  int
	Header Header
	Data   []byte
}

// IsPrimary reports whether the HDU is the first one in its file.
func (h *HDU) IsPrimary() bool { return h.Header.Has(KeySimple) }

// XTension returns the extension type, or "" for the primary HDU.
func (h *HDU) XTension() string {
	v, _ := h.Header.Text(KeyXTension)
	return upper(v)
}

// IsImage reports whether the HDU stores a plain image array.
func (h *HDU) IsImage() bool {
	if h.IsPrimary() {
		return true
	}
	return h.XTension() == XTensionImage
}

// Name returns EXTNAME, or PRIMARY for an unnamed primary HDU.
func (h *HDU) Name() string {
	if v, ok := h.Header.Text(KeyExtName); ok && v != "" {
		return upper(v)
	}
	if h.IsPrimary() {
		return PrimaryName
	}
	return ""
}

// BitPix returns the storage data type.
func (h *HDU) BitPix() BitPix {
	v, _ := h.Header.Int(KeyBitPix)
	return BitPix(v)
}

// Shape returns the axis lengths in row-major order (NAXISn first).
// A header-only HDU has an empty shape.
func (h *HDU) Shape() []int {
	naxis, _ := h.Header.Int(KeyNAxis)
	if naxis <= 0 {
		return nil
	}
	shape := make([]int, naxis)
	for i := int64(1); i <= naxis; i++ {
		v, _ := h.Header.Int(KeyNAxis + strconv.FormatInt(i, 10))
		shape[naxis-i] = int(v)
	}
	return shape
}

// HasData reports whether the HDU carries a non-empty payload.
func (h *HDU) HasData() bool {
	shape := h.Shape()
	if len(shape) == 0 {
		return false
	}
	n, err := numElements(shape)
	return err == nil && n > 0
}

func (h *HDU) scaling() (bzero, bscale float64) {
	bscale = 1
	if v, ok := h.Header.Float(KeyBZero); ok {
		bzero = v
	}
	if v, ok := h.Header.Float(KeyBScale); ok {
		bscale = v
	}
	return bzero, bscale
}

// dataSize computes the payload size in bytes from the structural keywords.
func dataSize(h Header) (int, error) {
	bitpix, ok := h.Int(KeyBitPix)
	if !ok || !BitPix(bitpix).Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedBitPix, bitpix)
	}
	naxis, ok := h.Int(KeyNAxis)
	if !ok || naxis < 0 || naxis > 999 {
		return 0, fmt.Errorf("%w: invalid NAXIS", ErrCorruptFile)
	}
	if naxis == 0 {
		return 0, nil
	}
	dims := make([]int, 0, naxis)
	for i := int64(1); i <= naxis; i++ {
		v, ok := h.Int(KeyNAxis + strconv.FormatInt(i, 10))
		if !ok || v < 0 {
			return 0, fmt.Errorf("%w: invalid NAXIS%d", ErrCorruptFile, i)
		}
		dims = append(dims, int(v))
	}
	pcount, _ := h.Int(KeyPCount)
	gcount, ok := h.Int(KeyGCount)
	if !ok {
		gcount = 1
	}
	if pcount < 0 || gcount < 0 || pcount > int64(maxInt) || gcount > int64(maxInt) {
		return 0, fmt.Errorf("%w: invalid PCOUNT/GCOUNT", ErrCorruptFile)
	}
	// Random groups set NAXIS1=0; the product then starts at NAXIS2.
	if dims[0] == 0 && naxis > 1 && h.Has("GROUPS") {
		dims = dims[1:]
	}
	n, err := numElements(dims)
	if err != nil {
		return 0, fmt.Errorf("%w: data size overflow", ErrCorruptFile)
	}
	total, ok := addInt(n, int(pcount))
	if ok {
		total, ok = mulInt(total, int(gcount))
	}
	if ok {
		total, ok = mulInt(total, BitPix(bitpix).Size())
	}
	if !ok {
		return 0, fmt.Errorf("%w: data size overflow", ErrCorruptFile)
	}
	return total, nil
}

// reservedKey reports whether key is generated by the writer and must not
// be copied from a caller supplied header.
func reservedKey(key string) bool {
	k := upper(key)
	switch k {
	case KeySimple, KeyXTension, KeyBitPix, KeyNAxis, KeyExtend, KeyPCount, KeyGCount,
		KeyEnd, KeyBZero, KeyBScale, KeyBlank, KeyChecksum, KeyDataSum:
		return true
	}
	if strings.HasPrefix(k, KeyNAxis) {
		_, err := strconv.Atoi(k[len(KeyNAxis):])
		return err == nil
	}
	return false
}

// StripStructural returns h without the keywords the writer generates.
func StripStructural(h Header) Header {
	return h.Filter(func(c Card) bool { return !reservedKey(c.Key) })
}
