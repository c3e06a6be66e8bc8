package fits

import (
	"errors"
	"io"
	"strconv"
	"sync"
)

// Writer streams HDUs to an io.Writer. The first HDU written becomes the
// primary HDU; every later one is written as an IMAGE extension.
// Structural keywords are generated from the array and stripped from the
// caller's header.
type Writer struct {
	w      io.Writer
	count  int
	closed bool

	mu sync.Mutex
}

// NewWriter creates a writer targeting w.
func NewWriter(w io.Writer) (*Writer, error) {
	if w == nil {
		return nil, errors.New("fits: nil writer")
	}
	return &Writer{w: w}, nil
}

// Count returns the number of HDUs written so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// WriteHeaderOnly writes an HDU without data (NAXIS=0).
func (w *Writer) WriteHeaderOnly(h Header) error {
	return w.writeHDU(BitPixUint8, nil, 0, nil, h)
}

// WriteArray writes a as the next HDU with the extra header cards in h.
func WriteArray[T Element](w *Writer, a *Array[T], h Header) error {
	if a == nil {
		return errors.New("fits: nil array")
	}
	n, err := numElements(a.Shape)
	if err != nil {
		return err
	}
	if len(a.Shape) == 0 || n != len(a.Data) {
		return ErrShape
	}
	bitpix, bzero, payload := encodeArray(a)
	return w.writeHDU(bitpix, a.Shape, bzero, payload, h)
}

func (w *Writer) writeHDU(bitpix BitPix, shape []int, bzero int64, payload []byte, extra Header) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("fits: writer already closed")
	}

	hdr := structuralHeader(w.count == 0, bitpix, shape)
	if bzero != 0 {
		hdr = append(hdr,
			Card{Key: KeyBZero, Value: bzero, Comment: "offset data range to that of unsigned"},
			Card{Key: KeyBScale, Value: int64(1), Comment: "default scaling factor"},
		)
	}
	for _, c := range extra {
		if reservedKey(c.Key) {
			continue
		}
		hdr = append(hdr, c)
	}

	raw, err := encodeHeader(hdr)
	if err != nil {
		return err
	}
	if err := writeFull(w.w, raw); err != nil {
		return err
	}
	if len(payload) > 0 {
		if err := writeFull(w.w, payload); err != nil {
			return err
		}
		if pad := padLen(len(payload)); pad > 0 {
			if err := writeFull(w.w, make([]byte, pad)); err != nil {
				return err
			}
		}
	}
	w.count++
	return nil
}

func structuralHeader(primary bool, bitpix BitPix, shape []int) Header {
	var h Header
	if primary {
		h = append(h, Card{Key: KeySimple, Value: true, Comment: "conforms to FITS standard"})
	} else {
		h = append(h, Card{Key: KeyXTension, Value: XTensionImage, Comment: "Image extension"})
	}
	h = append(h,
		Card{Key: KeyBitPix, Value: int64(bitpix), Comment: "array data type"},
		Card{Key: KeyNAxis, Value: int64(len(shape)), Comment: "number of array dimensions"},
	)
	for i := len(shape) - 1; i >= 0; i-- {
		axis := len(shape) - i
		h = append(h, Card{Key: KeyNAxis + strconv.Itoa(axis), Value: int64(shape[i])})
	}
	if primary {
		h = append(h, Card{Key: KeyExtend, Value: true})
	} else {
		h = append(h,
			Card{Key: KeyPCount, Value: int64(0), Comment: "number of parameters"},
			Card{Key: KeyGCount, Value: int64(1), Comment: "number of groups"},
		)
	}
	return h
}

// Close finishes the stream. At least one HDU must have been written.
// The underlying writer is not closed.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("fits: writer already closed")
	}
	w.closed = true
	if w.count == 0 {
		return errors.New("fits: no HDU written")
	}
	return nil
}
