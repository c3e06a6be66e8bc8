package fits

import (
	"io"
	"strings"
)

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	if size < 0 {
		return nil, ErrCorruptFile
	}
	if size == 0 {
		return []byte{}, nil
	}
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// padLen returns the number of bytes needed to round n up to a block boundary.
func padLen(n int) int {
	if rem := n % BlockSize; rem != 0 {
		return BlockSize - rem
	}
	return 0
}

const maxInt = int(^uint(0) >> 1)

// addInt and mulInt operate on non-negative operands and report overflow.
func addInt(a, b int) (int, bool) {
	if a > maxInt-b {
		return 0, false
	}
	return a + b, true
}

func mulInt(a, b int) (int, bool) {
	if b != 0 && a > maxInt/b {
		return 0, false
	}
	return a * b, true
}

func numElements(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, ErrShape
		}
		if d != 0 && n > maxInt/d {
			return 0, ErrShape
		}
		n *= d
	}
	return n, nil
}

func isAllSpaceOrZero(b []byte) bool {
	for _, c := range b {
		if c != 0 && c != ' ' {
			return false
		}
	}
	return true
}

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
