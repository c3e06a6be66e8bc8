package fits

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sys/unix"
)

var gzipMagic = []byte{0x1f, 0x8b}

// File is a parsed FITS file.
type File struct {
	HDUs    []*HDU
	data    []byte
	mmapped bool
}

// Open maps a FITS file read-only and parses its HDUs.
// If mmap is unavailable, it falls back to ReadAt-based loading.
// Gzip-compressed files are inflated into memory.
// The returned file must be closed to release any mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size64 := stat.Size()
	if size64 <= 0 {
		return nil, ErrNotFITS
	}
	if size64 > int64(maxInt) {
		return nil, ErrCorruptFile
	}
	size := int(size64)

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		if bytes.HasPrefix(data, gzipMagic) {
			inflated, gzErr := gunzip(data)
			_ = unix.Munmap(data)
			if gzErr != nil {
				return nil, gzErr
			}
			return Parse(inflated)
		}
		ff, parseErr := parseFileData(data, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return ff, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// OpenReaderAt loads and parses a FITS file from a random-access reader.
func OpenReaderAt(r io.ReaderAt, size int64) (*File, error) {
	if size < 0 || size > int64(maxInt) {
		return nil, ErrCorruptFile
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses an in-memory FITS file. Gzip input is inflated first.
// The returned HDUs alias data.
func Parse(data []byte) (*File, error) {
	if bytes.HasPrefix(data, gzipMagic) {
		inflated, err := gunzip(data)
		if err != nil {
			return nil, err
		}
		data = inflated
	}
	return parseFileData(data, false)
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrCorruptFile, err)
	}
	defer func() { _ = zr.Close() }()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrCorruptFile, err)
	}
	return out, nil
}

func parseFileData(data []byte, mmapped bool) (*File, error) {
	if len(data) < BlockSize || !bytes.HasPrefix(data, []byte(fmt.Sprintf("%-8s= ", KeySimple))) {
		return nil, ErrNotFITS
	}

	var hdus []*HDU
	off := 0
	for off < len(data) {
		if len(hdus) > 0 {
			rest := data[off:]
			// Trailing padding or an unknown block ends the HDU list.
			if len(rest) < BlockSize || isAllSpaceOrZero(rest[:BlockSize]) ||
				!bytes.HasPrefix(rest, []byte(fmt.Sprintf("%-8s= ", KeyXTension))) {
				break
			}
		}

		hdr, n, err := decodeHeader(data[off:])
		if err != nil {
			return nil, fmt.Errorf("HDU %d: %w", len(hdus), err)
		}
		if len(hdus) == 0 {
			simple, ok := hdr.Get(KeySimple)
			if v, isBool := simple.Bool(); !ok || !isBool || !v {
				return nil, ErrNotFITS
			}
		}
		size, err := dataSize(hdr)
		if err != nil {
			return nil, fmt.Errorf("HDU %d: %w", len(hdus), err)
		}
		start := off + n
		end := start + size
		if end > len(data) || end < start {
			return nil, fmt.Errorf("%w: HDU %d data out of bounds", ErrCorruptFile, len(hdus))
		}

		hdus = append(hdus, &HDU{Index: len(hdus), Header: hdr, Data: data[start:end:end]})
		off = end + padLen(size)
	}

	return &File{HDUs: hdus, data: data, mmapped: mmapped}, nil
}

// Close releases any mmap backing. HDU payloads must not be used afterwards.
func (f *File) Close() error {
	if f == nil {
		return nil
	}
	var err error
	if f.data != nil && f.mmapped {
		err = unix.Munmap(f.data)
	}
	f.data = nil
	f.HDUs = nil
	f.mmapped = false
	return err
}

// Len returns the number of HDUs.
func (f *File) Len() int { return len(f.HDUs) }

// Lookup returns the first HDU whose name matches (case-insensitively).
func (f *File) Lookup(name string) (*HDU, bool) {
	name = upper(name)
	for _, h := range f.HDUs {
		if h.Name() == name {
			return h, true
		}
	}
	return nil, false
}

// Find resolves a Ref. The zero Ref resolves to nothing.
func (f *File) Find(r Ref) (*HDU, bool) {
	switch r.kind {
	case refIndex:
		if r.index < 0 || r.index >= len(f.HDUs) {
			return nil, false
		}
		return f.HDUs[r.index], true
	case refName:
		return f.Lookup(r.name)
	}
	return nil, false
}

type refKind uint8

const (
	refNone refKind = iota
	refIndex
	refName
)

// Ref selects an HDU by position or by EXTNAME. The zero Ref selects nothing.
type Ref struct {
	kind  refKind
	index int
	name  string
}

// At selects the HDU at position i.
func At(i int) Ref { return Ref{kind: refIndex, index: i} }

// Named selects the first HDU whose EXTNAME equals name.
func Named(name string) Ref {
	if strings.TrimSpace(name) == "" {
		return Ref{}
	}
	return Ref{kind: refName, name: upper(name)}
}

// IsZero reports whether r selects nothing.
func (r Ref) IsZero() bool { return r.kind == refNone }

// Matches reports whether r selects h.
func (r Ref) Matches(h *HDU) bool {
	switch r.kind {
	case refIndex:
		return h.Index == r.index
	case refName:
		return h.Name() == r.name
	}
	return false
}

func (r Ref) String() string {
	switch r.kind {
	case refIndex:
		return "#" + strconv.Itoa(r.index)
	case refName:
		return r.name
	}
	return "<none>"
}

// ParseRef interprets s as an index when it is a non-negative integer and
// as an EXTNAME otherwise. An empty string or "none" yields the zero Ref.
func ParseRef(s string) Ref {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return Ref{}
	}
	if i, err := strconv.Atoi(s); err == nil && i >= 0 {
		return At(i)
	}
	return Named(s)
}
