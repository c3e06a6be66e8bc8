// Package bitmask maps per-pixel flag names to bit positions in a 32-bit
// flag word and converts that mapping to and from FITS header records.
//
// Header convention (understood by Firefly): the flag extension carries
// EXTTYPE='MASK' and one MP_<NAME> = <bit> record per flag. Names of six or
// more characters use the HIERARCH long-keyword form.
package bitmask

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samcharles93/spherex/pkg/fits"
)

const (
	// KeyPrefix starts every flag definition keyword.
	KeyPrefix = "MP_"

	// KeyExtType marks an extension's semantic type for visualisation tools.
	KeyExtType = "EXTTYPE"

	// ExtTypeMask is the EXTTYPE value of a bitmask extension.
	ExtTypeMask = "MASK"

	// MaxBit is the highest bit index of a 32-bit flag word.
	MaxBit = 31

	// shortNameLimit is the longest name that still fits an 8-char keyword.
	shortNameLimit = fits.KeywordSize - len(KeyPrefix)
)

var (
	ErrBitRange        = errors.New("bitmask: bit index out of range")
	ErrDuplicateName   = errors.New("bitmask: duplicate flag name")
	ErrDuplicateBit    = errors.New("bitmask: duplicate bit index")
	ErrInvalidName     = errors.New("bitmask: invalid flag name")
	ErrHeaderParseSkip = errors.New("bitmask: header record skipped")
)

// Entry is a single flag definition.
type Entry struct {
	Name string `json:"name"`
	Bit  int    `json:"bit"`
}

// Table is an immutable ordered set of flag definitions with unique names
// and unique bits in [0, MaxBit].
type Table struct {
	entries []Entry
	byName  map[string]int
}

// New builds a table. Names are upper-cased.
func New(entries ...Entry) (*Table, error) {
	t := &Table{
		entries: make([]Entry, 0, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}
	bits := make(map[int]string, len(entries))
	for _, e := range entries {
		name := strings.ToUpper(strings.TrimSpace(e.Name))
		if !validName(name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, e.Name)
		}
		if e.Bit < 0 || e.Bit > MaxBit {
			return nil, fmt.Errorf("%w: %s=%d", ErrBitRange, name, e.Bit)
		}
		if _, ok := t.byName[name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		if other, ok := bits[e.Bit]; ok {
			return nil, fmt.Errorf("%w: %d used by %s and %s", ErrDuplicateBit, e.Bit, other, name)
		}
		bits[e.Bit] = name
		t.byName[name] = e.Bit
		t.entries = append(t.entries, Entry{Name: name, Bit: e.Bit})
	}
	return t, nil
}

// MustNew is like New but panics on error. Intended for package-level tables.
func MustNew(entries ...Entry) *Table {
	t, err := New(entries...)
	if err != nil {
		panic(err)
	}
	return t
}

// FromMap builds a table from a name→bit map, ordered by bit.
func FromMap(m map[string]int) (*Table, error) {
	entries := make([]Entry, 0, len(m))
	for name, bit := range m {
		entries = append(entries, Entry{Name: name, Bit: bit})
	}
	slices.SortFunc(entries, func(a, b Entry) int { return a.Bit - b.Bit })
	return New(entries...)
}

var defaultTable = MustNew(
	Entry{Name: "SATURATED", Bit: 0},
	Entry{Name: "COSMICRAY", Bit: 1},
	Entry{Name: "NONFUNC", Bit: 2},
	Entry{Name: "HOT", Bit: 3},
	Entry{Name: "OUTLIER", Bit: 4},
	Entry{Name: "DARKREF", Bit: 5},
	Entry{Name: "PERSISTENT", Bit: 6},
)

// Default returns the instrument's standard detector flag set.
func Default() *Table { return defaultTable }

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') && c != '_' && c != '-' {
			return false
		}
	}
	return true
}

// Len returns the number of flags. A nil table is empty.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns a copy of the definitions in table order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	return slices.Clone(t.entries)
}

// Names returns the flag names in table order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.Name
	}
	return names
}

// Bit returns the bit index of name.
func (t *Table) Bit(name string) (int, bool) {
	if t == nil {
		return 0, false
	}
	bit, ok := t.byName[strings.ToUpper(strings.TrimSpace(name))]
	return bit, ok
}

// Mask returns the flag word with the bits of every named flag set.
func (t *Table) Mask(names ...string) (uint32, error) {
	var word uint32
	for _, name := range names {
		bit, ok := t.Bit(name)
		if !ok {
			return 0, fmt.Errorf("bitmask: unknown flag %q", name)
		}
		word |= 1 << uint(bit)
	}
	return word, nil
}

// Describe returns the names of the defined flags set in word, in table
// order, and the remaining bits that no definition covers.
func (t *Table) Describe(word uint32) (names []string, unknown uint32) {
	unknown = word
	if t == nil {
		return nil, unknown
	}
	for _, e := range t.entries {
		bit := uint32(1) << uint(e.Bit)
		if word&bit != 0 {
			names = append(names, e.Name)
			unknown &^= bit
		}
	}
	return names, unknown
}

// Equal reports whether both tables hold the same (name, bit) pairs,
// ignoring order.
func (t *Table) Equal(o *Table) bool {
	if t.Len() != o.Len() {
		return false
	}
	for _, e := range t.Entries() {
		if bit, ok := o.Bit(e.Name); !ok || bit != e.Bit {
			return false
		}
	}
	return true
}

// Map returns the definitions as a name→bit map.
func (t *Table) Map() map[string]int {
	m := make(map[string]int, t.Len())
	for _, e := range t.Entries() {
		m[e.Name] = e.Bit
	}
	return m
}
