package bitmask

import (
	"fmt"
	"strings"

	"github.com/samcharles93/spherex/pkg/fits"
)

// Skip records a header card ParseHeader ignored. Err wraps ErrHeaderParseSkip.
type Skip struct {
	Key string
	Err error
}

func skip(key, format string, args ...any) Skip {
	return Skip{Key: key, Err: fmt.Errorf("%w: %s: %s", ErrHeaderParseSkip, key, fmt.Sprintf(format, args...))}
}

// ParseHeader collects MP_<NAME> records from h. A record whose value is not
// an integer, whose bit is outside [0, MaxBit], or whose name or bit repeats
// an earlier record is skipped without affecting the others. The result is
// nil when no record was accepted, so callers can tell "no flag metadata"
// from an empty table.
func ParseHeader(h fits.Header) (*Table, []Skip) {
	var (
		entries []Entry
		skipped []Skip
		names   = map[string]bool{}
		bits    = map[int]bool{}
	)
	for _, c := range h {
		key := strings.ToUpper(strings.TrimSpace(c.Key))
		if !strings.HasPrefix(key, KeyPrefix) {
			continue
		}
		name := key[len(KeyPrefix):]
		v, ok := c.Int()
		switch {
		case !ok:
			skipped = append(skipped, skip(c.Key, "value %v is not an integer", c.Value))
			continue
		case v < 0 || v > MaxBit:
			skipped = append(skipped, skip(c.Key, "bit %d outside [0, %d]", v, MaxBit))
			continue
		case !validName(name):
			skipped = append(skipped, skip(c.Key, "invalid flag name %q", name))
			continue
		case names[name]:
			skipped = append(skipped, skip(c.Key, "duplicate flag name"))
			continue
		case bits[int(v)]:
			skipped = append(skipped, skip(c.Key, "bit %d already assigned", v))
			continue
		}
		names[name] = true
		bits[int(v)] = true
		entries = append(entries, Entry{Name: name, Bit: int(v)})
	}
	if len(entries) == 0 {
		return nil, skipped
	}
	t, err := New(entries...)
	if err != nil {
		// Entries were validated above.
		panic(err)
	}
	return t, skipped
}

// HeaderCards returns the records describing t: EXTTYPE='MASK' followed by
// one MP_<NAME> record per flag. A nil or empty table yields no records.
func (t *Table) HeaderCards() fits.Header {
	if t.Len() == 0 {
		return nil
	}
	h := make(fits.Header, 0, t.Len()+1)
	h = append(h, fits.Card{Key: KeyExtType, Value: ExtTypeMask, Comment: "flag bit definitions in MP_ keywords"})
	for _, e := range t.entries {
		h = append(h, fits.Card{
			Key:      KeyPrefix + e.Name,
			Value:    int64(e.Bit),
			Hierarch: len(e.Name) > shortNameLimit,
		})
	}
	return h
}
