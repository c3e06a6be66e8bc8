package bitmask

import (
	"errors"
	"fmt"
	"testing"

	"github.com/samcharles93/spherex/pkg/fits"
)

func TestNewRejectsInvalidDefinitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		entries []Entry
		want    error
	}{
		{"bit too high", []Entry{{"HOT", 32}}, ErrBitRange},
		{"negative bit", []Entry{{"HOT", -1}}, ErrBitRange},
		{"duplicate name", []Entry{{"HOT", 1}, {"hot", 2}}, ErrDuplicateName},
		{"duplicate bit", []Entry{{"HOT", 1}, {"COLD", 1}}, ErrDuplicateBit},
		{"empty name", []Entry{{"", 1}}, ErrInvalidName},
		{"bad character", []Entry{{"HOT PIX", 1}}, ErrInvalidName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tc.entries...); !errors.Is(err, tc.want) {
				t.Fatalf("New(%v) error = %v, want %v", tc.entries, err, tc.want)
			}
		})
	}
}

func TestTableLookups(t *testing.T) {
	t.Parallel()

	tab := Default()
	if tab.Len() != 7 {
		t.Fatalf("Default().Len() = %d, want 7", tab.Len())
	}
	if bit, ok := tab.Bit("persistent"); !ok || bit != 6 {
		t.Fatalf("Bit(persistent) = %d,%v", bit, ok)
	}
	word, err := tab.Mask("SATURATED", "HOT")
	if err != nil {
		t.Fatalf("Mask: %v", err)
	}
	if word != 0b1001 {
		t.Fatalf("Mask = %b, want 1001", word)
	}
	if _, err := tab.Mask("NOPE"); err == nil {
		t.Fatal("Mask(NOPE) expected error")
	}

	names, unknown := tab.Describe(word | 1<<20)
	if fmt.Sprint(names) != "[SATURATED HOT]" || unknown != 1<<20 {
		t.Fatalf("Describe = %v, %b", names, unknown)
	}

	var nilTable *Table
	if nilTable.Len() != 0 || nilTable.Names() != nil {
		t.Fatal("nil table should be empty")
	}
}

func TestHeaderCardsUseShortAndLongForms(t *testing.T) {
	t.Parallel()

	tab := MustNew(Entry{"HOT", 3}, Entry{"COSMIC", 1}, Entry{"ABCDE", 2})
	h := tab.HeaderCards()

	if v, _ := h.Text(KeyExtType); v != ExtTypeMask {
		t.Fatalf("EXTTYPE = %q", v)
	}
	for _, tc := range []struct {
		key      string
		hierarch bool
	}{
		{"MP_HOT", false},
		{"MP_ABCDE", false},
		{"MP_COSMIC", true},
	} {
		c, ok := h.Get(tc.key)
		if !ok {
			t.Fatalf("missing %s", tc.key)
		}
		if c.Hierarch != tc.hierarch {
			t.Fatalf("%s hierarch = %v, want %v", tc.key, c.Hierarch, tc.hierarch)
		}
	}

	if (*Table)(nil).HeaderCards() != nil {
		t.Fatal("nil table should produce no cards")
	}
}

func TestParseHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	got, skipped := ParseHeader(Default().HeaderCards())
	if len(skipped) != 0 {
		t.Fatalf("unexpected skips: %v", skipped)
	}
	if !got.Equal(Default()) {
		t.Fatalf("round trip = %v, want %v", got.Map(), Default().Map())
	}
}

func TestParseHeaderSkipsMalformedRecords(t *testing.T) {
	t.Parallel()

	var h fits.Header
	for i := range 9 {
		h = append(h, fits.Card{Key: fmt.Sprintf("MP_F%d", i), Value: int64(i)})
	}
	h = append(h,
		fits.Card{Key: "MP_BAD", Value: "not a bit"},
		fits.Card{Key: "OBJECT", Value: "M31"},
	)

	tab, skipped := ParseHeader(h)
	if tab.Len() != 9 {
		t.Fatalf("Len = %d, want 9", tab.Len())
	}
	if len(skipped) != 1 || skipped[0].Key != "MP_BAD" {
		t.Fatalf("skipped = %v", skipped)
	}
	if !errors.Is(skipped[0].Err, ErrHeaderParseSkip) {
		t.Fatalf("skip error %v does not wrap ErrHeaderParseSkip", skipped[0].Err)
	}
}

func TestParseHeaderDropsOutOfRangeBits(t *testing.T) {
	t.Parallel()

	h := fits.Header{
		{Key: "MP_FOO", Value: int64(40)},
		{Key: "MP_BAR", Value: int64(4)},
		{Key: "MP_NEG", Value: int64(-2)},
	}
	tab, skipped := ParseHeader(h)
	if tab.Len() != 1 {
		t.Fatalf("Len = %d, want 1", tab.Len())
	}
	if bit, ok := tab.Bit("BAR"); !ok || bit != 4 {
		t.Fatalf("Bit(BAR) = %d,%v", bit, ok)
	}
	if _, ok := tab.Bit("FOO"); ok {
		t.Fatal("FOO should have been dropped")
	}
	if len(skipped) != 2 {
		t.Fatalf("skipped = %d, want 2", len(skipped))
	}
}

func TestParseHeaderWithoutRecordsReturnsNil(t *testing.T) {
	t.Parallel()

	tab, _ := ParseHeader(fits.Header{{Key: "OBJECT", Value: "M31"}})
	if tab != nil {
		t.Fatalf("expected nil table, got %v", tab.Map())
	}
	tab, skipped := ParseHeader(fits.Header{{Key: "MP_X", Value: int64(99)}})
	if tab != nil || len(skipped) != 1 {
		t.Fatalf("all-invalid header: table=%v skipped=%d", tab, len(skipped))
	}
}

func TestParseHeaderQuotedIntegers(t *testing.T) {
	t.Parallel()

	tab, _ := ParseHeader(fits.Header{{Key: "MP_HOT", Value: "3"}})
	if bit, ok := tab.Bit("HOT"); !ok || bit != 3 {
		t.Fatalf("Bit(HOT) = %d,%v", bit, ok)
	}
}
