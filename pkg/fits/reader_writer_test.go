package fits

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func writeSample(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.WriteHeaderOnly(nil); err != nil {
		t.Fatalf("write primary: %v", err)
	}
	sci, err := NewArray([]int{2, 3}, []float32{1, 2, 3, 4, 5, 6.5})
	if err != nil {
		t.Fatalf("new array: %v", err)
	}
	if err := WriteArray(w, sci, Header{{Key: KeyExtName, Value: "SCI"}, {Key: "BUNIT", Value: "adu"}}); err != nil {
		t.Fatalf("write sci: %v", err)
	}
	flags, err := NewArray([]int{2, 3}, []uint32{0, 1, 1 << 31, 5, 0xFFFFFFFF, 7})
	if err != nil {
		t.Fatalf("new array: %v", err)
	}
	// Caller supplied structural keywords must be replaced, not duplicated.
	if err := WriteArray(w, flags, Header{{Key: KeyExtName, Value: "FLAGS"}, {Key: KeyBitPix, Value: int64(8)}}); err != nil {
		t.Fatalf("write flags: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func TestWriterParseRoundTrip(t *testing.T) {
	t.Parallel()

	raw := writeSample(t)
	if len(raw)%BlockSize != 0 {
		t.Fatalf("file size %d is not a multiple of %d", len(raw), BlockSize)
	}

	f, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("expected 3 HDUs, got %d", f.Len())
	}
	if f.HDUs[0].HasData() {
		t.Fatalf("primary should be header-only")
	}
	if f.HDUs[0].Name() != PrimaryName {
		t.Fatalf("primary name: got %q", f.HDUs[0].Name())
	}

	sci, ok := f.Lookup("sci")
	if !ok {
		t.Fatalf("SCI extension missing")
	}
	if sci.BitPix() != BitPixFloat32 {
		t.Fatalf("sci bitpix: got %d", sci.BitPix())
	}
	got, err := ReadArray[float64](sci)
	if err != nil {
		t.Fatalf("read sci: %v", err)
	}
	want := &Array[float64]{Shape: []int{2, 3}, Data: []float64{1, 2, 3, 4, 5, 6.5}}
	if !got.Equal(want) {
		t.Fatalf("sci mismatch: got %+v want %+v", got, want)
	}
	if unit, _ := sci.Header.Text("BUNIT"); unit != "adu" {
		t.Fatalf("BUNIT: got %q", unit)
	}
	if n, _ := sci.Header.Int("NAXIS1"); n != 3 {
		t.Fatalf("NAXIS1 should be the fastest axis, got %d", n)
	}

	flagsHDU, ok := f.Find(Named("FLAGS"))
	if !ok {
		t.Fatalf("FLAGS extension missing")
	}
	if flagsHDU.BitPix() != BitPixInt32 {
		t.Fatalf("flags bitpix: got %d", flagsHDU.BitPix())
	}
	flags, err := ReadArray[uint32](flagsHDU)
	if err != nil {
		t.Fatalf("read flags: %v", err)
	}
	wantFlags := []uint32{0, 1, 1 << 31, 5, 0xFFFFFFFF, 7}
	for i := range wantFlags {
		if flags.Data[i] != wantFlags[i] {
			t.Fatalf("flag %d: got %#x want %#x", i, flags.Data[i], wantFlags[i])
		}
	}
}

func TestReadArrayBoolAndScaling(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, _ := NewWriter(&buf)
	mask, _ := NewArray([]int{4}, []bool{true, false, false, true})
	if err := WriteArray(w, mask, nil); err != nil {
		t.Fatalf("write mask: %v", err)
	}
	counts, _ := NewArray([]int{3}, []uint16{0, 32768, 65535})
	if err := WriteArray(w, counts, nil); err != nil {
		t.Fatalf("write counts: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	gotMask, err := ReadArray[bool](f.HDUs[0])
	if err != nil {
		t.Fatalf("read mask: %v", err)
	}
	if !gotMask.Equal(mask) {
		t.Fatalf("mask mismatch: %+v", gotMask)
	}
	gotCounts, err := ReadArray[uint16](f.HDUs[1])
	if err != nil {
		t.Fatalf("read counts: %v", err)
	}
	if !gotCounts.Equal(counts) {
		t.Fatalf("counts mismatch: %+v", gotCounts)
	}
	asFloat, err := ReadArray[float64](f.HDUs[1])
	if err != nil {
		t.Fatalf("read counts as float: %v", err)
	}
	if asFloat.Data[2] != 65535 {
		t.Fatalf("BZERO not applied: %v", asFloat.Data)
	}
}

func TestOpenMappedAndGzip(t *testing.T) {
	t.Parallel()

	raw := writeSample(t)
	dir := t.TempDir()

	plain := filepath.Join(dir, "image.fits")
	if err := os.WriteFile(plain, raw, 0o644); err != nil {
		t.Fatalf("write plain: %v", err)
	}
	f, err := Open(plain)
	if err != nil {
		t.Fatalf("open plain: %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("plain: expected 3 HDUs, got %d", f.Len())
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close plain: %v", err)
	}

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write(raw); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	packed := filepath.Join(dir, "image.fits.gz")
	if err := os.WriteFile(packed, gz.Bytes(), 0o644); err != nil {
		t.Fatalf("write gz: %v", err)
	}
	g, err := Open(packed)
	if err != nil {
		t.Fatalf("open gz: %v", err)
	}
	defer func() { _ = g.Close() }()
	if _, ok := g.Lookup("FLAGS"); !ok {
		t.Fatalf("gz: FLAGS extension missing")
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte("not a fits file")); !errors.Is(err, ErrNotFITS) {
		t.Fatalf("expected ErrNotFITS, got %v", err)
	}

	raw := writeSample(t)
	if _, err := Parse(raw[:len(raw)-BlockSize]); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected ErrCorruptFile for truncated data, got %v", err)
	}

	noEnd := bytes.Repeat([]byte(" "), BlockSize)
	copy(noEnd, "SIMPLE  =                    T")
	if _, err := Parse(noEnd); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected ErrCorruptFile without END, got %v", err)
	}
}

func TestParseIgnoresTrailingPadding(t *testing.T) {
	t.Parallel()

	raw := append(writeSample(t), make([]byte, BlockSize)...)
	f, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("expected 3 HDUs, got %d", f.Len())
	}
}

func TestWriterRequiresHDU(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(&bytes.Buffer{})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.Close(); err == nil {
		t.Fatalf("expected error closing empty writer")
	}
	if err := w.WriteHeaderOnly(nil); err == nil {
		t.Fatalf("expected error writing after close")
	}
}

func TestRefs(t *testing.T) {
	t.Parallel()

	f, err := Parse(writeSample(t))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if h, ok := f.Find(ParseRef("1")); !ok || h.Name() != "SCI" {
		t.Fatalf("index ref: got %v ok=%v", h, ok)
	}
	if h, ok := f.Find(ParseRef("flags")); !ok || h.Index != 2 {
		t.Fatalf("name ref: got %v ok=%v", h, ok)
	}
	if _, ok := f.Find(ParseRef("none")); ok {
		t.Fatalf("zero ref should not resolve")
	}
	if _, ok := f.Find(At(9)); ok {
		t.Fatalf("out of range index should not resolve")
	}
	if !Named("sci").Matches(f.HDUs[1]) {
		t.Fatalf("Matches should compare names case-insensitively")
	}
}

func TestHeaderEditing(t *testing.T) {
	t.Parallel()

	var h Header
	if err := h.SetValue("OBJECT", "M31", ""); err != nil {
		t.Fatalf("set: %v", err)
	}
	h.Set(Card{Key: "object", Value: "M33"})
	h.Add(Commentary(KeyHistory, "one"))
	h.Set(Commentary(KeyHistory, "two"))
	if len(h) != 3 {
		t.Fatalf("expected 3 cards, got %d: %v", len(h), h.Keys())
	}
	if v, _ := h.Text("OBJECT"); v != "M33" {
		t.Fatalf("Set should replace: got %q", v)
	}

	other := Header{{Key: "OBJECT", Value: "M51"}, {Key: "EXPTIME", Value: 10.0}}
	merged := h.Clone()
	merged.Merge(other)
	if v, _ := merged.Text("OBJECT"); v != "M51" {
		t.Fatalf("Merge should update: got %q", v)
	}
	if v, _ := h.Text("OBJECT"); v != "M33" {
		t.Fatalf("Clone should be independent: got %q", v)
	}
	if !merged.Delete("history") || merged.Has(KeyHistory) {
		t.Fatalf("Delete should remove every HISTORY card")
	}

	stripped := StripStructural(Header{{Key: "NAXIS2", Value: int64(4)}, {Key: "NAXISX", Value: "keep"}, {Key: "BZERO", Value: int64(1)}})
	if len(stripped) != 1 || stripped[0].Key != "NAXISX" {
		t.Fatalf("unexpected stripped header: %v", stripped.Keys())
	}
}

func rawHeader(cards ...string) []byte {
	var buf bytes.Buffer
	for _, c := range cards {
		fmt.Fprintf(&buf, "%-80s", c)
	}
	fmt.Fprintf(&buf, "%-80s", KeyEnd)
	buf.Write(bytes.Repeat([]byte(" "), padLen(buf.Len())))
	return buf.Bytes()
}

func TestParseRejectsOverflowingDataSize(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"naxis times bitpix": {
			"SIMPLE  =                    T",
			"BITPIX  =                  -64",
			"NAXIS   =                    1",
			"NAXIS1  =  2305843009213693953",
		},
		"axis product": {
			"SIMPLE  =                    T",
			"BITPIX  =                    8",
			"NAXIS   =                    2",
			"NAXIS1  =  4611686018427387904",
			"NAXIS2  =                    4",
		},
		"negative pcount": {
			"SIMPLE  =                    T",
			"BITPIX  =                    8",
			"NAXIS   =                    1",
			"NAXIS1  =                   16",
			"PCOUNT  =                  -16",
		},
	}
	for name, cards := range cases {
		raw := append(rawHeader(cards...), make([]byte, BlockSize)...)
		if _, err := Parse(raw); !errors.Is(err, ErrCorruptFile) {
			t.Fatalf("%s: expected ErrCorruptFile, got %v", name, err)
		}
	}
}

func TestReadArrayRejectsShortPayload(t *testing.T) {
	t.Parallel()

	h := &HDU{
		Header: Header{
			{Key: KeySimple, Value: true},
			{Key: KeyBitPix, Value: int64(BitPixFloat64)},
			{Key: KeyNAxis, Value: int64(1)},
			{Key: KeyNAxis + "1", Value: int64(2305843009213693953)},
		},
		Data: make([]byte, 8),
	}
	if _, err := ReadArray[float64](h); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected ErrCorruptFile, got %v", err)
	}
}

func TestParseKeepsUnreadableCards(t *testing.T) {
	t.Parallel()

	hdr := rawHeader(
		"SIMPLE  =                    T",
		"BITPIX  =                    8",
		"NAXIS   =                    0",
		"MP_A    =                    0",
		"MP_B    = 'unterminated",
		"OBSERVER= 'bad byte'",
		"MP_C    =                    2",
	)
	// Corrupt the OBSERVER value with a control character.
	bad := bytes.Index(hdr, []byte("bad byte"))
	hdr[bad+3] = 0x01

	f, err := Parse(hdr)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	h := f.HDUs[0].Header
	if v, ok := h.Int("MP_C"); !ok || v != 2 {
		t.Fatalf("cards after the bad ones should survive, MP_C = %d ok=%v", v, ok)
	}
	c, ok := h.Get("MP_B")
	if !ok {
		t.Fatalf("MP_B should be kept")
	}
	if lit, isLit := c.Value.(Literal); !isLit || lit != "'unterminated" {
		t.Fatalf("MP_B value: got %#v", c.Value)
	}
	if _, ok := c.Int(); ok {
		t.Fatalf("unreadable value must not convert to an integer")
	}
	obs, _ := h.Get("OBSERVER")
	if lit, _ := obs.Value.(Literal); lit != "'bad?byte'" {
		t.Fatalf("non-printable byte should be replaced, got %#v", obs.Value)
	}
}
