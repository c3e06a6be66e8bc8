package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/spherex/pkg/bitmask"
	"github.com/samcharles93/spherex/pkg/fits"
	"github.com/samcharles93/spherex/pkg/spherex"
)

func testImage(t *testing.T, v float64) *spherex.Image {
	t.Helper()
	data, err := fits.NewArray([]int{2, 2}, []float64{v, v + 1, v + 2, v + 3})
	if err != nil {
		t.Fatal(err)
	}
	flags, err := fits.NewArray([]int{2, 2}, []uint32{0, 1, 2, 4})
	if err != nil {
		t.Fatal(err)
	}
	img, err := spherex.New(data, spherex.ElectronPerSecond, spherex.WithFlags(flags, bitmask.Default()))
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func openTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s, err := Open(dir, withClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func seedDimensions(t *testing.T, s *Store, exposures ...int) {
	t.Helper()
	ctx := context.Background()
	recs := []DimensionRecord{{Element: Instrument, Key: InstrumentKey("sim")}}
	for d := 1; d <= 2; d++ {
		recs = append(recs, DimensionRecord{Element: Detector, Key: DetectorKey("sim", d)})
	}
	for _, e := range exposures {
		recs = append(recs, DimensionRecord{Element: Exposure, Key: ExposureKey("sim", e)})
	}
	for _, r := range recs {
		if _, err := s.SyncDimension(ctx, r); err != nil {
			t.Fatalf("sync %v: %v", r, err)
		}
	}
}

func TestSyncDimensionIsIdempotent(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())
	ctx := context.Background()
	rec := DimensionRecord{Element: Instrument, Key: "sim", Fields: map[string]string{"detector_max": "6"}}

	inserted, err := s.SyncDimension(ctx, rec)
	if err != nil || !inserted {
		t.Fatalf("first sync = %v, %v", inserted, err)
	}
	inserted, err = s.SyncDimension(ctx, rec)
	if err != nil || inserted {
		t.Fatalf("second sync = %v, %v", inserted, err)
	}

	rec.Fields = map[string]string{"detector_max": "7"}
	if _, err := s.SyncDimension(ctx, rec); !errors.Is(err, ErrConflict) {
		t.Fatalf("conflicting sync error = %v", err)
	}
}

func TestPutGetFindAndReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := openTestStore(t, dir)
	seedDimensions(t, s, 7)
	ctx := context.Background()

	img := testImage(t, 10)
	raw, err := spherex.EncodeBytes(testImage(t, 20), nil)
	if err != nil {
		t.Fatal(err)
	}

	stored, err := s.Put(ctx,
		PutRequest{Run: "raw", DatasetType: "rawexp", Coordinate: Coordinate{"sim", 1, 7}, Payload: img},
		PutRequest{Run: "raw", DatasetType: "rawexp", Coordinate: Coordinate{"sim", 2, 7}, Payload: raw, Source: "b.fits"},
	)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if len(stored) != 2 || stored[0].ID == uuid.Nil || stored[0].ID == stored[1].ID {
		t.Fatalf("stored = %+v", stored)
	}

	blobs, err := os.ReadDir(filepath.Join(dir, blobDir))
	if err != nil || len(blobs) != 2 {
		t.Fatalf("blobs = %v, %v", blobs, err)
	}

	reopened := openTestStore(t, dir)
	det := 2
	found, err := reopened.Find(ctx, Query{Run: "raw", Detector: &det})
	if err != nil || len(found) != 1 {
		t.Fatalf("find = %v, %v", found, err)
	}
	if found[0].Source != "b.fits" || !found[0].Created.Equal(stored[1].Created) {
		t.Fatalf("found = %+v", found[0])
	}

	got, ds, err := Load(ctx, reopened, stored[0].ID, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.Coordinate.Detector != 1 || !got.Data.Equal(img.Data) || !got.FlagDefs.Equal(img.FlagDefs) {
		t.Fatalf("loaded image differs: %+v", ds)
	}
}

func TestPutIsAllOrNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := openTestStore(t, dir)
	seedDimensions(t, s, 1)
	ctx := context.Background()

	_, err := s.Put(ctx,
		PutRequest{Run: "r", DatasetType: "rawexp", Coordinate: Coordinate{"sim", 1, 1}, Payload: testImage(t, 1)},
		PutRequest{Run: "r", DatasetType: "rawexp", Coordinate: Coordinate{"sim", 1, 2}, Payload: testImage(t, 2)},
	)
	if !errors.Is(err, ErrUnknownDimension) {
		t.Fatalf("error = %v, want ErrUnknownDimension", err)
	}

	_, err = s.Put(ctx,
		PutRequest{Run: "r", DatasetType: "rawexp", Coordinate: Coordinate{"sim", 1, 1}, Payload: testImage(t, 1)},
		PutRequest{Run: "r", DatasetType: "rawexp", Coordinate: Coordinate{"sim", 1, 1}, Payload: testImage(t, 2)},
	)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}

	_, err = s.Put(ctx,
		PutRequest{Run: "r", DatasetType: "rawexp", Coordinate: Coordinate{"sim", 1, 1}, Payload: testImage(t, 1)},
		PutRequest{Run: "r", DatasetType: "rawexp", Coordinate: Coordinate{"sim", 2, 1}, Payload: []byte("not fits")},
	)
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("error = %v, want ErrInvalidPayload", err)
	}

	found, _ := s.Find(ctx, Query{})
	if len(found) != 0 {
		t.Fatalf("failed batches left datasets: %v", found)
	}
	blobs, _ := os.ReadDir(filepath.Join(dir, blobDir))
	if len(blobs) != 0 {
		t.Fatalf("failed batches left blobs: %v", blobs)
	}
}

func TestGetUnknownID(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, t.TempDir())
	if _, _, err := s.Get(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestLayoutRoundTrip(t *testing.T) {
	t.Parallel()

	custom := Layout{Data: "SCI", Mask: "BAD", Flags: "DQ"}
	o := custom.WriteOptions()
	if o.UncertaintyName != "" || o.UncertaintyTypeKey != spherex.DefaultUncertaintyTypeKey || !o.WCSRelax {
		t.Fatalf("write options = %+v", o)
	}
	if LayoutOf(o).Flags != "DQ" {
		t.Fatalf("LayoutOf = %+v", LayoutOf(o))
	}
}
