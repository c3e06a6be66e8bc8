package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/samcharles93/spherex/internal/catalog"
	"github.com/samcharles93/spherex/pkg/fits"
	"github.com/samcharles93/spherex/pkg/spherex"
)

func writeExposure(t *testing.T, path string) {
	t.Helper()
	data, err := fits.NewArray([]int{2, 2}, []float64{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	img, err := spherex.New(data, spherex.ElectronPerSecond)
	if err != nil {
		t.Fatal(err)
	}
	if err := spherex.WriteFile(path, img, nil); err != nil {
		t.Fatal(err)
	}
}

func TestParseName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		exposure int
		detector int
		ok       bool
	}{
		{"sim_exposure_000042_array_3.fits", 42, 3, true},
		{"dir/sim_exposure_000000_array_2_dark_current.fits", 0, 2, true},
		{"sim_exposure_000001_array_7.fits", 0, 0, false},
		{"sim_exposure_000001_array_1", 0, 0, false},
		{"exposure_1.fits", 0, 0, false},
	}
	for _, tc := range cases {
		exp, det, err := ParseName(tc.name)
		if (err == nil) != tc.ok {
			t.Fatalf("ParseName(%q) error = %v", tc.name, err)
		}
		if tc.ok && (exp != tc.exposure || det != tc.detector) {
			t.Fatalf("ParseName(%q) = %d,%d", tc.name, exp, det)
		}
	}
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sub := filepath.Join(dir, "night1")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{
		filepath.Join(dir, "sim_exposure_000001_array_1.fits"),
		filepath.Join(sub, "sim_exposure_000002_array_4.fits"),
		filepath.Join(dir, "notes.txt"),
	} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	explicit := filepath.Join(dir, "notes.txt")
	files, err := Discover([]string{dir, explicit}, regexp.MustCompile(DefaultPattern))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("files = %v", files)
	}

	if _, err := Discover([]string{filepath.Join(dir, "missing")}, regexp.MustCompile(DefaultPattern)); err == nil {
		t.Fatal("expected error for missing location")
	}
}

func TestRunStoresMatchedFiles(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeExposure(t, filepath.Join(src, "sim_exposure_000010_array_1.fits"))
	writeExposure(t, filepath.Join(src, "sim_exposure_000010_array_2.fits"))
	stray := filepath.Join(src, "calibration.fits")
	writeExposure(t, stray)

	store, err := catalog.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	res, err := Run(ctx, store, Config{
		Locations: []string{src, stray},
		Now:       func() time.Time { return time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Run != "rawexpr" || len(res.Stored) != 2 || len(res.Failures) != 1 || res.Failures[0].Path != stray {
		t.Fatalf("result = %+v", res)
	}

	if _, ok := store.Dimension(catalog.Detector, catalog.DetectorKey(InstrumentName, 6)); !ok {
		t.Fatal("detectors not registered")
	}
	exp, ok := store.Dimension(catalog.Exposure, catalog.ExposureKey(InstrumentName, 10))
	if !ok || exp.Fields["name"] != "000010" || exp.Fields["group_name"] != "20260504" {
		t.Fatalf("exposure record = %+v", exp)
	}

	det := 2
	found, err := store.Find(ctx, catalog.Query{Run: "rawexpr", DatasetType: DefaultDatasetType, Detector: &det})
	if err != nil || len(found) != 1 || found[0].Coordinate.Exposure != 10 {
		t.Fatalf("find = %+v, %v", found, err)
	}
}

func TestRunWithoutFiles(t *testing.T) {
	t.Parallel()

	store, err := catalog.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = Run(context.Background(), store, Config{Locations: []string{t.TempDir()}})
	if !errors.Is(err, ErrNoFiles) {
		t.Fatalf("error = %v, want ErrNoFiles", err)
	}
}
