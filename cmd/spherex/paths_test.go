package main

import (
	"path/filepath"
	"testing"
)

func TestResolveOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cases := []struct {
		in, out, suffix, ext string
		want                 string
	}{
		{in: "/data/sim_exposure_000001_array_1.fits", suffix: "_dark_subtracted", ext: ".fits", want: "/data/sim_exposure_000001_array_1_dark_subtracted.fits"},
		{in: "/data/image.fits.gz", suffix: "_converted", ext: ".fits.gz", want: "/data/image_converted.fits.gz"},
		{in: "image.fits", ext: ".png", want: "image.png"},
		{in: "image.fits", out: filepath.Join(dir, "nested", "x.fits"), want: filepath.Join(dir, "nested", "x.fits")},
	}
	for _, tc := range cases {
		got, err := resolveOutput(tc.in, tc.out, tc.suffix, tc.ext)
		if err != nil {
			t.Fatalf("resolveOutput(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("resolveOutput(%q): got %q want %q", tc.in, got, tc.want)
		}
	}
	if _, err := resolveOutput("/", "", "", ".png"); err == nil {
		t.Fatalf("expected error for root input")
	}
}

func TestResolveCatalogDir(t *testing.T) {
	t.Setenv(envCatalogDir, "/srv/catalog/")

	got, err := resolveCatalogDir("  ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "/srv/catalog" {
		t.Fatalf("env fallback: got %q", got)
	}
	got, err = resolveCatalogDir("/tmp/cat")
	if err != nil || got != "/tmp/cat" {
		t.Fatalf("flag should win: got %q err=%v", got, err)
	}
}
