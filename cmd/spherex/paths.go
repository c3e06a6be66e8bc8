package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const envCatalogDir = "SPHEREX_CATALOG_DIR"

// resolveCatalogDir picks the catalog location: flag, then environment,
// then a directory under the user's cache dir.
func resolveCatalogDir(flag string) (string, error) {
	if dir := strings.TrimSpace(flag); dir != "" {
		return filepath.Clean(dir), nil
	}
	if dir := strings.TrimSpace(os.Getenv(envCatalogDir)); dir != "" {
		return filepath.Clean(dir), nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("--catalog is required unless %s is set: %w", envCatalogDir, err)
	}
	return filepath.Join(base, "spherex", "catalog"), nil
}

// resolveOutput derives an output path next to in when out is empty,
// e.g. image.fits -> image_dark_subtracted.fits.
func resolveOutput(in, out, suffix, ext string) (string, error) {
	if out = strings.TrimSpace(out); out != "" {
		out = filepath.Clean(out)
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return "", err
		}
		return out, nil
	}
	base := filepath.Base(in)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid input path: %q", in)
	}
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(in), base+suffix+ext), nil
}
