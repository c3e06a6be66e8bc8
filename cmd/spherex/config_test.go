package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"
)

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "catalog_dir: /srv/spherex\nmask_ext: BADPIX\nwcs_relax: false\npreview_size: 256\nserver_address: 0.0.0.0:9000\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := loadConfigFile(path)
	if cfg.CatalogDir != "/srv/spherex" || cfg.MaskExt != "BADPIX" || cfg.ServerAddress != "0.0.0.0:9000" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.WCSRelax == nil || *cfg.WCSRelax {
		t.Fatalf("wcs_relax should be an explicit false")
	}
	if cfg.PreviewSize == nil || *cfg.PreviewSize != 256 {
		t.Fatalf("preview_size: got %v", cfg.PreviewSize)
	}

	if err := os.WriteFile(path, []byte(":\n\t- not yaml"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if cfg := loadConfigFile(path); cfg.CatalogDir != "" {
		t.Fatalf("malformed config should load as zero, got %+v", cfg)
	}
	if cfg := loadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); cfg.MaskExt != "" {
		t.Fatalf("missing config should load as zero, got %+v", cfg)
	}
}

func TestApplyWriteConfigRespectsFlags(t *testing.T) {
	t.Parallel()

	relax := false
	cfg := Config{MaskExt: "BADPIX", FlagsExt: "DQ", WCSRelax: &relax}

	var mask, unc, flags string
	keep := true
	cmd := &cli.Command{
		Name: "convert",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out-mask-ext", Destination: &mask},
			&cli.StringFlag{Name: "out-uncertainty-ext", Value: "VARIANCE", Destination: &unc},
			&cli.StringFlag{Name: "out-flags-ext", Destination: &flags},
			&cli.BoolFlag{Name: "wcs-relax", Value: true, Destination: &keep},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			applyWriteConfig(c, cfg, &mask, &unc, &flags, &keep)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), []string{"convert", "--out-flags-ext", "FLAGS"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if mask != "BADPIX" {
		t.Fatalf("config should fill unset mask name, got %q", mask)
	}
	if flags != "FLAGS" {
		t.Fatalf("explicit flag should win, got %q", flags)
	}
	if unc != "VARIANCE" {
		t.Fatalf("unset config value should keep the default, got %q", unc)
	}
	if keep {
		t.Fatalf("wcs_relax from config should apply")
	}
}

func TestConfigContext(t *testing.T) {
	t.Parallel()

	ctx := withConfig(context.Background(), Config{DatasetType: "calexp"})
	if got := configFrom(ctx).DatasetType; got != "calexp" {
		t.Fatalf("got %q", got)
	}
	if got := configFrom(context.Background()); got.DatasetType != "" {
		t.Fatalf("empty context should yield a zero config")
	}
}
