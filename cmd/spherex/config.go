package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the configuration file (~/.config/spherex/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	CatalogDir string `yaml:"catalog_dir"`

	// Output layout
	MaskExt        string `yaml:"mask_ext"`
	UncertaintyExt string `yaml:"uncertainty_ext"`
	FlagsExt       string `yaml:"flags_ext"`
	WCSRelax       *bool  `yaml:"wcs_relax"`

	// Ingest
	DatasetType string `yaml:"dataset_type"`
	Pattern     string `yaml:"pattern"`

	// Preview
	PreviewSize *int64 `yaml:"preview_size"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

type configKey struct{}

func withConfig(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFrom(ctx context.Context) Config {
	cfg, _ := ctx.Value(configKey{}).(Config)
	return cfg
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "spherex", "config.yaml")
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

func applyCatalogConfig(c *cli.Command, cfg Config) {
	if cfg.CatalogDir != "" && !c.IsSet("catalog") {
		catalogDir = cfg.CatalogDir
	}
}

// applyReadConfig lets the configured layer names drive decoding too, so a
// file written with a custom layout reads back without repeating flags.
func applyReadConfig(c *cli.Command, cfg Config) {
	if cfg.MaskExt != "" && !c.IsSet("mask-ext") {
		maskExt = cfg.MaskExt
	}
	if cfg.UncertaintyExt != "" && !c.IsSet("uncertainty-ext") {
		uncertaintyExt = cfg.UncertaintyExt
	}
	if cfg.FlagsExt != "" && !c.IsSet("flags-ext") {
		flagsExt = cfg.FlagsExt
	}
}

func applyWriteConfig(c *cli.Command, cfg Config, mask, uncertainty, flags *string, relax *bool) {
	if cfg.MaskExt != "" && !c.IsSet("out-mask-ext") {
		*mask = cfg.MaskExt
	}
	if cfg.UncertaintyExt != "" && !c.IsSet("out-uncertainty-ext") {
		*uncertainty = cfg.UncertaintyExt
	}
	if cfg.FlagsExt != "" && !c.IsSet("out-flags-ext") {
		*flags = cfg.FlagsExt
	}
	if cfg.WCSRelax != nil && !c.IsSet("wcs-relax") {
		*relax = *cfg.WCSRelax
	}
}

func applyIngestConfig(c *cli.Command, cfg Config, datasetType, pattern *string) {
	if cfg.DatasetType != "" && !c.IsSet("dataset-type") {
		*datasetType = cfg.DatasetType
	}
	if cfg.Pattern != "" && !c.IsSet("pattern") {
		*pattern = cfg.Pattern
	}
}

func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

func applyPreviewConfig(c *cli.Command, cfg Config, size *int64) {
	if cfg.PreviewSize != nil && !c.IsSet("size") {
		*size = *cfg.PreviewSize
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	return loadConfigFile(path)
}

func loadConfigFile(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
