package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/spherex/internal/logger"
	"github.com/samcharles93/spherex/pkg/spherex"
)

// writeFlags binds the output layout of commands that write an image.
func writeFlags(o *spherex.WriteOptions, gzip *bool) []cli.Flag {
	def := spherex.DefaultWriteOptions()
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "out-data-ext",
			Usage:       "EXTNAME for the data extension (empty leaves it unnamed)",
			Destination: &o.DataName,
		},
		&cli.StringFlag{
			Name:        "out-mask-ext",
			Usage:       "EXTNAME for the mask extension (empty omits the mask)",
			Value:       def.MaskName,
			Destination: &o.MaskName,
		},
		&cli.StringFlag{
			Name:        "out-uncertainty-ext",
			Usage:       "EXTNAME for the uncertainty extension (empty omits it)",
			Value:       def.UncertaintyName,
			Destination: &o.UncertaintyName,
		},
		&cli.StringFlag{
			Name:        "out-flags-ext",
			Usage:       "EXTNAME for the flags extension (empty omits it)",
			Value:       def.FlagsName,
			Destination: &o.FlagsName,
		},
		&cli.BoolFlag{
			Name:        "wcs-relax",
			Usage:       "keep non-standard WCS keywords such as SIP distortion terms",
			Value:       def.WCSRelax,
			Destination: &o.WCSRelax,
		},
		&cli.BoolFlag{
			Name:        "gzip",
			Usage:       "gzip the output (implied by a .gz suffix)",
			Destination: gzip,
		},
	}
}

func convertCmd() *cli.Command {
	var (
		in, out string
		wopts   spherex.WriteOptions
		gz      bool
	)

	return &cli.Command{
		Name:  "convert",
		Usage: "Read an image and rewrite it in the canonical layout",
		Flags: append(append(readFlags(),
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "input file", Destination: &in, Required: true},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default <in>_converted.fits)", Destination: &out},
		), writeFlags(&wopts, &gz)...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg := configFrom(ctx)
			applyReadConfig(cmd, cfg)
			applyWriteConfig(cmd, cfg, &wopts.MaskName, &wopts.UncertaintyName, &wopts.FlagsName, &wopts.WCSRelax)

			ropts, err := readOptions()
			if err != nil {
				return err
			}
			ropts.Logger = log
			img, err := spherex.ReadFile(in, &ropts)
			if err != nil {
				return err
			}
			if img == nil {
				return fmt.Errorf("convert: %s: file not found", in)
			}
			ext := ".fits"
			if gz {
				ext += ".gz"
			}
			dst, err := resolveOutput(in, out, "_converted", ext)
			if err != nil {
				return err
			}
			wopts.Compress = gz
			if err := spherex.WriteFile(dst, img, &wopts); err != nil {
				return err
			}
			log.Info("image written", "path", dst, "shape", fmt.Sprint(img.Shape()), "compressed", gz || strings.HasSuffix(dst, ".gz"))
			return nil
		},
	}
}
