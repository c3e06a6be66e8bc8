package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/spherex/internal/logger"
	"github.com/samcharles93/spherex/internal/tasks"
	"github.com/samcharles93/spherex/pkg/spherex"
)

func subtractCmd() *cli.Command {
	var (
		in, dark, out string
		wopts         spherex.WriteOptions
		gz            bool
	)

	return &cli.Command{
		Name:  "subtract",
		Usage: "Subtract a dark current image from an exposure",
		Flags: append(append(readFlags(),
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "exposure file", Destination: &in, Required: true},
			&cli.StringFlag{Name: "dark", Aliases: []string{"d"}, Usage: "dark current file", Destination: &dark, Required: true},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default <in>_dark_subtracted.fits)", Destination: &out},
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
			exposure, err := readRequired(in, &ropts)
			if err != nil {
				return err
			}
			darkImg, err := readRequired(dark, &ropts)
			if err != nil {
				return err
			}
			result, err := tasks.Subtract(exposure, darkImg)
			if err != nil {
				return err
			}
			ext := ".fits"
			if gz {
				ext += ".gz"
			}
			dst, err := resolveOutput(in, out, "_dark_subtracted", ext)
			if err != nil {
				return err
			}
			wopts.Compress = gz
			if err := spherex.WriteFile(dst, result, &wopts); err != nil {
				return err
			}
			log.Info("dark current subtracted", "exposure", in, "dark", dark, "path", dst)
			return nil
		},
	}
}

func readRequired(path string, opts *spherex.ReadOptions) (*spherex.Image, error) {
	img, err := spherex.ReadFile(path, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%s: file not found", path)
	}
	return img, nil
}
