package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/spherex/internal/logger"
	"github.com/samcharles93/spherex/internal/quicklook"
)

func previewCmd() *cli.Command {
	var (
		in, out    string
		size       int64
		low, high  float64
		interp     string
		hideMasked bool
	)
	def := quicklook.DefaultOptions()

	return &cli.Command{
		Name:  "preview",
		Usage: "Render the data layer of an image as a PNG quicklook",
		Flags: append(readFlags(),
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "input file", Destination: &in, Required: true},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output PNG (default <in>.png)", Destination: &out},
			&cli.Int64Flag{Name: "size", Usage: "maximum width and height in pixels (0 keeps the native size)", Value: int64(def.MaxWidth), Destination: &size},
			&cli.Float64Flag{Name: "low", Usage: "percentile mapped to black", Value: def.Low, Destination: &low},
			&cli.Float64Flag{Name: "high", Usage: "percentile mapped to white", Value: def.High, Destination: &high},
			&cli.StringFlag{Name: "interpolation", Usage: "resampling kernel (nearest, bilinear, bicubic, mitchell, lanczos3)", Value: def.Interpolation, Destination: &interp},
			&cli.BoolFlag{Name: "hide-masked", Usage: "paint masked pixels black", Destination: &hideMasked},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg := configFrom(ctx)
			applyReadConfig(cmd, cfg)
			applyPreviewConfig(cmd, cfg, &size)

			ropts, err := readOptions()
			if err != nil {
				return err
			}
			ropts.Logger = log
			img, err := readRequired(in, &ropts)
			if err != nil {
				return err
			}
			dst, err := resolveOutput(in, out, "", ".png")
			if err != nil {
				return err
			}
			f, err := os.Create(dst)
			if err != nil {
				return err
			}
			opts := quicklook.Options{
				MaxWidth:      int(size),
				MaxHeight:     int(size),
				Low:           low,
				High:          high,
				Interpolation: interp,
				HideMasked:    hideMasked,
			}
			if err := quicklook.WritePNG(f, img, opts); err != nil {
				_ = f.Close()
				_ = os.Remove(dst)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			log.Info("preview written", "path", dst)
			return nil
		},
	}
}
