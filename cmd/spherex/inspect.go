package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/spherex/pkg/fits"
	"github.com/samcharles93/spherex/pkg/spherex"
)

func inspectCmd() *cli.Command {
	var (
		path       string
		asJSON     bool
		showHeader bool
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Describe the layers and header of an image file",
		Flags: append(readFlags(),
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to .fits or .fits.gz file",
				Destination: &path,
				Required:    true,
			},
			&cli.BoolFlag{Name: "json", Usage: "print the summary as JSON", Destination: &asJSON},
			&cli.BoolFlag{Name: "header", Usage: "print the data header cards", Destination: &showHeader},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyReadConfig(cmd, configFrom(ctx))
			opts, err := readOptions()
			if err != nil {
				return err
			}
			img, err := spherex.ReadFile(path, &opts)
			if err != nil {
				return err
			}
			if img == nil {
				return fmt.Errorf("inspect: %s: file not found", path)
			}
			f, err := fits.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			sum := spherex.Summarize(img)
			sum.Extensions = spherex.DescribeFile(f)
			if asJSON {
				return sum.WriteJSON(os.Stdout, true)
			}
			printSummary(os.Stdout, path, sum)
			if showHeader {
				_, _ = fmt.Fprintln(os.Stdout, "\nheader:")
				_, _ = fmt.Fprint(os.Stdout, img.Meta.String())
				_, _ = fmt.Fprint(os.Stdout, img.WCS.String())
			}
			return nil
		},
	}
}

func printSummary(w io.Writer, path string, s spherex.Summary) {
	_, _ = fmt.Fprintf(w, "file:        %s\n", path)
	_, _ = fmt.Fprintf(w, "shape:       %v\n", s.Shape)
	_, _ = fmt.Fprintf(w, "unit:        %s\n", s.Unit)
	_, _ = fmt.Fprintf(w, "data:        min=%g max=%g mean=%g finite=%d\n", s.Stats.Min, s.Stats.Max, s.Stats.Mean, s.Stats.Finite)
	if s.Mask != nil {
		_, _ = fmt.Fprintf(w, "mask:        %d masked\n", s.Mask.Masked)
	}
	if s.Uncertainty != "" {
		_, _ = fmt.Fprintf(w, "uncertainty: %s\n", s.Uncertainty)
	}
	if s.Flags != nil {
		_, _ = fmt.Fprintf(w, "flags:       %d definitions, %d pixels with undefined bits\n", len(s.Flags.Definitions), s.Flags.Unknown)
		for _, name := range s.Flags.Ranked() {
			_, _ = fmt.Fprintf(w, "  %-16s %d\n", name, s.Flags.Counts[name])
		}
	}
	if len(s.WCSKeys) > 0 {
		_, _ = fmt.Fprintf(w, "wcs:         %s\n", strings.Join(s.WCSKeys, " "))
	}
	_, _ = fmt.Fprintln(w, "extensions:")
	for _, ext := range s.Extensions {
		name := ext.Name
		if name == "" {
			name = "-"
		}
		line := fmt.Sprintf("  [%d] %-10s bitpix=%-4d shape=%v", ext.Index, name, ext.BitPix, ext.Shape)
		if ext.ExtType != "" {
			line += " exttype=" + ext.ExtType
		}
		_, _ = fmt.Fprintln(w, line)
	}
}
