package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/spherex/pkg/bitmask"
	"github.com/samcharles93/spherex/pkg/fits"
	"github.com/samcharles93/spherex/pkg/spherex"
)

// Writes synthetic simulator exposures named the way the ingest driver
// expects, plus one dark current frame per detector.
func main() {
	var (
		outDir    string
		exposures int64
		size      int64
		seed      int64
	)
	cmd := &cli.Command{
		Name:  "gen_simulator",
		Usage: "write synthetic sim_exposure_*_array_*.fits files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Value: "sim", Destination: &outDir},
			&cli.Int64Flag{Name: "exposures", Value: 2, Destination: &exposures},
			&cli.Int64Flag{Name: "size", Value: 64, Destination: &size},
			&cli.Int64Flag{Name: "seed", Value: 1, Destination: &seed},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x5eed))
			shape := []int{int(size), int(size)}
			for det := 1; det <= 6; det++ {
				dark := frame(rng, shape, 2, 0.5, 0)
				name := filepath.Join(outDir, fmt.Sprintf("sim_exposure_%06d_array_%d_dark_current.fits", 0, det))
				if err := spherex.WriteFile(name, dark, nil); err != nil {
					return err
				}
				for exp := 1; exp <= int(exposures); exp++ {
					img := frame(rng, shape, 100, 10, 0.001)
					if err := img.Meta.SetValue("DETECTOR", det, "detector id"); err != nil {
						return err
					}
					if err := img.Meta.SetValue("EXPOSURE", exp, "exposure id"); err != nil {
						return err
					}
					name := filepath.Join(outDir, fmt.Sprintf("sim_exposure_%06d_array_%d.fits", exp, det))
					if err := spherex.WriteFile(name, img, nil); err != nil {
						return err
					}
					fmt.Println(name)
				}
			}
			return nil
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// frame draws Gaussian pixels with variance equal to sigma squared and
// flags a fraction of them as cosmic-ray hits.
func frame(rng *rand.Rand, shape []int, mean, sigma, hitRate float64) *spherex.Image {
	n := shape[0] * shape[1]
	data := make([]float64, n)
	variance := make([]float64, n)
	flags := make([]uint32, n)
	defs := bitmask.Default()
	cosmic, _ := defs.Mask("COSMICRAY")
	for i := range data {
		data[i] = mean + rng.NormFloat64()*sigma
		variance[i] = sigma * sigma
		if rng.Float64() < hitRate {
			data[i] += 1000
			flags[i] = cosmic
		}
	}
	d, _ := fits.NewArray(shape, data)
	v, _ := fits.NewArray(shape, variance)
	f, _ := fits.NewArray(shape, flags)
	img, err := spherex.New(d, spherex.ElectronPerSecond,
		spherex.WithUncertainty(spherex.VarianceUncertainty, v),
		spherex.WithFlags(f, defs),
	)
	if err != nil {
		panic(err)
	}
	return img
}
