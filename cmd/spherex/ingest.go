package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/spherex/internal/catalog"
	"github.com/samcharles93/spherex/internal/ingest"
	"github.com/samcharles93/spherex/internal/logger"
)

func ingestCmd() *cli.Command {
	var (
		datasetType string
		run         string
		pattern     string
	)

	return &cli.Command{
		Name:      "ingest",
		Usage:     "Register simulator exposures in the catalog",
		ArgsUsage: "<file or directory>...",
		Flags: append(catalogFlags(),
			&cli.StringFlag{
				Name:        "dataset-type",
				Usage:       "dataset type recorded for every file",
				Value:       ingest.DefaultDatasetType,
				Destination: &datasetType,
			},
			&cli.StringFlag{
				Name:        "run",
				Usage:       "run collection (default <dataset-type>r)",
				Destination: &run,
			},
			&cli.StringFlag{
				Name:        "pattern",
				Usage:       "regular expression selecting files in directories",
				Value:       ingest.DefaultPattern,
				Destination: &pattern,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg := configFrom(ctx)
			applyCatalogConfig(cmd, cfg)
			applyIngestConfig(cmd, cfg, &datasetType, &pattern)

			locations := cmd.Args().Slice()
			if len(locations) == 0 {
				return fmt.Errorf("ingest: at least one file or directory is required")
			}
			dir, err := resolveCatalogDir(catalogDir)
			if err != nil {
				return err
			}
			store, err := catalog.Open(dir, catalog.WithLogger(log))
			if err != nil {
				return err
			}
			res, err := ingest.Run(ctx, store, ingest.Config{
				Locations:   locations,
				Pattern:     pattern,
				DatasetType: datasetType,
				Run:         run,
				Logger:      log,
			})
			if err != nil {
				return err
			}
			for _, ds := range res.Stored {
				_, _ = fmt.Fprintf(os.Stdout, "%s  %s  %s\n", ds.ID, ds.Coordinate, ds.Source)
			}
			if len(res.Failures) > 0 {
				return fmt.Errorf("ingest: %d of %d files failed", len(res.Failures), len(res.Failures)+len(res.Stored))
			}
			return nil
		},
	}
}
