package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/spherex/pkg/fits"
	"github.com/samcharles93/spherex/pkg/spherex"
)

var (
	catalogDir string
	logLevel   string
	logFormat  string
	debug      bool

	// Layer selection shared by every command that decodes an image.
	dataExt         string
	maskExt         string
	uncertaintyExt  string
	flagsExt        string
	uncertaintyType string
	unitOverride    string
)

func catalogFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "catalog",
			Usage:       "catalog directory (default $" + envCatalogDir + " or the user data dir)",
			Destination: &catalogDir,
		},
	}
}

func readFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "data-ext",
			Usage:       "HDU index or EXTNAME holding the data array",
			Value:       "0",
			Destination: &dataExt,
		},
		&cli.StringFlag{
			Name:        "mask-ext",
			Usage:       "EXTNAME of the mask layer (none to skip)",
			Value:       spherex.DefaultMaskName,
			Destination: &maskExt,
		},
		&cli.StringFlag{
			Name:        "uncertainty-ext",
			Usage:       "EXTNAME of the uncertainty layer (none to skip)",
			Value:       spherex.DefaultUncertaintyName,
			Destination: &uncertaintyExt,
		},
		&cli.StringFlag{
			Name:        "flags-ext",
			Usage:       "EXTNAME of the flags layer (none to skip)",
			Value:       spherex.DefaultFlagsName,
			Destination: &flagsExt,
		},
		&cli.StringFlag{
			Name:        "uncertainty-type-key",
			Usage:       "header keyword naming the uncertainty representation",
			Value:       spherex.DefaultUncertaintyTypeKey,
			Destination: &uncertaintyType,
		},
		&cli.StringFlag{
			Name:        "unit",
			Usage:       "data unit, overriding BUNIT",
			Destination: &unitOverride,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "shorthand for --log-level debug",
			Destination: &debug,
		},
	}
}

// readOptions builds decode options from the layer flags.
func readOptions() (spherex.ReadOptions, error) {
	opts := spherex.ReadOptions{
		Data:               fits.ParseRef(dataExt),
		Mask:               fits.ParseRef(maskExt),
		Uncertainty:        fits.ParseRef(uncertaintyExt),
		Flags:              fits.ParseRef(flagsExt),
		UncertaintyTypeKey: uncertaintyType,
	}
	if unitOverride != "" {
		u, err := spherex.ParseUnit(unitOverride)
		if err != nil {
			return opts, err
		}
		opts.Unit = u
	}
	return opts, nil
}
