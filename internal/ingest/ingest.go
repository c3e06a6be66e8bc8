// Package ingest discovers simulator exposures on disk and records them in a
// catalog.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/samcharles93/spherex/internal/catalog"
	"github.com/samcharles93/spherex/internal/logger"
)

const (
	// DefaultPattern selects simulator files during directory discovery.
	DefaultPattern = `sim_exposure_(\d+)_array_(\d).fits`

	DefaultDatasetType = "rawexp"

	InstrumentName = "simulator"
	DetectorCount  = 6
	ExposureMax    = 600000
)

// namePattern extracts exposure and detector ids; it also accepts suffixed
// products such as sim_exposure_000000_array_2_dark_current.fits.
var namePattern = regexp.MustCompile(`sim_exposure_(\d+)_array_(\d)[_,.]`)

var ErrNoFiles = errors.New("ingest: no files found")

type Config struct {
	// Locations are files to ingest or directories searched with Pattern.
	Locations []string
	Pattern   string

	DatasetType string
	// Run defaults to DatasetType + "r".
	Run string

	Layout *catalog.Layout
	Logger logger.Logger
	Now    func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Pattern == "" {
		c.Pattern = DefaultPattern
	}
	if c.DatasetType == "" {
		c.DatasetType = DefaultDatasetType
	}
	if c.Run == "" {
		c.Run = c.DatasetType + "r"
	}
	if c.Logger == nil {
		c.Logger = logger.Discard()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Failure is a file that could not be ingested.
type Failure struct {
	Path string
	Err  error
}

type Result struct {
	Run      string
	Stored   []catalog.Dataset
	Failures []Failure
}

// RegisterInstrument syncs the simulator instrument and its detectors.
func RegisterInstrument(ctx context.Context, cat catalog.Catalog) error {
	recs := []catalog.DimensionRecord{{
		Element: catalog.Instrument,
		Key:     catalog.InstrumentKey(InstrumentName),
		Fields: map[string]string{
			"exposure_max": strconv.Itoa(ExposureMax),
			"detector_max": strconv.Itoa(DetectorCount),
		},
	}}
	for id := 1; id <= DetectorCount; id++ {
		recs = append(recs, catalog.DimensionRecord{
			Element: catalog.Detector,
			Key:     catalog.DetectorKey(InstrumentName, id),
			Fields:  map[string]string{"full_name": fmt.Sprintf("array%d", id)},
		})
	}
	for _, r := range recs {
		if _, err := cat.SyncDimension(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// ParseName extracts the exposure and detector ids from a simulator file name.
func ParseName(path string) (exposure, detector int, err error) {
	m := namePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, 0, fmt.Errorf("ingest: %s does not match simulator file pattern", path)
	}
	if exposure, err = strconv.Atoi(m[1]); err != nil {
		return 0, 0, fmt.Errorf("ingest: exposure id in %s: %w", path, err)
	}
	detector, _ = strconv.Atoi(m[2])
	if exposure > ExposureMax || detector < 1 || detector > DetectorCount {
		return 0, 0, fmt.Errorf("ingest: %s: exposure %d or detector %d out of range", path, exposure, detector)
	}
	return exposure, detector, nil
}

// Discover expands locations. Files are kept as given; directories are
// walked and their files kept when the base name matches pattern.
func Discover(locations []string, pattern *regexp.Regexp) ([]string, error) {
	var out []string
	for _, loc := range locations {
		info, err := os.Stat(loc)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, loc)
			continue
		}
		err = filepath.WalkDir(loc, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && pattern.MatchString(d.Name()) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// Run ingests every discovered file in a single catalog batch. Files that
// cannot be mapped to a coordinate are reported in Result.Failures and do
// not stop the batch.
func Run(ctx context.Context, cat catalog.Catalog, cfg Config) (Result, error) {
	cfg = cfg.withDefaults()
	log := cfg.Logger.With("run", cfg.Run)
	res := Result{Run: cfg.Run}

	pattern, err := regexp.Compile(cfg.Pattern)
	if err != nil {
		return res, fmt.Errorf("ingest: pattern: %w", err)
	}
	if err := RegisterInstrument(ctx, cat); err != nil {
		return res, err
	}
	files, err := Discover(cfg.Locations, pattern)
	if err != nil {
		return res, err
	}
	if len(files) == 0 {
		return res, ErrNoFiles
	}

	group := cfg.Now().Format("20060102")
	var reqs []catalog.PutRequest
	fail := func(path string, err error) {
		log.Error("file skipped", "path", path, "err", err)
		res.Failures = append(res.Failures, Failure{Path: path, Err: err})
	}
	for _, path := range files {
		exposure, detector, err := ParseName(path)
		if err != nil {
			fail(path, err)
			continue
		}
		_, err = cat.SyncDimension(ctx, catalog.DimensionRecord{
			Element: catalog.Exposure,
			Key:     catalog.ExposureKey(InstrumentName, exposure),
			Fields: map[string]string{
				"name":       fmt.Sprintf("%06d", exposure),
				"group_name": group,
			},
		})
		if err != nil {
			fail(path, fmt.Errorf("exposure record: %w", err))
			continue
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			fail(path, err)
			continue
		}
		reqs = append(reqs, catalog.PutRequest{
			Run:         cfg.Run,
			DatasetType: cfg.DatasetType,
			Coordinate:  catalog.Coordinate{Instrument: InstrumentName, Detector: detector, Exposure: exposure},
			Payload:     raw,
			Layout:      cfg.Layout,
			Source:      path,
		})
	}
	if len(reqs) == 0 {
		return res, nil
	}

	stored, err := cat.Put(ctx, reqs...)
	if err != nil {
		return res, err
	}
	res.Stored = stored
	log.Info("ingest finished", "stored", len(stored), "failed", len(res.Failures))
	return res, nil
}
