package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/samcharles93/spherex/internal/logger"
	"github.com/samcharles93/spherex/pkg/fits"
	"github.com/samcharles93/spherex/pkg/spherex"
)

const (
	indexFile = "index.json"
	blobDir   = "blobs"
	blobExt   = ".fits.zst"
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

type index struct {
	Datasets   []Dataset                             `json:"datasets"`
	Dimensions map[string]map[string]DimensionRecord `json:"dimensions"`
}

// Store is a directory-backed Catalog. Blobs are zstd compressed and the
// index is rewritten atomically after every change.
type Store struct {
	dir string
	log logger.Logger
	now func() time.Time

	mu  sync.Mutex
	idx index
}

var _ Catalog = (*Store)(nil)

type Option func(*Store)

func WithLogger(l logger.Logger) Option { return func(s *Store) { s.log = l } }

func withClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// Open loads or creates a store rooted at dir.
func Open(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, blobDir), 0o755); err != nil {
		return nil, err
	}
	s := &Store{
		dir: dir,
		log: logger.Discard(),
		now: time.Now,
		idx: index{Dimensions: map[string]map[string]DimensionRecord{}},
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, err := os.ReadFile(filepath.Join(dir, indexFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, err
	}
	if err := json.Unmarshal(raw, &s.idx); err != nil {
		return nil, fmt.Errorf("catalog: read index: %w", err)
	}
	if s.idx.Dimensions == nil {
		s.idx.Dimensions = map[string]map[string]DimensionRecord{}
	}
	return s, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) SyncDimension(ctx context.Context, rec DimensionRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if rec.Element == "" || rec.Key == "" {
		return false, fmt.Errorf("catalog: dimension record needs element and key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byKey := s.idx.Dimensions[rec.Element]
	if existing, ok := byKey[rec.Key]; ok {
		if !maps.Equal(existing.Fields, rec.Fields) {
			return false, fmt.Errorf("%w: %s %q", ErrConflict, rec.Element, rec.Key)
		}
		return false, nil
	}
	if byKey == nil {
		byKey = map[string]DimensionRecord{}
		s.idx.Dimensions[rec.Element] = byKey
	}
	byKey[rec.Key] = rec
	if err := s.persist(); err != nil {
		delete(byKey, rec.Key)
		return false, err
	}
	s.log.Debug("dimension record inserted", "element", rec.Element, "key", rec.Key)
	return true, nil
}

// Dimension returns a dimension record.
func (s *Store) Dimension(element, key string) (DimensionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.idx.Dimensions[element][key]
	return rec, ok
}

func (s *Store) Put(ctx context.Context, reqs ...PutRequest) ([]Dataset, error) {
	type staged struct {
		ds   Dataset
		blob []byte
	}

	// Encoding happens outside the lock.
	batch := make([]staged, 0, len(reqs))
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		layout := DefaultLayout()
		if req.Layout != nil {
			layout = *req.Layout
		}
		raw, err := encodePayload(req.Payload, layout)
		if err != nil {
			return nil, fmt.Errorf("catalog: request %d (%s): %w", i, req.Coordinate, err)
		}
		batch = append(batch, staged{
			ds: Dataset{
				ID:          uuid.New(),
				Run:         req.Run,
				DatasetType: req.DatasetType,
				Coordinate:  req.Coordinate,
				Layout:      layout,
				Unit:        req.Unit,
				Size:        int64(len(raw)),
				Source:      req.Source,
			},
			blob: zstdEncoder.EncodeAll(raw, nil),
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[string]bool{}
	for _, b := range batch {
		if err := s.checkDimensions(b.ds.Coordinate); err != nil {
			return nil, err
		}
		key := datasetKey(b.ds)
		if seen[key] || s.hasDataset(b.ds) {
			return nil, fmt.Errorf("%w: %s %s in run %q already stored", ErrConflict, b.ds.DatasetType, b.ds.Coordinate, b.ds.Run)
		}
		seen[key] = true
	}

	var written []string
	rollback := func() {
		for _, p := range written {
			_ = os.Remove(p)
		}
	}
	now := s.now().UTC()
	out := make([]Dataset, 0, len(batch))
	for _, b := range batch {
		path := s.blobPath(b.ds.ID)
		if err := writeFileAtomic(path, b.blob); err != nil {
			rollback()
			return nil, err
		}
		written = append(written, path)
		b.ds.Created = now
		out = append(out, b.ds)
	}

	prev := len(s.idx.Datasets)
	s.idx.Datasets = append(s.idx.Datasets, out...)
	if err := s.persist(); err != nil {
		s.idx.Datasets = s.idx.Datasets[:prev]
		rollback()
		return nil, err
	}
	s.log.Info("datasets stored", "count", len(out))
	return out, nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (Dataset, []byte, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, nil, err
	}
	s.mu.Lock()
	i := slices.IndexFunc(s.idx.Datasets, func(d Dataset) bool { return d.ID == id })
	var ds Dataset
	if i >= 0 {
		ds = s.idx.Datasets[i]
	}
	s.mu.Unlock()
	if i < 0 {
		return Dataset{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	blob, err := os.ReadFile(s.blobPath(id))
	if err != nil {
		return Dataset{}, nil, fmt.Errorf("catalog: read blob %s: %w", id, err)
	}
	raw, err := zstdDecoder.DecodeAll(blob, nil)
	if err != nil {
		return Dataset{}, nil, fmt.Errorf("catalog: decompress %s: %w", id, err)
	}
	return ds, raw, nil
}

func (s *Store) Find(ctx context.Context, q Query) ([]Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Dataset
	for _, d := range s.idx.Datasets {
		if q.matches(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) checkDimensions(c Coordinate) error {
	dims := s.idx.Dimensions
	if _, ok := dims[Instrument][InstrumentKey(c.Instrument)]; !ok {
		return fmt.Errorf("%w: instrument %q", ErrUnknownDimension, c.Instrument)
	}
	if _, ok := dims[Detector][DetectorKey(c.Instrument, c.Detector)]; !ok {
		return fmt.Errorf("%w: detector %d of %q", ErrUnknownDimension, c.Detector, c.Instrument)
	}
	if _, ok := dims[Exposure][ExposureKey(c.Instrument, c.Exposure)]; !ok {
		return fmt.Errorf("%w: exposure %d of %q", ErrUnknownDimension, c.Exposure, c.Instrument)
	}
	return nil
}

func (s *Store) hasDataset(ds Dataset) bool {
	key := datasetKey(ds)
	return slices.ContainsFunc(s.idx.Datasets, func(d Dataset) bool { return datasetKey(d) == key })
}

func datasetKey(d Dataset) string {
	return d.Run + "|" + d.DatasetType + "|" + d.Coordinate.String()
}

func (s *Store) blobPath(id uuid.UUID) string {
	return filepath.Join(s.dir, blobDir, id.String()+blobExt)
}

func (s *Store) persist() error {
	raw, err := json.MarshalIndent(s.idx, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.dir, indexFile), raw)
}

func encodePayload(payload any, layout Layout) ([]byte, error) {
	switch p := payload.(type) {
	case []byte:
		if _, err := fits.Parse(p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return p, nil
	case *spherex.Image, spherex.Image:
		opts := layout.WriteOptions()
		return spherex.EncodeBytes(p, &opts)
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidPayload, payload)
	}
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}
