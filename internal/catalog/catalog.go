// Package catalog records which encoded images belong to which observation
// coordinates and returns opaque references to them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/spherex/pkg/spherex"
)

var (
	ErrNotFound         = errors.New("catalog: dataset not found")
	ErrConflict         = errors.New("catalog: conflicting record")
	ErrUnknownDimension = errors.New("catalog: unknown dimension record")
	ErrInvalidPayload   = errors.New("catalog: invalid payload")
)

// Dimension elements known to the catalog.
const (
	Instrument = "instrument"
	Detector   = "detector"
	Exposure   = "exposure"
)

// Coordinate locates a dataset in observation space.
type Coordinate struct {
	Instrument string `json:"instrument"`
	Detector   int    `json:"detector"`
	Exposure   int    `json:"exposure"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%s/detector=%d/exposure=%d", c.Instrument, c.Detector, c.Exposure)
}

// DimensionRecord is one row of a dimension element. Key is the primary key
// within the element, e.g. "simulator" for an instrument or "simulator/3"
// for a detector.
type DimensionRecord struct {
	Element string            `json:"element"`
	Key     string            `json:"key"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// InstrumentKey, DetectorKey and ExposureKey build dimension primary keys.
func InstrumentKey(name string) string { return name }

func DetectorKey(instrument string, id int) string {
	return fmt.Sprintf("%s/%d", instrument, id)
}

func ExposureKey(instrument string, id int) string {
	return fmt.Sprintf("%s/%d", instrument, id)
}

// Layout is the extension configuration a dataset was encoded with.
type Layout struct {
	Data               string `json:"data,omitempty"`
	Mask               string `json:"mask,omitempty"`
	Uncertainty        string `json:"uncertainty,omitempty"`
	Flags              string `json:"flags,omitempty"`
	UncertaintyTypeKey string `json:"uncertainty_type_key,omitempty"`
}

// DefaultLayout matches spherex.DefaultWriteOptions.
func DefaultLayout() Layout {
	return LayoutOf(spherex.DefaultWriteOptions())
}

func LayoutOf(o spherex.WriteOptions) Layout {
	return Layout{
		Data:               o.DataName,
		Mask:               o.MaskName,
		Uncertainty:        o.UncertaintyName,
		Flags:              o.FlagsName,
		UncertaintyTypeKey: o.UncertaintyTypeKey,
	}
}

// WriteOptions returns encoder options for the layout.
func (l Layout) WriteOptions() spherex.WriteOptions {
	o := spherex.DefaultWriteOptions()
	o.DataName = l.Data
	o.MaskName = l.Mask
	o.UncertaintyName = l.Uncertainty
	o.FlagsName = l.Flags
	if l.UncertaintyTypeKey != "" {
		o.UncertaintyTypeKey = l.UncertaintyTypeKey
	}
	return o
}

// Dataset describes a stored image.
type Dataset struct {
	ID          uuid.UUID  `json:"id"`
	Run         string     `json:"run"`
	DatasetType string     `json:"dataset_type"`
	Coordinate  Coordinate `json:"coordinate"`
	Layout      Layout     `json:"layout"`
	// Unit overrides BUNIT when the stored file is decoded.
	Unit    spherex.Unit `json:"unit,omitempty"`
	Size    int64        `json:"size"`
	Source  string       `json:"source,omitempty"`
	Created time.Time    `json:"created"`
}

// PutRequest stores one payload. Payload is an encoded file ([]byte) or a
// *spherex.Image, which is encoded with Layout.
type PutRequest struct {
	Run         string
	DatasetType string
	Coordinate  Coordinate
	Payload     any
	Layout      *Layout
	// Unit is recorded for payloads whose header carries no BUNIT.
	Unit   spherex.Unit
	Source string
}

// Query filters datasets. Zero fields match everything.
type Query struct {
	Run         string
	DatasetType string
	Instrument  string
	Detector    *int
	Exposure    *int
}

func (q Query) matches(d Dataset) bool {
	switch {
	case q.Run != "" && q.Run != d.Run:
		return false
	case q.DatasetType != "" && q.DatasetType != d.DatasetType:
		return false
	case q.Instrument != "" && q.Instrument != d.Coordinate.Instrument:
		return false
	case q.Detector != nil && *q.Detector != d.Coordinate.Detector:
		return false
	case q.Exposure != nil && *q.Exposure != d.Coordinate.Exposure:
		return false
	}
	return true
}

// Catalog is the registry the ingest driver and the HTTP API write to.
type Catalog interface {
	// SyncDimension inserts rec unless a record with the same key exists.
	// It reports whether a record was inserted and fails with ErrConflict
	// when the existing record differs.
	SyncDimension(ctx context.Context, rec DimensionRecord) (bool, error)

	// Put stores all requests or none of them.
	Put(ctx context.Context, reqs ...PutRequest) ([]Dataset, error)

	// Get returns the dataset and its encoded bytes.
	Get(ctx context.Context, id uuid.UUID) (Dataset, []byte, error)

	Find(ctx context.Context, q Query) ([]Dataset, error)
}

// Load fetches and decodes an image. An empty unit falls back to the unit
// recorded with the dataset, then to BUNIT.
func Load(ctx context.Context, c Catalog, id uuid.UUID, unit spherex.Unit) (*spherex.Image, Dataset, error) {
	ds, raw, err := c.Get(ctx, id)
	if err != nil {
		return nil, Dataset{}, err
	}
	if unit == "" {
		unit = ds.Unit
	}
	opts := ds.Layout.WriteOptions().ReadRefs()
	opts.Unit = unit
	img, err := spherex.DecodeBytes(raw, &opts)
	if err != nil {
		return nil, ds, fmt.Errorf("catalog: decode %s: %w", id, err)
	}
	return img, ds, nil
}
