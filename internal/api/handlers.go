package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/spherex/internal/catalog"
	"github.com/samcharles93/spherex/internal/quicklook"
	"github.com/samcharles93/spherex/pkg/fits"
	"github.com/samcharles93/spherex/pkg/spherex"
)

func (s *Server) handleHealth(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleSyncDimension(c *echo.Context) error {
	req, err := decodeJSON[DimensionRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "invalid JSON body")
	}
	rec := catalog.DimensionRecord{
		Element: strings.TrimSpace(req.Element),
		Key:     strings.TrimSpace(req.Key),
		Fields:  req.Fields,
	}
	if rec.Element == "" || rec.Key == "" {
		return writeBadRequest(c, "element and key are required")
	}
	inserted, err := s.cat.SyncDimension(c.Request().Context(), rec)
	if err != nil {
		return writeCatalogError(c, err)
	}
	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
	}
	return writeJSON(c, status, DimensionResponse{Record: rec, Inserted: inserted})
}

func (s *Server) handleListImages(c *echo.Context) error {
	q, err := parseQuery(c)
	if err != nil {
		return writeCatalogError(c, err)
	}
	found, err := s.cat.Find(c.Request().Context(), q)
	if err != nil {
		return writeCatalogError(c, err)
	}
	if found == nil {
		found = []catalog.Dataset{}
	}
	return writeJSON(c, http.StatusOK, ImageListResponse{Object: "list", Data: found})
}

func (s *Server) handlePutImage(c *echo.Context) error {
	req, err := s.putRequest(c)
	if err != nil {
		return writeCatalogError(c, err)
	}
	stored, err := s.cat.Put(c.Request().Context(), req)
	if err != nil {
		return writeCatalogError(c, err)
	}
	s.log.Info("image stored",
		"id", stored[0].ID.String(),
		"run", stored[0].Run,
		"coordinate", stored[0].Coordinate.String(),
		"bytes", stored[0].Size,
	)
	return writeJSON(c, http.StatusCreated, stored[0])
}

// putRequest reads an encoded image from the request body and checks that
// it decodes with the layout and unit named in the query string.
func (s *Server) putRequest(c *echo.Context) (catalog.PutRequest, error) {
	run := strings.TrimSpace(c.QueryParam("run"))
	datasetType := strings.TrimSpace(c.QueryParam("dataset_type"))
	instrument := strings.TrimSpace(c.QueryParam("instrument"))
	if run == "" || datasetType == "" || instrument == "" {
		return catalog.PutRequest{}, newInvalidRequest("run, dataset_type and instrument are required")
	}
	detector, err := queryInt(c, "detector")
	if err != nil {
		return catalog.PutRequest{}, err
	}
	exposure, err := queryInt(c, "exposure")
	if err != nil {
		return catalog.PutRequest{}, err
	}
	if detector == nil || exposure == nil {
		return catalog.PutRequest{}, newInvalidRequest("detector and exposure are required")
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, s.maxUpload+1))
	if err != nil {
		return catalog.PutRequest{}, fmt.Errorf("read body: %w", err)
	}
	if int64(len(raw)) > s.maxUpload {
		return catalog.PutRequest{}, newInvalidRequest(fmt.Sprintf("body exceeds %d bytes", s.maxUpload))
	}
	if len(raw) == 0 {
		return catalog.PutRequest{}, newInvalidRequest("empty body")
	}

	layout := layoutFromQuery(c)
	opts := layout.WriteOptions().ReadRefs()
	if u := c.QueryParam("unit"); u != "" {
		unit, err := spherex.ParseUnit(u)
		if err != nil {
			return catalog.PutRequest{}, newInvalidParam("unit", err.Error())
		}
		opts.Unit = unit
	}
	if _, err := spherex.DecodeBytes(raw, &opts); err != nil {
		return catalog.PutRequest{}, newInvalidRequest("body is not a readable image: " + err.Error())
	}

	return catalog.PutRequest{
		Run:         run,
		DatasetType: datasetType,
		Coordinate:  catalog.Coordinate{Instrument: instrument, Detector: *detector, Exposure: *exposure},
		Payload:     raw,
		Layout:      &layout,
		Unit:        opts.Unit,
		Source:      c.QueryParam("source"),
	}, nil
}

func layoutFromQuery(c *echo.Context) catalog.Layout {
	l := catalog.DefaultLayout()
	override := func(dst *string, name string) {
		if c.QueryParams().Has(name) {
			*dst = strings.TrimSpace(c.QueryParam(name))
		}
	}
	override(&l.Data, "data_ext")
	override(&l.Mask, "mask_ext")
	override(&l.Uncertainty, "uncertainty_ext")
	override(&l.Flags, "flags_ext")
	override(&l.UncertaintyTypeKey, "uncertainty_type_key")
	return l
}

func parseQuery(c *echo.Context) (catalog.Query, error) {
	detector, err := queryInt(c, "detector")
	if err != nil {
		return catalog.Query{}, err
	}
	exposure, err := queryInt(c, "exposure")
	if err != nil {
		return catalog.Query{}, err
	}
	return catalog.Query{
		Run:         c.QueryParam("run"),
		DatasetType: c.QueryParam("dataset_type"),
		Instrument:  c.QueryParam("instrument"),
		Detector:    detector,
		Exposure:    exposure,
	}, nil
}

func (s *Server) handleGetImage(c *echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeCatalogError(c, err)
	}
	ds, raw, err := s.cat.Get(c.Request().Context(), id)
	if err != nil {
		return writeCatalogError(c, err)
	}
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ds.ID.String()+".fits"))
	return writeBlob(c, http.StatusOK, MIMEApplicationFITS, raw)
}

func (s *Server) handleImageSummary(c *echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeCatalogError(c, err)
	}
	ctx := c.Request().Context()
	ds, raw, err := s.cat.Get(ctx, id)
	if err != nil {
		return writeCatalogError(c, err)
	}
	f, err := fits.Parse(raw)
	if err != nil {
		return writeCatalogError(c, err)
	}
	opts := ds.Layout.WriteOptions().ReadRefs()
	opts.Unit = ds.Unit
	img, err := spherex.DecodeBytes(raw, &opts)
	if err != nil {
		return writeCatalogError(c, err)
	}
	sum := spherex.Summarize(img)
	sum.Extensions = spherex.DescribeFile(f)
	return writeJSON(c, http.StatusOK, ImageSummaryResponse{Dataset: ds, Summary: sum})
}

func (s *Server) handleImagePreview(c *echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return writeCatalogError(c, err)
	}
	img, _, err := catalog.Load(c.Request().Context(), s.cat, id, "")
	if err != nil {
		return writeCatalogError(c, err)
	}
	opts := s.preview
	if n, err := queryInt(c, "max"); err != nil {
		return writeCatalogError(c, err)
	} else if n != nil {
		opts.MaxWidth, opts.MaxHeight = *n, *n
	}
	var buf bytes.Buffer
	if err := quicklook.WritePNG(&buf, img, opts); err != nil {
		if errors.Is(err, spherex.ErrNoData) {
			return writeNotFound(c, err.Error())
		}
		return writeCatalogError(c, err)
	}
	return writeBlob(c, http.StatusOK, "image/png", buf.Bytes())
}
