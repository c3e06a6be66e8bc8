package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/spherex/internal/catalog"
	"github.com/samcharles93/spherex/pkg/spherex"
)

const MIMEApplicationFITS = "application/fits"

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "")
}

func writeError(c *echo.Context, status int, errType, msg, param string) error {
	return writeJSON(c, status, map[string]any{
		"error": ErrorBody{Message: msg, Type: errType, Param: param},
	})
}

// writeCatalogError maps catalog and codec failures to HTTP statuses.
func writeCatalogError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return writeNotFound(c, err.Error())
	case errors.Is(err, catalog.ErrConflict):
		return writeError(c, http.StatusConflict, "conflict_error", err.Error(), "")
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, catalog.ErrInvalidPayload),
		errors.Is(err, catalog.ErrUnknownDimension),
		errors.Is(err, spherex.ErrMissingUnit),
		errors.Is(err, spherex.ErrShapeMismatch):
		return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), errorParam(err))
	default:
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "")
	}
}

func writeJSON(c *echo.Context, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeBlob(c, status, echo.MIMEApplicationJSON, b)
}

func writeBlob(c *echo.Context, status int, contentType string, b []byte) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, contentType)
	res.Header().Set("Content-Length", strconv.Itoa(len(b)))
	res.WriteHeader(status)
	_, err := res.Write(b)
	return err
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func parseID(c *echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, newInvalidParam("id", "invalid image id: "+c.Param("id"))
	}
	return id, nil
}

func queryInt(c *echo.Context, name string) (*int, error) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, newInvalidParam(name, name+" must be an integer")
	}
	return &v, nil
}
