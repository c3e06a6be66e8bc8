// Package api exposes the image catalog over HTTP.
package api

import (
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/spherex/internal/catalog"
	"github.com/samcharles93/spherex/internal/logger"
	"github.com/samcharles93/spherex/internal/quicklook"
)

// DefaultMaxUploadBytes bounds POST /v1/images bodies.
const DefaultMaxUploadBytes = 512 << 20

type Server struct {
	cat       catalog.Catalog
	log       logger.Logger
	preview   quicklook.Options
	maxUpload int64
	started   time.Time
}

type Option func(*Server)

func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

func WithPreviewOptions(o quicklook.Options) Option {
	return func(s *Server) { s.preview = o }
}

func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

func NewServer(cat catalog.Catalog, opts ...Option) *Server {
	s := &Server{
		cat:       cat,
		log:       logger.Discard(),
		preview:   quicklook.DefaultOptions(),
		maxUpload: DefaultMaxUploadBytes,
		started:   time.Now(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.POST("/v1/dimensions", s.handleSyncDimension)
	e.GET("/v1/images", s.handleListImages)
	e.POST("/v1/images", s.handlePutImage)
	e.GET("/v1/images/:id", s.handleGetImage)
	e.GET("/v1/images/:id/summary", s.handleImageSummary)
	e.GET("/v1/images/:id/preview.png", s.handleImagePreview)
}
