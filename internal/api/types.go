package api

import (
	"github.com/samcharles93/spherex/internal/catalog"
	"github.com/samcharles93/spherex/pkg/spherex"
)

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
}

type ImageListResponse struct {
	Object string            `json:"object"`
	Data   []catalog.Dataset `json:"data"`
}

type ImageSummaryResponse struct {
	Dataset catalog.Dataset `json:"dataset"`
	Summary spherex.Summary `json:"summary"`
}

type DimensionRequest struct {
	Element string            `json:"element"`
	Key     string            `json:"key"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type DimensionResponse struct {
	Record   catalog.DimensionRecord `json:"record"`
	Inserted bool                    `json:"inserted"`
}
