package api

import (
	"github.com/starford/servemd/internal/accesslog"
	"github.com/starford/servemd/internal/bots"
	"github.com/starford/servemd/internal/pipeline"
)

// LogListResponse is one page of access log entries (aliased from the log store).
type LogListResponse = accesslog.Page

// LogStatsResponse summarizes the access log (aliased from the log store).
type LogStatsResponse = accesslog.Stats

// BotsResponse lists the crawler signature table in match order.
type BotsResponse struct {
	Bots []bots.Signature `json:"bots" validate:"required"`
}

// ItemListResponse lists every item with its eligibility for an anonymous viewer.
type ItemListResponse struct {
	Items []pipeline.ItemStatus `json:"items" validate:"required"`
}
