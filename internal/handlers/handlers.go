package handlers

import (
	"github.com/asock/catio-cam/internal/database"
	"github.com/asock/catio-cam/internal/hub"
	"github.com/asock/catio-cam/internal/ingest"
	"github.com/asock/catio-cam/internal/startup"
)

// Handlers carries the dependencies every HTTP handler needs.
type Handlers struct {
	db       *database.Database
	pipeline *ingest.Pipeline
	hub      *hub.Hub
	mediaDir string
	thumbDir string
}

// New wires the handler set.
func New(db *database.Database, pipeline *ingest.Pipeline, h *hub.Hub, config *startup.Config) *Handlers {
	return &Handlers{
		db:       db,
		pipeline: pipeline,
		hub:      h,
		mediaDir: config.MediaDir,
		thumbDir: config.ThumbnailDir,
	}
}
