package handlers

import (
	"time"

	"github.com/zaitanabil/galerly-sub003/internal/bundle"
	"github.com/zaitanabil/galerly-sub003/internal/database"
	"github.com/zaitanabil/galerly-sub003/internal/ingest"
	"github.com/zaitanabil/galerly-sub003/internal/reaper"
	"github.com/zaitanabil/galerly-sub003/internal/resizecache"
	"github.com/zaitanabil/galerly-sub003/internal/startup"
	"github.com/zaitanabil/galerly-sub003/internal/storage"
	"github.com/zaitanabil/galerly-sub003/internal/upload"
)

// Capabilities reports which optional decode paths this deployment has
// the external tooling for.
type Capabilities struct {
	Heif  bool `json:"heif"`
	Raw   bool `json:"raw"`
	Video bool `json:"video"`
}

type Handlers struct {
	db          *database.Database
	store       storage.Storage
	coordinator *upload.Coordinator
	pipeline    *ingest.Pipeline
	cache       *resizecache.Cache
	archiver    *bundle.Archiver
	reaper      *reaper.Reaper

	capabilities Capabilities
	startedAt    time.Time
}

func New(db *database.Database, store storage.Storage, coordinator *upload.Coordinator,
	pipeline *ingest.Pipeline, cache *resizecache.Cache, archiver *bundle.Archiver,
	rpr *reaper.Reaper, config *startup.Config) *Handlers {
	return &Handlers{
		db:          db,
		store:       store,
		coordinator: coordinator,
		pipeline:    pipeline,
		cache:       cache,
		archiver:    archiver,
		reaper:      rpr,
		capabilities: Capabilities{
			Heif:  config.HeifEnabled,
			Raw:   config.RawEnabled,
			Video: config.VideoEnabled,
		},
		startedAt: time.Now(),
	}
}
