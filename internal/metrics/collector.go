package metrics

import (
	"time"

	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/mediatypes"
)

// StatsProvider supplies the point-in-time counts exported as gauges.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current library statistics.
type Stats struct {
	PendingAssets      int
	DecodedAssets      int
	FailedAssets       int
	TotalRenditions    int
	OpenUploadSessions int
}

// Collector periodically refreshes the library gauges.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection.
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	AssetsByStatus.WithLabelValues(string(mediatypes.DecodePending)).Set(float64(stats.PendingAssets))
	AssetsByStatus.WithLabelValues(string(mediatypes.DecodeOK)).Set(float64(stats.DecodedAssets))
	AssetsByStatus.WithLabelValues(string(mediatypes.DecodeFailed)).Set(float64(stats.FailedAssets))
	RenditionsStored.Set(float64(stats.TotalRenditions))
	UploadSessionsOpen.Set(float64(stats.OpenUploadSessions))

	logging.Debug("Metrics collected: %d pending, %d decoded, %d failed, %d renditions, %d open sessions",
		stats.PendingAssets, stats.DecodedAssets, stats.FailedAssets,
		stats.TotalRenditions, stats.OpenUploadSessions)
}
