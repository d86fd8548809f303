package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zaitanabil/galerly-sub003/internal/logging"
)

// scrapeLog routes scrape-time encoding errors into the service log.
type scrapeLog struct{}

func (scrapeLog) Println(v ...interface{}) {
	logging.Error("metrics scrape: %s", fmt.Sprint(v...))
}

// MetricsHandler returns the Prometheus scrape handler. Concurrent
// scrapes are capped because each one walks every histogram while the
// ingest pipeline is busy updating them; two covers a Prometheus pair
// without letting a misconfigured scraper stack encoder passes.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog:            scrapeLog{},
		MaxRequestsInFlight: 2,
		Timeout:             10 * time.Second,
	})
}
