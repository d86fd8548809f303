// Package metrics declares every Prometheus metric exported by the
// media pipeline and provides the supporting glue: startup label
// pre-population (InitializeMetrics), a gauge refresh loop (Collector),
// and the storage.Observer implementation.
//
// Metrics are registered through promauto at package load. Handlers and
// middleware record HTTP metrics; the pipeline packages record their own
// domain metrics directly through the exported variables.
package metrics
