package metrics

// storageObserver implements storage.Observer using the Prometheus
// metrics declared in this package. The concrete type is returned so
// this package does not import storage, whose file backend depends on
// filesystem and, through it, back on metrics.
type storageObserver struct{}

// NewStorageObserver creates an observer that records object-storage
// metrics into the Prometheus histograms and counters declared in
// metrics.go.
func NewStorageObserver() *storageObserver {
	return &storageObserver{}
}

func (o *storageObserver) ObserveOperation(operation string, durationSeconds float64, err error) {
	StorageOperationDuration.WithLabelValues(operation).Observe(durationSeconds)
	if err != nil {
		StorageOperationErrors.WithLabelValues(operation).Inc()
	}
}
