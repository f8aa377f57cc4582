package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "media"
	subsystem = "router"
)

var (
	// Upload counters
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "uploads_total",
			Help:      "Total uploads by media kind, provider and outcome",
		},
		[]string{"kind", "provider", "status"},
	)

	// Upload bytes counter
	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upload_bytes_total",
			Help:      "Total bytes written for successful uploads",
		},
		[]string{"provider"},
	)

	// Fallbacks from a secondary slot to the primary slot
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fallbacks_total",
			Help:      "Uploads retried on the primary provider after a secondary write failed",
		},
		[]string{"from"},
	)

	RollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rollbacks_total",
			Help:      "Object rollbacks after metadata insert failures",
		},
		[]string{"status"},
	)

	OrphansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "orphans_total",
			Help:      "Objects left in storage without a metadata record",
		},
		[]string{"provider", "reason"},
	)

	DeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "deletions_total",
			Help:      "Media deletions by outcome",
		},
		[]string{"status"},
	)

	// Storage operations counter
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "storage_operations_total",
			Help:      "Total storage backend operations",
		},
		[]string{"provider", "operation", "status"},
	)

	// Storage operation duration
	StorageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "storage_duration_seconds",
			Help:      "Storage backend operation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 15},
		},
		[]string{"provider", "operation"},
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordUpload records a finished upload
func RecordUpload(kind, provider string, bytes int64, err error) {
	UploadsTotal.WithLabelValues(kind, provider, status(err)).Inc()
	if err == nil {
		UploadBytesTotal.WithLabelValues(provider).Add(float64(bytes))
	}
}

// RecordFallback records a retry on the primary provider
func RecordFallback(from string) {
	FallbacksTotal.WithLabelValues(from).Inc()
}

// RecordRollback records the outcome of an object rollback
func RecordRollback(err error) {
	RollbacksTotal.WithLabelValues(status(err)).Inc()
}

// RecordOrphan records objects left without a record
func RecordOrphan(provider, reason string, keys int) {
	OrphansTotal.WithLabelValues(provider, reason).Add(float64(keys))
}

// RecordDeletion records a media deletion
func RecordDeletion(ok bool) {
	if ok {
		DeletionsTotal.WithLabelValues("success").Inc()
		return
	}
	DeletionsTotal.WithLabelValues("error").Inc()
}

// RecordStorageOperation records a storage backend operation
func RecordStorageOperation(provider, operation string, err error, durationSec float64) {
	StorageOperationsTotal.WithLabelValues(provider, operation, status(err)).Inc()
	StorageDuration.WithLabelValues(provider, operation).Observe(durationSec)
}
