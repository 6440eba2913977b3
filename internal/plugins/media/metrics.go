package media

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_media_uploads_total",
		Help: "Accepted uploads by kind.",
	}, []string{"kind"})

	uploadRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_media_upload_rejections_total",
		Help: "Uploads rejected at validation, by error code.",
	}, []string{"code"})

	variantsGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_media_variants_generated_total",
		Help: "WebP variants written, by variant name.",
	}, []string{"variant"})

	variantFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_media_variant_failures_total",
		Help: "Variants skipped because resize, encode or write failed.",
	}, []string{"variant"})

	sweepCleanedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "folio_media_sweep_cleaned_total",
		Help: "Soft-deleted assets purged by the retention sweep.",
	})

	sweepFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "folio_media_sweep_failed_total",
		Help: "Purge candidates the retention sweep could not remove.",
	})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "folio_media_sweep_duration_seconds",
		Help:    "Wall time of a retention sweep.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)
