// Package metrics exposes Courier's prometheus collectors and the /metrics
// handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courier_messages_ingested_total",
		Help: "Total number of messages accepted and persisted",
	})

	PayloadBytesIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courier_payload_bytes_ingested_total",
		Help: "Total payload bytes offloaded to the document store",
	})

	MessagesDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courier_messages_delivered_total",
		Help: "Total number of messages returned to recipients",
	})

	FetchesTruncated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courier_fetches_truncated_total",
		Help: "Total number of fetch batches cut short by the per-request payload cap",
	})

	FetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "courier_fetch_duration_seconds",
		Help:    "Latency of the full fetch pipeline including payload resolution",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		MessagesIngested,
		PayloadBytesIngested,
		MessagesDelivered,
		FetchesTruncated,
		FetchDuration,
	)
}

// Handler returns the prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
