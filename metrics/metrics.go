package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Twitch OAuth
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nxpresence_token_refreshes_total",
		Help: "Total number of OAuth token requests.",
	}, []string{"result"}) // result: success, error

	// IGDB requests
	CatalogRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nxpresence_catalog_requests_total",
		Help: "Total number of IGDB API requests.",
	}, []string{"endpoint", "status"}) // status: HTTP code or "error"

	CatalogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nxpresence_catalog_request_duration_seconds",
		Help:    "Duration of IGDB API requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	SearchStage = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nxpresence_search_stage_total",
		Help: "Search stage that produced the final result set.",
	}, []string{"stage"}) // stage: search, name_contains, unscoped, none

	// Local catalog fallbacks
	LookupFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nxpresence_lookup_fallbacks_total",
		Help: "Total number of lookups answered from the local catalog.",
	}, []string{"operation"})
)

// RecordCatalogRequest records the outcome and duration of one IGDB request.
// A zero status means the request failed before a response was read.
func RecordCatalogRequest(endpoint string, status int, start time.Time) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	CatalogRequests.WithLabelValues(endpoint, label).Inc()
	CatalogRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// RecordTokenRefresh counts a token request.
func RecordTokenRefresh(err error) {
	if err != nil {
		TokenRefreshes.WithLabelValues("error").Inc()
		return
	}
	TokenRefreshes.WithLabelValues("success").Inc()
}
