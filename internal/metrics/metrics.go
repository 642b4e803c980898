// Package metrics holds Prometheus instruments used across the provider.
// All collectors are registered with the global registry, so importing this
// package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oai_requests_total",
			Help: "OAI-PMH requests by verb (\"invalid\" when the verb failed validation).",
		}, []string{"verb"})

	ProtocolErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oai_protocol_errors_total",
			Help: "OAI-PMH error elements emitted, by error code.",
		}, []string{"code"})

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oai_request_duration_seconds",
			Help:    "Time spent answering OAI-PMH requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"verb"})

	HarvesterRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oai_harvester_requests_total",
			Help: "HTTP requests by user-agent class and country.",
		}, []string{"agent", "country"})

	TokensMinted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oai_resumption_tokens_minted_total",
			Help: "Cumulative number of resumption tokens persisted.",
		})

	TokenCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oai_resumption_token_collisions_total",
			Help: "Token inserts retried after a unique-key collision.",
		})

	IndexUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oai_index_updates_total",
			Help: "Document index maintenance outcomes.",
		}, []string{"event", "outcome"})

	TransformDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oai_xslt_transform_duration_seconds",
			Help:    "Wall time of external XSLT transformations.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		})

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oai_cache_hits_total",
			Help: "Cache hits by cache name.",
		}, []string{"cache"})

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oai_cache_misses_total",
			Help: "Cache misses by cache name.",
		}, []string{"cache"})
)

func init() {
	prometheus.MustRegister(
		Requests,
		ProtocolErrors,
		RequestDuration,
		HarvesterRequests,
		TokensMinted,
		TokenCollisions,
		IndexUpdates,
		TransformDuration,
		CacheHits,
		CacheMisses,
	)
}
