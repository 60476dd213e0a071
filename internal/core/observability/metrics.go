// Package observability holds the process-wide Prometheus instruments used by
// the HTTP layer, the coverage cache and the HEALPix engine wrappers.
package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	engineOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healpix_ops_total",
			Help: "HEALPix engine operations by result.",
		},
		[]string{"op", "result"},
	)

	coverageResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coverage_cache_results_total",
			Help: "Coverage lookups by serving tier.",
		},
		[]string{"tier"},
	)

	coveragePixels = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coverage_pixels",
			Help:    "Number of pixels returned by a coverage lookup.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	cacheOpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_op_duration_seconds",
			Help:    "Latency of remote cache operations.",
			Buckets: prometheus.ExponentialBuckets(0.0002, 2, 14),
		},
		[]string{"op", "result"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "healpixd_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		engineOpsTotal,
		coverageResults,
		coveragePixels,
		cacheOpDurationSeconds,
		buildInfo,
		hotKeys,
		hotIncrements,
	}
}

// Init registers the package instruments with reg, or with the default
// registerer when reg is nil. Instruments keep counting when disabled; they
// are simply not exported.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled {
		return
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	if route == "" {
		route = "unmatched"
	}
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// ObserveEngineOp counts one engine call; err classifies the result.
func ObserveEngineOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	engineOpsTotal.WithLabelValues(op, result).Inc()
}

// ObserveCoverage records which tier served a coverage lookup and its size.
func ObserveCoverage(tier string, pixels int) {
	coverageResults.WithLabelValues(tier).Inc()
	coveragePixels.Observe(float64(pixels))
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOpDurationSeconds.WithLabelValues(op, result).Observe(durationSeconds)
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}

var (
	hotKeys = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hotness_keys",
			Help: "Number of keys tracked by a hotness tracker.",
		},
		[]string{"tier"},
	)

	hotIncrements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotness_increments_total",
			Help: "Hotness increments by tracker tier.",
		},
		[]string{"tier"},
	)
)

func SetHotKeys(tier string, n int) {
	hotKeys.WithLabelValues(tier).Set(float64(n))
}

func IncHotness(tier string) {
	hotIncrements.WithLabelValues(tier).Inc()
}
