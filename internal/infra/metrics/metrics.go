package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	codesGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codes_generated_total",
			Help: "Count of reward codes issued.",
		},
	)

	generateCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codes_generate_collisions_total",
			Help: "Count of generator collisions retried during issuance.",
		},
	)

	redemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codes_redemptions_total",
			Help: "Redemption attempts by outcome (success/not_found/already_used/expired/error).",
		},
		[]string{"outcome"},
	)

	codesState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "codes_state",
			Help: "Current number of codes per lifecycle state (active/redeemed/expired).",
		},
		[]string{"state"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "API request latency distribution in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600, 3000},
		},
		[]string{"method", "path", "status"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			codesGenerated, generateCollisions, redemptions,
			codesState, httpRequestDuration,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// -------- Code lifecycle helpers --------

func IncCodesGenerated() { codesGenerated.Inc() }

func AddCodesGenerated(n int) { codesGenerated.Add(float64(n)) }

func IncGenerateCollision() { generateCollisions.Inc() }

func IncRedemption(outcome string) {
	redemptions.WithLabelValues(norm(outcome)).Inc()
}

func SetCodesState(active, redeemed, expired int) {
	codesState.WithLabelValues("active").Set(float64(active))
	codesState.WithLabelValues("redeemed").Set(float64(redeemed))
	codesState.WithLabelValues("expired").Set(float64(expired))
}

// -------- HTTP helpers --------

func ObserveRequest(method, path, status string, latencyMs float64) {
	httpRequestDuration.WithLabelValues(method, path, status).Observe(latencyMs)
}
