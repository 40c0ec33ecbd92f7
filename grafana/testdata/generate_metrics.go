// Package testdata provides utilities for generating sample metrics data
// to test Grafana dashboards without using real production data.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics for testing dashboards. Session families mirror what
// internal/stream registers; HTTP families mirror the middleware metrics as
// they appear after OTLP conversion.
var (
	// Session metrics
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relnotes_sessions_total",
			Help: "Total number of closed generation sessions",
		},
		[]string{"outcome"},
	)
	sessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relnotes_session_duration_seconds",
			Help:    "Duration of generation sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"outcome"},
	)
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relnotes_sessions_active",
			Help: "Number of generation sessions currently running",
		},
	)
	deltasTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relnotes_deltas_total",
			Help: "Total number of model deltas received across sessions",
		},
	)
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relnotes_events_total",
			Help: "Total number of events written to clients",
		},
		[]string{"type"},
	)
	rejectedChangesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relnotes_rejected_changes_total",
			Help: "Total number of changes filtered out before generation",
		},
	)

	// HTTP server metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relnotesd_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relnotesd_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relnotesd_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
		[]string{"method", "path"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		// Sessions
		sessionsTotal,
		sessionDuration,
		sessionsActive,
		deltasTotal,
		eventsTotal,
		rejectedChangesTotal,
		// HTTP
		httpRequestsTotal,
		httpRequestDuration,
		httpResponseSize,
	)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	// Generate initial sample data
	generateSampleData()

	// Start background goroutine to continuously generate data
	ctx, cancel := context.WithCancel(context.Background())
	go generateContinuousData(ctx)

	// Serve metrics
	http.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		cancel()
		server.Shutdown(context.Background())
	}()

	fmt.Printf("Sample metrics server running on http://localhost:%s/metrics\n", port)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println("\nTo use with Prometheus, add this to prometheus.yml:")
	fmt.Printf("  - job_name: 'relnotesd-test'\n    static_configs:\n      - targets: ['localhost:%s']\n", port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func generateSampleData() {
	eventTypes := []string{"start", "progress", "notes", "message", "error", "complete"}

	// Closed sessions skew heavily toward success
	for i := 0; i < 120; i++ {
		outcome := weightedOutcome()
		sessionsTotal.WithLabelValues(outcome).Inc()
		sessionDuration.WithLabelValues(outcome).Observe(0.5 + rand.Float64()*20.0)
	}
	sessionsActive.Set(float64(rand.Intn(5)))

	// A session produces many deltas but few events
	deltasTotal.Add(float64(rand.Intn(5000) + 2000))
	for i := 0; i < 800; i++ {
		eventsTotal.WithLabelValues(randomChoice(eventTypes)).Inc()
	}
	for i := 0; i < 30; i++ {
		rejectedChangesTotal.Inc()
	}

	// HTTP traffic: the analyze stream dominates, pulls is occasional
	for i := 0; i < 200; i++ {
		httpRequestsTotal.WithLabelValues("POST", "/api/v1/analyze", randomChoice([]string{"200", "200", "200", "400", "499"})).Inc()
		httpRequestDuration.WithLabelValues("POST", "/api/v1/analyze").Observe(0.5 + rand.Float64()*15.0)
		httpResponseSize.WithLabelValues("POST", "/api/v1/analyze").Observe(float64(rand.Intn(8000) + 500))
	}
	for i := 0; i < 40; i++ {
		httpRequestsTotal.WithLabelValues("GET", "/api/v1/pulls", randomChoice([]string{"200", "200", "502", "503"})).Inc()
		httpRequestDuration.WithLabelValues("GET", "/api/v1/pulls").Observe(0.2 + rand.Float64()*5.0)
		httpResponseSize.WithLabelValues("GET", "/api/v1/pulls").Observe(float64(rand.Intn(4000) + 200))
	}
	for i := 0; i < 100; i++ {
		httpRequestsTotal.WithLabelValues("GET", "/health", "200").Inc()
		httpRequestDuration.WithLabelValues("GET", "/health").Observe(rand.Float64() * 0.01)
	}
}

func generateContinuousData(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A new analyze request arrives most ticks
			if rand.Float64() > 0.3 {
				outcome := weightedOutcome()
				sessionsTotal.WithLabelValues(outcome).Inc()
				sessionDuration.WithLabelValues(outcome).Observe(0.5 + rand.Float64()*20.0)
				deltasTotal.Add(float64(rand.Intn(80) + 20))
				eventsTotal.WithLabelValues("start").Inc()
				eventsTotal.WithLabelValues("progress").Add(float64(rand.Intn(16) + 4))
				if outcome == "success" {
					eventsTotal.WithLabelValues("notes").Inc()
					eventsTotal.WithLabelValues("complete").Inc()
				} else if outcome == "error" {
					eventsTotal.WithLabelValues("error").Inc()
				}
				httpRequestsTotal.WithLabelValues("POST", "/api/v1/analyze", "200").Inc()
				httpRequestDuration.WithLabelValues("POST", "/api/v1/analyze").Observe(0.5 + rand.Float64()*15.0)
			}
			// Some changes never pass the relevance gate
			if rand.Float64() > 0.8 {
				rejectedChangesTotal.Inc()
				eventsTotal.WithLabelValues("message").Inc()
			}
			if rand.Float64() > 0.7 {
				httpRequestsTotal.WithLabelValues("GET", "/api/v1/pulls", "200").Inc()
				httpRequestDuration.WithLabelValues("GET", "/api/v1/pulls").Observe(0.2 + rand.Float64()*5.0)
			}
			httpRequestsTotal.WithLabelValues("GET", "/health", "200").Inc()
			httpRequestDuration.WithLabelValues("GET", "/health").Observe(rand.Float64() * 0.01)

			sessionsActive.Set(float64(rand.Intn(5)))
		}
	}
}

// weightedOutcome returns a session outcome, mostly "success".
func weightedOutcome() string {
	r := rand.Float64()
	switch {
	case r < 0.8:
		return "success"
	case r < 0.92:
		return "error"
	default:
		return "cancelled"
	}
}

func randomChoice(choices []string) string {
	return choices[rand.Intn(len(choices))]
}
