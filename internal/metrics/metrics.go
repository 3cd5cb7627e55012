package metrics

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RecordsInserted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "motor_stats",
		Name:      "records_inserted_total",
		Help:      "Rows inserted or updated by the batch persister.",
	}, []string{"table"})
	RecordsParsed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "motor_stats",
		Name:      "records_parsed_total",
		Help:      "Records produced by the parsers.",
	}, []string{"dataset"})
	ChecksumSkips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "motor_stats",
		Name:      "checksum_skips_total",
		Help:      "Ingestion runs short-circuited because content was unchanged.",
	}, []string{"dataset"})
	BatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "motor_stats",
		Name:      "batch_insert_seconds",
		Help:      "Duration of one insert batch round trip.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"table"})
	StepOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "motor_stats",
		Name:      "step_outcomes_total",
		Help:      "Workflow step results by outcome (ok, retryable, fatal).",
	}, []string{"step", "outcome"})
)

// Init registers collectors; call once from main.
func Init() {
	prometheus.MustRegister(RecordsInserted, RecordsParsed, ChecksumSkips, BatchDuration, StepOutcomes)
}

// Serve starts a /metrics server on the given addr (e.g., ":9090"). Non-blocking when run in goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

// AddrFromEnv returns listen address from METRICS_ADDR or default ":9090".
func AddrFromEnv() string {
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		return v
	}
	return ":9090"
}
