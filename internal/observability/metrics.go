// Package observability provides Prometheus metrics for the triage pipeline.
package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	emailsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_emails_processed_total",
			Help: "Total number of emails run through the pipeline",
		},
		[]string{"status"}, // success, invalid, error
	)

	emailDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triage_email_duration_seconds",
			Help:    "End-to-end processing time per email",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	classificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_classifications_total",
			Help: "Classification outcomes by category and gate reason",
		},
		[]string{"category", "reason"},
	)
)

var (
	llmCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_llm_calls_total",
			Help: "Total number of completion attempts",
		},
		[]string{"status"}, // success, rate_limited, auth_failed, bad_request, other
	)

	llmDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triage_llm_duration_seconds",
			Help:    "Completion attempt duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	llmRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_llm_retries_total",
			Help: "Total number of completion retries",
		},
	)

	llmTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_llm_tokens_total",
			Help: "Tokens consumed by successful completions",
		},
		[]string{"model", "kind"}, // prompt, completion
	)

	llmCostDollarsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_llm_cost_dollars_total",
			Help: "Estimated completion cost in dollars",
		},
		[]string{"model"},
	)
)

var (
	fallbackResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_fallback_responses_total",
			Help: "Replies served from the canned response pool",
		},
		[]string{"category"},
	)

	handlerInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_handler_invocations_total",
			Help: "Downstream handler invocations",
		},
		[]string{"handler", "status"}, // success, error
	)

	historyErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_history_errors_total",
			Help: "History store failures",
		},
		[]string{"op"}, // append, fetch
	)
)

// RecordEmail records the terminal status of one processed email
func RecordEmail(status string, d time.Duration) {
	emailsProcessedTotal.WithLabelValues(status).Inc()
	emailDurationSeconds.Observe(d.Seconds())
}

// RecordClassification records one classifier outcome
func RecordClassification(category, reason string) {
	classificationsTotal.WithLabelValues(category, reason).Inc()
}

// RecordLLMCall records one completion attempt
func RecordLLMCall(status string, d time.Duration) {
	llmCallsTotal.WithLabelValues(status).Inc()
	llmDurationSeconds.Observe(d.Seconds())
}

// RecordLLMRetry records a retry scheduled by the gateway
func RecordLLMRetry() {
	llmRetriesTotal.Inc()
}

// RecordLLMUsage records token usage and estimated cost of a successful completion
func RecordLLMUsage(model string, promptTokens, completionTokens int, cost float64) {
	llmTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	llmTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	llmCostDollarsTotal.WithLabelValues(model).Add(cost)
}

// RecordFallback records a canned reply
func RecordFallback(category string) {
	fallbackResponsesTotal.WithLabelValues(category).Inc()
}

// RecordHandler records a downstream handler invocation
func RecordHandler(handler string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	handlerInvocationsTotal.WithLabelValues(handler, status).Inc()
}

// RecordHistoryError records a failed history read or write
func RecordHistoryError(op string) {
	historyErrorsTotal.WithLabelValues(op).Inc()
}

// Server exposes /metrics over HTTP
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer creates a metrics server listening on addr
func NewServer(addr string, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves metrics in the background
func (s *Server) Start() {
	go func() {
		s.logger.Info("Starting metrics server", zap.String("address", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
}

// Stop shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
