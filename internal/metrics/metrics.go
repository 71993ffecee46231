// Package metrics exposes Prometheus instruments for the chatbot engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chatbot"

// Metrics groups the engine's collectors. A nil *Metrics is a no-op.
type Metrics struct {
	messages       *prometheus.CounterVec
	llmLatency     *prometheus.HistogramVec
	llmTokens      *prometheus.CounterVec
	llmCost        *prometheus.CounterVec
	contacts       *prometheus.CounterVec
	sessionsClosed *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg skips registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "messages_total",
			Help:      "Processed chat messages by provider and outcome",
		}, []string{"provider", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Latency of provider completions",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 4, 5, 6, 8, 10, 15, 20, 30, 60},
		}, []string{"provider", "model", "status"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens used by provider completions",
		}, []string{"provider", "model", "type"}), // type: input, output
		llmCost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "cost_total",
			Help:      "Estimated cost of provider completions",
		}, []string{"provider", "model"}),
		contacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "contacts_captured_total",
			Help:      "Contacts captured from chat messages",
		}, []string{"source"}),
		sessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "sessions_closed_total",
			Help:      "Sessions moved to a terminal status",
		}, []string{"status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if reg != nil {
		reg.MustRegister(m.messages, m.llmLatency, m.llmTokens, m.llmCost,
			m.contacts, m.sessionsClosed, m.httpRequests, m.httpLatency)
	}
	return m
}

// ObserveMessage records one engine invocation.
func (m *Metrics) ObserveMessage(provider string, success bool) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(provider, statusLabel(success)).Inc()
}

// ObserveCompletion records latency, tokens and cost of one provider call.
func (m *Metrics) ObserveCompletion(provider, model string, success bool, latency time.Duration, inputTokens, outputTokens int, cost float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(provider, model, statusLabel(success)).Observe(latency.Seconds())
	if inputTokens > 0 {
		m.llmTokens.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.llmTokens.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	}
	if cost > 0 {
		m.llmCost.WithLabelValues(provider, model).Add(cost)
	}
}

// ContactCaptured counts a stored contact.
func (m *Metrics) ContactCaptured(source string) {
	if m == nil {
		return
	}
	m.contacts.WithLabelValues(source).Inc()
}

// SessionsClosed counts sessions moved to status.
func (m *Metrics) SessionsClosed(status string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsClosed.WithLabelValues(status).Add(float64(n))
}

// Middleware instruments HTTP request counts and latency.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if m == nil {
			return next
		}
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unknown"
			}
			method := c.Request().Method
			m.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			m.httpLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
