package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/chatbot/internal/adapter/llm"
	"github.com/xiaot623/gogo/chatbot/internal/config"
	"github.com/xiaot623/gogo/chatbot/internal/logger"
	"github.com/xiaot623/gogo/chatbot/internal/metrics"
	"github.com/xiaot623/gogo/chatbot/internal/service"
	"github.com/xiaot623/gogo/chatbot/tests/helpers"
)

func TestServerExposesMetrics(t *testing.T) {
	store := helpers.NewTestSQLiteStore(t)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := service.New(store, llm.NewRegistry(), config.Default(), logger.NewNop(), service.WithMetrics(m))

	e := NewServer(svc, Options{Metrics: m, Gatherer: reg})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `chatbot_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestServerWithoutOptionalParts(t *testing.T) {
	store := helpers.NewTestSQLiteStore(t)
	svc := service.New(store, llm.NewRegistry(), config.Default(), logger.NewNop())
	e := NewServer(svc, Options{})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ws", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
