// Package http provides the HTTP server for the chatbot engine.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xiaot623/gogo/chatbot/internal/logger"
	"github.com/xiaot623/gogo/chatbot/internal/metrics"
	"github.com/xiaot623/gogo/chatbot/internal/service"
	v1 "github.com/xiaot623/gogo/chatbot/internal/transport/http/v1"
	"github.com/xiaot623/gogo/chatbot/internal/transport/ws"
)

// Options wires the optional parts of the server. Nil fields are skipped.
type Options struct {
	WebSocket *ws.Server
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Logger    *logger.Logger
}

// NewServer creates and configures the public HTTP server.
// It serves the v1 API, the chat websocket and /metrics.
func NewServer(svc *service.Service, opts Options) *echo.Echo {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(requestLogger(log))
	e.Use(opts.Metrics.Middleware())

	// Handlers
	v1Handler := v1.NewHandler(svc, log)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	if opts.WebSocket != nil {
		e.GET("/v1/ws", opts.WebSocket.HandleWebSocket)
	}
	if opts.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	return e
}

func requestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			kv := []interface{}{
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			}
			if v.Error != nil {
				kv = append(kv, "error", v.Error)
				log.Warn("http request", kv...)
				return nil
			}
			log.Debug("http request", kv...)
			return nil
		},
	})
}
