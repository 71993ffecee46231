// Package v1 provides the HTTP handlers for the chatbot API.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/chatbot/internal/apperr"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
	"github.com/xiaot623/gogo/chatbot/internal/logger"
	"github.com/xiaot623/gogo/chatbot/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	log     *logger.Logger
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		service: service,
		log:     log,
	}
}

// RegisterRoutes registers the public routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Conversation API
	e.POST("/v1/chat/messages", h.SendMessage)
	e.GET("/v1/sessions/:session_id/messages", h.GetSessionMessages)
	e.POST("/v1/sessions/:session_id/close", h.CloseSession)
	e.POST("/v1/sessions/:session_id/files", h.UploadFile)
	e.GET("/v1/sessions/:session_id/files", h.ListSessionFiles)

	// Chatbot API
	e.GET("/v1/chatbots", h.ListChatbots)

	// Provider API
	e.GET("/v1/providers", h.ListProviders)
	e.POST("/v1/providers/:provider/test", h.TestProvider)
	e.GET("/v1/providers/:provider/models", h.ListModels)

	// Analytics API
	e.GET("/v1/analytics/usage", h.UsageStats)
	e.GET("/v1/analytics/daily", h.DailyUsage)
	e.GET("/v1/analytics/models", h.UsageByModel)
	e.GET("/v1/analytics/sessions", h.TopSessions)
	e.GET("/v1/analytics/export", h.ExportUsage)

	// Contacts API
	e.GET("/v1/contacts", h.ListContacts)
	e.PATCH("/v1/contacts/:contact_id", h.UpdateContact)

	// Indexer API
	e.PUT("/v1/content", h.UpsertContent)
	e.GET("/v1/content/stats", h.ContentStats)
	e.PUT("/v1/orders", h.UpsertOrder)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// fail writes err as {"error": ...}. Only client-safe text leaves the server.
func (h *Handler) fail(c echo.Context, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(status, map[string]string{"error": apperr.UserMessage(err)})
}

func statusFor(err error) int {
	var ve *apperr.ValidationError
	var pe *apperr.ProviderError
	var ce *apperr.ConfigError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case apperr.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &pe), errors.As(err, &ce):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": message})
}

func clientInfo(c echo.Context) domain.ClientInfo {
	r := c.Request()
	return domain.ClientInfo{
		IP:        c.RealIP(),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}
}
