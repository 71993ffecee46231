package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

// ListChatbots lists the configured chatbots.
// GET /v1/chatbots
func (h *Handler) ListChatbots(c echo.Context) error {
	bots, err := h.service.ListChatbots(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"chatbots": bots,
	})
}

// ListProviders lists the configured providers.
// GET /v1/providers
func (h *Handler) ListProviders(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"providers": h.service.Providers(),
	})
}

// TestProvider sends a fixed prompt through a provider. A failed call is
// reported in the body with status 200.
// POST /v1/providers/:provider/test
func (h *Handler) TestProvider(c echo.Context) error {
	var req domain.ConnectionTestRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	result, err := h.service.TestConnection(c.Request().Context(), c.Param("provider"), req.Model)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ListModels lists the models offered for a provider.
// GET /v1/providers/:provider/models
func (h *Handler) ListModels(c echo.Context) error {
	provider := c.Param("provider")
	models, err := h.service.AvailableModels(provider)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"provider": provider,
		"models":   models,
	})
}
