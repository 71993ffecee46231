package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

// UpsertContent indexes one piece of site content.
// PUT /v1/content
func (h *Handler) UpsertContent(c echo.Context) error {
	var entry domain.ContentEntry
	if err := c.Bind(&entry); err != nil {
		return badRequest(c, "invalid request body")
	}

	changed, err := h.service.UpsertContent(c.Request().Context(), &entry)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":           true,
		"content_id":   entry.ContentID,
		"changed":      changed,
		"content_hash": entry.ContentHash,
	})
}

// ContentStats describes the content index.
// GET /v1/content/stats
func (h *Handler) ContentStats(c echo.Context) error {
	stats, err := h.service.ContentStats(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// UpsertOrder mirrors one order from the commerce backend.
// PUT /v1/orders
func (h *Handler) UpsertOrder(c echo.Context) error {
	var order domain.Order
	if err := c.Bind(&order); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.service.UpsertOrder(c.Request().Context(), &order); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":       true,
		"order_id": order.ID,
	})
}
