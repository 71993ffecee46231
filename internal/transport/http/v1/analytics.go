package v1

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

const dateLayout = "2006-01-02"

// usageFilter reads from, to, chatbot_id and limit. A bare date in "to"
// covers that whole day.
func usageFilter(c echo.Context) (domain.UsageFilter, error) {
	var f domain.UsageFilter
	var err error
	if f.From, err = parseTime(c.QueryParam("from"), false); err != nil {
		return f, fmt.Errorf("invalid from: %w", err)
	}
	if f.To, err = parseTime(c.QueryParam("to"), true); err != nil {
		return f, fmt.Errorf("invalid to: %w", err)
	}
	if v := c.QueryParam("chatbot_id"); v != "" {
		if f.ChatbotID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return f, fmt.Errorf("invalid chatbot_id: %w", err)
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			return f, fmt.Errorf("invalid limit: %w", err)
		}
	}
	return f, nil
}

func parseTime(v string, endOfDay bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, v); err == nil {
		if endOfDay {
			t = t.AddDate(0, 0, 1)
		}
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

// UsageStats returns aggregate usage.
// GET /v1/analytics/usage
func (h *Handler) UsageStats(c echo.Context) error {
	f, err := usageFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	stats, err := h.service.UsageStats(c.Request().Context(), f)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// DailyUsage returns usage bucketed per day.
// GET /v1/analytics/daily
func (h *Handler) DailyUsage(c echo.Context) error {
	f, err := usageFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	days, err := h.service.DailyUsage(c.Request().Context(), f)
	if err != nil {
		return h.fail(c, err)
	}
	if days == nil {
		days = []domain.DailyUsage{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"days": days})
}

// UsageByModel returns usage grouped by provider and model.
// GET /v1/analytics/models
func (h *Handler) UsageByModel(c echo.Context) error {
	f, err := usageFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	models, err := h.service.UsageByModel(c.Request().Context(), f)
	if err != nil {
		return h.fail(c, err)
	}
	if models == nil {
		models = []domain.ModelUsage{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"models": models})
}

// TopSessions returns the most expensive sessions.
// GET /v1/analytics/sessions
func (h *Handler) TopSessions(c echo.Context) error {
	f, err := usageFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	sessions, err := h.service.TopSessions(c.Request().Context(), f)
	if err != nil {
		return h.fail(c, err)
	}
	if sessions == nil {
		sessions = []domain.SessionUsage{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// ExportUsage returns per-session usage as JSON, or CSV with format=csv.
// GET /v1/analytics/export
func (h *Handler) ExportUsage(c echo.Context) error {
	f, err := usageFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	rows, err := h.service.ExportUsage(c.Request().Context(), f)
	if err != nil {
		return h.fail(c, err)
	}
	if c.QueryParam("format") != "csv" {
		if rows == nil {
			rows = []domain.SessionUsage{}
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"sessions": rows})
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="usage.csv"`)
	res.WriteHeader(http.StatusOK)

	w := csv.NewWriter(res)
	_ = w.Write([]string{"session_id", "chatbot_id", "status", "messages", "tokens", "cost", "created_at", "last_activity"})
	for _, r := range rows {
		_ = w.Write([]string{
			r.SessionID,
			strconv.FormatInt(r.ChatbotID, 10),
			string(r.Status),
			strconv.Itoa(r.Messages),
			strconv.Itoa(r.Tokens),
			strconv.FormatFloat(r.Cost, 'f', 6, 64),
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.LastActivity.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
	return w.Error()
}
