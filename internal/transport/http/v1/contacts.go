package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

// ListContacts lists captured contacts, newest first.
// GET /v1/contacts
func (h *Handler) ListContacts(c echo.Context) error {
	f := domain.ContactFilter{Status: domain.ContactStatus(c.QueryParam("status"))}
	if v := c.QueryParam("chatbot_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid chatbot_id")
		}
		f.ChatbotID = id
	}
	var err error
	if f.From, err = parseTime(c.QueryParam("from"), false); err != nil {
		return badRequest(c, "invalid from")
	}
	if f.To, err = parseTime(c.QueryParam("to"), true); err != nil {
		return badRequest(c, "invalid to")
	}
	if v := c.QueryParam("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			return badRequest(c, "invalid limit")
		}
	}

	contacts, err := h.service.ListContacts(c.Request().Context(), f)
	if err != nil {
		return h.fail(c, err)
	}
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"contacts": contacts})
}

// UpdateContact changes the follow-up status of a contact.
// PATCH /v1/contacts/:contact_id
func (h *Handler) UpdateContact(c echo.Context) error {
	var req domain.UpdateContactRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Status == "" {
		return badRequest(c, "status is required")
	}

	contact, err := h.service.UpdateContactStatus(c.Request().Context(), c.Param("contact_id"), req.Status)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, contact)
}
