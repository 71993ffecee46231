package v1

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

// UploadFile stores a multipart upload for a session.
// POST /v1/sessions/:session_id/files
func (h *Handler) UploadFile(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return badRequest(c, "unreadable upload")
	}
	defer src.Close()

	// One byte past the limit is enough for the size check to fail.
	data, err := io.ReadAll(io.LimitReader(src, h.service.MaxUploadSize()+1))
	if err != nil {
		return badRequest(c, "unreadable upload")
	}

	f, err := h.service.UploadFile(c.Request().Context(), c.Param("session_id"), fh.Filename, data)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, f)
}

// ListSessionFiles returns a session's uploads, newest first.
// GET /v1/sessions/:session_id/files
func (h *Handler) ListSessionFiles(c echo.Context) error {
	sessionID := c.Param("session_id")
	list, err := h.service.GetSessionFiles(c.Request().Context(), sessionID)
	if err != nil {
		return h.fail(c, err)
	}
	if list == nil {
		list = []domain.File{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"files":      list,
	})
}
