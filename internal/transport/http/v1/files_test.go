package v1

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
	"github.com/xiaot623/gogo/chatbot/internal/files"
	"github.com/xiaot623/gogo/chatbot/internal/service"
)

func (env *testEnv) upload(t *testing.T, sessionID, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	w, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+sessionID+"/files", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func newFileEnv(t *testing.T, maxSize int64) *testEnv {
	t.Helper()
	fs, err := files.New(files.Config{Dir: filepath.Join(t.TempDir(), "uploads"), MaxSize: maxSize, RetentionDays: 30})
	require.NoError(t, err)
	return newTestEnv(t, service.WithFileStore(fs))
}

func TestUploadAndListFiles(t *testing.T) {
	env := newFileEnv(t, 0)
	resp := env.chat(t, "", "hello")

	rec := env.upload(t, resp.SessionID, "faq.txt", []byte("Opening hours are 9 to 5."))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var f domain.File
	decode(t, rec, &f)
	assert.Equal(t, "faq.txt", f.OriginalName)
	assert.Equal(t, "txt", f.FileType)
	assert.Empty(t, f.Path)
	assert.NotContains(t, rec.Body.String(), "uploads")

	rec = env.do(t, http.MethodGet, "/v1/sessions/"+resp.SessionID+"/files", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		SessionID string        `json:"session_id"`
		Files     []domain.File `json:"files"`
	}
	decode(t, rec, &listed)
	require.Len(t, listed.Files, 1)
	assert.Equal(t, f.FileID, listed.Files[0].FileID)

	rec = env.do(t, http.MethodPost, "/v1/chat/messages", domain.ChatRequest{
		ChatbotID: env.bot.ID, SessionID: resp.SessionID, Message: "see file", Attachments: []string{f.FileID},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	history, err := env.store.GetHistory(context.Background(), resp.SessionID, 0)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, []string{f.FileID}, history[2].Attachments)
}

func TestUploadFileErrors(t *testing.T) {
	env := newFileEnv(t, 32)
	resp := env.chat(t, "", "hello")

	t.Run("too large", func(t *testing.T) {
		rec := env.upload(t, resp.SessionID, "big.txt", bytes.Repeat([]byte("x"), 1024))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "file: File size exceeds 32 B limit.", errorOf(t, rec))
	})

	t.Run("disallowed type", func(t *testing.T) {
		rec := env.upload(t, resp.SessionID, "run.exe", []byte("MZ"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, `file: File type "exe" is not allowed.`, errorOf(t, rec))
	})

	t.Run("unknown session", func(t *testing.T) {
		rec := env.upload(t, "sess_missing", "a.txt", []byte("hi"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Session not found.", errorOf(t, rec))
	})

	t.Run("missing file field", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/sessions/"+resp.SessionID+"/files", map[string]string{"x": "y"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "file is required", errorOf(t, rec))
	})
}
