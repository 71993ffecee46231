package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/chatbot/internal/apperr"
	"github.com/xiaot623/gogo/chatbot/internal/config"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
	"github.com/xiaot623/gogo/chatbot/internal/logger"
)

type fakeEngine struct {
	mu       sync.Mutex
	requests []domain.ChatRequest
	err      error
}

func (f *fakeEngine) ProcessMessage(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "sess_abc"
	}
	return &domain.ChatResponse{Message: "echo: " + req.Message, SessionID: sessionID, Tokens: 7}, nil
}

func (f *fakeEngine) last() domain.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestServer(t *testing.T, engine Engine) (*Server, string) {
	t.Helper()
	cfg := config.Default().WebSocket
	s := NewServer(cfg, engine, logger.NewNop())

	e := echo.New()
	e.GET("/v1/ws", s.HandleWebSocket)
	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)
	return s, "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(v))
}

func TestChatReply(t *testing.T) {
	engine := &fakeEngine{}
	_, url := newTestServer(t, engine)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(ChatFrame{
		BaseFrame: BaseFrame{Type: TypeChat, RequestID: "r1"},
		ChatbotID: 1,
		Message:   "hello",
	}))

	var reply ReplyFrame
	readJSON(t, conn, &reply)
	assert.Equal(t, TypeReply, reply.Type)
	assert.Equal(t, "r1", reply.RequestID)
	assert.Equal(t, "echo: hello", reply.Message)
	assert.Equal(t, "sess_abc", reply.SessionID)
	assert.Equal(t, 7, reply.Tokens)

	// The connection follows its session on the next turn.
	require.NoError(t, conn.WriteJSON(ChatFrame{BaseFrame: BaseFrame{Type: TypeChat}, ChatbotID: 1, Message: "again"}))
	readJSON(t, conn, &reply)
	assert.Equal(t, "sess_abc", engine.last().SessionID)
	assert.Equal(t, int64(1), engine.last().ChatbotID)
}

func TestChatResetIgnoresBoundSession(t *testing.T) {
	engine := &fakeEngine{}
	_, url := newTestServer(t, engine)
	conn := dial(t, url)

	var reply ReplyFrame
	require.NoError(t, conn.WriteJSON(ChatFrame{BaseFrame: BaseFrame{Type: TypeChat}, ChatbotID: 1, Message: "one"}))
	readJSON(t, conn, &reply)

	require.NoError(t, conn.WriteJSON(ChatFrame{BaseFrame: BaseFrame{Type: TypeChat}, ChatbotID: 1, Message: "two", ResetSession: true}))
	readJSON(t, conn, &reply)
	req := engine.last()
	assert.Empty(t, req.SessionID)
	assert.True(t, req.ResetSession)
}

func TestErrorFrames(t *testing.T) {
	engine := &fakeEngine{}
	_, url := newTestServer(t, engine)
	conn := dial(t, url)

	var frame ErrorFrame
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	readJSON(t, conn, &frame)
	assert.Equal(t, TypeError, frame.Type)
	assert.Equal(t, "invalid JSON message", frame.Error)

	require.NoError(t, conn.WriteJSON(BaseFrame{Type: "subscribe", RequestID: "r9"}))
	readJSON(t, conn, &frame)
	assert.Equal(t, "r9", frame.RequestID)
	assert.Equal(t, "unknown message type: subscribe", frame.Error)
}

func TestEngineErrorsAreSanitized(t *testing.T) {
	engine := &fakeEngine{err: &apperr.ProviderError{Provider: "openai", HTTPStatus: 500, Message: "upstream exploded"}}
	_, url := newTestServer(t, engine)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(ChatFrame{BaseFrame: BaseFrame{Type: TypeChat, RequestID: "r2"}, ChatbotID: 1, Message: "hi"}))
	var frame ErrorFrame
	readJSON(t, conn, &frame)
	assert.Equal(t, "r2", frame.RequestID)
	assert.Equal(t, apperr.GenericMessage, frame.Error)

	engine.mu.Lock()
	engine.err = apperr.NotFound("chatbot", "99")
	engine.mu.Unlock()
	require.NoError(t, conn.WriteJSON(ChatFrame{BaseFrame: BaseFrame{Type: TypeChat}, ChatbotID: 99, Message: "hi"}))
	readJSON(t, conn, &frame)
	assert.Equal(t, "Chatbot not found.", frame.Error)
}

func TestRepliesFanOutToSessionFollowers(t *testing.T) {
	engine := &fakeEngine{}
	s, url := newTestServer(t, engine)
	first := dial(t, url)
	second := dial(t, url)

	var reply ReplyFrame
	require.NoError(t, first.WriteJSON(ChatFrame{BaseFrame: BaseFrame{Type: TypeChat}, ChatbotID: 1, Message: "a"}))
	readJSON(t, first, &reply)
	require.NoError(t, second.WriteJSON(ChatFrame{BaseFrame: BaseFrame{Type: TypeChat}, ChatbotID: 1, SessionID: "sess_abc", Message: "b"}))
	readJSON(t, second, &reply)
	// first already follows sess_abc and sees b as well.
	readJSON(t, first, &reply)
	assert.Equal(t, "echo: b", reply.Message)

	// Both connections follow sess_abc now; a turn from one reaches both.
	require.NoError(t, first.WriteJSON(ChatFrame{BaseFrame: BaseFrame{Type: TypeChat}, ChatbotID: 1, Message: "c"}))
	readJSON(t, first, &reply)
	assert.Equal(t, "echo: c", reply.Message)
	readJSON(t, second, &reply)
	assert.Equal(t, "echo: c", reply.Message)

	assert.Equal(t, 2, s.Hub().ConnectionCount())
	assert.Equal(t, 1, s.Hub().SessionCount())
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	h := NewHub()
	conn := h.NewConnection(nil)
	h.BindSession(conn, "s1")
	assert.Equal(t, 1, h.SessionCount())

	h.Unregister(conn)
	h.Unregister(conn)
	assert.Equal(t, 0, h.ConnectionCount())
	assert.Equal(t, 0, h.SessionCount())
	assert.Error(t, h.SendJSON(conn, BaseFrame{Type: TypeReply}))

	n, err := h.BroadcastJSON("s1", BaseFrame{Type: TypeReply})
	require.NoError(t, err)
	assert.Zero(t, n)
}
