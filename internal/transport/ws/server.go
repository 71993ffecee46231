// Package ws serves the chat protocol over WebSocket connections.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/chatbot/internal/apperr"
	"github.com/xiaot623/gogo/chatbot/internal/config"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
	"github.com/xiaot623/gogo/chatbot/internal/logger"
)

const pendingFrames = 8

// Engine processes one conversation turn.
type Engine interface {
	ProcessMessage(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)
}

// Server handles WebSocket connections.
type Server struct {
	cfg      config.WebSocketConfig
	engine   Engine
	hub      *Hub
	log      *logger.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg config.WebSocketConfig, engine Engine, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		cfg:    cfg,
		engine: engine,
		hub:    NewHub(),
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The widget is embedded on arbitrary storefront domains.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Hub exposes the connection registry.
func (s *Server) Hub() *Hub {
	return s.hub
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
// GET /v1/ws
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		s.log.Warn("failed to upgrade websocket", "error", err)
		return nil
	}

	conn := s.hub.NewConnection(ws)
	ws.SetReadLimit(s.cfg.MaxMessageSize)
	client := domain.ClientInfo{
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		Referrer:  c.Request().Referer(),
	}

	go s.writePump(conn)
	go s.readPump(conn, client)
	return nil
}

// readPump reads frames and hands chat requests to a per-connection worker,
// so turns from one connection are processed in order.
func (s *Server) readPump(conn *Connection, client domain.ClientInfo) {
	ctx, cancel := context.WithCancel(context.Background())
	jobs := make(chan ChatFrame, pendingFrames)
	go s.work(ctx, conn, client, jobs)

	defer func() {
		close(jobs)
		cancel()
		s.hub.Unregister(conn)
	}()

	conn.Conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.Conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	for {
		_, data, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("websocket read failed", "conn_id", conn.ID, "error", err)
			}
			return
		}
		conn.Conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		s.handleFrame(conn, data, jobs)
	}
}

// writePump is the only writer on the connection.
func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.log.Warn("websocket write failed", "conn_id", conn.ID, "error", err)
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleFrame(conn *Connection, data []byte, jobs chan<- ChatFrame) {
	var base BaseFrame
	if err := json.Unmarshal(data, &base); err != nil {
		s.sendError(conn, "", "invalid JSON message")
		return
	}

	switch base.Type {
	case TypeChat:
		var frame ChatFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.sendError(conn, base.RequestID, "invalid chat message")
			return
		}
		select {
		case jobs <- frame:
		default:
			s.sendError(conn, base.RequestID, "too many pending messages")
		}
	default:
		s.sendError(conn, base.RequestID, "unknown message type: "+base.Type)
	}
}

func (s *Server) work(ctx context.Context, conn *Connection, client domain.ClientInfo, jobs <-chan ChatFrame) {
	for frame := range jobs {
		if ctx.Err() != nil {
			// Connection is gone; drop what is still queued.
			continue
		}
		s.handleChat(ctx, conn, client, frame)
	}
}

func (s *Server) handleChat(ctx context.Context, conn *Connection, client domain.ClientInfo, frame ChatFrame) {
	sessionID := frame.SessionID
	if sessionID == "" && !frame.ResetSession {
		sessionID = conn.SessionID()
	}

	resp, err := s.engine.ProcessMessage(ctx, domain.ChatRequest{
		ChatbotID:    frame.ChatbotID,
		SessionID:    sessionID,
		Message:      frame.Message,
		ResetSession: frame.ResetSession,
		Attachments:  frame.Attachments,
		Client:       client,
	})
	if err != nil {
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) && !apperr.IsNotFound(err) {
			s.log.Error("websocket chat failed", "conn_id", conn.ID, "error", err)
		}
		s.sendError(conn, frame.RequestID, apperr.UserMessage(err))
		return
	}

	s.hub.BindSession(conn, resp.SessionID)
	reply := ReplyFrame{
		BaseFrame:    BaseFrame{Type: TypeReply, RequestID: frame.RequestID},
		ChatResponse: *resp,
	}
	if _, err := s.hub.BroadcastJSON(resp.SessionID, reply); err != nil {
		s.log.Error("failed to encode reply", "session_id", resp.SessionID, "error", err)
	}
}

func (s *Server) sendError(conn *Connection, requestID, message string) {
	frame := ErrorFrame{
		BaseFrame: BaseFrame{Type: TypeError, RequestID: requestID},
		Error:     message,
	}
	if err := s.hub.SendJSON(conn, frame); err != nil {
		s.log.Warn("failed to queue error frame", "conn_id", conn.ID, "error", err)
	}
}
