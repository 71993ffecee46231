// Package rpc exposes the engine over JSON-RPC for internal callers.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sync"

	"github.com/xiaot623/gogo/chatbot/internal/apperr"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
	"github.com/xiaot623/gogo/chatbot/internal/logger"
)

// ServiceName is the JSON-RPC receiver name, e.g. "Chatbot.ProcessMessage".
const ServiceName = "Chatbot"

// Engine is the subset of the service the RPC surface needs.
type Engine interface {
	ProcessMessage(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)
	CloseSession(ctx context.Context, sessionID string, status domain.SessionStatus) (*domain.Session, error)
	GetSessionMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
}

// Server exposes internal RPC endpoints.
type Server struct {
	rpcServer *rpc.Server
	log       *logger.Logger
	done      chan struct{}

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new RPC server bound to engine.
func NewServer(engine Engine, log *logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.NewNop()
	}
	rpcServer := rpc.NewServer()
	handler := &Handler{engine: engine, log: log}
	if err := rpcServer.RegisterName(ServiceName, handler); err != nil {
		return nil, fmt.Errorf("register rpc handler: %w", err)
	}

	return &Server{
		rpcServer: rpcServer,
		log:       log,
		done:      make(chan struct{}),
	}, nil
}

// Start begins accepting RPC connections on the given address.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until it is closed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				close(s.done)
				return nil
			}
			s.log.Warn("rpc accept error", "error", err)
			continue
		}

		go s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

// Shutdown stops accepting new RPC connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}

	if err := ln.Close(); err != nil {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler implements the Chatbot RPC methods. Errors carry client-safe text only.
type Handler struct {
	engine Engine
	log    *logger.Logger
}

// CloseSessionArgs identifies the session to end.
type CloseSessionArgs struct {
	SessionID string               `json:"session_id"`
	Status    domain.SessionStatus `json:"status,omitempty"`
}

// SessionMessagesArgs selects a page of session history.
type SessionMessagesArgs struct {
	SessionID string `json:"session_id"`
	Limit     int    `json:"limit,omitempty"`
}

// SessionMessagesResponse is the history page, oldest first.
type SessionMessagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

// ProcessMessage runs one conversation turn.
func (h *Handler) ProcessMessage(req *domain.ChatRequest, resp *domain.ChatResponse) error {
	if req == nil {
		return errors.New("chat request is required")
	}

	result, err := h.engine.ProcessMessage(context.Background(), *req)
	if err != nil {
		return h.clientError("ProcessMessage", err)
	}
	if resp != nil && result != nil {
		*resp = *result
	}
	return nil
}

// CloseSession ends an active session.
func (h *Handler) CloseSession(req *CloseSessionArgs, resp *domain.Session) error {
	if req == nil {
		return errors.New("close request is required")
	}
	if req.SessionID == "" {
		return errors.New("session_id is required")
	}

	session, err := h.engine.CloseSession(context.Background(), req.SessionID, req.Status)
	if err != nil {
		return h.clientError("CloseSession", err)
	}
	if resp != nil && session != nil {
		*resp = *session
	}
	return nil
}

// GetSessionMessages returns a page of session history.
func (h *Handler) GetSessionMessages(req *SessionMessagesArgs, resp *SessionMessagesResponse) error {
	if req == nil {
		return errors.New("messages request is required")
	}
	if req.SessionID == "" {
		return errors.New("session_id is required")
	}

	messages, err := h.engine.GetSessionMessages(context.Background(), req.SessionID, req.Limit)
	if err != nil {
		return h.clientError("GetSessionMessages", err)
	}
	if resp != nil {
		resp.Messages = messages
	}
	return nil
}

func (h *Handler) clientError(method string, err error) error {
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) && !apperr.IsNotFound(err) {
		h.log.Error("rpc call failed", "method", method, "error", err)
	}
	return errors.New(apperr.UserMessage(err))
}
