// Package main provides a small CLI client for the chatbot engine.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/rpc/jsonrpc"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jessevdk/go-flags"
)

// Frame types shared with the server's /v1/ws endpoint.
const (
	TypeChat  = "chat"
	TypeReply = "reply"
	TypeError = "error"
)

// Frame is the union of every websocket frame the CLI sends or receives.
type Frame struct {
	Type         string  `json:"type"`
	RequestID    string  `json:"request_id,omitempty"`
	ChatbotID    int64   `json:"chatbot_id,omitempty"`
	SessionID    string  `json:"session_id,omitempty"`
	Message      string  `json:"message,omitempty"`
	ResetSession bool    `json:"reset_session,omitempty"`
	Tokens       int     `json:"tokens,omitempty"`
	Cost         float64 `json:"cost,omitempty"`
	ResponseTime float64 `json:"response_time,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// Options is the root command. Struct tags are read by go-flags.
type Options struct {
	Chat  ChatCmd  `command:"chat" description:"Chat with a chatbot over WebSocket"`
	Close CloseCmd `command:"close" description:"Close a session over JSON-RPC"`
}

// ChatCmd runs an interactive chat.
type ChatCmd struct {
	Addr      string `short:"a" long:"addr" default:"ws://localhost:8080/v1/ws" description:"WebSocket endpoint"`
	ChatbotID int64  `short:"b" long:"bot" default:"1" description:"Chatbot ID"`
	SessionID string `short:"s" long:"session" description:"Resume an existing session"`
}

// CloseCmd ends a session.
type CloseCmd struct {
	Addr   string `short:"a" long:"addr" default:"localhost:8081" description:"JSON-RPC endpoint"`
	Status string `long:"status" default:"completed" choice:"completed" choice:"abandoned" description:"Terminal status"`
	Args   struct {
		SessionID string `positional-arg-name:"session_id" required:"yes"`
	} `positional-args:"yes"`
}

// Execute implements flags.Commander.
func (c *CloseCmd) Execute(_ []string) error {
	client, err := jsonrpc.Dial("tcp", c.Addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer client.Close()

	args := map[string]string{"session_id": c.Args.SessionID, "status": c.Status}
	var session map[string]interface{}
	if err := client.Call("Chatbot.CloseSession", args, &session); err != nil {
		return err
	}
	fmt.Printf("Session %s is now %v\n", c.Args.SessionID, session["status"])
	return nil
}

// Execute implements flags.Commander.
func (c *ChatCmd) Execute(_ []string) error {
	fmt.Printf("Connecting to %s...\n", c.Addr)
	conn, _, err := websocket.DefaultDialer.Dial(c.Addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	replies := make(chan Frame)
	go readFrames(conn, replies)

	fmt.Println("Type a message and press Enter to send.")
	fmt.Println("Commands: /reset for a new session, /quit to exit")
	fmt.Println()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	sessionID := c.SessionID
	reset := false
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/quit":
			fmt.Println("Bye!")
			return nil
		case "/reset":
			sessionID = ""
			reset = true
			fmt.Println("Next message starts a new session.")
			continue
		}

		frame := Frame{
			Type:         TypeChat,
			RequestID:    fmt.Sprintf("req_%d", time.Now().UnixNano()),
			ChatbotID:    c.ChatbotID,
			SessionID:    sessionID,
			Message:      input,
			ResetSession: reset,
		}
		if err := conn.WriteJSON(frame); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		reset = false

		select {
		case <-interrupt:
			fmt.Println("\nInterrupted")
			return nil
		case reply, ok := <-replies:
			if !ok {
				return errors.New("connection closed")
			}
			if reply.Type == TypeError {
				fmt.Printf("! %s\n", reply.Error)
				continue
			}
			sessionID = reply.SessionID
			fmt.Printf("%s\n  (%d tokens, $%.5f, %.2fs, %s)\n", reply.Message, reply.Tokens, reply.Cost, reply.ResponseTime, reply.SessionID)
		}
	}
}

func readFrames(conn *websocket.Conn, out chan<- Frame) {
	defer close(out)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("Read error: %v", err)
			}
			return
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Printf("Unmarshal error: %v", err)
			continue
		}
		out <- frame
	}
}

func main() {
	log.SetFlags(log.Ltime)

	parser := flags.NewParser(&Options{}, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
