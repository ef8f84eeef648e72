package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xhad/newton/internal/logger"
	"github.com/xhad/newton/internal/models"
	"github.com/xhad/newton/pkg/extractor"
	"github.com/xhad/newton/pkg/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ErrSessionBusy is sent to a client that connects while another client
// holds the session.
var ErrSessionBusy = errors.New("another client is already connected")

// Message is sent from the server to the client.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

// Request is sent from the client to the server. Data carries a base64 file
// body for upload requests.
type Request struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
	Data    string `json:"data,omitempty"`
}

type Config struct {
	Addr        string
	TurnTimeout time.Duration
}

type WSServer struct {
	config  Config
	session *session.Session

	mu        sync.Mutex
	connected atomic.Bool
}

func NewWSServer(config Config, sess *session.Session) *WSServer {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	return &WSServer{
		config:  config,
		session: sess,
	}
}

func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *WSServer) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.config.Addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info.Printf("Starting WebSocket server on %s", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	if !s.connected.CompareAndSwap(false, true) {
		sendMessage(conn, Message{Type: "error", Content: ErrSessionBusy.Error()})
		return
	}
	defer s.connected.Store(false)

	s.greet(conn)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn.Printf("Error reading message: %v", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			sendMessage(conn, Message{Type: "error", Content: fmt.Sprintf("invalid message: %v", err)})
			continue
		}

		s.handleRequest(r.Context(), conn, req)
	}
}

// greet replays the conversation so a reconnecting client sees prior turns.
func (s *WSServer) greet(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sendMessage(conn, Message{Type: "history", Data: s.session.Conversation().Messages()})
	if file := s.session.Upload(); file != nil {
		sendMessage(conn, attachedMessage(file))
	}
}

func (s *WSServer) handleRequest(ctx context.Context, conn *websocket.Conn, req Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &wsRenderer{conn: conn}

	switch req.Type {
	case "chat":
		if s.config.TurnTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.config.TurnTimeout)
			defer cancel()
		}
		if _, err := s.session.Submit(ctx, req.Content, r); err != nil {
			r.Error(err)
		}
	case "clear":
		if err := s.session.Clear(r); err != nil {
			r.Error(err)
		}
	case "upload":
		file, err := decodeUpload(req)
		if err != nil {
			r.Error(err)
			return
		}
		s.session.Attach(file)
		sendMessage(conn, attachedMessage(file))
	case "detach":
		s.session.Detach()
		sendMessage(conn, Message{Type: "detached"})
	default:
		r.Error(fmt.Errorf("unknown message type %q", req.Type))
	}
}

func decodeUpload(req Request) (*models.UploadedFile, error) {
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return nil, fmt.Errorf("decode upload %s: %w", req.Name, err)
	}
	return extractor.NewUpload(req.Name, data)
}

func attachedMessage(file *models.UploadedFile) Message {
	return Message{
		Type:    "attached",
		Content: file.Name,
		Data:    map[string]string{"kind": string(file.Kind)},
	}
}

func sendMessage(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		logger.Warn.Printf("Error sending message: %v", err)
	}
}
