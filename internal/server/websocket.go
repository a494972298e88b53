package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/omr/internal/engine"
	"github.com/MeKo-Tech/omr/internal/metrics"
	"github.com/MeKo-Tech/omr/internal/template"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketRequest is a client message. "init" binds the session to the
// layout in Template; "recognize" and "recognize_second" run the engine.
type WebSocketRequest struct {
	Type     string              `json:"type"`
	Template json.RawMessage     `json:"template,omitempty"`
	TaskID   string              `json:"task_id,omitempty"`
	Images   []string            `json:"images,omitempty"`
	Second   *engine.SecondInput `json:"second,omitempty"`
}

// WebSocketResponse is a server message.
type WebSocketResponse struct {
	Type      string         `json:"type"` // "ready", "result", "error"
	SessionID string         `json:"session_id"`
	TaskID    string         `json:"task_id,omitempty"`
	Result    *engine.Output `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorType string         `json:"error_type,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// session is the state of one connection.
type session struct {
	id     string
	engine Recognizer
	conn   WebSocketConnWriter
}

// websocketHandler upgrades the connection and serves one session.
func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	sess := &session{id: uuid.NewString(), engine: s.engine, conn: conn}
	slog.Info("WebSocket session opened", "session_id", sess.id, "remote_addr", r.RemoteAddr)
	s.serveSession(r.Context(), conn, sess)
	slog.Info("WebSocket session closed", "session_id", sess.id)
}

func (s *Server) serveSession(ctx context.Context, conn *websocket.Conn, sess *session) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket read failed", "session_id", sess.id, "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		if messageType == websocket.TextMessage {
			s.handleMessage(ctx, sess, data)
		}
	}
}

// handleMessage answers one client message. Replies are written in order,
// so a client may pipeline requests.
func (s *Server) handleMessage(ctx context.Context, sess *session, data []byte) {
	var req WebSocketRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendError(sess, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	switch req.Type {
	case "init":
		s.initSession(sess, req)
	case "recognize":
		s.recognizeSession(ctx, sess, req)
	case "recognize_second":
		s.secondSession(ctx, sess, req)
	default:
		s.sendError(sess, req.TaskID, "invalid_request", "Unsupported message type: "+req.Type)
	}
}

func (s *Server) initSession(sess *session, req WebSocketRequest) {
	if len(req.Template) == 0 {
		s.sendError(sess, "", "invalid_request", "init requires a template")
		return
	}
	if s.layouts == nil {
		s.sendError(sess, "", "invalid_request", "template uploads are disabled")
		return
	}
	rec, err := s.layouts(req.Template, template.FormatJSON)
	if err != nil {
		s.sendError(sess, "", "invalid_template", err.Error())
		return
	}
	sess.engine = rec
	s.send(sess, WebSocketResponse{Type: "ready"})
}

func (s *Server) recognizeSession(ctx context.Context, sess *session, req WebSocketRequest) {
	if sess.engine == nil {
		s.sendError(sess, req.TaskID, "no_template", "send an init message first")
		return
	}
	in := engine.Input{TaskID: taskID(req.TaskID)}
	for i, b64 := range req.Images {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			s.sendError(sess, in.TaskID, "invalid_request", fmt.Sprintf("image %d is not valid base64", i))
			return
		}
		in.Sources = append(in.Sources, engine.Source{Name: fmt.Sprintf("image_%d", i), Data: data})
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	out, err := sess.engine.Recognize(ctx, in)
	if err != nil {
		metrics.ObserveFailure("websocket")
		s.sendError(sess, in.TaskID, "processing_error", err.Error())
		return
	}
	metrics.ObserveOutput("websocket", out, time.Since(start))
	s.send(sess, WebSocketResponse{Type: "result", TaskID: out.TaskID, Result: out})
}

func (s *Server) secondSession(ctx context.Context, sess *session, req WebSocketRequest) {
	if sess.engine == nil {
		s.sendError(sess, req.TaskID, "no_template", "send an init message first")
		return
	}
	if req.Second == nil {
		s.sendError(sess, req.TaskID, "invalid_request", "recognize_second requires a second payload")
		return
	}
	in := *req.Second
	in.TaskID = taskID(in.TaskID)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	out, err := sess.engine.RecognizeSecond(ctx, in)
	if err != nil {
		metrics.ObserveFailure("websocket")
		s.sendError(sess, in.TaskID, "processing_error", err.Error())
		return
	}
	metrics.ObserveOutput("websocket", out, time.Since(start))
	s.send(sess, WebSocketResponse{Type: "result", TaskID: out.TaskID, Result: out})
}

// send writes a response message over WebSocket.
func (s *Server) send(sess *session, resp WebSocketResponse) {
	resp.SessionID = sess.id
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "session_id", sess.id, "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

func (s *Server) sendError(sess *session, taskID, errorType, message string) {
	s.send(sess, WebSocketResponse{Type: "error", TaskID: taskID, Error: message, ErrorType: errorType})
}
