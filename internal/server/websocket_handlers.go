package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/zbargo/internal/common"
	"github.com/MeKo-Tech/zbargo/internal/imagescanner"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
	"github.com/MeKo-Tech/zbargo/internal/utils"
)

const (
	streamReadTimeout = 60 * time.Second
	streamPingPeriod  = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// StreamControl is a text message adjusting a stream.
//
//	{"type": "config", "settings": ["ean13.disable", "i25.min-length=4"]}
//	{"type": "reset"}
type StreamControl struct {
	Type        string   `json:"type"`
	Settings    []string `json:"settings,omitempty"`
	CacheWindow int      `json:"cache_window,omitempty"`
}

// StreamResponse is sent for every frame, control message and error.
type StreamResponse struct {
	Type      string          `json:"type"` // "frame", "ack" or "error"
	Sequence  int             `json:"sequence"`
	Width     int             `json:"width,omitempty"`
	Height    int             `json:"height,omitempty"`
	Symbols   []symbol.Record `json:"symbols,omitempty"`
	New       []symbol.Record `json:"new,omitempty"`
	ElapsedMs float64         `json:"elapsed_ms,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorCode ErrorCode       `json:"error_code,omitempty"`
}

// WebSocketConnWriter is the subset of *websocket.Conn used for replies.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// stream is the per-connection state: its own scanner with caching on, so
// symbols are reported once and then tracked across frames.
type stream struct {
	scanner *imagescanner.Scanner
	frames  int
}

func (s *Server) newStream() *stream {
	sc := imagescanner.NewWithConfig(s.scanner.Config())
	if s.cacheWindow > 0 {
		sc.SetCacheWindow(s.cacheWindow)
	}
	sc.EnableCache(true)
	return &stream{scanner: sc}
}

// streamHandler upgrades to a websocket carrying binary frames: each message
// is an encoded image or a frame container.
func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()
	slog.Info("frame stream opened", "remote_addr", r.RemoteAddr)

	conn.SetReadLimit(s.maxUploadMB * 1024 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(streamPingPeriod)
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

	st := s.newStream()
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("frame stream error", "error", err)
			}
			break
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))

		switch messageType {
		case websocket.BinaryMessage:
			s.sendStreamResponse(conn, st.scanFrame(data))
		case websocket.TextMessage:
			s.sendStreamResponse(conn, st.control(s, data))
		}
	}
	slog.Info("frame stream closed", "remote_addr", r.RemoteAddr, "frames", st.frames)
}

func (st *stream) scanFrame(data []byte) StreamResponse {
	frame, _, err := utils.DecodeFrame(bufio.NewReader(bytes.NewReader(data)))
	if err != nil {
		scanRequestsTotal.WithLabelValues("stream", "error").Inc()
		return errorResponse(fmt.Errorf("failed to decode frame: %w", err))
	}
	seq := st.frames
	if frame.Sequence != 0 {
		seq = frame.Sequence
	}
	st.frames++

	timer := common.NewTimer()
	set, err := st.scanner.Scan(frame)
	elapsed := timer.Stop()
	if err != nil {
		scanRequestsTotal.WithLabelValues("stream", "error").Inc()
		return errorResponse(err)
	}

	resp := StreamResponse{
		Type:      "frame",
		Sequence:  seq,
		Width:     frame.Width,
		Height:    frame.Height,
		Symbols:   set.Records(),
		ElapsedMs: float64(elapsed) / float64(time.Millisecond),
	}
	fresh := set.Filter(func(sym *symbol.Symbol) bool { return sym.Count == 0 })
	resp.New = fresh.Records()
	recordScan("stream", elapsed, fresh)
	return resp
}

func (st *stream) control(s *Server, data []byte) StreamResponse {
	var msg StreamControl
	if err := json.Unmarshal(data, &msg); err != nil {
		return errorResponse(fmt.Errorf("%w: %v", errInvalidRequest, err))
	}
	switch msg.Type {
	case "config":
		if err := applySettings(st.scanner, msg.Settings); err != nil {
			return errorResponse(err)
		}
		if msg.CacheWindow > 0 {
			st.scanner.SetCacheWindow(msg.CacheWindow)
		}
	case "reset":
		*st = *s.newStream()
	default:
		return errorResponse(fmt.Errorf("%w: unsupported message type %q", errInvalidRequest, msg.Type))
	}
	return StreamResponse{Type: "ack", Sequence: st.frames}
}

func errorResponse(err error) StreamResponse {
	code, _ := classify(err)
	return StreamResponse{Type: "error", Error: err.Error(), ErrorCode: code}
}

// sendStreamResponse sends a response message over WebSocket.
func (s *Server) sendStreamResponse(conn WebSocketConnWriter, response StreamResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
