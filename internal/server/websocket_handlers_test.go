package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
	"github.com/MeKo-Tech/zbargo/internal/testutil"
)

// MockWebSocketConn records written messages.
type MockWebSocketConn struct {
	messages [][]byte
	err      error
}

func (m *MockWebSocketConn) WriteMessage(_ int, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, data)
	return nil
}

func dialStream(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/scan/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, messageType int, data []byte) StreamResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	require.NoError(t, conn.WriteMessage(messageType, data))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var resp StreamResponse
	require.NoError(t, json.Unmarshal(msg, &resp), string(msg))
	return resp
}

func TestStreamHandler_CachedFrames(t *testing.T) {
	s := newTestServer(t, Config{})
	conn := dialStream(t, s)
	frame := barcodePNG(t, symbol.EAN8, "96385074")

	first := roundTrip(t, conn, websocket.BinaryMessage, frame)
	assert.Equal(t, "frame", first.Type)
	assert.Equal(t, 0, first.Sequence)
	assert.Empty(t, first.Symbols, "first sighting is unverified")

	second := roundTrip(t, conn, websocket.BinaryMessage, frame)
	require.Len(t, second.New, 1)
	assert.Equal(t, "96385074", second.New[0].Data)
	assert.Equal(t, 0, second.New[0].Count)
	assert.Equal(t, 1, second.Sequence)

	third := roundTrip(t, conn, websocket.BinaryMessage, frame)
	require.Len(t, third.Symbols, 1)
	assert.Equal(t, 1, third.Symbols[0].Count)
	assert.Empty(t, third.New)

	// Reset starts a fresh cache.
	ack := roundTrip(t, conn, websocket.TextMessage, []byte(`{"type":"reset"}`))
	assert.Equal(t, "ack", ack.Type)
	assert.Equal(t, 0, ack.Sequence)
	assert.Empty(t, roundTrip(t, conn, websocket.BinaryMessage, frame).Symbols)
}

func TestStreamHandler_FrameSequence(t *testing.T) {
	s := newTestServer(t, Config{})
	conn := dialStream(t, s)

	frame := testutil.Gray(t, testutil.MustRender(t, testutil.DefaultCode(symbol.EAN8, "96385074")))
	frame.Sequence = 42
	var buf bytes.Buffer
	require.NoError(t, raster.WriteFrame(&buf, frame))

	resp := roundTrip(t, conn, websocket.BinaryMessage, buf.Bytes())
	assert.Equal(t, "frame", resp.Type)
	assert.Equal(t, 42, resp.Sequence)
	assert.Equal(t, frame.Width, resp.Width)
}

func TestStreamHandler_Control(t *testing.T) {
	s := newTestServer(t, Config{})
	conn := dialStream(t, s)
	frame := barcodePNG(t, symbol.EAN8, "96385074")

	ack := roundTrip(t, conn, websocket.TextMessage, []byte(`{"type":"config","settings":["ean8.disable"],"cache_window":5}`))
	assert.Equal(t, "ack", ack.Type)

	for range 3 {
		resp := roundTrip(t, conn, websocket.BinaryMessage, frame)
		assert.Empty(t, resp.Symbols)
	}

	// Stream settings do not leak into the shared scanner.
	assert.True(t, s.scanner.Config().Enabled(symbol.EAN8))

	bad := roundTrip(t, conn, websocket.TextMessage, []byte(`{"type":"config","settings":["ean8.nonsense"]}`))
	assert.Equal(t, "error", bad.Type)
	assert.Equal(t, CodeInvalidRequest, bad.ErrorCode)

	unknown := roundTrip(t, conn, websocket.TextMessage, []byte(`{"type":"dance"}`))
	assert.Equal(t, "error", unknown.Type)
	assert.Contains(t, unknown.Error, "dance")

	garbled := roundTrip(t, conn, websocket.TextMessage, []byte(`{not json`))
	assert.Equal(t, CodeInvalidRequest, garbled.ErrorCode)
}

func TestStreamHandler_BadFrame(t *testing.T) {
	s := newTestServer(t, Config{})
	conn := dialStream(t, s)

	resp := roundTrip(t, conn, websocket.BinaryMessage, []byte("garbage"))
	assert.Equal(t, "error", resp.Type)
	assert.Equal(t, CodeUnsupported, resp.ErrorCode)
}

func TestSendStreamResponse(t *testing.T) {
	s := &Server{}
	conn := &MockWebSocketConn{}

	s.sendStreamResponse(conn, StreamResponse{Type: "ack", Sequence: 3})
	require.Len(t, conn.messages, 1)

	var got StreamResponse
	require.NoError(t, json.Unmarshal(conn.messages[0], &got))
	assert.Equal(t, StreamResponse{Type: "ack", Sequence: 3}, got)

	conn.err = errors.New("closed")
	s.sendStreamResponse(conn, StreamResponse{Type: "ack"})
	assert.Len(t, conn.messages, 1)
}
