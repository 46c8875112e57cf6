package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonxmitchell/ark-asa-shop-config-generator/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	hub    *Hub
	server *httptest.Server
	cancel context.CancelFunc
	done   chan error
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	hub := NewHub(testLogger(), opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()

	handler := NewHandler(hub, config.WebSocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		PongWait:        time.Second,
		PingPeriod:      500 * time.Millisecond,
	}, []string{"http://localhost:1421"}, testLogger())
	server := httptest.NewServer(handler)

	h := &harness{hub: hub, server: server, cancel: cancel, done: done}
	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
	})
	return h
}

func (h *harness) dial(t *testing.T, origin string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_ConnectionGreeting(t *testing.T) {
	h := newHarness(t, WithGreeting(func() interface{} {
		return map[string]bool{"licensed": true}
	}))
	conn := h.dial(t, "")

	msg := readMessage(t, conn)
	assert.Equal(t, TypeConnection, msg.Type)
	assert.Equal(t, map[string]interface{}{"licensed": true}, msg.Data)
	assert.False(t, msg.Timestamp.IsZero())
	assert.Eventually(t, func() bool { return h.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	h := newHarness(t)
	a := h.dial(t, "")
	b := h.dial(t, "http://localhost:1421")
	readMessage(t, a)
	readMessage(t, b)
	require.Eventually(t, func() bool { return h.hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	h.hub.Broadcast("export:complete", map[string]string{"file_path": "/tmp/ShopConfig.json"})

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		assert.Equal(t, "export:complete", msg.Type)
		assert.Equal(t, map[string]interface{}{"file_path": "/tmp/ShopConfig.json"}, msg.Data)
	}
}

func TestHub_HeartbeatKeepsClient(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "")
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"other"}`)))

	h.hub.Broadcast("license:state", map[string]bool{"licensed": false})
	assert.Equal(t, "license:state", readMessage(t, conn).Type)
	assert.Equal(t, 1, h.hub.ClientCount())
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "")
	readMessage(t, conn)
	require.Eventually(t, func() bool { return h.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return h.hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_RejectsForeignOrigin(t *testing.T) {
	h := newHarness(t)
	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	header := http.Header{"Origin": []string{"http://evil.example"}}

	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHub_StopClosesClients(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "")
	readMessage(t, conn)

	h.hub.Stop()
	select {
	case err := <-h.done:
		assert.NoError(t, err)
		h.done <- err
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	// Events after shutdown are dropped without blocking
	h.hub.Broadcast("config:autosave", nil)
	assert.Zero(t, h.hub.ClientCount())
}

func TestHub_RegisterAfterStop(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Stop()
	hub.Stop()
	client := NewClient(hub, nil, "", "", time.Second, time.Millisecond, testLogger())
	assert.False(t, hub.Register(client))
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:1421"})
	tests := []struct {
		name   string
		host   string
		origin string
		want   bool
	}{
		{"no origin", "127.0.0.1:1421", "", true},
		{"same host", "127.0.0.1:1421", "http://127.0.0.1:1421", true},
		{"allowed list", "127.0.0.1:1421", "http://localhost:1421", true},
		{"foreign", "127.0.0.1:1421", "http://evil.example", false},
		{"garbage", "127.0.0.1:1421", "::::", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, check(r))
		})
	}
}
