package bridge

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedantwpatil/cursor-bridge/internal/tracking"
)

const testOrigin = "http://localhost:5173"

func newTestServer(t *testing.T, f tracking.Facility) *httptest.Server {
	t.Helper()
	s := NewServer(ServerConfig{AllowedOrigins: []string{testOrigin}}, newCursorRegistry(f))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, origin string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, nil)
	require.NoError(t, err)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, frame string) Response {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestHTTPInvokeCursorPosition(t *testing.T) {
	ts := newTestServer(t, &stubFacility{x: 123, y: 456})

	resp, body := post(t, ts.URL+"/invoke/cursor_position", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
	assert.JSONEq(t, `{"x":123,"y":456}`, body)
}

func TestHTTPInvokeFailureIsString(t *testing.T) {
	ts := newTestServer(t, &stubFacility{err: &tracking.QueryError{Kind: tracking.KindUnsupported, Msg: "wayland session without an X server"}})

	resp, body := post(t, ts.URL+"/invoke/cursor_position", "")

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var msg string
	require.NoError(t, json.Unmarshal([]byte(body), &msg))
	assert.Equal(t, "cursor position: wayland session without an X server", msg)
}

func TestHTTPInvokeUnknownCommand(t *testing.T) {
	ts := newTestServer(t, &stubFacility{})

	resp, body := post(t, ts.URL+"/invoke/screen_size", "")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `"unknown command: screen_size"`, body)
}

func TestHTTPInvokeRequiresPost(t *testing.T) {
	ts := newTestServer(t, &stubFacility{})

	resp, err := http.Get(ts.URL + "/invoke/cursor_position")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHTTPOriginCheck(t *testing.T) {
	ts := newTestServer(t, &stubFacility{x: 1, y: 1})

	resp, _ := post(t, ts.URL+"/invoke/cursor_position", testOrigin)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))

	resp, _ = post(t, ts.URL+"/invoke/cursor_position", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHTTPPreflight(t *testing.T) {
	ts := newTestServer(t, &stubFacility{})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/invoke/cursor_position", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", testOrigin)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestHTTPCommands(t *testing.T) {
	ts := newTestServer(t, &stubFacility{})

	resp, err := http.Get(ts.URL + "/commands")
	require.NoError(t, err)
	defer resp.Body.Close()

	var names []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	assert.Equal(t, []string{CommandCursorPosition}, names)
}

func TestWebSocketInvoke(t *testing.T) {
	f := &stubFacility{x: 10, y: 20}
	ts := newTestServer(t, f)
	conn := dialWS(t, ts)

	resp := roundTrip(t, conn, `{"id":"a","command":"cursor_position"}`)
	require.True(t, resp.OK(), resp.Error)
	assert.Equal(t, "a", resp.ID)
	assert.JSONEq(t, `{"x":10,"y":20}`, string(resp.Result))

	f.moveTo(15, 18)
	resp = roundTrip(t, conn, `{"id":"b","command":"cursor_position"}`)
	require.True(t, resp.OK(), resp.Error)
	assert.JSONEq(t, `{"x":15,"y":18}`, string(resp.Result))
}

func TestWebSocketErrors(t *testing.T) {
	ts := newTestServer(t, &stubFacility{err: &tracking.QueryError{Kind: tracking.KindUnavailable, Msg: "no active displays"}})
	conn := dialWS(t, ts)

	resp := roundTrip(t, conn, `{"id":"c","command":"cursor_position"}`)
	assert.Equal(t, "c", resp.ID)
	assert.Equal(t, "cursor position: no active displays", resp.Error)
	assert.Nil(t, resp.Result)

	resp = roundTrip(t, conn, `not json`)
	assert.Empty(t, resp.ID)
	assert.Contains(t, resp.Error, "malformed request")

	resp = roundTrip(t, conn, `{"id":"d"}`)
	assert.Equal(t, "d", resp.ID)
	assert.Contains(t, resp.Error, "missing command")

	resp = roundTrip(t, conn, `{"id":"e","command":"nope"}`)
	assert.Equal(t, "unknown command: nope", resp.Error)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	ts := newTestServer(t, &stubFacility{})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServerStartShutdown(t *testing.T) {
	s := NewServer(ServerConfig{Addr: "127.0.0.1:0"}, newCursorRegistry(&stubFacility{x: 3, y: 4}))
	require.NoError(t, s.Start())

	resp, body := post(t, "http://"+s.Addr()+"/invoke/cursor_position", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"x":3,"y":4}`, body)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+s.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	// Make sure the session is registered before shutting down.
	roundTrip(t, conn, `{"command":"cursor_position"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestWebSocketRefusedAfterShutdown(t *testing.T) {
	s := NewServer(ServerConfig{}, newCursorRegistry(&stubFacility{}))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	require.NoError(t, s.Shutdown(context.Background()))

	conn := dialWS(t, ts)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)

	s.connMu.Lock()
	defer s.connMu.Unlock()
	assert.Empty(t, s.conns)
}

func TestStartFailureCancelsServerContext(t *testing.T) {
	held, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer held.Close()

	s := NewServer(ServerConfig{Addr: held.Addr().String()}, NewRegistry())
	require.Error(t, s.Start())
	assert.Error(t, s.ctx.Err())
}

func TestNewServerAppliesReadHeaderTimeout(t *testing.T) {
	s := NewServer(ServerConfig{ReadHeaderTimeout: 3 * time.Second}, NewRegistry())
	assert.Equal(t, 3*time.Second, s.httpServer.ReadHeaderTimeout)
}
