package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vedantwpatil/cursor-bridge/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// ServerConfig holds the listener settings for the bridge.
type ServerConfig struct {
	Addr              string
	AllowedOrigins    []string
	ReadHeaderTimeout time.Duration
}

// Server exposes a Registry to the frontend over HTTP and WebSocket.
type Server struct {
	cfg      ServerConfig
	registry *Registry
	origins  map[string]bool
	upgrader websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener

	ctx    context.Context
	cancel context.CancelFunc

	connMu sync.Mutex
	conns  map[*websocket.Conn]struct{}
}

func NewServer(cfg ServerConfig, reg *Registry) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		registry: reg,
		origins:  make(map[string]bool, len(cfg.AllowedOrigins)),
		ctx:      ctx,
		cancel:   cancel,
		conns:    make(map[*websocket.Conn]struct{}),
	}
	for _, o := range cfg.AllowedOrigins {
		s.origins[o] = true
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originAllowed,
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s
}

// Handler returns the bridge routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/invoke/{command}", s.handleInvoke)
	mux.HandleFunc("/commands", s.handleCommands)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln

	log.Info("bridge listening", logging.KeyAddr, ln.Addr().String())
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("bridge server stopped", logging.KeyError, err)
		}
	}()
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.cfg.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests and closes open WebSocket sessions,
// which http.Server does not track after the upgrade. Sessions that finish
// upgrading after this point are refused by handleWS.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	err := s.httpServer.Shutdown(ctx)

	s.connMu.Lock()
	sessions := make([]*websocket.Conn, 0, len(s.conns))
	for conn := range s.conns {
		sessions = append(sessions, conn)
	}
	s.connMu.Unlock()

	for _, conn := range sessions {
		closeGoingAway(conn)
	}
	return err
}

func closeGoingAway(conn *websocket.Conn) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
		time.Now().Add(writeWait))
	conn.Close()
}

// originAllowed accepts requests without an Origin header (native callers)
// and requests from the configured frontend origins.
func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.origins[origin]
}

// allowCORS writes CORS headers and reports whether the request may proceed.
// Preflight requests are answered here.
func (s *Server) allowCORS(w http.ResponseWriter, r *http.Request) bool {
	if !s.originAllowed(r) {
		writeJSON(w, http.StatusForbidden, "origin not allowed")
		return false
	}
	if origin := r.Header.Get("Origin"); origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-Id")
		w.WriteHeader(http.StatusNoContent)
		return false
	}
	return true
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if !s.allowCORS(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name := r.PathValue("command")
	if _, ok := s.registry.Lookup(name); !ok {
		writeJSON(w, http.StatusNotFound, fmt.Sprintf("unknown command: %s", name))
		return
	}

	resp := s.registry.Invoke(r.Context(), Request{ID: r.Header.Get("X-Request-Id"), Command: name})
	w.Header().Set("X-Request-Id", resp.ID)
	if !resp.OK() {
		writeJSON(w, http.StatusInternalServerError, resp.Error)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(resp.Result)
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	if !s.allowCORS(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.registry.Commands())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Warn("websocket upgrade failed", logging.KeyError, err)
		return
	}

	if !s.track(conn) {
		closeGoingAway(conn)
		return
	}

	defer func() {
		s.connMu.Lock()
		delete(s.conns, conn)
		s.connMu.Unlock()
		conn.Close()
	}()

	s.serveConn(conn)
}

// track registers conn for Shutdown. It refuses once Shutdown has begun;
// the check and the insert share connMu with Shutdown's snapshot.
func (s *Server) track(conn *websocket.Conn) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

// serveConn answers request frames one at a time until the peer goes away.
func (s *Server) serveConn(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go keepAlive(conn, done)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read error", logging.KeyError, err)
			}
			return
		}

		resp := s.handleFrame(message)
		data, err := json.Marshal(resp)
		if err != nil {
			log.Error("failed to marshal response", logging.KeyError, err)
			return
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warn("websocket write error", logging.KeyError, err)
			return
		}
	}
}

func (s *Server) handleFrame(message []byte) Response {
	var req Request
	if err := json.Unmarshal(message, &req); err != nil {
		return Response{Error: fmt.Sprintf("malformed request: %v", err)}
	}
	if req.Command == "" {
		return Response{ID: req.ID, Error: "malformed request: missing command"}
	}
	return s.registry.Invoke(s.ctx, req)
}

// keepAlive pings the peer until done closes. WriteControl is safe to call
// alongside the reader's writes.
func keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("failed to write response", logging.KeyError, err)
	}
}
