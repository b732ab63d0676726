package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vedantwpatil/cursor-bridge/internal/logging"
)

var log = logging.L("bridge")

// Handler runs a parameterless command and returns a JSON-encodable result.
type Handler func(ctx context.Context) (any, error)

// Request is one invocation sent by the frontend.
type Request struct {
	ID      string `json:"id"`
	Command string `json:"command"`
}

// Response carries either Result or Error, never both.
type Response struct {
	ID      string          `json:"id"`
	Command string          `json:"command"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// OK reports whether the command succeeded.
func (r Response) OK() bool { return r.Error == "" }

// Registry maps command names to handlers. Commands are registered while
// wiring the application and only read afterwards.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds name to h. It panics on a nil handler or a name that is
// already taken.
func (r *Registry) Register(name string, h Handler) {
	if h == nil {
		panic("bridge: nil handler for " + name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.handlers[name]; dup {
		panic("bridge: duplicate command " + name)
	}
	r.handlers[name] = h
}

func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Commands returns the registered command names in sorted order.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the command named by req. Failures are flattened to their
// message; the message is never empty.
func (r *Registry) Invoke(ctx context.Context, req Request) Response {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	resp := Response{ID: req.ID, Command: req.Command}

	h, ok := r.Lookup(req.Command)
	if !ok {
		resp.Error = fmt.Sprintf("unknown command: %s", req.Command)
		log.Warn("invoke rejected", logging.KeyRequestID, req.ID, logging.KeyCommand, req.Command, logging.KeyError, resp.Error)
		return resp
	}

	start := time.Now()
	result, err := h(ctx)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		resp.Error = err.Error()
		if resp.Error == "" {
			resp.Error = fmt.Sprintf("command %s failed", req.Command)
		}
		log.Warn("invoke failed",
			logging.KeyRequestID, req.ID,
			logging.KeyCommand, req.Command,
			logging.KeyDurationMs, elapsed,
			logging.KeyError, resp.Error)
		return resp
	}

	data, err := json.Marshal(result)
	if err != nil {
		resp.Error = fmt.Sprintf("failed to encode %s result: %v", req.Command, err)
		log.Error("invoke encode failed", logging.KeyRequestID, req.ID, logging.KeyCommand, req.Command, logging.KeyError, err)
		return resp
	}
	resp.Result = data

	log.Debug("invoke", logging.KeyRequestID, req.ID, logging.KeyCommand, req.Command, logging.KeyDurationMs, elapsed)
	return resp
}
