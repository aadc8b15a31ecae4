// Package gateway implements the UI Gateway (C13): a WebSocket façade that
// streams agent events to connected clients and accepts user ingress
// (user_message, user_override, session_command).
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nexus-orchestrator/core/internal/agent"
	"github.com/nexus-orchestrator/core/pkg/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The gateway is a local orchestration control surface, not a public
	// web endpoint; same-origin checks are the caller's proxy's job.
	CheckOrigin: func(*http.Request) bool { return true },
}

// IngressHandler applies one ingress event to the running system. Satisfied
// by a thin adapter over internal/multiagent's Orchestrator + StateManager
// + internal/sessions' Manager, kept here as a narrow interface so this
// package never imports either directly.
type IngressHandler interface {
	UserMessage(agentID, content string) error
	UserOverride(agentID, newProvider, newModel string) error
	SessionCommand(command, project, session string) error
}

// Ingress is one client->server event (§6 "Process-wide control surface").
type Ingress struct {
	Type    string `json:"type"` // user_message | user_override | session_command
	AgentID string `json:"agent_id,omitempty"`
	Content string `json:"content,omitempty"`

	NewProvider string `json:"new_provider,omitempty"`
	NewModel    string `json:"new_model,omitempty"`

	Command string `json:"command,omitempty"` // load_session | save_session
	Project string `json:"project,omitempty"`
	Session string `json:"session,omitempty"`
}

// Gateway is C13: Emit pushes agent events to every connected client
// (non-blocking, drop-on-slow-consumer via a per-client BackpressureSink);
// ServeHTTP upgrades a connection and relays its ingress events to Handler.
type Gateway struct {
	Handler IngressHandler
	Logger  *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	sink *agent.BackpressureSink
}

// New builds a Gateway. handler may be nil in tests that only exercise
// Emit/client bookkeeping.
func New(handler IngressHandler, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{Handler: handler, Logger: logger, clients: make(map[*client]struct{})}
}

// Emit implements internal/agent.EventSink: fan the event out to every
// connected client's own backpressure lane (§5: "Non-blocking push to all
// clients; drop-on-slow-consumer with per-client bounded queue depth 256").
func (g *Gateway) Emit(ctx context.Context, e models.AgentEvent) {
	g.mu.Lock()
	clients := make([]*client, 0, len(g.clients))
	for c := range g.clients {
		clients = append(clients, c)
	}
	g.mu.Unlock()

	for _, c := range clients {
		c.sink.Emit(ctx, e)
	}
}

// ServeHTTP upgrades the connection to a WebSocket, registers a per-client
// event lane, and relays the client's ingress events until it disconnects.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.Logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sink, events := agent.NewBackpressureSink(agent.DefaultBackpressureConfig())
	c := &client{conn: conn, sink: sink}

	g.mu.Lock()
	g.clients[c] = struct{}{}
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.clients, c)
		g.mu.Unlock()
		sink.Close()
	}()

	go g.writeLoop(conn, events)
	g.readLoop(conn)
}

func (g *Gateway) writeLoop(conn *websocket.Conn, events <-chan models.AgentEvent) {
	for e := range events {
		if err := conn.WriteJSON(e); err != nil {
			return
		}
	}
}

func (g *Gateway) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var in Ingress
		if err := json.Unmarshal(data, &in); err != nil {
			g.Logger.Warn("dropping malformed ingress event", "error", err)
			continue
		}
		if err := g.handle(in); err != nil {
			g.Logger.Warn("ingress event failed", "type", in.Type, "error", err)
		}
	}
}

func (g *Gateway) handle(in Ingress) error {
	if g.Handler == nil {
		return nil
	}
	switch in.Type {
	case "user_message":
		return g.Handler.UserMessage(in.AgentID, in.Content)
	case "user_override":
		return g.Handler.UserOverride(in.AgentID, in.NewProvider, in.NewModel)
	case "session_command":
		return g.Handler.SessionCommand(in.Command, in.Project, in.Session)
	default:
		return nil
	}
}
