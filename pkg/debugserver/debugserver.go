// Package debugserver is the optional, JWT-gated WebSocket introspection
// endpoint: an operator connects, and the server registers itself as an
// ordinary client through pkg/registry, subscribes to every event kind,
// and streams whatever arrives as JSON. It is a pure spectator — it never
// special-cases the core, never submits commands, and a slow or absent
// operator only ever causes its own client's ring to drop events (spec
// §4.3's normal drop path), never backpressure on the engine.
//
// Grounded on the teacher's pkg/websocket (hub + Client + ServeWS):
// upgrader construction, write/read deadlines, and the
// register-then-pump-in-a-goroutine shape, generalized from "relay
// arbitrary JSON messages between peers" to "relay this one client's
// event stream, read-only".
package debugserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/odin-media/playercore/internal/auth"
	"github.com/odin-media/playercore/pkg/client"
	"github.com/odin-media/playercore/pkg/event"
	"github.com/odin-media/playercore/pkg/registry"
)

const (
	writeWait      = 10 * time.Second
	waitPollPeriod = 2 * time.Second
)

// Logger is the minimal structured-logging contract the debug server
// needs.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server serves the debug WebSocket endpoint.
type Server struct {
	addr    string
	jwt     *auth.JWTManager
	reg     *registry.Registry
	logger  Logger
	httpSrv *http.Server
}

// New builds a debug server. jwt must be non-nil: an unauthenticated
// introspection endpoint would let any local process observe every
// client's traffic.
func New(addr string, jwt *auth.JWTManager, reg *registry.Registry, logger Logger) *Server {
	if logger == nil {
		logger = nopLogger{}
	}
	s := &Server{addr: addr, jwt: jwt, reg: reg, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/events", s.handleEvents)
	s.httpSrv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// ListenAndServe blocks serving the debug endpoint until the listener
// errors or Shutdown is called.
func (s *Server) ListenAndServe() error {
	return s.httpSrv.ListenAndServe()
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() error {
	return s.httpSrv.Close()
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	claims, err := s.jwt.Authenticate(r)
	if err != nil {
		s.logger.Printf("debugserver: rejecting connection from %s: %v", r.RemoteAddr, err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("debugserver: upgrade error: %v", err)
		return
	}

	h, status := s.reg.NewClient("debug", claims.Subject)
	if status != event.StatusOK {
		s.logger.Printf("debugserver: could not register spectator client: %v", status)
		conn.Close()
		return
	}
	h.RequestEvent(event.Tick, true) // a spectator wants everything, including Tick

	s.logger.Printf("debugserver: %s attached as client %q", claims.Subject, h.Name())
	go s.pump(conn, h)
}

// wireEvent is the JSON-friendly rendering of an event.Record.
type wireEvent struct {
	InReplyTo uint64 `json:"in_reply_to"`
	Kind      string `json:"kind"`
	Err       int32  `json:"err,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

func (s *Server) pump(conn *websocket.Conn, h *client.Handle) {
	defer conn.Close()
	defer h.Destroy()

	for {
		rec := h.Wait(waitPollPeriod)
		if rec.Kind == event.None {
			continue
		}
		msg := wireEvent{
			InReplyTo: rec.InReplyTo,
			Kind:      rec.Kind.String(),
			Err:       int32(rec.Err),
			Payload:   rec.Payload,
		}
		body, err := json.Marshal(msg)
		if err != nil {
			s.logger.Printf("debugserver: marshal error: %v", err)
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			s.logger.Printf("debugserver: write error, detaching client %q: %v", h.Name(), err)
			return
		}
		if rec.Kind == event.Shutdown {
			return
		}
	}
}
