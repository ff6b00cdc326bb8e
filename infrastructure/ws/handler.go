package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"marketplace-chat/auth"
	"marketplace-chat/domain/chat"
	"marketplace-chat/errors"
	"marketplace-chat/services"

	"github.com/gorilla/websocket"
)

// Handler upgrades authenticated requests to hub connections and keeps track of
// them so they can all be closed on shutdown.
type Handler struct {
	log      *slog.Logger
	hub      services.IHubService
	issuer   *auth.TokenIssuer
	opts     Options
	upgrader websocket.Upgrader

	mu          sync.Mutex
	connections map[chat.ConnectionID]*Connection
	closing     bool
	wg          sync.WaitGroup
}

func NewHandler(log *slog.Logger, hub services.IHubService, issuer *auth.TokenIssuer, opts Options) *Handler {
	policy := newOriginPolicy(log, opts.AllowedOrigins)
	return &Handler{
		log:    log,
		hub:    hub,
		issuer: issuer,
		opts:   opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if policy.check(r) {
					return true
				}
				log.Warn("Blocked websocket connection from disallowed origin", "origin", r.Header.Get("Origin"))
				return false
			},
		},
		connections: make(map[chat.ConnectionID]*Connection),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := h.issuer.Authenticate(r)
	if err != nil {
		h.log.Debug("Handshake rejected", "remote_addr", r.RemoteAddr, "error", err)
		writeJSONError(w, http.StatusUnauthorized, errors.ErrUnauthorized.Error())
		return
	}
	if _, ok := chat.ParseIdentifier(claims.UserID); !ok {
		h.log.Warn("Handshake rejected, token carries no usable identity", "remote_addr", r.RemoteAddr)
		writeJSONError(w, http.StatusUnauthorized, errors.ErrUnauthorized.Error())
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied to the client
		h.log.Debug("Websocket upgrade failed", "error", err)
		return
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	conn := newConnection(h.log, ws, claims.UserID, expiresAt, h.opts)
	if !h.track(conn) {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = ws.Close()
		return
	}
	defer h.untrack(conn)

	if err := h.hub.OnConnected(conn); err != nil {
		h.log.Warn("Connection refused by hub", "error", err)
		conn.Close()
		conn.writePump()
		return
	}
	defer h.hub.OnDisconnected(conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		conn.writePump()
	}()
	conn.readPump(ctx, h.opts.MaxMessageSize, h.hub)
	<-writerDone
}

func (h *Handler) track(conn *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.connections[conn.ID()] = conn
	h.wg.Add(1)
	return true
}

func (h *Handler) untrack(conn *Connection) {
	h.mu.Lock()
	delete(h.connections, conn.ID())
	h.mu.Unlock()
	h.wg.Done()
}

// Shutdown refuses new connections, closes the live ones and waits for them to drain.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	live := make([]*Connection, 0, len(h.connections))
	for _, conn := range h.connections {
		live = append(live, conn)
	}
	h.mu.Unlock()

	h.log.Info("Closing hub connections", "connections", len(live))
	for _, conn := range live {
		conn.Close()
	}

	drained := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
