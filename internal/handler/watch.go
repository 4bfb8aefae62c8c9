package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vkuksa/supermarkets/internal/model"
	"github.com/vkuksa/supermarkets/internal/session"
	"github.com/vkuksa/supermarkets/internal/store"
)

// WebSocket configuration constants.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WatchHandler streams supermarket change events to WebSocket clients.
// Each client receives the events of its own user's store.
type WatchHandler struct {
	upgrader websocket.Upgrader
	stores   *store.Registry
	logger   *zap.Logger
	mu       sync.RWMutex
	clients  map[*websocket.Conn]context.CancelFunc
}

// NewWatchHandler creates a new WatchHandler instance.
func NewWatchHandler(stores *store.Registry, logger *zap.Logger) *WatchHandler {
	return &WatchHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		stores:  stores,
		logger:  logger,
		clients: make(map[*websocket.Conn]context.CancelFunc),
	}
}

// RegisterRoutes registers the watch route with the router.
func (h *WatchHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/supermarkets/watch", h.HandleWatch).Methods(http.MethodGet)
}

// HandleWatch upgrades the connection and streams change events until the
// client disconnects.
//
//nolint:contextcheck // intentional: WebSocket connections outlive the HTTP request context
func (h *WatchHandler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	user, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	events, unsubscribe := h.stores.ForUser(user.ID).Subscribe()

	// Use background context instead of request context because the HTTP
	// request context gets canceled when the handler returns, but WebSocket
	// connections need to persist beyond the initial HTTP upgrade.
	ctx, cancel := context.WithCancel(context.Background())

	h.mu.Lock()
	h.clients[conn] = cancel
	h.mu.Unlock()

	h.logger.Info("watch client connected",
		zap.String("user_id", user.ID),
		zap.String("remote_addr", conn.RemoteAddr().String()),
	)

	go h.writePump(ctx, conn, events, unsubscribe)
	go h.readPump(ctx, conn, cancel)
}

// readPump drains incoming messages so control frames are processed, and
// tears the connection down on read errors.
func (h *WatchHandler) readPump(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	defer func() {
		cancel()
		h.removeClient(conn)
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.logger.Error("failed to set read deadline", zap.Error(err))
		return
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Warn("websocket read error", zap.Error(err))
				}
				return
			}
		}
	}
}

// writePump forwards change events to the connection and keeps it alive
// with periodic pings.
func (h *WatchHandler) writePump(ctx context.Context, conn *websocket.Conn, events <-chan model.ChangeEvent, unsubscribe func()) {
	pingTicker := time.NewTicker(pingPeriod)

	defer func() {
		pingTicker.Stop()
		unsubscribe()
	}()

	for {
		select {
		case <-ctx.Done():
			h.sendCloseMessage(conn)
			return
		case ev, ok := <-events:
			if !ok {
				h.sendCloseMessage(conn)
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("failed to send change event", zap.Error(err))
				return
			}
		case <-pingTicker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Debug("failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// sendCloseMessage sends a close frame, best effort.
func (h *WatchHandler) sendCloseMessage(conn *websocket.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
}

// removeClient removes a client from the tracked set.
func (h *WatchHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// CloseAllConnections cancels all client contexts during shutdown.
func (h *WatchHandler) CloseAllConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, cancel := range h.clients {
		cancel()
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
	}

	h.clients = make(map[*websocket.Conn]context.CancelFunc)
}
