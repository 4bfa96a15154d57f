package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/linesmerrill/civic-report-api/api"
	"github.com/linesmerrill/civic-report-api/notifier"
)

// EventReportsUpdated is sent to observers whenever the report collection changed
const EventReportsUpdated = "reports_updated"

const writeWait = 5 * time.Second

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ReportHub pushes change signals to connected websocket observers
type ReportHub struct {
	clients map[*websocket.Conn]string
	mutex   sync.Mutex
}

// NewReportHub creates an empty hub
func NewReportHub() *ReportHub {
	return &ReportHub{clients: make(map[*websocket.Conn]string)}
}

// Run forwards every coalesced signal from n to the connected observers until ctx is done
func (h *ReportHub) Run(ctx context.Context, n *notifier.Notifier) {
	ch, unsubscribe := n.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(EventReportsUpdated)
		}
	}
}

// HandleReportsWebSocket upgrades the request and keeps the observer registered until it disconnects
func (h *ReportHub) HandleReportsWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade error", "error", err)
		return
	}

	userID := ""
	if u, ok := api.UserFromContext(r.Context()); ok {
		userID = u.ID
	}

	h.mutex.Lock()
	h.clients[conn] = userID
	h.mutex.Unlock()
	zap.S().Debugw("observer connected", "user", userID)

	// observers only listen; reading drives close and ping handling
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
	h.remove(conn)
	zap.S().Debugw("observer disconnected", "user", userID)
}

// Len returns the number of connected observers
func (h *ReportHub) Len() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

func (h *ReportHub) broadcast(event string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, userID := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteJSON(map[string]interface{}{
			"event": event,
		})
		if err != nil {
			zap.S().Debugw("dropping observer", "user", userID, "error", err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

func (h *ReportHub) remove(conn *websocket.Conn) {
	h.mutex.Lock()
	delete(h.clients, conn)
	h.mutex.Unlock()
	conn.Close()
}

func (h *ReportHub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.clients {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		delete(h.clients, conn)
	}
}
