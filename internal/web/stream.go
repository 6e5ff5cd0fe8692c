package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/avk/trade_sim_desk/internal/domain"
)

const streamWriteTimeout = 10 * time.Second

// StreamMessage is the envelope pushed to websocket subscribers: per-tick
// state snapshots and host-originated news events.
type StreamMessage struct {
	Type    string `json:"type"` // "state" | "news"
	Payload any    `json:"payload"`
}

// StreamHub fans engine state out to websocket subscribers. It is a dumb
// broadcaster: no acknowledgments, no replay; a slow client just drops the
// connection. It also implements domain.NewsBroadcaster so host news rides
// the same pipe.
type StreamHub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu     sync.Mutex
	conns  map[*websocket.Conn]bool
	closed bool
}

func NewStreamHub(logger *zap.Logger) *StreamHub {
	return &StreamHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The rendering client may be served from another origin in dev.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
		conns:  make(map[*websocket.Conn]bool),
	}
}

// HandleWS upgrades the request and keeps the connection registered until
// the client goes away.
func (h *StreamHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.conns[conn] = true
	h.mu.Unlock()

	// Drain (and discard) client frames so pings and close frames are
	// processed; the stream is one-way.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *StreamHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

// BroadcastState pushes a state snapshot to every subscriber.
func (h *StreamHub) BroadcastState(snapshot any) {
	h.broadcast(StreamMessage{Type: "state", Payload: snapshot})
}

// BroadcastNews implements domain.NewsBroadcaster.
func (h *StreamHub) BroadcastNews(news domain.MarketNews) {
	h.broadcast(StreamMessage{Type: "news", Payload: news})
}

func (h *StreamHub) broadcast(msg StreamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal stream message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

// Close drops every subscriber. New connections are refused afterwards.
func (h *StreamHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.conns {
		conn.Close()
	}
	h.conns = make(map[*websocket.Conn]bool)
}
