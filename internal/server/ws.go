package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/airpointer/internal/app"
	"github.com/ayusman/airpointer/internal/detector"
	"github.com/ayusman/airpointer/internal/log"
)

// DefaultBroadcastInterval is the landmark stream period (~15 FPS).
const DefaultBroadcastInterval = 66 * time.Millisecond

const writeTimeout = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// HandSource exposes the latest hand published by the control loop.
type HandSource interface {
	LatestHand() (detector.HandLandmarks, bool)
	State() app.State
}

// landmarksMessage is one frame of the landmark stream.
type landmarksMessage struct {
	State     string                   `json:"state"`
	Label     string                   `json:"label"`
	Hands     []detector.HandLandmarks `json:"hands"`
	Timestamp int64                    `json:"timestamp"`
}

// LandmarksHandler broadcasts the control loop's hand snapshot via WebSocket.
// It only reads the snapshot; detection stays in the control loop.
type LandmarksHandler struct {
	source   HandSource
	interval time.Duration
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	done     chan struct{}
	once     sync.Once
}

// NewLandmarksHandler creates a LandmarksHandler and starts its broadcaster.
func NewLandmarksHandler(source HandSource, interval time.Duration) *LandmarksHandler {
	if interval <= 0 {
		interval = DefaultBroadcastInterval
	}
	h := &LandmarksHandler{
		source:   source,
		interval: interval,
		clients:  make(map[*websocket.Conn]bool),
		done:     make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer h.remove(conn)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *LandmarksHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops broadcasting and disconnects all clients.
func (h *LandmarksHandler) Close() {
	h.once.Do(func() {
		close(h.done)
		h.mu.Lock()
		for conn := range h.clients {
			conn.Close()
			delete(h.clients, conn)
		}
		h.mu.Unlock()
	})
}

func (h *LandmarksHandler) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

func (h *LandmarksHandler) message() ([]byte, error) {
	state := h.source.State()
	msg := landmarksMessage{
		State:     state.String(),
		Label:     state.Label(),
		Hands:     []detector.HandLandmarks{},
		Timestamp: time.Now().UnixMilli(),
	}
	if hand, ok := h.source.LatestHand(); ok {
		msg.Hands = append(msg.Hands, hand)
	}
	return json.Marshal(msg)
}

// broadcast sends the latest snapshot to all connected clients.
func (h *LandmarksHandler) broadcast() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
		}

		if h.Clients() == 0 {
			continue
		}

		msg, err := h.message()
		if err != nil {
			log.Warn("failed to encode landmarks", "error", err)
			continue
		}

		var failed []*websocket.Conn
		h.mu.RLock()
		for conn := range h.clients {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				failed = append(failed, conn)
			}
		}
		h.mu.RUnlock()

		for _, conn := range failed {
			h.remove(conn)
			conn.Close()
		}
	}
}
