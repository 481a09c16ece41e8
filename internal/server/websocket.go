package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/wemo/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames; anything larger is a protocol error
	maxMessageSize = 512

	// Snapshots queued per client before it is considered too slow
	sendBuffer = 4
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// client is one WebSocket subscriber
type client struct {
	id         string
	remoteAddr string
	conn       *websocket.Conn
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// hub tracks subscribers and fans snapshots out to them
type hub struct {
	mu      sync.Mutex
	clients map[string]*client
	latest  func() Snapshot
	wg      *sync.WaitGroup
}

func newHub(latest func() Snapshot, wg *sync.WaitGroup) *hub {
	return &hub{
		clients: make(map[string]*client),
		latest:  latest,
		wg:      wg,
	}
}

// serveWS upgrades the request and streams snapshots until the peer leaves
func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := &client{
		id:         uuid.NewString(),
		remoteAddr: r.RemoteAddr,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
	}

	if data, err := json.Marshal(h.latest()); err == nil {
		c.send <- data
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	logging.LogConnection(c.remoteAddr, "websocket_opened", zap.String("client_id", c.id))

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()

	c.readPump()
	h.unregister(c)
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()

	c.close()
	if ok {
		logging.LogConnection(c.remoteAddr, "websocket_closed", zap.String("client_id", c.id))
	}
}

// broadcast queues snap for every client. Clients whose queue is full are
// dropped rather than allowed to stall the discovery loop.
func (h *hub) broadcast(snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		logging.Error("Failed to encode snapshot", zap.Error(err))
		return
	}

	h.mu.Lock()
	var slow []*client
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		logging.Warn("Dropping slow WebSocket client",
			zap.String("client_id", c.id),
			zap.String("remote_addr", c.remoteAddr),
		)
		h.unregister(c)
	}
}

// closeAll sends a going-away close frame to every client and disconnects it
func (h *hub) closeAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, c := range clients {
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		h.unregister(c)
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// readPump consumes control frames so pongs and close frames are processed
func (c *client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("WebSocket read error",
					zap.String("client_id", c.id),
					zap.Error(err),
				)
			}
			return
		}
	}
}

// writePump delivers queued snapshots and keeps the connection alive with pings
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
