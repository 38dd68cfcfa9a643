package leaderboard

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is read-only and public.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveEvent is the message pushed to live feed subscribers.
type LiveEvent struct {
	Event string `json:"event"`
	Entry Entry  `json:"entry"`
}

type liveClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans accepted entries out to websocket subscribers.
type Hub struct {
	logger *log.Logger

	clients    map[*liveClient]bool
	broadcast  chan Entry
	register   chan *liveClient
	unregister chan *liveClient
	count      chan chan int
	started    chan struct{}
	stopped    chan struct{}
}

// NewHub creates a hub. Call Run before serving subscribers.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		logger:     logger,
		clients:    make(map[*liveClient]bool),
		broadcast:  make(chan Entry, 64),
		register:   make(chan *liveClient),
		unregister: make(chan *liveClient),
		count:      make(chan chan int),
		started:    make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled, closing
// every subscriber. Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	close(h.started)
	defer func() {
		for c := range h.clients {
			h.drop(c)
		}
		close(h.stopped)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = true
			h.logger.Debug("live subscriber joined", "clients", len(h.clients))

		case c := <-h.unregister:
			if h.clients[c] {
				h.drop(c)
				h.logger.Debug("live subscriber left", "clients", len(h.clients))
			}

		case e := <-h.broadcast:
			data, err := json.Marshal(LiveEvent{Event: "score", Entry: e})
			if err != nil {
				h.logger.Warn("cannot encode live event", "error", err)
				continue
			}
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// slow subscriber
					h.drop(c)
				}
			}

		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// Publish queues an entry for all subscribers. It never blocks the caller;
// entries are dropped when the hub is stopped or backed up.
func (h *Hub) Publish(e Entry) {
	select {
	case h.broadcast <- e:
	case <-h.stopped:
	default:
		h.logger.Warn("live feed backed up, dropping entry", "id", e.ID)
	}
}

// Clients returns the number of connected subscribers, or 0 when the hub
// is not running.
func (h *Hub) Clients() int {
	if !h.running() {
		return 0
	}
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.stopped:
		return 0
	}
}

// ServeWS upgrades the request and subscribes the connection to the feed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !h.running() {
		http.Error(w, "live feed is not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &liveClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case h.register <- c:
	case <-h.stopped:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// running reports whether Run has started and not yet returned.
func (h *Hub) running() bool {
	select {
	case <-h.started:
	default:
		return false
	}
	select {
	case <-h.stopped:
		return false
	default:
		return true
	}
}

func (h *Hub) drop(c *liveClient) {
	delete(h.clients, c)
	close(c.send)
}

// readPump only watches for the peer going away; subscribers never send.
func (c *liveClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopped:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("live subscriber error", "error", err)
			}
			return
		}
	}
}

func (c *liveClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
