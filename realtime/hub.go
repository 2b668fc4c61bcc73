// Package realtime pushes row changes from Postgres to the websocket clients
// watching the affected company.
package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/billbatista/acasinha-finance/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
)

// Change is one row-level change announced by the database triggers.
type Change struct {
	CompanyID  string `json:"company_id"`
	Collection string `json:"collection"`
	Op         string `json:"op"`
	ID         string `json:"id"`
}

type Client struct {
	companyID string
	conn      *websocket.Conn
	send      chan Change
	once      sync.Once
}

func (c *Client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub keeps the connected clients grouped by company.
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]map[*Client]struct{}
	sendBuffer  int
	writeWindow time.Duration
	upgrader    websocket.Upgrader
	log         *zap.Logger
}

func NewHub(sendBuffer int, writeWindow time.Duration, log *zap.Logger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 16
	}
	if writeWindow <= 0 {
		writeWindow = 10 * time.Second
	}
	return &Hub{
		clients:     make(map[string]map[*Client]struct{}),
		sendBuffer:  sendBuffer,
		writeWindow: writeWindow,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log.Named("realtime"),
	}
}

func (h *Hub) subscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.companyID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.companyID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c)
}

// remove expects h.mu to be held.
func (h *Hub) remove(c *Client) {
	set, ok := h.clients[c.companyID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.companyID)
	}
	c.close()
}

// Publish queues change for every client of its company. A client whose
// queue is full is disconnected.
func (h *Hub) Publish(change Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients[change.CompanyID] {
		select {
		case c.send <- change:
		default:
			h.log.Warn("dropping slow client", zap.String("company_id", c.companyID))
			h.remove(c)
		}
	}
}

// Clients reports how many connections watch companyID.
func (h *Hub) Clients(companyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[companyID])
}

// Close disconnects everyone.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for c := range set {
			h.remove(c)
		}
	}
}

// ServeWS upgrades the request and streams the company's changes until the
// peer goes away. It must run behind the tenant middleware.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	companyID, ok := middleware.GetCompanyID(r.Context())
	if !ok {
		http.Error(w, "no company", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("upgrade failed", zap.Error(err))
		return
	}

	c := &Client{
		companyID: companyID,
		conn:      conn,
		send:      make(chan Change, h.sendBuffer),
	}
	h.subscribe(c)

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop discards client messages; its only job is noticing when the
// connection dies.
func (h *Hub) readLoop(c *Client) {
	defer h.unsubscribe(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("client read failed", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case change, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeWindow))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(change); err != nil {
				h.unsubscribe(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeWindow))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unsubscribe(c)
				return
			}
		}
	}
}
