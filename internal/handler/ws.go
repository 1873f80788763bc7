package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"

	"tourguard/api/internal/middleware"
	"tourguard/api/internal/model"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development, configure for production
			return true
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
	readTimeout  = 60 * time.Second
)

// WSMessage represents a WebSocket message from the client
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// wsEvent is one feed item headed for connected dashboards. SubjectUser
// identifies the tourist the item is about so per-client watch filters
// can drop everything else.
type wsEvent struct {
	SubjectUser uint
	Payload     []byte
}

// Client represents one dashboard connection
type Client struct {
	ID     string
	UserID uint
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *WSHub

	mu sync.Mutex
	// watchUserID filters the feed to a single tourist (zero means all)
	watchUserID uint
}

// Watch narrows the client's feed to one tourist; zero widens it again.
func (c *Client) Watch(userID uint) {
	c.mu.Lock()
	c.watchUserID = userID
	c.mu.Unlock()
}

func (c *Client) wants(ev *wsEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watchUserID == 0 || ev.SubjectUser == 0 || ev.SubjectUser == c.watchUserID
}

// WSHub fans the NATS location and alert feeds out to connected
// dashboards.
type WSHub struct {
	clients    map[*Client]bool
	events     chan *wsEvent
	register   chan *Client
	unregister chan *Client
	natsConn   *nats.Conn
	subs       []*nats.Subscription
	done       chan struct{}
	mu         sync.RWMutex
}

// NewWSHub creates a new WebSocket hub
func NewWSHub(nc *nats.Conn) *WSHub {
	return &WSHub{
		clients:    make(map[*Client]bool),
		events:     make(chan *wsEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		natsConn:   nc,
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop. The NATS bridge is best-effort: with
// no broker the hub still serves clients, fed directly by the alert
// service through BroadcastAlert.
func (h *WSHub) Run() {
	if h.natsConn != nil {
		h.bridge("tour.location.*", "location", func(data []byte) (interface{}, uint, error) {
			var msg model.LocationMessage
			err := json.Unmarshal(data, &msg)
			return msg, msg.UserID, err
		})
		h.bridge("tour.alert.*", "alert", func(data []byte) (interface{}, uint, error) {
			var msg model.AlertMessage
			err := json.Unmarshal(data, &msg)
			return msg, msg.UserID, err
		})
	}

	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[WS] Client connected: %s, total clients: %d", client.ID, total)

		case client := <-h.unregister:
			h.drop(client)

		case ev := <-h.events:
			h.mu.RLock()
			targets := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				if client.wants(ev) {
					targets = append(targets, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range targets {
				select {
				case client.Send <- ev.Payload:
				default:
					// send buffer full, the client is too slow to keep
					h.drop(client)
				}
			}
		}
	}
}

// bridge subscribes to a NATS subject and feeds decoded messages into the
// hub wrapped in a typed envelope.
func (h *WSHub) bridge(subject, kind string, decode func([]byte) (interface{}, uint, error)) {
	sub, err := h.natsConn.Subscribe(subject, func(msg *nats.Msg) {
		inner, subjectUser, err := decode(msg.Data)
		if err != nil {
			log.Printf("[WS] Failed to decode %s message: %v", kind, err)
			return
		}
		h.push(kind, subjectUser, inner)
	})
	if err != nil {
		log.Printf("[WS] Failed to subscribe to %s feed: %v", kind, err)
		return
	}
	h.subs = append(h.subs, sub)
	log.Printf("[WS] Hub subscribed to the %s feed", kind)
}

func (h *WSHub) push(kind string, subjectUser uint, inner interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"type": kind,
		"data": inner,
	})
	if err != nil {
		log.Printf("[WS] Failed to encode %s event: %v", kind, err)
		return
	}

	select {
	case h.events <- &wsEvent{SubjectUser: subjectUser, Payload: payload}:
	default:
		// hub backlog full, drop rather than block the NATS callback
	}
}

func (h *WSHub) drop(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
		log.Printf("[WS] Client disconnected: %s, total clients: %d", client.ID, len(h.clients))
	}
}

// Stop stops the hub. Client channels are closed by the Run goroutine,
// which stays their only closer; Stop just signals it.
func (h *WSHub) Stop() {
	for _, sub := range h.subs {
		sub.Unsubscribe()
	}
	close(h.done)
}

func (h *WSHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.Send)
		if client.Conn != nil {
			client.Conn.Close()
		}
		delete(h.clients, client)
	}
}

// GetClientCount returns the number of connected clients
func (h *WSHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAlert pushes an alert to all connected dashboards. Used as a
// direct path when the alert is raised in-process; the NATS subscription
// covers alerts raised by other instances.
func (h *WSHub) BroadcastAlert(msg *model.AlertMessage) error {
	h.push("alert", msg.UserID, msg)
	return nil
}

// ReadPump handles incoming messages from the client
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512 * 1024)
	c.Conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Client %s read error: %v", c.ID, err)
			}
			return
		}

		var wsMsg WSMessage
		if err := json.Unmarshal(message, &wsMsg); err != nil {
			continue
		}

		switch wsMsg.Type {
		case "watch":
			var data struct {
				UserID uint `json:"user_id"`
			}
			if err := json.Unmarshal(wsMsg.Data, &data); err == nil {
				c.Watch(data.UserID)
				log.Printf("[WS] Client %s watching user %d", c.ID, data.UserID)
			}
		case "ping":
			select {
			case c.Send <- []byte(`{"type":"pong"}`):
			default:
			}
		}
	}
}

// WritePump handles outgoing messages to the client
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WSHandler upgrades dashboard connections onto the hub.
type WSHandler struct {
	hub *WSHub
}

// NewWSHandler creates a new WebSocket handler
func NewWSHandler(hub *WSHub) *WSHandler {
	return &WSHandler{hub: hub}
}

// HandleDashboard upgrades a staff connection to the live feed. The route
// sits behind the auth and RequireElevated middleware; tourists never
// reach this handler.
func (h *WSHandler) HandleDashboard(c *gin.Context) {
	caller := middleware.CallerFrom(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Failed to upgrade connection: %v", err)
		return
	}

	clientID := c.Query("client_id")
	if clientID == "" {
		clientID = newClientID()
	}

	client := &Client{
		ID:     clientID,
		UserID: caller.UserID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		Hub:    h.hub,
	}

	client.Hub.register <- client

	go client.WritePump()
	go client.ReadPump()

	welcome := map[string]interface{}{
		"type":      "connected",
		"message":   "Connected to the live safety feed",
		"client_id": clientID,
	}
	if data, err := json.Marshal(welcome); err == nil {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// GetStats returns WebSocket hub statistics
func (h *WSHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": h.hub.GetClientCount(),
	})
}

func newClientID() string {
	buf := make([]byte, 6)
	rand.Read(buf)
	return time.Now().Format("20060102150405") + "-" + hex.EncodeToString(buf)
}
