// Package wsprogress streams solver/sensitivity progress over websockets.
// It follows the shape of the teacher's internal/websocket.Hub closely --
// register/unregister channels, a mutex-guarded client map, a buffered
// per-client send channel -- but fans messages out per run id instead of
// per user, since progress events belong to a solve run, not an account.
package wsprogress

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is one progress update pushed to every client subscribed to a run.
type Event struct {
	RunID   string      `json:"run_id"`
	Stage   string      `json:"stage"` // "solving", "iterating", "sensitivity", "done", "error"
	Done    int         `json:"done,omitempty"`
	Total   int         `json:"total,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Client is a single websocket connection subscribed to one run id.
type Client struct {
	RunID string
	Conn  *websocket.Conn
	Send  chan []byte
	Hub   *Hub
}

// Hub maintains active websocket connections and fans progress events out
// by run id.
type Hub struct {
	clients    map[*Client]bool
	runClients map[string][]*Client
	register   chan *Client
	unregister chan *Client
	logger     *logrus.Logger
	mutex      sync.RWMutex
}

// NewHub creates a new progress hub.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		runClients: make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run processes client registration/unregistration until ctx-independent
// shutdown; callers start it in its own goroutine for the process lifetime.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.runClients[client.RunID] = append(h.runClients[client.RunID], client)
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"run_id":        client.RunID,
				"total_clients": len(h.clients),
			}).Info("wsprogress: client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)

				siblings := h.runClients[client.RunID]
				for i, c := range siblings {
					if c == client {
						h.runClients[client.RunID] = append(siblings[:i], siblings[i+1:]...)
						break
					}
				}
				if len(h.runClients[client.RunID]) == 0 {
					delete(h.runClients, client.RunID)
				}
			}
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"run_id":        client.RunID,
				"total_clients": len(h.clients),
			}).Info("wsprogress: client disconnected")
		}
	}
}

// HandleWebSocket upgrades a GET /ws/progress/:run_id request and registers
// the resulting client against that run id.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	runID := c.Param("run_id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("wsprogress: failed to upgrade connection")
		return
	}

	client := &Client{
		RunID: runID,
		Conn:  conn,
		Send:  make(chan []byte, 256),
		Hub:   h,
	}
	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}

// Publish sends an Event to every client currently subscribed to ev.RunID.
// Safe to call from solver/sensitivity goroutines; a slow or gone client is
// dropped rather than allowed to block the publisher.
func (h *Hub) Publish(ev Event) {
	h.mutex.RLock()
	clients := h.runClients[ev.RunID]
	h.mutex.RUnlock()

	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.WithError(err).Error("wsprogress: failed to marshal event")
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.WithField("run_id", ev.RunID).Warn("wsprogress: dropping slow client")
		}
	}
}

// SubscriberCount returns how many clients are currently subscribed to runID.
func (h *Hub) SubscriberCount(runID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.runClients[runID])
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.WithError(err).Error("wsprogress: read error")
			}
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.Hub.logger.WithError(err).Error("wsprogress: write error")
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
