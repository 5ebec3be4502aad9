package notifyws

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
)

// Hub fans negotiation and goal events out to the connected clients of
// the affected users. It is push-only: inbound frames are discarded.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	gyms       map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *envelope
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	gymID  string
	send   chan []byte
}

// Event is one user-visible notification.
type Event struct {
	Type      string `json:"type"`
	RequestID int64  `json:"request_id,omitempty"`
	SessionID int64  `json:"session_id,omitempty"`
	GoalID    int64  `json:"goal_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

type envelope struct {
	recipients []string
	gymID      string
	event      Event
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		gyms:       make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *envelope, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, gymID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		gymID:  gymID,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			addToSet(h.clients, client.userID, client)
			addToSet(h.gyms, client.gymID, client)
		case client := <-h.unregister:
			if removeFromSet(h.clients, client.userID, client) {
				close(client.send)
			}
			removeFromSet(h.gyms, client.gymID, client)
		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func addToSet(index map[string]map[*Client]struct{}, key string, client *Client) {
	set, ok := index[key]
	if !ok {
		set = make(map[*Client]struct{})
		index[key] = set
	}
	set[client] = struct{}{}
}

func removeFromSet(index map[string]map[*Client]struct{}, key string, client *Client) bool {
	set, ok := index[key]
	if !ok {
		return false
	}
	_, existed := set[client]
	delete(set, client)
	if len(set) == 0 {
		delete(index, key)
	}
	return existed
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Notify queues an event for every listed user. Safe to call on a nil
// hub so services can run without a websocket layer in tests.
func (h *Hub) Notify(userIDs []int64, event Event) {
	if h == nil || len(userIDs) == 0 {
		return
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	recipients := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		recipients = append(recipients, strconv.FormatInt(id, 10))
	}

	select {
	case h.broadcast <- &envelope{recipients: recipients, event: event}:
	default:
		log.Printf("notification hub: dropping %s event, broadcast queue full", event.Type)
	}
}

// NotifyGym queues an event for every client connected under the gym.
// Safe on a nil hub.
func (h *Hub) NotifyGym(gymID int64, event Event) {
	if h == nil {
		return
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	select {
	case h.broadcast <- &envelope{gymID: strconv.FormatInt(gymID, 10), event: event}:
	default:
		log.Printf("notification hub: dropping %s event, broadcast queue full", event.Type)
	}
}

func (h *Hub) deliver(message *envelope) {
	encoded, err := json.Marshal(message.event)
	if err != nil {
		log.Printf("notification hub encode event: %v", err)
		return
	}

	if message.gymID != "" {
		h.sendToSet(h.gyms, message.gymID, encoded)
		return
	}

	seen := make(map[string]struct{}, len(message.recipients))
	for _, recipient := range message.recipients {
		if _, dup := seen[recipient]; dup {
			continue
		}
		seen[recipient] = struct{}{}
		h.sendToSet(h.clients, recipient, encoded)
	}
}

// sendToSet drops the payload for clients whose buffer is full; a
// stalled connection is torn down by its own pumps, not here.
func (h *Hub) sendToSet(index map[string]map[*Client]struct{}, key string, payload []byte) {
	for client := range index[key] {
		select {
		case client.send <- payload:
		default:
		}
	}
}

// ReadPump keeps the connection registered until the peer goes away.
// Inbound frames carry no meaning on this endpoint.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
