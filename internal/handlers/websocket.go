package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"srg-miniapp-backend/internal/models"
	"srg-miniapp-backend/internal/services"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// TapAllower is the per-user tap rate limit shared with the HTTP tap route.
type TapAllower interface {
	Allow(userID int64) bool
}

type WebSocketHandler struct {
	players *liveSessions
	hub     *WebSocketHub
	taps    TapAllower
}

type WebSocketHub struct {
	mu         sync.RWMutex
	clients    map[int64]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	UserID int64
	Conn   *websocket.Conn
	mu     sync.Mutex
}

type Message struct {
	Type   string      `json:"type"`
	UserID int64       `json:"user_id,omitempty"`
	Data   interface{} `json:"data"`
}

func NewWebSocketHandler(manager *services.SessionManager, profiles *services.ProfileService, users AuthStore, taps TapAllower) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[int64]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
	}

	go hub.run()

	return &WebSocketHandler{
		players: &liveSessions{manager: manager, profiles: profiles, users: users},
		hub:     hub,
		taps:    taps,
	}
}

func (c *Client) send(msg *Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteJSON(msg)
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetInt64("user_id")

	player, err := h.players.get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "Failed to load profile", err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	client.send(&Message{Type: "SNAPSHOT", UserID: userID, Data: player.State()})

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "PING":
		h.sendPong(client)
	case "TAP":
		h.handleTap(client, msg)
	}
}

func (h *WebSocketHandler) sendPong(client *Client) {
	msg := &Message{
		Type: "PONG",
		Data: gin.H{
			"timestamp": time.Now().Unix(),
		},
	}

	client.send(msg)
}

// handleTap accepts {"type":"TAP","data":{"x":..,"y":..}}.
func (h *WebSocketHandler) handleTap(client *Client, msg *Message) {
	var x, y float64
	if data, ok := msg.Data.(map[string]interface{}); ok {
		x, _ = data["x"].(float64)
		y, _ = data["y"].(float64)
	}

	if h.taps != nil && !h.taps.Allow(client.UserID) {
		client.send(&Message{Type: "ERROR", Data: gin.H{"error": "Tapping too fast"}})
		return
	}

	player, ok := h.players.manager.Get(client.UserID)
	if !ok {
		client.send(&Message{Type: "ERROR", Data: gin.H{"error": "Session not running"}})
		return
	}

	reward, accepted, err := player.Tap(x, y)
	if err != nil {
		client.send(&Message{Type: "ERROR", Data: gin.H{"error": "Tap rejected", "details": err.Error()}})
		return
	}

	client.send(&Message{
		Type: "TAP_RESULT",
		Data: gin.H{
			"accepted": accepted,
			"reward":   reward,
		},
	})
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.mu.Lock()
			hub.clients[client.UserID] = client
			hub.mu.Unlock()
			log.Printf("Client registered: %d", client.UserID)

		case client := <-hub.unregister:
			hub.mu.Lock()
			// A newer connection for the same user may have replaced this one.
			if current, ok := hub.clients[client.UserID]; ok && current == client {
				delete(hub.clients, client.UserID)
				log.Printf("Client unregistered: %d", client.UserID)
			}
			hub.mu.Unlock()

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)
		}
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if message.UserID != 0 {
		if client, ok := hub.clients[message.UserID]; ok {
			client.send(message)
		}
	} else {
		for _, client := range hub.clients {
			client.send(message)
		}
	}
}

func (h *WebSocketHandler) Connected(userID int64) bool {
	h.hub.mu.RLock()
	defer h.hub.mu.RUnlock()
	_, ok := h.hub.clients[userID]
	return ok
}

// BroadcastSnapshot queues a state push. It never blocks the accrual loop:
// when the hub is behind, the push is dropped.
func (h *WebSocketHandler) BroadcastSnapshot(userID int64, state *models.StateResponse) {
	if !h.Connected(userID) {
		return
	}

	msg := &Message{
		Type:   "SNAPSHOT",
		UserID: userID,
		Data:   state,
	}

	select {
	case h.hub.broadcast <- msg:
	default:
	}
}
