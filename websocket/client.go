package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"card-trader/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the app is served from other origins; sessions are authenticated by token
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one websocket session of an authenticated user.
type Client struct {
	UserID primitive.ObjectID
	conn   *websocket.Conn
	send   chan models.WSMessage
}

func NewClient(userID primitive.ObjectID, conn *websocket.Conn) *Client {
	return &Client{UserID: userID, conn: conn, send: make(chan models.WSMessage, sendBuffer)}
}

// ServeWs upgrades the request and attaches the session to the hub.
func ServeWs(h *Hub, w http.ResponseWriter, r *http.Request, userID primitive.ObjectID) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(userID, conn)
	client.send <- models.WSMessage{Event: "welcome", Data: "connected to server"}
	if !h.Register(client) {
		_ = conn.Close()
		return nil
	}

	go client.WritePump()
	go client.ReadPump(h)
	return nil
}

// ReadPump drains the connection so pings and close frames are handled.
// Clients do not send events.
func (c *Client) ReadPump(h *Hub) {
	defer func() {
		h.Unregister(c)
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
				h.log.WithError(err).WithField("userId", c.UserID.Hex()).Debug("Client.Read.Error")
			}
			return
		}
	}
}

// WritePump writes queued events and keeps the connection alive with pings.
func (c *Client) WritePump() {
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
			if err := c.conn.WriteJSON(message); err != nil {
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
