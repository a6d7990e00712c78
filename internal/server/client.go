package server

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-chatapp/internal/database"
	"github.com/npezzotti/go-chatapp/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

type Client struct {
	id         string
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *log.Logger
	user       types.User
	send       chan *ServerMessage

	// presence holds the newest snapshot not yet written to the socket.
	presenceLock  sync.Mutex
	presence      []int
	hasPresence   bool
	presenceReady chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

func NewClient(user types.User, conn *websocket.Conn, cs *ChatServer, l *log.Logger) *Client {
	return &Client{
		id:            uuid.NewString(),
		conn:          conn,
		chatServer:    cs,
		log:           l,
		user:          user,
		send:          make(chan *ServerMessage, 256),
		presenceReady: make(chan struct{}, 1),
		stop:          make(chan struct{}),
	}
}

func (c *Client) UserId() int {
	return c.user.Id
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Printf("conn %s: write exiting", c.id)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			if !c.writeMessage(msg) {
				return
			}
		case <-c.presenceReady:
			onlineUserIds, ok := c.takePresence()
			if !ok {
				continue
			}

			if !c.writeMessage(newPresenceMessage(onlineUserIds)) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Printf("conn %s: read exiting", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		c.handleClientMessage(raw)
	}
}

func (c *Client) handleClientMessage(raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.log.Println("error parsing message:", err)
		c.queueMessage(ErrInvalidMessage(-1))
		return
	}

	msg.client = c
	msg.UserId = c.user.Id
	msg.Timestamp = Now()

	switch {
	case msg.Seen != nil:
		c.handleSeen(&msg)
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

// handleSeen acknowledges a live-pushed message for the conversation the
// user currently has open.
func (c *Client) handleSeen(msg *ClientMessage) {
	if msg.Seen.MessageId <= 0 {
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	err := c.chatServer.unseen.MarkSingleSeen(msg.Seen.MessageId, msg.GetUserId())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.queueMessage(ErrMessageNotFound(msg.Id))
			return
		}

		c.log.Println("mark seen:", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}

	c.queueMessage(NoErrOK(msg.Id, nil))
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Printf("conn %s: failed to send message to client, channel is full", c.id)
		return false
	}

	return true
}

// offerPresence replaces any pending snapshot with onlineUserIds.
func (c *Client) offerPresence(onlineUserIds []int) {
	c.presenceLock.Lock()
	c.presence = onlineUserIds
	c.hasPresence = true
	c.presenceLock.Unlock()

	select {
	case c.presenceReady <- struct{}{}:
	default:
	}
}

func (c *Client) takePresence() ([]int, bool) {
	c.presenceLock.Lock()
	defer c.presenceLock.Unlock()

	if !c.hasPresence {
		return nil, false
	}

	onlineUserIds := c.presence
	c.presence = nil
	c.hasPresence = false
	return onlineUserIds, true
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (c *Client) writeMessage(msg *ServerMessage) bool {
	bytes, err := serializeMessage(msg)
	if err != nil {
		c.log.Println("failed to serialize message:", err)
		return true
	}

	return c.sendMessage(websocket.TextMessage, bytes)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	c.chatServer.UnregisterClient(c)
	c.stopClient()
}
