package server

import (
	"context"
	"log"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-chatapp/internal/database"
	"github.com/npezzotti/go-chatapp/internal/stats"
	"github.com/npezzotti/go-chatapp/internal/types"
)

type stopReq struct {
	done chan struct{}
}

// ChatServer owns the connection registry. Registration, disconnects and
// message routing arrive as discrete events on its channels and are handled
// one at a time by Run.
type ChatServer struct {
	log      *log.Logger
	db       database.ChatRepository
	stats    stats.StatsProvider
	registry *ConnectionRegistry
	presence *PresenceBroadcaster
	unseen   *UnseenCounter
	// clients holds every open connection, including superseded ones
	clients        map[*Client]struct{}
	registerChan   chan *Client
	unregisterChan chan *Client
	routeChan      chan types.Message
	stop           chan stopReq
	done           chan struct{}
}

func NewChatServer(logger *log.Logger, db database.ChatRepository, su stats.StatsProvider) (*ChatServer, error) {
	for _, metric := range []string{
		stats.NumActiveClients,
		stats.NumOnlineUsers,
		stats.MessagesRouted,
		stats.MessagesDeliveredLive,
		stats.DeliveryMisses,
	} {
		su.RegisterMetric(metric)
	}

	registry := NewConnectionRegistry()

	return &ChatServer{
		log:            logger,
		db:             db,
		stats:          su,
		registry:       registry,
		presence:       NewPresenceBroadcaster(logger, registry, su),
		unseen:         NewUnseenCounter(db),
		clients:        make(map[*Client]struct{}),
		registerChan:   make(chan *Client),
		unregisterChan: make(chan *Client),
		routeChan:      make(chan types.Message, 256),
		stop:           make(chan stopReq),
		done:           make(chan struct{}),
	}, nil
}

func (cs *ChatServer) Run() {
	defer close(cs.done)

	for {
		select {
		case c := <-cs.registerChan:
			cs.handleRegister(c)
		case c := <-cs.unregisterChan:
			cs.handleUnregister(c)
		case msg := <-cs.routeChan:
			cs.handleRoute(msg)
		case req := <-cs.stop:
			cs.handleStop()
			close(req.done)
			return
		}
	}
}

// Connect wraps an upgraded websocket in a Client, registers it and starts
// its read and write pumps.
func (cs *ChatServer) Connect(user types.User, conn *websocket.Conn) *Client {
	c := NewClient(user, conn, cs, cs.log)
	cs.RegisterClient(c)

	go c.Write()
	go c.Read()

	return c
}

func (cs *ChatServer) RegisterClient(c *Client) {
	select {
	case cs.registerChan <- c:
	case <-cs.done:
		c.stopClient()
	}
}

func (cs *ChatServer) UnregisterClient(c *Client) {
	select {
	case cs.unregisterChan <- c:
	case <-cs.done:
	}
}

// Route hands a persisted message to the event loop for live delivery. It
// must only be called after the message has been stored.
func (cs *ChatServer) Route(msg types.Message) {
	select {
	case cs.routeChan <- msg:
	case <-cs.done:
		cs.log.Printf("route message %d: chat server stopped", msg.Id)
	}
}

func (cs *ChatServer) OnlineUserIds() []int {
	return cs.registry.OnlineUserIds()
}

func (cs *ChatServer) handleRegister(c *Client) {
	cs.clients[c] = struct{}{}
	cs.stats.Incr(stats.NumActiveClients)

	if prev := cs.registry.Register(c); prev != nil {
		cs.log.Printf("user %d: conn %s supersedes conn %s", c.user.Id, c.id, prev.id)
	} else {
		cs.log.Printf("user %d: registered conn %s", c.user.Id, c.id)
	}

	cs.presence.Broadcast()
}

func (cs *ChatServer) handleUnregister(c *Client) {
	if _, ok := cs.clients[c]; !ok {
		return
	}
	delete(cs.clients, c)
	cs.stats.Decr(stats.NumActiveClients)

	if !cs.registry.Unregister(c) {
		cs.log.Printf("user %d: ignoring disconnect of superseded conn %s", c.user.Id, c.id)
		return
	}

	cs.log.Printf("user %d: unregistered conn %s", c.user.Id, c.id)
	cs.presence.Broadcast()
}

// handleRoute pushes msg to the receiver's connection if there is one.
// Delivery is attempted once; storage remains the source of truth.
func (cs *ChatServer) handleRoute(msg types.Message) {
	cs.stats.Incr(stats.MessagesRouted)

	c, ok := cs.registry.Lookup(msg.ReceiverId)
	if !ok {
		cs.stats.Incr(stats.DeliveryMisses)
		cs.log.Printf("route message %d: receiver %d offline", msg.Id, msg.ReceiverId)
		return
	}

	if !c.queueMessage(newDeliveryMessage(msg)) {
		cs.stats.Incr(stats.DeliveryMisses)
		cs.log.Printf("route message %d: push to conn %s failed", msg.Id, c.id)
		return
	}

	cs.stats.Incr(stats.MessagesDeliveredLive)
}

func (cs *ChatServer) handleStop() {
	cs.log.Printf("stopping %d clients", len(cs.clients))
	for c := range cs.clients {
		c.stopClient()
	}
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("received shutdown signal")

	req := stopReq{done: make(chan struct{})}
	select {
	case cs.stop <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
