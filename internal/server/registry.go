package server

import (
	"slices"
	"sync"
)

// ConnectionRegistry maps a user to the one connection currently receiving
// their live events. A newer connection for the same user replaces the
// older one without closing it.
type ConnectionRegistry struct {
	mu      sync.RWMutex
	clients map[int]*Client
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		clients: make(map[int]*Client),
	}
}

// Register stores c under its user id and returns the client it replaced,
// if any.
func (r *ConnectionRegistry) Register(c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.clients[c.user.Id]
	r.clients[c.user.Id] = c
	if prev == c {
		return nil
	}
	return prev
}

// Unregister removes c only if it is still the registered connection for its
// user. It reports whether an entry was removed.
func (r *ConnectionRegistry) Unregister(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.clients[c.user.Id]; !ok || cur != c {
		return false
	}

	delete(r.clients, c.user.Id)
	return true
}

func (r *ConnectionRegistry) Lookup(userId int) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[userId]
	return c, ok
}

// OnlineUserIds returns the registered user ids in ascending order.
func (r *ConnectionRegistry) OnlineUserIds() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

func (r *ConnectionRegistry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}

	return clients
}
