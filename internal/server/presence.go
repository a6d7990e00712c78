package server

import (
	"log"

	"github.com/npezzotti/go-chatapp/internal/stats"
)

// PresenceBroadcaster sends the full set of online users to every
// registered connection.
type PresenceBroadcaster struct {
	log      *log.Logger
	registry *ConnectionRegistry
	stats    stats.StatsProvider
}

func NewPresenceBroadcaster(logger *log.Logger, registry *ConnectionRegistry, su stats.StatsProvider) *PresenceBroadcaster {
	return &PresenceBroadcaster{
		log:      logger,
		registry: registry,
		stats:    su,
	}
}

// Broadcast snapshots the registry once and offers the snapshot to each
// client's presence mailbox. Receivers that fall behind only ever see the
// newest snapshot.
func (pb *PresenceBroadcaster) Broadcast() []int {
	onlineUserIds := pb.registry.OnlineUserIds()
	pb.stats.Set(stats.NumOnlineUsers, len(onlineUserIds))

	clients := pb.registry.Clients()
	for _, c := range clients {
		c.offerPresence(onlineUserIds)
	}

	pb.log.Printf("presence: %d online, notified %d clients", len(onlineUserIds), len(clients))
	return onlineUserIds
}
