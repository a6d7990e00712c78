package server

import (
	"fmt"

	"github.com/npezzotti/go-chatapp/internal/database"
)

// UnseenCounter derives per-contact unseen counts from storage and moves
// messages to the seen state. Seen is terminal; nothing here unsets it.
type UnseenCounter struct {
	db database.ChatRepository
}

func NewUnseenCounter(db database.ChatRepository) *UnseenCounter {
	return &UnseenCounter{db: db}
}

// ComputeUnseenForViewer returns contactId -> count of unseen messages sent by
// that contact to the viewer. Contacts without unseen messages are absent.
func (u *UnseenCounter) ComputeUnseenForViewer(viewerId int) (map[int]int, error) {
	counts, err := u.db.CountUnseenBySender(viewerId)
	if err != nil {
		return nil, fmt.Errorf("count unseen: %w", err)
	}

	unseen := make(map[int]int, len(counts))
	for contactId, n := range counts {
		if contactId == viewerId || n <= 0 {
			continue
		}
		unseen[contactId] = n
	}

	return unseen, nil
}

// MarkConversationSeen marks every unseen message from contact to viewer as
// seen and returns how many changed.
func (u *UnseenCounter) MarkConversationSeen(viewerId, contactId int) (int, error) {
	n, err := u.db.MarkConversationSeen(viewerId, contactId)
	if err != nil {
		return 0, fmt.Errorf("mark conversation seen: %w", err)
	}

	return n, nil
}

// MarkSingleSeen marks one message addressed to viewer as seen. It returns
// database.ErrNotFound when no such message exists for the viewer.
func (u *UnseenCounter) MarkSingleSeen(messageId, viewerId int) error {
	if err := u.db.MarkMessageSeen(messageId, viewerId); err != nil {
		return fmt.Errorf("mark message %d seen: %w", messageId, err)
	}

	return nil
}
