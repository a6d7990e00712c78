package database

import "errors"

var (
	// ErrNotFound is returned by updates that matched no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when an account already uses the email address.
	ErrDuplicateEmail = errors.New("email address already registered")
)

type ChatRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	ListAccountsExcept(accountId int) ([]User, error)
	CreateMessage(params CreateMessageParams) (Message, error)
	GetConversation(accountId, contactId int) ([]Message, error)
	MarkConversationSeen(receiverId, senderId int) (int, error)
	MarkMessageSeen(messageId, receiverId int) error
	CountUnseenBySender(receiverId int) (map[int]int, error)
}
