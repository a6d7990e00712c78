package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	FullName     string    `json:"full_name"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	Bio          string    `json:"bio"`
	ProfilePic   string    `json:"profile_pic"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Message is a single direct message between two users. Text and Image are
// both optional on the wire; a useful message carries at least one of them.
type Message struct {
	Id         int       `json:"id"`
	SenderId   int       `json:"sender_id"`
	ReceiverId int       `json:"receiver_id"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"`
	Seen       bool      `json:"seen"`
	CreatedAt  time.Time `json:"created_at"`
}
