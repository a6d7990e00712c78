package database

import "time"

type User struct {
	Id           int
	FullName     string
	EmailAddress string
	PasswordHash string
	Bio          string
	ProfilePic   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Message struct {
	Id         int
	SenderId   int
	ReceiverId int
	Text       string
	Image      string
	Seen       bool
	CreatedAt  time.Time
}

type CreateAccountParams struct {
	FullName     string
	EmailAddress string
	PasswordHash string
	Bio          string
}

// UpdateAccountParams updates a profile. An empty ProfilePic keeps the
// current picture.
type UpdateAccountParams struct {
	UserId     int
	FullName   string
	Bio        string
	ProfilePic string
}

type CreateMessageParams struct {
	SenderId   int
	ReceiverId int
	Text       string
	Image      string
}
