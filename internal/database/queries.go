package database

import (
	"fmt"
	"time"
)

const accountColumns = "id, full_name, email, bio, profile_pic, created_at, updated_at"

const messageColumns = "id, sender_id, receiver_id, text, image, seen, created_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (User, error) {
	var u User
	err := row.Scan(
		&u.Id,
		&u.FullName,
		&u.EmailAddress,
		&u.Bio,
		&u.ProfilePic,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func scanMessage(row scanner) (Message, error) {
	var m Message
	err := row.Scan(
		&m.Id,
		&m.SenderId,
		&m.ReceiverId,
		&m.Text,
		&m.Image,
		&m.Seen,
		&m.CreatedAt,
	)

	return m, err
}

func (db *PgChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRow(
		"INSERT INTO accounts (full_name, email, password_hash, bio, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) RETURNING "+accountColumns,
		params.FullName,
		params.EmailAddress,
		params.PasswordHash,
		params.Bio,
		now,
		now,
	)

	u, err := scanAccount(row)
	if isUniqueViolation(err) {
		return User{}, ErrDuplicateEmail
	}

	return u, err
}

func (db *PgChatRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	row := db.conn.QueryRow(
		"UPDATE accounts SET full_name = $2, bio = $3, profile_pic = COALESCE(NULLIF($4, ''), profile_pic), updated_at = $5 "+
			"WHERE id = $1 RETURNING "+accountColumns,
		params.UserId,
		params.FullName,
		params.Bio,
		params.ProfilePic,
		time.Now().UTC(),
	)

	return scanAccount(row)
}

func (db *PgChatRepository) GetAccountById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT "+accountColumns+" FROM accounts WHERE id = $1 LIMIT 1",
		id,
	)

	return scanAccount(row)
}

func (db *PgChatRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT "+accountColumns+", password_hash FROM accounts WHERE email = $1 LIMIT 1",
		email,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.FullName,
		&u.EmailAddress,
		&u.Bio,
		&u.ProfilePic,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.PasswordHash,
	)

	return u, err
}

func (db *PgChatRepository) ListAccountsExcept(id int) ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT "+accountColumns+" FROM accounts WHERE id <> $1 ORDER BY full_name, id",
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}

		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

func (db *PgChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	row := db.conn.QueryRow(
		"INSERT INTO messages (sender_id, receiver_id, text, image, seen, created_at) "+
			"VALUES ($1, $2, $3, $4, FALSE, $5) RETURNING "+messageColumns,
		params.SenderId,
		params.ReceiverId,
		params.Text,
		params.Image,
		time.Now().UTC().Round(time.Millisecond),
	)

	return scanMessage(row)
}

// GetConversation returns every message exchanged between the two accounts
// in creation order.
func (db *PgChatRepository) GetConversation(accountId, contactId int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT "+messageColumns+" FROM messages "+
			"WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1) "+
			"ORDER BY created_at, id",
		accountId,
		contactId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return messages, nil
}

func (db *PgChatRepository) MarkConversationSeen(receiverId, senderId int) (int, error) {
	res, err := db.conn.Exec(
		"UPDATE messages SET seen = TRUE WHERE receiver_id = $1 AND sender_id = $2 AND NOT seen",
		receiverId,
		senderId,
	)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	return int(n), err
}

func (db *PgChatRepository) MarkMessageSeen(messageId, receiverId int) error {
	res, err := db.conn.Exec(
		"UPDATE messages SET seen = TRUE WHERE id = $1 AND receiver_id = $2",
		messageId,
		receiverId,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func (db *PgChatRepository) CountUnseenBySender(receiverId int) (map[int]int, error) {
	rows, err := db.conn.Query(
		"SELECT sender_id, COUNT(*) FROM messages WHERE receiver_id = $1 AND NOT seen GROUP BY sender_id",
		receiverId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var senderId, count int
		if err := rows.Scan(&senderId, &count); err != nil {
			return nil, fmt.Errorf("scan unseen count: %w", err)
		}

		counts[senderId] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return counts, nil
}
