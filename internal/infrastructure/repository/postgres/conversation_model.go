package postgres

import "time"

type conversationTableModel struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	Title      string    `db:"title"`
	Messages   []byte    `db:"messages"`
	TokensUsed int       `db:"tokens_used"`
	CreatedAt  time.Time `db:"created_at"`
}
