package model

import (
	"time"
)

// Vote is unique per (TopicID, UserID).
type Vote struct {
	ID        string    `db:"id" json:"id"`
	TopicID   string    `db:"topic_id" json:"topicId"`
	UserID    string    `db:"user_id" json:"userId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
