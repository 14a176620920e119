package model

import (
	"time"
)

// Topic is a user-submitted session idea. Votes is never stored; repositories
// fill it with the live count of vote rows.
type Topic struct {
	ID          string      `db:"id" json:"id"`
	Title       string      `db:"title" json:"title"`
	Description string      `db:"description" json:"description"`
	Speaker     *string     `db:"speaker" json:"speaker,omitempty"`
	IsExternal  bool        `db:"is_external" json:"isExternal"`
	KnowsExpert bool        `db:"knows_expert" json:"knowsExpert"`
	UserID      string      `db:"user_id" json:"userId"`
	UserName    string      `db:"user_name" json:"userName"`
	UserEmail   string      `db:"user_email" json:"-"`
	Status      TopicStatus `db:"status" json:"status"`
	SessionID   *string     `db:"session_id" json:"sessionId,omitempty"`
	Votes       int         `db:"votes" json:"votes"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
}

func (t Topic) IsVotable() bool {
	return t.Status == TopicStatusActive
}

type SubmitTopicParams struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Speaker     *string `json:"speaker,omitempty"`
	IsExternal  bool    `json:"isExternal"`
	KnowsExpert bool    `json:"knowsExpert"`
}

type CreateTopicParams struct {
	SubmitTopicParams
	UserID    string
	UserName  string
	UserEmail string
}

// TopicPatch carries an admin edit; nil fields are left unchanged.
type TopicPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (p TopicPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil
}
