package model

import (
	"time"
)

// Session is a scheduled presentation. Date is an absolute instant; whether a
// session is upcoming or past is derived at read time, never stored.
type Session struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	Speaker      string    `db:"speaker" json:"speaker"`
	Date         time.Time `db:"date" json:"date"`
	CalendarLink string    `db:"calendar_link" json:"calendarLink"`
	TopicID      *string   `db:"topic_id" json:"topicId,omitempty"`
	CreatedBy    *string   `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateSessionParams struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Speaker      string    `json:"speaker"`
	Date         time.Time `json:"date"`
	CalendarLink string    `json:"calendarLink"`
	TopicID      *string   `json:"topicId,omitempty"`
}

// UpdateSessionParams carries a partial update; nil fields are left unchanged.
type UpdateSessionParams struct {
	ID           string     `json:"-"`
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Speaker      *string    `json:"speaker,omitempty"`
	Date         *time.Time `json:"date,omitempty"`
	CalendarLink *string    `json:"calendarLink,omitempty"`
}

func (p UpdateSessionParams) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Speaker == nil &&
		p.Date == nil && p.CalendarLink == nil
}
