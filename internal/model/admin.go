package model

import (
	"time"
)

type AdminUser struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	CreatedBy *string   `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// AdminListing joins the admin row with the user it refers to.
type AdminListing struct {
	AdminUser
	Email string `db:"email" json:"email"`
	Name  string `db:"name" json:"name"`
}
