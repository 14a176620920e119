package model

import (
	"time"
)

type User struct {
	ID          string     `db:"id" json:"id"`
	GoogleID    *string    `db:"google_id" json:"-"`
	Email       string     `db:"email" json:"email"`
	Name        string     `db:"name" json:"name"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	LastLoginAt *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`

	AdminBootstrappedAt *time.Time `db:"admin_bootstrapped_at" json:"-"`
}

type UpsertUserParams struct {
	GoogleID string
	Email    string
	Name     string
}

type LoginSession struct {
	ID        string    `db:"id" json:"id"`
	TokenHash string    `db:"token_hash" json:"-"`
	UserID    string    `db:"user_id" json:"userId"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateLoginSessionParams struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
}

// GoogleProfile is what the userinfo endpoint tells us about a signed-in user.
type GoogleProfile struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          string
}
