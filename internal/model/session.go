package model

import (
	"time"
)

type Session struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"userId"`
	TokenHash  string    `db:"token_hash" json:"-"`
	ExpiresAt  time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	LastSeenAt time.Time `db:"last_seen_at" json:"lastSeenAt"`
}

type CreateSessionParams struct {
	UserID    string
	TokenHash string
	ExpiresAt time.Time
}

type AdminSession struct {
	ID         string    `db:"id" json:"id"`
	AdminEmail string    `db:"admin_email" json:"adminEmail"`
	TokenHash  string    `db:"token_hash" json:"-"`
	ExpiresAt  time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	LastSeenAt time.Time `db:"last_seen_at" json:"lastSeenAt"`
}

type CreateAdminSessionParams struct {
	AdminEmail string
	TokenHash  string
	ExpiresAt  time.Time
}

type LoginCode struct {
	ID         string     `db:"id"`
	UserID     string     `db:"user_id"`
	CodeHash   string     `db:"code_hash"`
	ExpiresAt  time.Time  `db:"expires_at"`
	ConsumedAt *time.Time `db:"consumed_at"`
	CreatedAt  time.Time  `db:"created_at"`
}

type CreateLoginCodeParams struct {
	UserID    string
	CodeHash  string
	ExpiresAt time.Time
}
