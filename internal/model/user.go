package model

import "time"

type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type Vault struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// VaultOwner is a user joined with their vault.
type VaultOwner struct {
	UserID  string `db:"user_id" json:"userId"`
	Email   string `db:"email" json:"email"`
	VaultID string `db:"vault_id" json:"vaultId"`
	Slug    string `db:"slug" json:"slug"`
}

type CreateUserWithVaultParams struct {
	Email string
	Slug  string
}
