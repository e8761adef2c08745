package models

import "time"

// UserRole matches the role ENUM in the DB. Roles are fixed at creation
// time; this core never changes a role after the account exists.
type UserRole string

const (
	RoleAdmin  UserRole = "Admin"
	RolePlayer UserRole = "Player"
)

type User struct {
	ID           int       `json:"id" db:"id"`
	UserName     string    `json:"user_name" db:"user_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Credentials is the one-time disclosure pair handed back after an import
// provisions a new account. The plaintext is never persisted.
type Credentials struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}
