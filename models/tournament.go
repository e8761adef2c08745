package models

import "time"

type Tournament struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	StartDate   time.Time `json:"start_date" db:"start_date"`
	EndDate     time.Time `json:"end_date" db:"end_date"`
	AdminUserID *int      `json:"admin_user_id,omitempty" db:"admin_user_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	AdminUser *User    `json:"admin_user,omitempty" db:"-"`
	Players   []Player `json:"players,omitempty" db:"-"`
	Games     []Game   `json:"games,omitempty" db:"-"`
}
