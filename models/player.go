package models

import "time"

// Player is a roster entry. RatingsCentralID is the natural key imported
// from the external rating system and must be unique across all players.
type Player struct {
	ID               int       `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	RatingsCentralID int       `json:"ratings_central_id" db:"ratings_central_id"`
	Rating           int       `json:"rating" db:"rating"`
	StDev            int       `json:"st_dev" db:"st_dev"`
	Group            string    `json:"group" db:"group_label"`
	UserID           int       `json:"user_id" db:"user_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}

// TournamentPlayer links a player to a tournament's roster.
// The (TournamentID, PlayerID) pair is the primary key.
type TournamentPlayer struct {
	TournamentID int `json:"tournament_id" db:"tournament_id"`
	PlayerID     int `json:"player_id" db:"player_id"`

	Player *Player `json:"player,omitempty" db:"-"`
}
