package models

import "time"

// Game is a single round-robin pairing within a group. Scores are NULL
// until a result is recorded, so an unplayed game is distinguishable from
// a 0-0 result. Player1ID and Player2ID are always distinct and both
// linked to the game's tournament.
type Game struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Player1ID    int       `json:"player1_id" db:"player1_id"`
	Player2ID    int       `json:"player2_id" db:"player2_id"`
	Group        string    `json:"group" db:"group_label"`
	Sequence     int       `json:"sequence" db:"sequence"`
	Score1       *int      `json:"score1,omitempty" db:"score1"`
	Score2       *int      `json:"score2,omitempty" db:"score2"`
	ScheduledAt  time.Time `json:"scheduled_at" db:"scheduled_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	Player1 *Player `json:"player1,omitempty" db:"-"`
	Player2 *Player `json:"player2,omitempty" db:"-"`
}

// Played reports whether a result has been recorded for the game.
func (g *Game) Played() bool {
	return g.Score1 != nil && g.Score2 != nil
}
