package brackets

import (
	"context"

	"github.com/pvmachado/tt-tournament-system/models"
)

// Pairing is one generated game before persistence: player IDs, the group
// the pair belongs to, and a 1-based sequence within that group.
type Pairing struct {
	Player1ID int
	Player2ID int
	Group     string
	Sequence  int
}

type GenerateDrawParams struct {
	Tournament *models.Tournament
	Players    []*models.Player
}

type DrawGenerator interface {
	GenerateDraw(ctx context.Context, params GenerateDrawParams) ([]Pairing, error)

	GetName() string
}
