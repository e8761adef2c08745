package brackets

import (
	"context"
	"sort"

	"github.com/pvmachado/tt-tournament-system/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() DrawGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateDraw emits every unordered pair within each group exactly once:
// n*(n-1)/2 pairings for a group of n players. Groups are processed in
// ascending label order and players in input order, so an identical roster
// always generates an identical draw. Groups of size 0 or 1 simply yield
// no pairings.
func (g *RoundRobinGenerator) GenerateDraw(_ context.Context, params GenerateDrawParams) ([]Pairing, error) {
	byGroup := make(map[string][]*models.Player)
	labels := make([]string, 0)

	for _, p := range params.Players {
		if _, seen := byGroup[p.Group]; !seen {
			labels = append(labels, p.Group)
		}
		byGroup[p.Group] = append(byGroup[p.Group], p)
	}
	sort.Strings(labels)

	pairings := make([]Pairing, 0)
	for _, label := range labels {
		group := byGroup[label]
		seq := 0
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				seq++
				pairings = append(pairings, Pairing{
					Player1ID: group[i].ID,
					Player2ID: group[j].ID,
					Group:     label,
					Sequence:  seq,
				})
			}
		}
	}

	return pairings, nil
}
