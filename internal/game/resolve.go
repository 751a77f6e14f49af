package game

import (
	"sort"

	"github.com/arukh89/bitcoin-block/internal/models"
)

// RankedGuess is a guess annotated with its distance from the actual count.
type RankedGuess struct {
	models.Guess
	Distance int `json:"distance"`
}

// Result is the outcome of resolving a round.
type Result struct {
	RoundID       uint          `json:"roundId"`
	ActualTxCount int           `json:"actualTxCount"`
	BlockHash     string        `json:"blockHash"`
	Winner        RankedGuess   `json:"winner"`
	RunnerUp      *RankedGuess  `json:"runnerUp,omitempty"`
	Ranking       []RankedGuess `json:"ranking"`
}

// Rank orders guesses by ascending distance to actualTxCount, ties broken by
// earlier submission. The sort is stable, so two guesses sharing both distance
// and timestamp keep their insertion order and repeated computation yields the
// same ranking.
func Rank(guesses []models.Guess, actualTxCount int) []RankedGuess {
	ranked := make([]RankedGuess, 0, len(guesses))
	for _, g := range guesses {
		ranked = append(ranked, RankedGuess{Guess: g, Distance: absDiff(g.GuessValue, actualTxCount)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Distance != ranked[j].Distance {
			return ranked[i].Distance < ranked[j].Distance
		}
		return ranked[i].SubmittedAt.Before(ranked[j].SubmittedAt)
	})
	return ranked
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
