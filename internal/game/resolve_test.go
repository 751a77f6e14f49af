package game

import (
	"testing"
	"time"

	"github.com/arukh89/bitcoin-block/internal/models"

	"github.com/stretchr/testify/require"
)

func guessAt(address string, value int, at time.Time) models.Guess {
	return models.Guess{Address: address, Username: address, GuessValue: value, SubmittedAt: at}
}

func TestRankOrdersByDistance(t *testing.T) {
	now := time.Now()
	guesses := []models.Guess{
		guessAt("a", 100, now),
		guessAt("b", 300, now.Add(time.Second)),
		guessAt("c", 180, now.Add(2*time.Second)),
	}

	ranked := Rank(guesses, 200)

	require.Len(t, ranked, 3)
	require.Equal(t, "c", ranked[0].Address)
	require.Equal(t, 20, ranked[0].Distance)
	require.Equal(t, "a", ranked[1].Address)
	require.Equal(t, 100, ranked[1].Distance)
	require.Equal(t, "b", ranked[2].Address)
}

func TestRankBreaksTiesByEarlierSubmission(t *testing.T) {
	t1 := time.Now()
	t2 := t1.Add(time.Minute)
	guesses := []models.Guess{
		guessAt("a", 100, t1),
		guessAt("b", 120, t1.Add(time.Second)),
		guessAt("c", 80, t2),
	}

	// a and b are both 10 away from 110; a submitted first and wins.
	ranked := Rank(guesses, 110)

	require.Equal(t, "a", ranked[0].Address)
	require.Equal(t, "b", ranked[1].Address)
	require.Equal(t, "c", ranked[2].Address)
}

func TestRankIsDeterministicOnEqualDistanceAndTime(t *testing.T) {
	now := time.Now()
	guesses := []models.Guess{
		guessAt("first", 90, now),
		guessAt("second", 110, now),
	}

	// Same distance, same timestamp: stable sort keeps insertion order on
	// every recomputation.
	for i := 0; i < 10; i++ {
		ranked := Rank(guesses, 100)
		require.Equal(t, "first", ranked[0].Address)
		require.Equal(t, "second", ranked[1].Address)
	}
}

func TestRankExactMatchWinsWithZeroDistance(t *testing.T) {
	ranked := Rank([]models.Guess{guessAt("only", 500, time.Now())}, 500)

	require.Len(t, ranked, 1)
	require.Equal(t, 0, ranked[0].Distance)
}
