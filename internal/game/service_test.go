package game_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arukh89/bitcoin-block/internal/game"
	"github.com/arukh89/bitcoin-block/internal/models"
	"github.com/arukh89/bitcoin-block/internal/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// fakeBlocks is a scriptable BlockSource.
type fakeBlocks struct {
	mu      sync.Mutex
	hash    string
	found   bool
	txCount int
	err     error
}

func (f *fakeBlocks) HashAtHeight(context.Context, int64) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hash, f.found, f.err
}

func (f *fakeBlocks) TxCount(context.Context, string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txCount, f.err
}

func (f *fakeBlocks) set(hash string, found bool, txCount int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hash, f.found, f.txCount, f.err = hash, found, txCount, nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestService() (*game.Service, *fakeBlocks, store.Store) {
	st := store.NewMemoryStore()
	blocks := &fakeBlocks{}
	return game.NewService(st, blocks, nil, testLogger()), blocks, st
}

func TestCreateRoundValidatesInput(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateRound(ctx, 0, 900000, 10, "")
	require.Equal(t, game.KindInvalidInput, game.KindOf(err))

	_, err = svc.CreateRound(ctx, 1, -5, 10, "")
	require.Equal(t, game.KindInvalidInput, game.KindOf(err))

	_, err = svc.CreateRound(ctx, 1, 900000, 0, "")
	require.Equal(t, game.KindInvalidInput, game.KindOf(err))
}

func TestCreateRoundRejectsSecondOpenRound(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	round, err := svc.CreateRound(ctx, 1, 900000, 10, "")
	require.NoError(t, err)
	require.Equal(t, models.RoundOpen, round.Status)
	require.Equal(t, round.StartTime.Add(10*time.Minute), round.EndTime)

	_, err = svc.CreateRound(ctx, 2, 900001, 10, "")
	require.Equal(t, game.KindInvalidState, game.KindOf(err))

	// Closing the first round frees the slot.
	_, err = svc.CloseRound(ctx, round.ID)
	require.NoError(t, err)
	_, err = svc.CreateRound(ctx, 2, 900001, 10, "")
	require.NoError(t, err)
}

func TestSubmitGuessBounds(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	round, err := svc.CreateRound(ctx, 1, 900000, 10, "")
	require.NoError(t, err)

	_, err = svc.SubmitGuess(ctx, round.ID, "0xaa", "alice", 0, "")
	require.Equal(t, game.KindInvalidGuess, game.KindOf(err))

	_, err = svc.SubmitGuess(ctx, round.ID, "0xaa", "alice", 25000, "")
	require.Equal(t, game.KindInvalidGuess, game.KindOf(err))

	guess, err := svc.SubmitGuess(ctx, round.ID, "0xaa", "alice", 5000, "")
	require.NoError(t, err)
	require.Equal(t, 5000, guess.GuessValue)
}

func TestSubmitGuessNormalizesAddressCase(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	round, err := svc.CreateRound(ctx, 1, 900000, 10, "")
	require.NoError(t, err)

	_, err = svc.SubmitGuess(ctx, round.ID, "0xAbCd", "alice", 100, "")
	require.NoError(t, err)

	_, err = svc.SubmitGuess(ctx, round.ID, "0xABCD", "alice", 200, "")
	require.Equal(t, game.KindDuplicateGuess, game.KindOf(err))

	guessed, err := svc.HasGuessed(ctx, round.ID, "0xabcd")
	require.NoError(t, err)
	require.True(t, guessed)
}

func TestSubmitGuessLockedRound(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	round, err := svc.CreateRound(ctx, 1, 900000, 10, "")
	require.NoError(t, err)

	_, err = svc.CloseRound(ctx, round.ID)
	require.NoError(t, err)

	_, err = svc.SubmitGuess(ctx, round.ID, "0xaa", "alice", 100, "")
	require.Equal(t, game.KindRoundLocked, game.KindOf(err))
}

func TestConcurrentDuplicateSubmissions(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	round, err := svc.CreateRound(ctx, 1, 900000, 10, "")
	require.NoError(t, err)

	const attempts = 32
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			_, err := svc.SubmitGuess(ctx, round.ID, "0xsame", "racer", 100+v, "")
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var succeeded, duplicates int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case game.KindOf(err) == game.KindDuplicateGuess:
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, attempts-1, duplicates)
}

func TestCloseRoundIdempotent(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	round, err := svc.CreateRound(ctx, 1, 900000, 10, "")
	require.NoError(t, err)

	changed, err := svc.CloseRound(ctx, round.ID)
	require.NoError(t, err)
	require.True(t, changed)

	// Second close is a no-op success, never an error.
	changed, err = svc.CloseRound(ctx, round.ID)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestCloseRoundUnknownRound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CloseRound(context.Background(), 42)
	require.Equal(t, game.KindInvalidState, game.KindOf(err))
}

func TestConcurrentCloseSingleTransition(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	round, err := svc.CreateRound(ctx, 1, 900000, 10, "")
	require.NoError(t, err)

	type closeOutcome struct {
		changed bool
		err     error
	}
	const closers = 16
	outcomes := make(chan closeOutcome, closers)
	var wg sync.WaitGroup
	for i := 0; i < closers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := svc.CloseRound(ctx, round.ID)
			outcomes <- closeOutcome{changed, err}
		}()
	}
	wg.Wait()
	close(outcomes)

	var transitions int
	for out := range outcomes {
		require.NoError(t, out.err)
		if out.changed {
			transitions++
		}
	}
	require.Equal(t, 1, transitions)
}

func TestResolveRoundPreconditions(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	round, err := svc.CreateRound(ctx, 1, 900000, 10, "")
	require.NoError(t, err)

	// Still open.
	_, err = svc.ResolveRound(ctx, round.ID)
	require.Equal(t, game.KindInvalidState, game.KindOf(err))

	_, err = svc.CloseRound(ctx, round.ID)
	require.NoError(t, err)

	// Closed, but nobody guessed.
	_, err = svc.ResolveRound(ctx, round.ID)
	require.Equal(t, game.KindNoParticipants, game.KindOf(err))

	// Unknown round.
	_, err = svc.ResolveRound(ctx, 999)
	require.Equal(t, game.KindInvalidState, game.KindOf(err))
}

func TestResolveRoundOracleUnavailable(t *testing.T) {
	svc, blocks, _ := newTestService()
	ctx := context.Background()
	round, err := svc.CreateRound(ctx, 1, 900000, 10, "")
	require.NoError(t, err)
	_, err = svc.SubmitGuess(ctx, round.ID, "0xaa", "alice", 500, "")
	require.NoError(t, err)
	_, err = svc.CloseRound(ctx, round.ID)
	require.NoError(t, err)

	blocks.set("", false, 0)
	_, err = svc.ResolveRound(ctx, round.ID)
	require.Equal(t, game.KindOracleUnavailable, game.KindOf(err))

	// Round stays closed and resolvable.
	got, err := svc.Round(ctx, round.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoundClosed, got.Status)
}

func TestResolveRoundSingleGuessWinner(t *testing.T) {
	svc, blocks, _ := newTestService()
	ctx := context.Background()
	round, err := svc.CreateRound(ctx, 1, 900000, 10, "")
	require.NoError(t, err)
	_, err = svc.SubmitGuess(ctx, round.ID, "0xaa", "alice", 500, "")
	require.NoError(t, err)
	_, err = svc.CloseRound(ctx, round.ID)
	require.NoError(t, err)

	blocks.set("00000000abc", true, 500)
	result, err := svc.ResolveRound(ctx, round.ID)
	require.NoError(t, err)
	require.Equal(t, "0xaa", result.Winner.Address)
	require.Equal(t, 0, result.Winner.Distance)
	require.Nil(t, result.RunnerUp)

	got, err := svc.Round(ctx, round.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoundFinished, got.Status)
	require.NotNil(t, got.ActualTxCount)
	require.Equal(t, 500, *got.ActualTxCount)
	require.Equal(t, "00000000abc", *got.BlockHash)
	require.Equal(t, "0xaa", *got.WinnerAddress)
}

func TestResolveRoundRanksAndAnnounces(t *testing.T) {
	svc, blocks, st := newTestService()
	ctx := context.Background()
	round, err := svc.CreateRound(ctx, 7, 900000, 10, "")
	require.NoError(t, err)

	_, err = svc.SubmitGuess(ctx, round.ID, "0xaa", "alice", 100, "")
	require.NoError(t, err)
	_, err = svc.SubmitGuess(ctx, round.ID, "0xbb", "bob", 120, "")
	require.NoError(t, err)
	_, err = svc.SubmitGuess(ctx, round.ID, "0xcc", "carol", 80, "")
	require.NoError(t, err)

	_, err = svc.CloseRound(ctx, round.ID)
	require.NoError(t, err)

	// alice and bob are both 10 off; alice submitted first.
	blocks.set("00000000def", true, 110)
	result, err := svc.ResolveRound(ctx, round.ID)
	require.NoError(t, err)
	require.Equal(t, "0xaa", result.Winner.Address)
	require.NotNil(t, result.RunnerUp)
	require.Equal(t, "0xbb", result.RunnerUp.Address)

	// Winner announcement landed in the chat feed.
	chat, err := st.RecentChat(ctx, 10)
	require.NoError(t, err)
	require.Len(t, chat, 1)
	require.Equal(t, models.ChatWinner, chat[0].Type)
	require.Contains(t, chat[0].Message, "alice")

	// No transition out of finished.
	_, err = svc.ResolveRound(ctx, round.ID)
	require.Equal(t, game.KindInvalidState, game.KindOf(err))
	_, err = svc.CloseRound(ctx, round.ID)
	require.NoError(t, err) // no-op success, round already left open
}

func TestSavePrizeConfig(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.SavePrizeConfig(ctx, decimal.NewFromInt(-5), decimal.NewFromInt(1000), decimal.NewFromInt(500), "SATS", "")
	require.Equal(t, game.KindInvalidInput, game.KindOf(err))

	_, err = svc.SavePrizeConfig(ctx, decimal.NewFromInt(5000), decimal.NewFromInt(1000), decimal.NewFromInt(500), "", "")
	require.Equal(t, game.KindInvalidInput, game.KindOf(err))

	cfg, err := svc.SavePrizeConfig(ctx, decimal.NewFromInt(5000), decimal.NewFromInt(1000), decimal.NewFromInt(500), "SATS", "")
	require.NoError(t, err)
	require.Equal(t, "SATS", cfg.Currency)

	// Overwritten wholesale on the next save.
	cfg, err = svc.SavePrizeConfig(ctx, decimal.NewFromInt(9000), decimal.NewFromInt(2000), decimal.NewFromInt(800), "USDC", "")
	require.NoError(t, err)

	loaded, err := svc.PrizeConfig(ctx)
	require.NoError(t, err)
	require.True(t, loaded.Jackpot.Equal(decimal.NewFromInt(9000)))
	require.Equal(t, "USDC", loaded.Currency)
}

func TestGuessesReturnedInSubmissionOrder(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	round, err := svc.CreateRound(ctx, 1, 900000, 10, "")
	require.NoError(t, err)

	for i, addr := range []string{"0xaa", "0xbb", "0xcc"} {
		_, err = svc.SubmitGuess(ctx, round.ID, addr, addr, 100+i, "")
		require.NoError(t, err)
	}

	guesses, err := svc.GuessesForRound(ctx, round.ID)
	require.NoError(t, err)
	require.Len(t, guesses, 3)
	require.Equal(t, "0xaa", guesses[0].Address)
	require.Equal(t, "0xbb", guesses[1].Address)
	require.Equal(t, "0xcc", guesses[2].Address)
}
