// Package repository provides data access layer implementations.
// Tests use testcontainers-go to spin up a PostgreSQL container; the same
// behaviour suite also runs against the in-memory store.
package repository

import (
	"context"
	"os/exec"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"betlog-bot/internal/model"
	"betlog-bot/internal/pkg/db"
)

// betStore is the behaviour shared by BetRepository and MemoryBetRepository.
type betStore interface {
	Insert(ctx context.Context, bet *model.NewBet) (int64, error)
	ListOpen(ctx context.Context, userID string) ([]*model.Bet, error)
	SetStatus(ctx context.Context, userID string, id int64, status model.Status) (bool, error)
	Aggregate(ctx context.Context, userID string) (*model.Aggregate, error)
}

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a migrated PostgreSQL container and returns a connection pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, db.MigrateUp(connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func newBet(userID, match string, odds, stake string) *model.NewBet {
	return &model.NewBet{
		UserID:   userID,
		Match:    match,
		Market:   "Corners",
		Pick:     "Over 8.5",
		Odds:     decimal.RequireFromString(odds),
		StakePct: decimal.RequireFromString(stake),
	}
}

// storeFactories returns one constructor per implementation under test.
func storeFactories() map[string]func(t *testing.T) betStore {
	return map[string]func(t *testing.T) betStore{
		"memory": func(t *testing.T) betStore {
			return NewMemoryBetRepository()
		},
		"postgres": func(t *testing.T) betStore {
			pool, cleanup := setupTestDB(t)
			t.Cleanup(cleanup)
			return NewBetRepository(pool)
		},
	}
}

func TestBetStore_InsertAndListOpen(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			bet := newBet("100", "Celta vs PAOK", "1.62", "2.0")
			bet.Note = "Buen ritmo"
			id, err := store.Insert(ctx, bet)
			require.NoError(t, err)
			assert.Greater(t, id, int64(0))

			bets, err := store.ListOpen(ctx, "100")
			require.NoError(t, err)
			require.Len(t, bets, 1)

			got := bets[0]
			assert.Equal(t, id, got.ID)
			assert.Equal(t, "100", got.UserID)
			assert.Equal(t, "Celta vs PAOK", got.Match)
			assert.Equal(t, "Corners", got.Market)
			assert.Equal(t, "Over 8.5", got.Pick)
			assert.True(t, got.Odds.Equal(decimal.RequireFromString("1.62")))
			assert.True(t, got.StakePct.Equal(decimal.RequireFromString("2")))
			assert.Equal(t, "Buen ritmo", got.Note)
			assert.Equal(t, model.StatusOpen, got.Status)
			assert.False(t, got.CreatedAt.IsZero())
			assert.Equal(t, time.UTC, got.CreatedAt.Location())

			// Never visible to another user
			others, err := store.ListOpen(ctx, "200")
			require.NoError(t, err)
			assert.Empty(t, others)
		})
	}
}

func TestBetStore_ListOpenNewestFirst(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			var ids []int64
			for _, m := range []string{"A", "B", "C"} {
				id, err := store.Insert(ctx, newBet("100", m, "1.9", "1"))
				require.NoError(t, err)
				ids = append(ids, id)
			}

			ok, err := store.SetStatus(ctx, "100", ids[1], model.StatusWin)
			require.NoError(t, err)
			require.True(t, ok)

			bets, err := store.ListOpen(ctx, "100")
			require.NoError(t, err)
			require.Len(t, bets, 2)
			assert.Equal(t, ids[2], bets[0].ID)
			assert.Equal(t, ids[0], bets[1].ID)
		})
	}
}

func TestBetStore_SetStatus(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			id, err := store.Insert(ctx, newBet("100", "A vs B", "2.0", "10"))
			require.NoError(t, err)

			// Foreign owner
			ok, err := store.SetStatus(ctx, "200", id, model.StatusWin)
			require.NoError(t, err)
			assert.False(t, ok)

			// Missing id
			ok, err = store.SetStatus(ctx, "100", id+1000, model.StatusWin)
			require.NoError(t, err)
			assert.False(t, ok)

			// Reopening is not a transition
			ok, err = store.SetStatus(ctx, "100", id, model.StatusOpen)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.False(t, ok)

			ok, err = store.SetStatus(ctx, "100", id, model.StatusLoss)
			require.NoError(t, err)
			assert.True(t, ok)

			// No double settlement
			ok, err = store.SetStatus(ctx, "100", id, model.StatusWin)
			require.NoError(t, err)
			assert.False(t, ok)

			agg, err := store.Aggregate(ctx, "100")
			require.NoError(t, err)
			assert.Equal(t, 1, agg.Loss)
			assert.Equal(t, 0, agg.Win)
		})
	}
}

func TestBetStore_ConcurrentSettlement(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			id, err := store.Insert(ctx, newBet("100", "A vs B", "2.0", "10"))
			require.NoError(t, err)

			var (
				wg        sync.WaitGroup
				successes atomic.Int32
			)
			statuses := []model.Status{model.StatusWin, model.StatusLoss, model.StatusVoid}
			for i := 0; i < 12; i++ {
				wg.Add(1)
				go func(s model.Status) {
					defer wg.Done()
					ok, err := store.SetStatus(ctx, "100", id, s)
					if err == nil && ok {
						successes.Add(1)
					}
				}(statuses[i%len(statuses)])
			}
			wg.Wait()

			assert.Equal(t, int32(1), successes.Load())
		})
	}
}

func TestBetStore_Aggregate(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			settle := map[string]model.Status{
				"W": model.StatusWin,
				"L": model.StatusLoss,
				"V": model.StatusVoid,
			}
			for _, m := range []string{"W", "L", "V", "O"} {
				id, err := store.Insert(ctx, newBet("100", m, "2.5", "3"))
				require.NoError(t, err)
				if s, ok := settle[m]; ok {
					_, err := store.SetStatus(ctx, "100", id, s)
					require.NoError(t, err)
				}
			}
			_, err := store.Insert(ctx, newBet("200", "other", "1.5", "1"))
			require.NoError(t, err)

			agg, err := store.Aggregate(ctx, "100")
			require.NoError(t, err)
			assert.Equal(t, 4, agg.Total)
			assert.Equal(t, 1, agg.Open)
			assert.Equal(t, 1, agg.Win)
			assert.Equal(t, 1, agg.Loss)
			assert.Equal(t, 1, agg.Void)
			require.Len(t, agg.Outcomes, 4)
			assert.Equal(t, model.StatusWin, agg.Outcomes[0].Status)
			assert.True(t, agg.Outcomes[0].Odds.Equal(decimal.RequireFromString("2.5")))

			empty, err := store.Aggregate(ctx, "300")
			require.NoError(t, err)
			assert.Equal(t, 0, empty.Total)
			assert.Empty(t, empty.Outcomes)
		})
	}
}

func TestBetStore_KeepsExactDecimals(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			_, err := store.Insert(ctx, newBet("100", "A vs B", "1.62345", "123456789"))
			require.NoError(t, err)
			_, err = store.Insert(ctx, newBet("100", "C vs D", "123456789", "0.00001"))
			require.NoError(t, err)

			bets, err := store.ListOpen(ctx, "100")
			require.NoError(t, err)
			require.Len(t, bets, 2)

			assert.Equal(t, "123456789", bets[0].Odds.String())
			assert.Equal(t, "0.00001", bets[0].StakePct.String())
			assert.Equal(t, "1.62345", bets[1].Odds.String())
			assert.Equal(t, "123456789", bets[1].StakePct.String())

			agg, err := store.Aggregate(ctx, "100")
			require.NoError(t, err)
			require.Len(t, agg.Outcomes, 2)
			assert.Equal(t, "1.62345", agg.Outcomes[0].Odds.String())
			assert.Equal(t, "123456789", agg.Outcomes[0].StakePct.String())
		})
	}
}
