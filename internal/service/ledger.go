// Package service provides business logic implementations.
package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"betlog-bot/internal/model"
)

// BetStore persists bet records. Implemented by repository.BetRepository
// and repository.MemoryBetRepository.
type BetStore interface {
	Insert(ctx context.Context, bet *model.NewBet) (int64, error)
	ListOpen(ctx context.Context, userID string) ([]*model.Bet, error)
	SetStatus(ctx context.Context, userID string, id int64, status model.Status) (bool, error)
	Aggregate(ctx context.Context, userID string) (*model.Aggregate, error)
}

// LedgerService records, settles and summarizes bets.
type LedgerService struct {
	store BetStore
}

// NewLedgerService creates a new LedgerService instance.
func NewLedgerService(store BetStore) *LedgerService {
	return &LedgerService{store: store}
}

// AddBet records a new open bet and returns its id.
func (s *LedgerService) AddBet(ctx context.Context, bet *model.NewBet) (int64, error) {
	id, err := s.store.Insert(ctx, bet)
	if err != nil {
		return 0, err
	}

	log.Info().
		Str("user_id", bet.UserID).
		Int64("bet_id", id).
		Str("match", bet.Match).
		Str("odds", bet.Odds.String()).
		Str("stake_pct", bet.StakePct.String()).
		Msg("Bet recorded")

	return id, nil
}

// OpenBets returns the user's open bets, newest first.
func (s *LedgerService) OpenBets(ctx context.Context, userID string) ([]*model.Bet, error) {
	return s.store.ListOpen(ctx, userID)
}

// Settle moves an open bet to status. rawID is the id as typed by the user;
// an id that is not an integer cannot match any bet and reports false.
func (s *LedgerService) Settle(ctx context.Context, userID, rawID string, status model.Status) (bool, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return false, nil
	}

	ok, err := s.store.SetStatus(ctx, userID, id, status)
	if err != nil {
		return false, fmt.Errorf("failed to settle bet %d: %w", id, err)
	}

	if ok {
		log.Info().
			Str("user_id", userID).
			Int64("bet_id", id).
			Str("status", status.String()).
			Msg("Bet settled")
	}

	return ok, nil
}

// Stats computes the user's performance summary.
func (s *LedgerService) Stats(ctx context.Context, userID string) (*Stats, error) {
	agg, err := s.store.Aggregate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ComputeStats(agg), nil
}
