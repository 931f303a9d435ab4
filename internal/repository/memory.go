package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"betlog-bot/internal/model"
)

// MemoryBetRepository is an in-process bet store with the same semantics as
// BetRepository. Used in tests and local runs without a database.
type MemoryBetRepository struct {
	mu     sync.RWMutex
	nextID int64
	bets   map[int64]*model.Bet
	now    func() time.Time
}

// NewMemoryBetRepository creates an empty in-memory store.
func NewMemoryBetRepository() *MemoryBetRepository {
	return &MemoryBetRepository{
		bets: make(map[int64]*model.Bet),
		now:  time.Now,
	}
}

// Insert records a new open bet and returns its id.
func (r *MemoryBetRepository) Insert(_ context.Context, bet *model.NewBet) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.bets[r.nextID] = &model.Bet{
		ID:        r.nextID,
		CreatedAt: r.now().UTC(),
		UserID:    bet.UserID,
		Match:     bet.Match,
		Market:    bet.Market,
		Pick:      bet.Pick,
		Odds:      bet.Odds,
		StakePct:  bet.StakePct,
		Note:      bet.Note,
		Status:    model.StatusOpen,
	}
	return r.nextID, nil
}

// ListOpen returns copies of the user's open bets, newest id first.
func (r *MemoryBetRepository) ListOpen(_ context.Context, userID string) ([]*model.Bet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var bets []*model.Bet
	for _, b := range r.bets {
		if b.UserID == userID && b.Status == model.StatusOpen {
			cp := *b
			bets = append(bets, &cp)
		}
	}
	sort.Slice(bets, func(i, j int) bool {
		return bets[i].ID > bets[j].ID
	})
	return bets, nil
}

// SetStatus settles an open bet owned by userID.
func (r *MemoryBetRepository) SetStatus(_ context.Context, userID string, id int64, status model.Status) (bool, error) {
	if !status.IsSettlement() {
		return false, ErrInvalidTransition
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bets[id]
	if !ok || b.UserID != userID || b.Status != model.StatusOpen {
		return false, nil
	}
	b.Status = status
	return true, nil
}

// Aggregate collects counts and outcome tuples for the user's bets in id order.
func (r *MemoryBetRepository) Aggregate(_ context.Context, userID string) (*model.Aggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.bets))
	for id, b := range r.bets {
		if b.UserID == userID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	agg := &model.Aggregate{}
	for _, id := range ids {
		b := r.bets[id]
		agg.Add(model.Outcome{Odds: b.Odds, StakePct: b.StakePct, Status: b.Status})
	}
	return agg, nil
}
