// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"betlog-bot/internal/model"
)

// Common errors for repository operations.
var (
	// ErrInvalidTransition is returned when a status update targets a non-settlement status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// BetRepository handles bet persistence in PostgreSQL.
type BetRepository struct {
	pool *pgxpool.Pool
}

// NewBetRepository creates a new BetRepository instance.
func NewBetRepository(pool *pgxpool.Pool) *BetRepository {
	return &BetRepository{pool: pool}
}

// Insert records a new open bet and returns its id.
func (r *BetRepository) Insert(ctx context.Context, bet *model.NewBet) (int64, error) {
	const query = `
		INSERT INTO bets (created_at, user_id, match, market, pick, odds, stake_pct, note, status)
		VALUES (NOW(), $1, $2, $3, $4, $5, $6, $7, 'open')
		RETURNING id
	`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		bet.UserID,
		bet.Match,
		bet.Market,
		bet.Pick,
		bet.Odds,
		bet.StakePct,
		bet.Note,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert bet: %w", err)
	}

	return id, nil
}

// ListOpen returns the user's open bets, newest id first.
func (r *BetRepository) ListOpen(ctx context.Context, userID string) ([]*model.Bet, error) {
	const query = `
		SELECT id, created_at, user_id, match, market, pick, odds, stake_pct, note, status
		FROM bets
		WHERE user_id = $1 AND status = 'open'
		ORDER BY id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open bets: %w", err)
	}
	defer rows.Close()

	var bets []*model.Bet
	for rows.Next() {
		var (
			bet    model.Bet
			status string
		)
		err := rows.Scan(
			&bet.ID,
			&bet.CreatedAt,
			&bet.UserID,
			&bet.Match,
			&bet.Market,
			&bet.Pick,
			&bet.Odds,
			&bet.StakePct,
			&bet.Note,
			&status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bet.CreatedAt = bet.CreatedAt.UTC()
		bet.Status = model.Status(status)
		bets = append(bets, &bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bets: %w", err)
	}

	return bets, nil
}

// SetStatus settles an open bet owned by userID.
// It reports whether exactly one row changed; a missing, foreign or already
// settled bet yields false without error.
func (r *BetRepository) SetStatus(ctx context.Context, userID string, id int64, status model.Status) (bool, error) {
	if !status.IsSettlement() {
		return false, ErrInvalidTransition
	}

	const query = `
		UPDATE bets
		SET status = $1
		WHERE id = $2 AND user_id = $3 AND status = 'open'
	`

	tag, err := r.pool.Exec(ctx, query, string(status), id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to update bet status: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Aggregate collects counts and (odds, stake, status) tuples for all of the user's bets.
func (r *BetRepository) Aggregate(ctx context.Context, userID string) (*model.Aggregate, error) {
	const query = `
		SELECT odds, stake_pct, status
		FROM bets
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate bets: %w", err)
	}
	defer rows.Close()

	agg := &model.Aggregate{}
	for rows.Next() {
		var (
			o      model.Outcome
			status string
		)
		if err := rows.Scan(&o.Odds, &o.StakePct, &status); err != nil {
			return nil, fmt.Errorf("failed to scan bet outcome: %w", err)
		}
		o.Status = model.Status(status)
		agg.Add(o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bet outcomes: %w", err)
	}

	return agg, nil
}
