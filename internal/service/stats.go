package service

import (
	"github.com/shopspring/decimal"

	"betlog-bot/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Stats is the performance summary of a user's ledger.
// HitRate and ROI are invalid (no data) when nothing has been settled as win or loss.
type Stats struct {
	Total   int
	Open    int
	Win     int
	Loss    int
	Void    int
	HitRate decimal.NullDecimal
	ROI     decimal.NullDecimal
	Staked  decimal.Decimal
	Profit  decimal.Decimal
}

// ComputeStats derives hit rate and ROI from an aggregate.
// Open and void bets are excluded from both figures.
func ComputeStats(agg *model.Aggregate) *Stats {
	s := &Stats{
		Total:   agg.Total,
		Open:    agg.Open,
		Win:     agg.Win,
		Loss:    agg.Loss,
		Void:    agg.Void,
		HitRate: HitRate(agg.Win, agg.Loss),
	}

	staked, profit := decimal.Zero, decimal.Zero
	for _, o := range agg.Outcomes {
		switch o.Status {
		case model.StatusWin:
			staked = staked.Add(o.StakePct)
			profit = profit.Add(o.StakePct.Mul(o.Odds.Sub(decimal.NewFromInt(1))))
		case model.StatusLoss:
			staked = staked.Add(o.StakePct)
			profit = profit.Sub(o.StakePct)
		}
	}

	s.Staked = staked
	s.Profit = profit
	if !staked.IsZero() {
		s.ROI = decimal.NewNullDecimal(profit.Div(staked).Mul(hundred))
	}

	return s
}

// HitRate returns win/(win+loss)*100, or an invalid value when win+loss is zero.
func HitRate(win, loss int) decimal.NullDecimal {
	settled := win + loss
	if settled == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(
		decimal.NewFromInt(int64(win)).Div(decimal.NewFromInt(int64(settled))).Mul(hundred),
	)
}

// FormatPercent renders a percentage with one decimal place and a % suffix,
// or noData when the value is invalid.
func FormatPercent(v decimal.NullDecimal, noData string) string {
	if !v.Valid {
		return noData
	}
	return v.Decimal.StringFixed(1) + "%"
}
