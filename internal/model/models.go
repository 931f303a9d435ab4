// Package model defines the data models for the betting-log bot.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the settlement state of a bet.
type Status string

// Bet statuses. A bet starts open and is settled exactly once.
const (
	StatusOpen Status = "open"
	StatusWin  Status = "win"
	StatusLoss Status = "loss"
	StatusVoid Status = "void"
)

// ParseStatus matches a status token case-insensitively.
// Only settlement statuses are accepted; "open" is not a valid target.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusWin:
		return StatusWin, true
	case StatusLoss:
		return StatusLoss, true
	case StatusVoid:
		return StatusVoid, true
	}
	return "", false
}

// IsSettlement reports whether s is a valid settlement target (win, loss or void).
func (s Status) IsSettlement() bool {
	return s == StatusWin || s == StatusLoss || s == StatusVoid
}

func (s Status) String() string {
	return string(s)
}

// Bet represents a recorded betting signal.
type Bet struct {
	ID        int64
	CreatedAt time.Time
	UserID    string
	Match     string
	Market    string
	Pick      string
	Odds      decimal.Decimal
	StakePct  decimal.Decimal
	Note      string
	Status    Status
}

// NewBet holds the fields supplied when recording a bet.
type NewBet struct {
	UserID   string
	Match    string
	Market   string
	Pick     string
	Odds     decimal.Decimal
	StakePct decimal.Decimal
	Note     string
}

// Outcome is the (odds, stake, status) tuple used for statistics.
type Outcome struct {
	Odds     decimal.Decimal
	StakePct decimal.Decimal
	Status   Status
}

// Aggregate is a read-only summary of every bet owned by a user.
type Aggregate struct {
	Total    int
	Open     int
	Win      int
	Loss     int
	Void     int
	Outcomes []Outcome
}

// Add counts one outcome into the aggregate.
func (a *Aggregate) Add(o Outcome) {
	a.Total++
	switch o.Status {
	case StatusOpen:
		a.Open++
	case StatusWin:
		a.Win++
	case StatusLoss:
		a.Loss++
	case StatusVoid:
		a.Void++
	}
	a.Outcomes = append(a.Outcomes, o)
}
