package models

import (
	"fmt"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/shopspring/decimal"
)

// Goal is a savings target
type Goal struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Deadline      *time.Time      `json:"deadline,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Validate checks the user-supplied fields
func (g *Goal) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	if !g.TargetAmount.IsPositive() {
		return fmt.Errorf("%w: target_amount must be positive", common.ErrValidation)
	}
	if g.CurrentAmount.IsNegative() {
		return fmt.Errorf("%w: current_amount must not be negative", common.ErrValidation)
	}
	return nil
}

// Progress is current/target clamped to [0, 1]
func (g *Goal) Progress() decimal.Decimal {
	if !g.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	p := g.CurrentAmount.Div(g.TargetAmount)
	if p.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return p.Round(4)
}
