package models

import (
	"fmt"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/shopspring/decimal"
)

// CreditCard represents a user's credit card. Only the last four digits are kept.
type CreditCard struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	LastFour    string          `json:"last_four"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	ClosingDay  int             `json:"closing_day"`
	DueDay      int             `json:"due_day"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Validate checks the user-supplied fields
func (c *CreditCard) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	if c.LastFour != "" {
		if len(c.LastFour) != 4 {
			return fmt.Errorf("%w: last_four must have 4 digits", common.ErrValidation)
		}
		for _, r := range c.LastFour {
			if r < '0' || r > '9' {
				return fmt.Errorf("%w: last_four must have 4 digits", common.ErrValidation)
			}
		}
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 || c.DueDay < 1 || c.DueDay > 31 {
		return fmt.Errorf("%w: closing_day and due_day must be between 1 and 31", common.ErrValidation)
	}
	if c.CreditLimit.IsNegative() {
		return fmt.Errorf("%w: credit_limit must not be negative", common.ErrValidation)
	}
	return nil
}
