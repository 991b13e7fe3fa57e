package models

import (
	"fmt"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/shopspring/decimal"
)

// AccountType classifies a bank account
type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountInvestment AccountType = "investment"
)

// BankAccount represents a user's bank account
type BankAccount struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Name        string          `json:"name"`
	BankName    string          `json:"bank_name"`
	AccountType AccountType     `json:"account_type"`
	Balance     decimal.Decimal `json:"balance"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Validate checks the user-supplied fields
func (a *BankAccount) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	switch a.AccountType {
	case AccountChecking, AccountSavings, AccountInvestment:
	case "":
		a.AccountType = AccountChecking
	default:
		return fmt.Errorf("%w: unknown account type %q", common.ErrValidation, a.AccountType)
	}
	return nil
}
