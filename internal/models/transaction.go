package models

import (
	"fmt"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Valid reports whether t is a known transaction type
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

const (
	// DefaultInstallments is used when a recurring transaction has no end date
	DefaultInstallments = 12
	// MaxInstallments caps how many rows one recurring series may expand into
	MaxInstallments = 120
)

// Transaction represents a financial transaction
type Transaction struct {
	ID                     string          `json:"id"`
	UserID                 string          `json:"user_id"`
	Description            string          `json:"description"`
	Amount                 decimal.Decimal `json:"amount"`
	Type                   TransactionType `json:"type"`
	Category               string          `json:"category"`
	Date                   time.Time       `json:"date"`
	BankAccountID          *string         `json:"bank_account_id,omitempty"`
	CreditCardID           *string         `json:"credit_card_id,omitempty"`
	IsRecurring            bool            `json:"is_recurring"`
	RecurrenceFrequency    *Frequency      `json:"recurrence_frequency,omitempty"`
	RecurrenceEndDate      *time.Time      `json:"recurrence_end_date,omitempty"`
	ParentRecurrenceID     *string         `json:"parent_recurrence_id,omitempty"`
	ScheduledTransactionID *string         `json:"scheduled_transaction_id,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// Validate checks the user-supplied fields
func (t *Transaction) Validate() error {
	if t.Description == "" {
		return fmt.Errorf("%w: description is required", common.ErrValidation)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", common.ErrValidation)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: type must be income or expense", common.ErrValidation)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: date is required", common.ErrValidation)
	}
	if t.BankAccountID != nil && t.CreditCardID != nil {
		return fmt.Errorf("%w: a transaction belongs to a bank account or a credit card, not both", common.ErrValidation)
	}
	if t.IsRecurring {
		if t.RecurrenceFrequency == nil || !t.RecurrenceFrequency.Valid() {
			return fmt.Errorf("%w: recurring transactions need a weekly, monthly or yearly frequency", common.ErrValidation)
		}
		if t.RecurrenceEndDate != nil && t.RecurrenceEndDate.Before(t.Date) {
			return fmt.Errorf("%w: recurrence_end_date is before date", common.ErrValidation)
		}
	}
	return nil
}

// DeleteScope selects how much of a recurring series a delete removes
type DeleteScope string

const (
	DeleteSingle DeleteScope = "single"
	DeleteSeries DeleteScope = "series"
)

// TransactionFilter narrows a transaction listing
type TransactionFilter struct {
	From          *time.Time
	To            *time.Time
	Type          TransactionType
	Category      string
	BankAccountID string
	CreditCardID  string
	// Recurring filters on is_recurring when set
	Recurring *bool
	Limit     int
	Offset    int
}
