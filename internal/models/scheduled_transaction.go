package models

import (
	"fmt"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/shopspring/decimal"
)

// ScheduledTransaction is a template materialized into transactions on its due dates
type ScheduledTransaction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Type          TransactionType `json:"type"`
	Category      string          `json:"category"`
	Frequency     Frequency       `json:"frequency"`
	NextDate      time.Time       `json:"next_date"`
	// AnchorDay is the day of month the series falls on when the month allows it
	AnchorDay     int             `json:"anchor_day"`
	EndDate       *time.Time      `json:"end_date,omitempty"`
	BankAccountID *string         `json:"bank_account_id,omitempty"`
	CreditCardID  *string         `json:"credit_card_id,omitempty"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Validate checks the user-supplied fields
func (s *ScheduledTransaction) Validate() error {
	if s.Description == "" {
		return fmt.Errorf("%w: description is required", common.ErrValidation)
	}
	if !s.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", common.ErrValidation)
	}
	if !s.Type.Valid() {
		return fmt.Errorf("%w: type must be income or expense", common.ErrValidation)
	}
	if !s.Frequency.Valid() {
		return fmt.Errorf("%w: frequency must be weekly, monthly or yearly", common.ErrValidation)
	}
	if s.NextDate.IsZero() {
		return fmt.Errorf("%w: next_date is required", common.ErrValidation)
	}
	if s.EndDate != nil && s.EndDate.Before(s.NextDate) {
		return fmt.Errorf("%w: end_date is before next_date", common.ErrValidation)
	}
	return nil
}

// Advance moves NextDate to the following occurrence
func (s *ScheduledTransaction) Advance() {
	s.NextDate = s.Frequency.Next(s.NextDate, s.AnchorDay)
}

// Materialize builds the transaction produced by the occurrence at s.NextDate
func (s *ScheduledTransaction) Materialize() *Transaction {
	id := s.ID
	return &Transaction{
		UserID:                 s.UserID,
		Description:            s.Description,
		Amount:                 s.Amount,
		Type:                   s.Type,
		Category:               s.Category,
		Date:                   s.NextDate,
		BankAccountID:          s.BankAccountID,
		CreditCardID:           s.CreditCardID,
		ScheduledTransactionID: &id,
	}
}
