package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/models"
	"github.com/google/uuid"
)

// expandSeries builds every row of a recurring transaction. All rows, the first
// included, share the first row's id as parent_recurrence_id. With an end date the
// series runs through it inclusively, otherwise it has installments rows.
func expandSeries(t models.Transaction, installments int) []models.Transaction {
	if installments <= 0 {
		installments = models.DefaultInstallments
	}
	if installments > models.MaxInstallments {
		installments = models.MaxInstallments
	}
	freq := *t.RecurrenceFrequency

	count := installments
	if t.RecurrenceEndDate != nil {
		count = 0
		for count < models.MaxInstallments && !freq.Occurrence(t.Date, count).After(*t.RecurrenceEndDate) {
			count++
		}
	}

	parentID := uuid.NewString()
	rows := make([]models.Transaction, 0, count)
	for n := 0; n < count; n++ {
		row := t
		if n == 0 {
			row.ID = parentID
		} else {
			row.ID = uuid.NewString()
		}
		row.Date = freq.Occurrence(t.Date, n)
		row.ParentRecurrenceID = &parentID
		rows = append(rows, row)
	}
	return rows
}

// checkOwnership verifies the linked account or card belongs to the user
func (s *Service) checkOwnership(ctx context.Context, userID string, bankAccountID, creditCardID *string) error {
	if bankAccountID != nil {
		if _, err := s.repo.FindBankAccount(ctx, userID, *bankAccountID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("%w: bank account not found", common.ErrValidation)
			}
			return err
		}
	}
	if creditCardID != nil {
		if _, err := s.repo.FindCreditCard(ctx, userID, *creditCardID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("%w: credit card not found", common.ErrValidation)
			}
			return err
		}
	}
	return nil
}

// CreateTransaction creates one transaction, or a whole series when it is recurring
func (s *Service) CreateTransaction(ctx context.Context, userID string, t *models.Transaction, installments int) ([]models.Transaction, error) {
	t.UserID = userID
	t.ParentRecurrenceID = nil
	t.ScheduledTransactionID = nil
	if !t.IsRecurring {
		t.RecurrenceFrequency = nil
		t.RecurrenceEndDate = nil
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, userID, t.BankAccountID, t.CreditCardID); err != nil {
		return nil, err
	}

	if !t.IsRecurring {
		t.ID = uuid.NewString()
		if err := s.repo.CreateTransaction(ctx, t); err != nil {
			return nil, err
		}
		s.log.Infof("Transaction %s created for user %s", t.ID, userID)
		return []models.Transaction{*t}, nil
	}

	rows := expandSeries(*t, installments)
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		for i := range rows {
			if err := s.repo.CreateTransaction(ctx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Recurring series %s created for user %s: %d transactions", *rows[0].ParentRecurrenceID, userID, len(rows))
	return rows, nil
}

// GetTransaction returns one of the user's transactions
func (s *Service) GetTransaction(ctx context.Context, userID, id string) (*models.Transaction, error) {
	return s.repo.FindTransaction(ctx, userID, id)
}

// ListTransactions lists the user's transactions
func (s *Service) ListTransactions(ctx context.Context, userID string, f models.TransactionFilter) ([]models.Transaction, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, fmt.Errorf("%w: type must be income or expense", common.ErrValidation)
	}
	return s.repo.ListTransactions(ctx, userID, f)
}

// UpdateTransaction edits one row. Recurrence settings are fixed at creation.
func (s *Service) UpdateTransaction(ctx context.Context, userID, id string, in *models.Transaction) (*models.Transaction, error) {
	t, err := s.repo.FindTransaction(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	t.Description = in.Description
	t.Amount = in.Amount
	t.Type = in.Type
	t.Category = in.Category
	t.Date = in.Date
	t.BankAccountID = in.BankAccountID
	t.CreditCardID = in.CreditCardID

	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, userID, t.BankAccountID, t.CreditCardID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTransaction(ctx, t); err != nil {
		return nil, err
	}

	s.log.Infof("Transaction %s updated for user %s", t.ID, userID)
	return t, nil
}

// DeleteTransaction removes one row, or with DeleteSeries every row of its series.
// It returns how many rows were removed.
func (s *Service) DeleteTransaction(ctx context.Context, userID, id string, scope models.DeleteScope) (int64, error) {
	switch scope {
	case "", models.DeleteSingle:
		if err := s.repo.DeleteTransaction(ctx, userID, id); err != nil {
			return 0, err
		}
		s.log.Infof("Transaction %s deleted for user %s", id, userID)
		return 1, nil
	case models.DeleteSeries:
	default:
		return 0, fmt.Errorf("%w: scope must be single or series", common.ErrValidation)
	}

	t, err := s.repo.FindTransaction(ctx, userID, id)
	if err != nil {
		return 0, err
	}
	parentID := t.ID
	if t.ParentRecurrenceID != nil {
		parentID = *t.ParentRecurrenceID
	}

	n, err := s.repo.DeleteTransactionSeries(ctx, userID, parentID)
	if err != nil {
		return 0, err
	}
	s.log.Infof("Recurring series %s deleted for user %s: %d transactions", parentID, userID, n)
	return n, nil
}

// MonthlySummary totals one calendar month; zero year or month means the current one
func (s *Service) MonthlySummary(ctx context.Context, userID string, year, month int) (*models.MonthlySummary, error) {
	now := s.now()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month must be between 1 and 12", common.ErrValidation)
	}
	return s.repo.MonthlySummary(ctx, userID, year, time.Month(month))
}
