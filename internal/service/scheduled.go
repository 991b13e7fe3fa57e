package service

import (
	"context"
	"time"

	"github.com/Dan9191/finance-service/internal/models"
	"github.com/google/uuid"
)

// maxCatchUp bounds how many occurrences one run materializes per item
const maxCatchUp = 1000

// CreateScheduledTransaction creates a scheduled transaction
func (s *Service) CreateScheduledTransaction(ctx context.Context, userID string, st *models.ScheduledTransaction) (*models.ScheduledTransaction, error) {
	st.ID, st.UserID, st.Active = uuid.NewString(), userID, true
	if err := st.Validate(); err != nil {
		return nil, err
	}
	st.AnchorDay = st.NextDate.Day()
	if err := s.checkOwnership(ctx, userID, st.BankAccountID, st.CreditCardID); err != nil {
		return nil, err
	}
	if err := s.repo.CreateScheduledTransaction(ctx, st); err != nil {
		return nil, err
	}
	s.log.Infof("Scheduled transaction %s created for user %s", st.ID, userID)
	return st, nil
}

// GetScheduledTransaction returns one of the user's scheduled transactions
func (s *Service) GetScheduledTransaction(ctx context.Context, userID, id string) (*models.ScheduledTransaction, error) {
	return s.repo.FindScheduledTransaction(ctx, userID, id)
}

// ListScheduledTransactions lists the user's scheduled transactions
func (s *Service) ListScheduledTransactions(ctx context.Context, userID string) ([]models.ScheduledTransaction, error) {
	return s.repo.ListScheduledTransactions(ctx, userID)
}

// UpdateScheduledTransaction replaces the editable fields of a scheduled transaction.
// The submitted next_date re-anchors the series on its day of month.
func (s *Service) UpdateScheduledTransaction(ctx context.Context, userID, id string, st *models.ScheduledTransaction) (*models.ScheduledTransaction, error) {
	st.ID, st.UserID = id, userID
	if err := st.Validate(); err != nil {
		return nil, err
	}
	st.AnchorDay = st.NextDate.Day()
	if err := s.checkOwnership(ctx, userID, st.BankAccountID, st.CreditCardID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateScheduledTransaction(ctx, st); err != nil {
		return nil, err
	}
	s.log.Infof("Scheduled transaction %s updated for user %s", id, userID)
	return st, nil
}

// DeleteScheduledTransaction deletes a scheduled transaction; transactions it produced stay
func (s *Service) DeleteScheduledTransaction(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteScheduledTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.log.Infof("Scheduled transaction %s deleted for user %s", id, userID)
	return nil
}

// MaterializeDue turns every due occurrence of active scheduled transactions into
// transactions. Each item is handled in its own transaction and catches up on missed
// occurrences; items whose next date passes the end date are deactivated.
// It returns the number of transactions created.
func (s *Service) MaterializeDue(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.repo.ListDueScheduledTransactions(ctx, now)
	if err != nil {
		return 0, err
	}

	total := 0
	for i := range due {
		st := due[i]
		var created int
		err := s.repo.InTx(ctx, func(ctx context.Context) error {
			var err error
			created, err = s.materialize(ctx, &st, now)
			return err
		})
		if err != nil {
			s.log.Errorf("Failed to materialize scheduled transaction %s: %v", st.ID, err)
			continue
		}
		total += created
	}

	s.log.Infof("Materialized %d transactions from %d scheduled items", total, len(due))
	return total, nil
}

func (s *Service) materialize(ctx context.Context, st *models.ScheduledTransaction, now time.Time) (int, error) {
	created := 0
	active := st.Active
	for active && !st.NextDate.After(now) && created < maxCatchUp {
		if st.EndDate != nil && st.NextDate.After(*st.EndDate) {
			active = false
			break
		}
		t := st.Materialize()
		t.ID = uuid.NewString()
		if err := s.repo.CreateTransaction(ctx, t); err != nil {
			return 0, err
		}
		created++
		st.Advance()
	}
	if st.EndDate != nil && st.NextDate.After(*st.EndDate) {
		active = false
	}

	if err := s.repo.AdvanceScheduledTransaction(ctx, st.ID, st.NextDate, active); err != nil {
		return 0, err
	}
	return created, nil
}
