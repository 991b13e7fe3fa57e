package repository

import (
	"context"
	"time"

	"github.com/Dan9191/finance-service/internal/models"
)

const scheduledColumns = `id, user_id, description, amount, type, category, frequency, next_date, anchor_day,
	end_date, bank_account_id, credit_card_id, active, created_at, updated_at`

func scanScheduled(s rowScanner) (*models.ScheduledTransaction, error) {
	st := &models.ScheduledTransaction{}
	err := s.Scan(&st.ID, &st.UserID, &st.Description, &st.Amount, &st.Type, &st.Category, &st.Frequency,
		&st.NextDate, &st.AnchorDay, &st.EndDate, &st.BankAccountID, &st.CreditCardID, &st.Active, &st.CreatedAt, &st.UpdatedAt)
	return st, err
}

// CreateScheduledTransaction creates a new scheduled transaction
func (r *Repository) CreateScheduledTransaction(ctx context.Context, st *models.ScheduledTransaction) error {
	query := `
		INSERT INTO finance.scheduled_transactions (id, user_id, description, amount, type, category, frequency,
			next_date, anchor_day, end_date, bank_account_id, credit_card_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, st.ID, st.UserID, st.Description, st.Amount, st.Type, st.Category,
		st.Frequency, st.NextDate, st.AnchorDay, st.EndDate, st.BankAccountID, st.CreditCardID, st.Active).
		Scan(&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return translate(err, "create scheduled transaction")
	}
	return nil
}

// FindScheduledTransaction retrieves a scheduled transaction owned by the user
func (r *Repository) FindScheduledTransaction(ctx context.Context, userID, id string) (*models.ScheduledTransaction, error) {
	st, err := scanScheduled(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+scheduledColumns+` FROM finance.scheduled_transactions WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, translate(err, "find scheduled transaction")
	}
	return st, nil
}

// ListScheduledTransactions lists a user's scheduled transactions by next date
func (r *Repository) ListScheduledTransactions(ctx context.Context, userID string) ([]models.ScheduledTransaction, error) {
	return r.listScheduled(ctx, `SELECT `+scheduledColumns+` FROM finance.scheduled_transactions
		WHERE user_id = $1 ORDER BY next_date`, userID)
}

// ListDueScheduledTransactions lists active scheduled transactions due on or before asOf, across users
func (r *Repository) ListDueScheduledTransactions(ctx context.Context, asOf time.Time) ([]models.ScheduledTransaction, error) {
	return r.listScheduled(ctx, `SELECT `+scheduledColumns+` FROM finance.scheduled_transactions
		WHERE active AND next_date <= $1 ORDER BY next_date`, asOf)
}

func (r *Repository) listScheduled(ctx context.Context, query string, args ...any) ([]models.ScheduledTransaction, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list scheduled transactions")
	}
	defer rows.Close()

	out := []models.ScheduledTransaction{}
	for rows.Next() {
		st, err := scanScheduled(rows)
		if err != nil {
			return nil, translate(err, "list scheduled transactions")
		}
		out = append(out, *st)
	}
	return out, translateRowsErr(rows.Err(), "list scheduled transactions")
}

// UpdateScheduledTransaction updates a scheduled transaction owned by the user
func (r *Repository) UpdateScheduledTransaction(ctx context.Context, st *models.ScheduledTransaction) error {
	query := `
		UPDATE finance.scheduled_transactions
		SET description = $3, amount = $4, type = $5, category = $6, frequency = $7, next_date = $8,
		    anchor_day = $9, end_date = $10, bank_account_id = $11, credit_card_id = $12, active = $13,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, st.ID, st.UserID, st.Description, st.Amount, st.Type, st.Category,
		st.Frequency, st.NextDate, st.AnchorDay, st.EndDate, st.BankAccountID, st.CreditCardID, st.Active).
		Scan(&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return translate(err, "update scheduled transaction")
	}
	return nil
}

// AdvanceScheduledTransaction moves next_date forward and sets the active flag
func (r *Repository) AdvanceScheduledTransaction(ctx context.Context, id string, next time.Time, active bool) error {
	res, err := r.conn(ctx).ExecContext(ctx, `
		UPDATE finance.scheduled_transactions
		SET next_date = $2, active = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id, next, active)
	if err != nil {
		return translate(err, "advance scheduled transaction")
	}
	return expectRows(res, "advance scheduled transaction")
}

// DeleteScheduledTransaction deletes a scheduled transaction owned by the user
func (r *Repository) DeleteScheduledTransaction(ctx context.Context, userID, id string) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`DELETE FROM finance.scheduled_transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return translate(err, "delete scheduled transaction")
	}
	return expectRows(res, "delete scheduled transaction")
}
