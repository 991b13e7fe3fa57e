package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/finance-service/internal/models"
)

const transactionColumns = `id, user_id, description, amount, type, category, date, bank_account_id, credit_card_id,
	is_recurring, recurrence_frequency, recurrence_end_date, parent_recurrence_id, scheduled_transaction_id,
	created_at, updated_at`

func scanTransaction(s rowScanner) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := s.Scan(&t.ID, &t.UserID, &t.Description, &t.Amount, &t.Type, &t.Category, &t.Date,
		&t.BankAccountID, &t.CreditCardID, &t.IsRecurring, &t.RecurrenceFrequency, &t.RecurrenceEndDate,
		&t.ParentRecurrenceID, &t.ScheduledTransactionID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// CreateTransaction creates a new transaction in the database
func (r *Repository) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO finance.transactions (id, user_id, description, amount, type, category, date,
			bank_account_id, credit_card_id, is_recurring, recurrence_frequency, recurrence_end_date,
			parent_recurrence_id, scheduled_transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, t.ID, t.UserID, t.Description, t.Amount, t.Type, t.Category,
		t.Date, t.BankAccountID, t.CreditCardID, t.IsRecurring, t.RecurrenceFrequency, t.RecurrenceEndDate,
		t.ParentRecurrenceID, t.ScheduledTransactionID).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return translate(err, "create transaction")
	}
	return nil
}

// FindTransaction retrieves a transaction owned by the user
func (r *Repository) FindTransaction(ctx context.Context, userID, id string) (*models.Transaction, error) {
	t, err := scanTransaction(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM finance.transactions WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, translate(err, "find transaction")
	}
	return t, nil
}

// UpdateTransaction updates the editable fields of one transaction.
// Recurrence fields are fixed at creation and not touched here.
func (r *Repository) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	query := `
		UPDATE finance.transactions
		SET description = $3, amount = $4, type = $5, category = $6, date = $7,
		    bank_account_id = $8, credit_card_id = $9, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, t.ID, t.UserID, t.Description, t.Amount, t.Type, t.Category,
		t.Date, t.BankAccountID, t.CreditCardID).Scan(&t.UpdatedAt)
	if err != nil {
		return translate(err, "update transaction")
	}
	return nil
}

// ListTransactions lists a user's transactions newest first
func (r *Repository) ListTransactions(ctx context.Context, userID string, f models.TransactionFilter) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM finance.transactions WHERE user_id = $1`
	args := []any{userID}
	add := func(cond string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(" AND "+cond, len(args))
	}
	if f.From != nil {
		add("date >= $%d", *f.From)
	}
	if f.To != nil {
		add("date <= $%d", *f.To)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.BankAccountID != "" {
		add("bank_account_id = $%d", f.BankAccountID)
	}
	if f.CreditCardID != "" {
		add("credit_card_id = $%d", f.CreditCardID)
	}
	if f.Recurring != nil {
		add("is_recurring = $%d", *f.Recurring)
	}
	query += ` ORDER BY date DESC, created_at DESC`
	query, args = paginate(query, args, f.Limit, f.Offset)

	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list transactions")
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, translate(err, "list transactions")
		}
		out = append(out, *t)
	}
	return out, translateRowsErr(rows.Err(), "list transactions")
}

// DeleteTransaction deletes one transaction owned by the user
func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`DELETE FROM finance.transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return translate(err, "delete transaction")
	}
	return expectRows(res, "delete transaction")
}

// DeleteTransactionSeries deletes every transaction of the user sharing the parent recurrence id
func (r *Repository) DeleteTransactionSeries(ctx context.Context, userID, parentID string) (int64, error) {
	res, err := r.conn(ctx).ExecContext(ctx,
		`DELETE FROM finance.transactions WHERE user_id = $1 AND (parent_recurrence_id = $2 OR id = $2)`,
		userID, parentID)
	if err != nil {
		return 0, translate(err, "delete transaction series")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, translate(err, "delete transaction series")
	}
	return n, nil
}

// MonthlySummary totals a user's transactions for one calendar month
func (r *Repository) MonthlySummary(ctx context.Context, userID string, year int, month time.Month) (*models.MonthlySummary, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	rows, err := r.conn(ctx).QueryContext(ctx, `
		SELECT category, type, SUM(amount)
		FROM finance.transactions
		WHERE user_id = $1 AND date >= $2 AND date < $3
		GROUP BY category, type
		ORDER BY type, category`, userID, from, to)
	if err != nil {
		return nil, translate(err, "summarize transactions")
	}
	defer rows.Close()

	s := &models.MonthlySummary{Year: year, Month: int(month), ByCategory: []models.CategoryTotal{}}
	for rows.Next() {
		var c models.CategoryTotal
		if err := rows.Scan(&c.Category, &c.Type, &c.Total); err != nil {
			return nil, translate(err, "summarize transactions")
		}
		if c.Type == models.TransactionIncome {
			s.Income = s.Income.Add(c.Total)
		} else {
			s.Expense = s.Expense.Add(c.Total)
		}
		s.ByCategory = append(s.ByCategory, c)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "summarize transactions")
	}
	s.NetBalance = s.Income.Sub(s.Expense)
	return s, nil
}
