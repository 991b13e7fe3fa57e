package repository

import (
	"context"

	"github.com/Dan9191/finance-service/internal/models"
	"github.com/shopspring/decimal"
)

const bankAccountColumns = `id, user_id, name, bank_name, account_type, balance, created_at, updated_at`

func scanBankAccount(s rowScanner) (*models.BankAccount, error) {
	a := &models.BankAccount{}
	err := s.Scan(&a.ID, &a.UserID, &a.Name, &a.BankName, &a.AccountType, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// CreateBankAccount creates a new bank account in the database
func (r *Repository) CreateBankAccount(ctx context.Context, a *models.BankAccount) error {
	query := `
		INSERT INTO finance.bank_accounts (id, user_id, name, bank_name, account_type, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, a.ID, a.UserID, a.Name, a.BankName, a.AccountType, a.Balance).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return translate(err, "create bank account")
	}
	return nil
}

// FindBankAccount retrieves a bank account owned by the user
func (r *Repository) FindBankAccount(ctx context.Context, userID, id string) (*models.BankAccount, error) {
	a, err := scanBankAccount(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+bankAccountColumns+` FROM finance.bank_accounts WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, translate(err, "find bank account")
	}
	return a, nil
}

// ListBankAccounts lists a user's bank accounts
func (r *Repository) ListBankAccounts(ctx context.Context, userID string) ([]models.BankAccount, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT `+bankAccountColumns+` FROM finance.bank_accounts WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, translate(err, "list bank accounts")
	}
	defer rows.Close()

	out := []models.BankAccount{}
	for rows.Next() {
		a, err := scanBankAccount(rows)
		if err != nil {
			return nil, translate(err, "list bank accounts")
		}
		out = append(out, *a)
	}
	return out, translateRowsErr(rows.Err(), "list bank accounts")
}

// UpdateBankAccount updates a bank account owned by the user
func (r *Repository) UpdateBankAccount(ctx context.Context, a *models.BankAccount) error {
	query := `
		UPDATE finance.bank_accounts
		SET name = $3, bank_name = $4, account_type = $5, balance = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, a.ID, a.UserID, a.Name, a.BankName, a.AccountType, a.Balance).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return translate(err, "update bank account")
	}
	return nil
}

// DeleteBankAccount deletes a bank account owned by the user
func (r *Repository) DeleteBankAccount(ctx context.Context, userID, id string) error {
	res, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM finance.bank_accounts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return translate(err, "delete bank account")
	}
	return expectRows(res, "delete bank account")
}

const creditCardColumns = `id, user_id, name, brand, last_four, credit_limit, closing_day, due_day, created_at, updated_at`

func scanCreditCard(s rowScanner) (*models.CreditCard, error) {
	c := &models.CreditCard{}
	err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Brand, &c.LastFour, &c.CreditLimit, &c.ClosingDay, &c.DueDay,
		&c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateCreditCard creates a new credit card in the database
func (r *Repository) CreateCreditCard(ctx context.Context, c *models.CreditCard) error {
	query := `
		INSERT INTO finance.credit_cards (id, user_id, name, brand, last_four, credit_limit, closing_day, due_day,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, c.ID, c.UserID, c.Name, c.Brand, c.LastFour, c.CreditLimit,
		c.ClosingDay, c.DueDay).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return translate(err, "create credit card")
	}
	return nil
}

// FindCreditCard retrieves a credit card owned by the user
func (r *Repository) FindCreditCard(ctx context.Context, userID, id string) (*models.CreditCard, error) {
	c, err := scanCreditCard(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+creditCardColumns+` FROM finance.credit_cards WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, translate(err, "find credit card")
	}
	return c, nil
}

// ListCreditCards lists a user's credit cards
func (r *Repository) ListCreditCards(ctx context.Context, userID string) ([]models.CreditCard, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT `+creditCardColumns+` FROM finance.credit_cards WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, translate(err, "list credit cards")
	}
	defer rows.Close()

	out := []models.CreditCard{}
	for rows.Next() {
		c, err := scanCreditCard(rows)
		if err != nil {
			return nil, translate(err, "list credit cards")
		}
		out = append(out, *c)
	}
	return out, translateRowsErr(rows.Err(), "list credit cards")
}

// UpdateCreditCard updates a credit card owned by the user
func (r *Repository) UpdateCreditCard(ctx context.Context, c *models.CreditCard) error {
	query := `
		UPDATE finance.credit_cards
		SET name = $3, brand = $4, last_four = $5, credit_limit = $6, closing_day = $7, due_day = $8,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, c.ID, c.UserID, c.Name, c.Brand, c.LastFour, c.CreditLimit,
		c.ClosingDay, c.DueDay).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return translate(err, "update credit card")
	}
	return nil
}

// DeleteCreditCard deletes a credit card owned by the user
func (r *Repository) DeleteCreditCard(ctx context.Context, userID, id string) error {
	res, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM finance.credit_cards WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return translate(err, "delete credit card")
	}
	return expectRows(res, "delete credit card")
}

const goalColumns = `id, user_id, name, target_amount, current_amount, deadline, created_at, updated_at`

func scanGoal(s rowScanner) (*models.Goal, error) {
	g := &models.Goal{}
	err := s.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &g.Deadline, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// CreateGoal creates a new goal in the database
func (r *Repository) CreateGoal(ctx context.Context, g *models.Goal) error {
	query := `
		INSERT INTO finance.goals (id, user_id, name, target_amount, current_amount, deadline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, g.ID, g.UserID, g.Name, g.TargetAmount, g.CurrentAmount, g.Deadline).
		Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return translate(err, "create goal")
	}
	return nil
}

// FindGoal retrieves a goal owned by the user
func (r *Repository) FindGoal(ctx context.Context, userID, id string) (*models.Goal, error) {
	g, err := scanGoal(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM finance.goals WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, translate(err, "find goal")
	}
	return g, nil
}

// ListGoals lists a user's goals
func (r *Repository) ListGoals(ctx context.Context, userID string) ([]models.Goal, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT `+goalColumns+` FROM finance.goals WHERE user_id = $1 ORDER BY deadline NULLS LAST, name`, userID)
	if err != nil {
		return nil, translate(err, "list goals")
	}
	defer rows.Close()

	out := []models.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, translate(err, "list goals")
		}
		out = append(out, *g)
	}
	return out, translateRowsErr(rows.Err(), "list goals")
}

// UpdateGoal updates a goal owned by the user
func (r *Repository) UpdateGoal(ctx context.Context, g *models.Goal) error {
	query := `
		UPDATE finance.goals
		SET name = $3, target_amount = $4, current_amount = $5, deadline = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, g.ID, g.UserID, g.Name, g.TargetAmount, g.CurrentAmount, g.Deadline).
		Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return translate(err, "update goal")
	}
	return nil
}

// AddGoalContribution adds amount to a goal's current amount and returns the updated goal
func (r *Repository) AddGoalContribution(ctx context.Context, userID, id string, amount decimal.Decimal) (*models.Goal, error) {
	g, err := scanGoal(r.conn(ctx).QueryRowContext(ctx, `
		UPDATE finance.goals
		SET current_amount = current_amount + $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2
		RETURNING `+goalColumns, id, userID, amount))
	if err != nil {
		return nil, translate(err, "update goal")
	}
	return g, nil
}

// DeleteGoal deletes a goal owned by the user
func (r *Repository) DeleteGoal(ctx context.Context, userID, id string) error {
	res, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM finance.goals WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return translate(err, "delete goal")
	}
	return expectRows(res, "delete goal")
}
