package repository

import (
	"context"
	"time"

	"github.com/Dan9191/finance-service/internal/models"
	"github.com/shopspring/decimal"
)

const planColumns = `id, name, description, price, interval_months, active, created_at`

func scanPlan(s rowScanner) (*models.Plan, error) {
	p := &models.Plan{}
	err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.IntervalMonths, &p.Active, &p.CreatedAt)
	return p, err
}

// CreatePlan stores a subscription plan
func (r *Repository) CreatePlan(ctx context.Context, p *models.Plan) error {
	query := `
		INSERT INTO finance.plans (id, name, description, price, interval_months, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, p.ID, p.Name, p.Description, p.Price, p.IntervalMonths, p.Active).
		Scan(&p.CreatedAt)
	if err != nil {
		return translate(err, "create plan")
	}
	return nil
}

// ListPlans lists plans ordered by price
func (r *Repository) ListPlans(ctx context.Context, activeOnly bool) ([]models.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM finance.plans`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY price`

	rows, err := r.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, "list plans")
	}
	defer rows.Close()

	plans := []models.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, translate(err, "list plans")
		}
		plans = append(plans, *p)
	}
	return plans, translateRowsErr(rows.Err(), "list plans")
}

// FindPlan retrieves a plan by id
func (r *Repository) FindPlan(ctx context.Context, id string) (*models.Plan, error) {
	p, err := scanPlan(r.conn(ctx).QueryRowContext(ctx, `SELECT `+planColumns+` FROM finance.plans WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "find plan")
	}
	return p, nil
}

const subscriptionColumns = `id, user_id, plan_id, status, current_period_start, current_period_end, created_at, updated_at`

func scanSubscription(s rowScanner) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := s.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.Status, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd,
		&sub.CreatedAt, &sub.UpdatedAt)
	return sub, err
}

// FindSubscriptionByUser retrieves the subscription of a user
func (r *Repository) FindSubscriptionByUser(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := scanSubscription(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM finance.subscriptions WHERE user_id = $1`, userID))
	if err != nil {
		return nil, translate(err, "find subscription")
	}
	return sub, nil
}

// UpsertSubscription creates or replaces the single subscription row of a user
func (r *Repository) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	query := `
		INSERT INTO finance.subscriptions (id, user_id, plan_id, status, current_period_start, current_period_end)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET plan_id = EXCLUDED.plan_id, status = EXCLUDED.status,
		    current_period_start = EXCLUDED.current_period_start,
		    current_period_end = EXCLUDED.current_period_end,
		    updated_at = CURRENT_TIMESTAMP
		RETURNING id, created_at, updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, sub.ID, sub.UserID, sub.PlanID, sub.Status,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return translate(err, "upsert subscription")
	}
	return nil
}

// UpdateSubscriptionStatus changes the status of a user's subscription
func (r *Repository) UpdateSubscriptionStatus(ctx context.Context, userID string, status models.SubscriptionStatus) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE finance.subscriptions SET status = $2, updated_at = CURRENT_TIMESTAMP WHERE user_id = $1`,
		userID, status)
	if err != nil {
		return translate(err, "update subscription")
	}
	return expectRows(res, "update subscription")
}

// HasActiveSubscription reports whether the user has an active subscription at now
func (r *Repository) HasActiveSubscription(ctx context.Context, userID string, now time.Time) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM finance.subscriptions
			WHERE user_id = $1 AND status = 'active'
			  AND (current_period_end IS NULL OR current_period_end > $2)
		)`, userID, now).Scan(&exists)
	if err != nil {
		return false, translate(err, "check subscription")
	}
	return exists, nil
}

// ListExpiredActiveSubscriptions lists active subscriptions whose period ended before the cutoff
func (r *Repository) ListExpiredActiveSubscriptions(ctx context.Context, before time.Time) ([]models.Subscription, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, `SELECT `+subscriptionColumns+` FROM finance.subscriptions
		WHERE status = 'active' AND current_period_end IS NOT NULL AND current_period_end < $1
		ORDER BY current_period_end`, before)
	if err != nil {
		return nil, translate(err, "list subscriptions")
	}
	defer rows.Close()

	subs := []models.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, translate(err, "list subscriptions")
		}
		subs = append(subs, *sub)
	}
	return subs, translateRowsErr(rows.Err(), "list subscriptions")
}

// CreatePayment records a payment created at the processor
func (r *Repository) CreatePayment(ctx context.Context, p *models.SubscriptionPayment) error {
	query := `
		INSERT INTO finance.subscription_payments
			(id, user_id, plan_id, provider_payment_id, method, amount, status, cart_session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, p.ID, p.UserID, p.PlanID, p.ProviderPaymentID, p.Method,
		p.Amount, p.Status, p.CartSessionID).Scan(&p.CreatedAt)
	if err != nil {
		return translate(err, "create payment")
	}
	return nil
}

// FindPaymentByProviderID retrieves a payment by the processor's id.
// FOR UPDATE serializes concurrent confirmations when called inside InTx.
func (r *Repository) FindPaymentByProviderID(ctx context.Context, providerID string) (*models.SubscriptionPayment, error) {
	query := `
		SELECT id, user_id, plan_id, provider_payment_id, method, amount, status, cart_session_id, created_at, paid_at
		FROM finance.subscription_payments
		WHERE provider_payment_id = $1`
	if inTx(ctx) {
		query += ` FOR UPDATE`
	}
	p := &models.SubscriptionPayment{}
	err := r.conn(ctx).QueryRowContext(ctx, query, providerID).Scan(&p.ID, &p.UserID, &p.PlanID,
		&p.ProviderPaymentID, &p.Method, &p.Amount, &p.Status, &p.CartSessionID, &p.CreatedAt, &p.PaidAt)
	if err != nil {
		return nil, translate(err, "find payment")
	}
	return p, nil
}

// MarkPaymentStatus updates a payment status, stamping paid_at on confirmation
func (r *Repository) MarkPaymentStatus(ctx context.Context, id string, status models.PaymentStatus, paidAt *time.Time) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE finance.subscription_payments SET status = $2, paid_at = $3 WHERE id = $1`, id, status, paidAt)
	if err != nil {
		return translate(err, "update payment")
	}
	return expectRows(res, "update payment")
}

// CountSubscriptionsByStatus groups subscriptions by status
func (r *Repository) CountSubscriptionsByStatus(ctx context.Context) (map[models.SubscriptionStatus]int, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, `SELECT status, COUNT(*) FROM finance.subscriptions GROUP BY status`)
	if err != nil {
		return nil, translate(err, "count subscriptions")
	}
	defer rows.Close()

	counts := map[models.SubscriptionStatus]int{}
	for rows.Next() {
		var status models.SubscriptionStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, translate(err, "count subscriptions")
		}
		counts[status] = n
	}
	return counts, translateRowsErr(rows.Err(), "count subscriptions")
}

// CountUsers returns the number of registered users
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM finance.users`).Scan(&n); err != nil {
		return 0, translate(err, "count users")
	}
	return n, nil
}

// SignupsPerMonth counts new users per month since the given time
func (r *Repository) SignupsPerMonth(ctx context.Context, since time.Time) ([]models.MonthlyCount, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, `
		SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month, COUNT(*)
		FROM finance.users
		WHERE created_at >= $1
		GROUP BY month
		ORDER BY month`, since)
	if err != nil {
		return nil, translate(err, "count signups")
	}
	defer rows.Close()

	out := []models.MonthlyCount{}
	for rows.Next() {
		var c models.MonthlyCount
		if err := rows.Scan(&c.Month, &c.Count); err != nil {
			return nil, translate(err, "count signups")
		}
		out = append(out, c)
	}
	return out, translateRowsErr(rows.Err(), "count signups")
}

// RevenuePerMonth sums confirmed payments per month since the given time
func (r *Repository) RevenuePerMonth(ctx context.Context, since time.Time) ([]models.MonthlyAmount, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, `
		SELECT to_char(date_trunc('month', paid_at), 'YYYY-MM') AS month, SUM(amount)
		FROM finance.subscription_payments
		WHERE status = 'confirmed' AND paid_at >= $1
		GROUP BY month
		ORDER BY month`, since)
	if err != nil {
		return nil, translate(err, "sum revenue")
	}
	defer rows.Close()

	out := []models.MonthlyAmount{}
	for rows.Next() {
		var m models.MonthlyAmount
		var amount decimal.Decimal
		if err := rows.Scan(&m.Month, &amount); err != nil {
			return nil, translate(err, "sum revenue")
		}
		m.Amount = amount
		out = append(out, m)
	}
	return out, translateRowsErr(rows.Err(), "sum revenue")
}

func translateRowsErr(err error, what string) error {
	if err == nil {
		return nil
	}
	return translate(err, what)
}
