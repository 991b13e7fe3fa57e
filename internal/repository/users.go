package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dan9191/finance-service/internal/models"
)

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO finance.users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, user.ID, user.Email, user.PasswordHash).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return translate(err, "create user")
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, password_hash, created_at, updated_at
		FROM finance.users
		WHERE email = $1`
	err := r.conn(ctx).QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, translate(err, "find user")
	}
	return user, nil
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, password_hash, created_at, updated_at
		FROM finance.users
		WHERE id = $1`
	err := r.conn(ctx).QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, translate(err, "find user")
	}
	return user, nil
}

// CreateProfile creates the profile row of a user
func (r *Repository) CreateProfile(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO finance.profiles (user_id, full_name, phone, tax_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, p.UserID, p.FullName, p.Phone, p.TaxID, p.Role).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return translate(err, "create profile")
	}
	return nil
}

const profileColumns = `user_id, full_name, phone, tax_id, role, payment_customer_id, created_at, updated_at`

func scanProfile(s rowScanner) (*models.Profile, error) {
	p := &models.Profile{}
	err := s.Scan(&p.UserID, &p.FullName, &p.Phone, &p.TaxID, &p.Role, &p.PaymentCustomerID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// FindProfile retrieves the profile of a user
func (r *Repository) FindProfile(ctx context.Context, userID string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM finance.profiles WHERE user_id = $1`
	p, err := scanProfile(r.conn(ctx).QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, translate(err, "find profile")
	}
	return p, nil
}

// FindProfileByPhone retrieves a profile by its phone number, digits only
func (r *Repository) FindProfileByPhone(ctx context.Context, phone string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM finance.profiles
		WHERE regexp_replace(phone, '[^0-9]', '', 'g') = $1
		LIMIT 1`
	p, err := scanProfile(r.conn(ctx).QueryRowContext(ctx, query, phone))
	if err != nil {
		return nil, translate(err, "find profile")
	}
	return p, nil
}

// UpdateProfile updates the editable profile fields
func (r *Repository) UpdateProfile(ctx context.Context, p *models.Profile) error {
	query := `
		UPDATE finance.profiles
		SET full_name = $2, phone = $3, tax_id = $4, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1
		RETURNING updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, p.UserID, p.FullName, p.Phone, p.TaxID).Scan(&p.UpdatedAt)
	if err != nil {
		return translate(err, "update profile")
	}
	return nil
}

// SetPaymentCustomerID stores the payment processor customer of a user
func (r *Repository) SetPaymentCustomerID(ctx context.Context, userID, customerID string) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE finance.profiles SET payment_customer_id = $2, updated_at = CURRENT_TIMESTAMP WHERE user_id = $1`,
		userID, customerID)
	if err != nil {
		return translate(err, "update profile")
	}
	return expectRows(res, "update profile")
}

// CreateSession stores a new login session
func (r *Repository) CreateSession(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO finance.sessions (id, user_id, created_at, expires_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP, $3)
		RETURNING created_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, s.ID, s.UserID, s.ExpiresAt).Scan(&s.CreatedAt)
	if err != nil {
		return translate(err, "create session")
	}
	return nil
}

// FindSession retrieves a session by id
func (r *Repository) FindSession(ctx context.Context, id string) (*models.Session, error) {
	s := &models.Session{}
	query := `SELECT id, user_id, created_at, expires_at, revoked_at FROM finance.sessions WHERE id = $1`
	err := r.conn(ctx).QueryRowContext(ctx, query, id).
		Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &s.RevokedAt)
	if err != nil {
		return nil, translate(err, "find session")
	}
	return s, nil
}

// RevokeSession marks a session revoked; revoking twice is a no-op
func (r *Repository) RevokeSession(ctx context.Context, id string) error {
	_, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE finance.sessions SET revoked_at = CURRENT_TIMESTAMP WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return translate(err, "revoke session")
	}
	return nil
}

// RevokeUserSessions revokes every open session of a user
func (r *Repository) RevokeUserSessions(ctx context.Context, userID string) error {
	_, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE finance.sessions SET revoked_at = CURRENT_TIMESTAMP WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return translate(err, "revoke sessions")
	}
	return nil
}

// ListUsers returns users joined with their profile and subscription for the admin console
func (r *Repository) ListUsers(ctx context.Context, f models.UserFilter) ([]models.AdminUser, error) {
	query := `
		SELECT u.id, u.email, COALESCE(p.full_name, ''), COALESCE(p.phone, ''), COALESCE(p.role, 'user'),
		       p.user_id IS NOT NULL, s.status, COALESCE(pl.name, ''), s.current_period_end, u.created_at
		FROM finance.users u
		LEFT JOIN finance.profiles p ON p.user_id = u.id
		LEFT JOIN finance.subscriptions s ON s.user_id = u.id
		LEFT JOIN finance.plans pl ON pl.id = s.plan_id`
	args := []any{}
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		query += fmt.Sprintf(` WHERE lower(u.email) LIKE $%d OR lower(p.full_name) LIKE $%d`, len(args), len(args))
	}
	query += ` ORDER BY u.created_at DESC`
	query, args = paginate(query, args, f.Limit, f.Offset)

	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list users")
	}
	defer rows.Close()

	users := []models.AdminUser{}
	for rows.Next() {
		var u models.AdminUser
		var status *string
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Phone, &u.Role, &u.HasProfile,
			&status, &u.PlanName, &u.CurrentPeriodEnd, &u.CreatedAt); err != nil {
			return nil, translate(err, "list users")
		}
		if status != nil {
			st := models.SubscriptionStatus(*status)
			u.SubscriptionStatus = &st
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "list users")
	}
	return users, nil
}

// paginate appends LIMIT/OFFSET placeholders; limit defaults to 50 and is capped at 500
func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	return query + fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args
}

// CreateAPIKey stores a hashed API key
func (r *Repository) CreateAPIKey(ctx context.Context, k *models.APIKey) error {
	err := r.conn(ctx).QueryRowContext(ctx,
		`INSERT INTO finance.api_keys (id, name, key_hash) VALUES ($1, $2, $3) RETURNING created_at`,
		k.ID, k.Name, k.KeyHash).Scan(&k.CreatedAt)
	if err != nil {
		return translate(err, "create api key")
	}
	return nil
}

// FindActiveAPIKeyByHash retrieves a non-revoked API key by hash
func (r *Repository) FindActiveAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	k := &models.APIKey{}
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT id, name, key_hash, created_at, revoked_at FROM finance.api_keys WHERE key_hash = $1 AND revoked_at IS NULL`,
		hash).Scan(&k.ID, &k.Name, &k.KeyHash, &k.CreatedAt, &k.RevokedAt)
	if err != nil {
		return nil, translate(err, "find api key")
	}
	return k, nil
}
