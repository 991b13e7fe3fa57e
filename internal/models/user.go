package models

import "time"

// Role is the access level stored on a profile
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents an authenticated identity
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Not serialized
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile holds the per-user data the app needs beyond credentials.
// A user row without a profile row is treated as an incomplete account.
type Profile struct {
	UserID            string    `json:"user_id"`
	FullName          string    `json:"full_name"`
	Phone             string    `json:"phone"`
	TaxID             string    `json:"tax_id"`
	Role              Role      `json:"role"`
	PaymentCustomerID string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Session is a revocable login; its id is the JWT id claim
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the session can still authenticate requests at now
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// APIKey authorizes machine callers of the function endpoints
type APIKey struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	KeyHash   string     `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// AdminUser is a row of the admin users table
type AdminUser struct {
	ID                 string              `json:"id"`
	Email              string              `json:"email"`
	FullName           string              `json:"full_name"`
	Phone              string              `json:"phone"`
	Role               Role                `json:"role"`
	HasProfile         bool                `json:"has_profile"`
	SubscriptionStatus *SubscriptionStatus `json:"subscription_status,omitempty"`
	PlanName           string              `json:"plan_name,omitempty"`
	CurrentPeriodEnd   *time.Time          `json:"current_period_end,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}

// UserFilter narrows the admin users listing
type UserFilter struct {
	Search string
	Limit  int
	Offset int
}
