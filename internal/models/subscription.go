package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionStatus is the billing state of a user's subscription
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionInactive SubscriptionStatus = "inactive"
)

// Valid reports whether s is a known status
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionActive, SubscriptionPastDue, SubscriptionCanceled, SubscriptionInactive:
		return true
	}
	return false
}

// Plan is a purchasable subscription plan
type Plan struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	IntervalMonths int             `json:"interval_months"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Subscription is the single subscription row a user owns
type Subscription struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	PlanID             string             `json:"plan_id"`
	Status             SubscriptionStatus `json:"status"`
	CurrentPeriodStart *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// ActiveAt reports whether the subscription grants access at now
func (s *Subscription) ActiveAt(now time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	return s.CurrentPeriodEnd == nil || s.CurrentPeriodEnd.After(now)
}

// SubscriptionDetails pairs a subscription with its plan for display
type SubscriptionDetails struct {
	Subscription *Subscription `json:"subscription"`
	Plan         *Plan         `json:"plan,omitempty"`
	Active       bool          `json:"active"`
}

// PaymentMethod is how a checkout is paid
type PaymentMethod string

const (
	PaymentPIX        PaymentMethod = "PIX"
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
)

// PaymentStatus is the local state of a subscription payment
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentFailed    PaymentStatus = "failed"
)

// SubscriptionPayment records one charge created at the payment processor
type SubscriptionPayment struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	PlanID            string          `json:"plan_id"`
	ProviderPaymentID string          `json:"provider_payment_id"`
	Method            PaymentMethod   `json:"method"`
	Amount            decimal.Decimal `json:"amount"`
	Status            PaymentStatus   `json:"status"`
	CartSessionID     string          `json:"cart_session_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
}
