package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutStep is a state of the checkout flow
type CheckoutStep string

const (
	StepPlanSelection CheckoutStep = "plan_selection"
	StepAuth          CheckoutStep = "auth"
	StepCheckout      CheckoutStep = "checkout"
)

// CartSession tracks an in-progress or abandoned checkout for follow-up
type CartSession struct {
	ID             string          `json:"id" bson:"_id"`
	Email          string          `json:"email" bson:"email"`
	Name           string          `json:"name" bson:"name"`
	Phone          string          `json:"phone" bson:"phone"`
	PlanID         string          `json:"plan_id" bson:"plan_id"`
	PlanName       string          `json:"plan_name" bson:"plan_name"`
	Amount         decimal.Decimal `json:"amount" bson:"-"`
	AmountCents    int64           `json:"-" bson:"amount_cents"`
	Step           CheckoutStep    `json:"step" bson:"step"`
	PaymentMethod  PaymentMethod   `json:"payment_method,omitempty" bson:"payment_method,omitempty"`
	UserID         string          `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Converted      bool            `json:"converted" bson:"converted"`
	ConvertedAt    *time.Time      `json:"converted_at,omitempty" bson:"converted_at,omitempty"`
	ReminderSentAt *time.Time      `json:"reminder_sent_at,omitempty" bson:"reminder_sent_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" bson:"updated_at"`
}

// CartFilter narrows the admin cart listing
type CartFilter struct {
	Converted *bool
	Limit     int64
	Offset    int64
}
