package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlySummary represents monthly income and expense statistics
type MonthlySummary struct {
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Income     decimal.Decimal `json:"income"`
	Expense    decimal.Decimal `json:"expense"`
	NetBalance decimal.Decimal `json:"net_balance"`
	ByCategory []CategoryTotal `json:"by_category"`
}

// CategoryTotal is the sum of one category and type within a period
type CategoryTotal struct {
	Category string          `json:"category"`
	Type     TransactionType `json:"type"`
	Total    decimal.Decimal `json:"total"`
}

// MonthlyCount is one point of a per-month count series
type MonthlyCount struct {
	Month string `json:"month"` // Format: YYYY-MM
	Count int    `json:"count"`
}

// MonthlyAmount is one point of a per-month money series
type MonthlyAmount struct {
	Month  string          `json:"month"` // Format: YYYY-MM
	Amount decimal.Decimal `json:"amount"`
}

// AdminStats feeds the admin console charts
type AdminStats struct {
	SubscriptionsByStatus map[SubscriptionStatus]int `json:"subscriptions_by_status"`
	TotalUsers            int                        `json:"total_users"`
	Signups               []MonthlyCount             `json:"signups"`
	Revenue               []MonthlyAmount            `json:"revenue"`
}

// GoalProjection estimates when a goal is reached with a fixed monthly contribution
type GoalProjection struct {
	GoalID              string          `json:"goal_id"`
	Remaining           decimal.Decimal `json:"remaining"`
	MonthlyContribution decimal.Decimal `json:"monthly_contribution"`
	AnnualRate          decimal.Decimal `json:"annual_rate"`
	Months              int             `json:"months"`
	Reachable           bool            `json:"reachable"`
	ReachedBy           *time.Time      `json:"reached_by,omitempty"`
}
