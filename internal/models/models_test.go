package models

import (
	"errors"
	"testing"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFrequency_Occurrence(t *testing.T) {
	tests := []struct {
		name  string
		freq  Frequency
		start time.Time
		n     int
		want  time.Time
	}{
		{"weekly", FrequencyWeekly, date(2026, 1, 1), 2, date(2026, 1, 15)},
		{"monthly", FrequencyMonthly, date(2026, 1, 10), 3, date(2026, 4, 10)},
		{"monthly clamps february", FrequencyMonthly, date(2026, 1, 31), 1, date(2026, 2, 28)},
		{"monthly keeps anchor day", FrequencyMonthly, date(2026, 1, 31), 2, date(2026, 3, 31)},
		{"monthly leap year", FrequencyMonthly, date(2028, 1, 30), 1, date(2028, 2, 29)},
		{"yearly leap day", FrequencyYearly, date(2028, 2, 29), 1, date(2029, 2, 28)},
		{"crosses year", FrequencyMonthly, date(2026, 11, 15), 3, date(2027, 2, 15)},
		{"zero is start", FrequencyMonthly, date(2026, 5, 5), 0, date(2026, 5, 5)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.freq.Occurrence(tc.start, tc.n))
		})
	}
}

func TestTransaction_Validate(t *testing.T) {
	monthly := FrequencyMonthly
	bogus := Frequency("daily")
	acc, card := "a", "c"
	before := date(2025, 1, 1)

	valid := func() Transaction {
		return Transaction{Description: "Rent", Amount: decimal.NewFromInt(100), Type: TransactionExpense, Date: date(2026, 1, 1)}
	}

	tx := valid()
	require.NoError(t, tx.Validate())

	cases := map[string]func(*Transaction){
		"no description":       func(t *Transaction) { t.Description = "" },
		"zero amount":          func(t *Transaction) { t.Amount = decimal.Zero },
		"bad type":             func(t *Transaction) { t.Type = "transfer" },
		"no date":              func(t *Transaction) { t.Date = time.Time{} },
		"account and card":     func(t *Transaction) { t.BankAccountID, t.CreditCardID = &acc, &card },
		"recurring no freq":    func(t *Transaction) { t.IsRecurring = true },
		"recurring bad freq":   func(t *Transaction) { t.IsRecurring, t.RecurrenceFrequency = true, &bogus },
		"end before start":     func(t *Transaction) { t.IsRecurring, t.RecurrenceFrequency, t.RecurrenceEndDate = true, &monthly, &before },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			tx := valid()
			mutate(&tx)
			err := tx.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrValidation))
		})
	}
}

func TestCreditCard_Validate(t *testing.T) {
	c := CreditCard{Name: "Visa", LastFour: "1234", ClosingDay: 5, DueDay: 15}
	require.NoError(t, c.Validate())

	c.LastFour = "12a4"
	assert.ErrorIs(t, c.Validate(), common.ErrValidation)

	c.LastFour = "1234"
	c.DueDay = 32
	assert.ErrorIs(t, c.Validate(), common.ErrValidation)
}

func TestBankAccount_ValidateDefaultsType(t *testing.T) {
	a := BankAccount{Name: "Main"}
	require.NoError(t, a.Validate())
	assert.Equal(t, AccountChecking, a.AccountType)

	a.AccountType = "crypto"
	assert.ErrorIs(t, a.Validate(), common.ErrValidation)
}

func TestGoal_Progress(t *testing.T) {
	g := Goal{TargetAmount: decimal.NewFromInt(200), CurrentAmount: decimal.NewFromInt(50)}
	assert.True(t, g.Progress().Equal(decimal.RequireFromString("0.25")))

	g.CurrentAmount = decimal.NewFromInt(500)
	assert.True(t, g.Progress().Equal(decimal.NewFromInt(1)))
}

func TestSubscription_ActiveAt(t *testing.T) {
	now := date(2026, 6, 1)
	future, past := now.AddDate(0, 1, 0), now.AddDate(0, -1, 0)

	assert.True(t, (&Subscription{Status: SubscriptionActive}).ActiveAt(now))
	assert.True(t, (&Subscription{Status: SubscriptionActive, CurrentPeriodEnd: &future}).ActiveAt(now))
	assert.False(t, (&Subscription{Status: SubscriptionActive, CurrentPeriodEnd: &past}).ActiveAt(now))
	assert.False(t, (&Subscription{Status: SubscriptionPastDue, CurrentPeriodEnd: &future}).ActiveAt(now))
}

func TestScheduledTransaction_Materialize(t *testing.T) {
	s := ScheduledTransaction{ID: "s1", UserID: "u1", Description: "Salary", Amount: decimal.NewFromInt(1000),
		Type: TransactionIncome, Frequency: FrequencyMonthly, NextDate: date(2026, 3, 5)}
	tx := s.Materialize()

	assert.Equal(t, "u1", tx.UserID)
	assert.Equal(t, date(2026, 3, 5), tx.Date)
	require.NotNil(t, tx.ScheduledTransactionID)
	assert.Equal(t, "s1", *tx.ScheduledTransactionID)
	assert.NoError(t, tx.Validate())
}

func TestFrequency_NextRestoresAnchorDay(t *testing.T) {
	got := []time.Time{}
	d := date(2026, 1, 31)
	for i := 0; i < 4; i++ {
		d = FrequencyMonthly.Next(d, 31)
		got = append(got, d)
	}
	assert.Equal(t, []time.Time{date(2026, 2, 28), date(2026, 3, 31), date(2026, 4, 30), date(2026, 5, 31)}, got)

	assert.Equal(t, date(2029, 2, 28), FrequencyYearly.Next(date(2028, 2, 29), 29))
	assert.Equal(t, date(2032, 2, 29), FrequencyYearly.Next(date(2031, 2, 28), 29))
	assert.Equal(t, date(2026, 2, 7), FrequencyWeekly.Next(date(2026, 1, 31), 31))
	assert.Equal(t, date(2026, 4, 10), FrequencyMonthly.Next(date(2026, 3, 10), 0))
}

func TestAddMonthsClamped(t *testing.T) {
	assert.Equal(t, date(2026, 2, 28), AddMonthsClamped(date(2026, 1, 31), 1))
	assert.Equal(t, date(2027, 1, 31), AddMonthsClamped(date(2026, 1, 31), 12))
	assert.Equal(t, date(2026, 6, 30), AddMonthsClamped(date(2026, 3, 31), 3))
}

func TestScheduledTransaction_Advance(t *testing.T) {
	s := ScheduledTransaction{Frequency: FrequencyMonthly, NextDate: date(2026, 2, 28), AnchorDay: 31}
	s.Advance()
	assert.Equal(t, date(2026, 3, 31), s.NextDate)
}
