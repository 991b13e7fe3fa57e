package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db), mock
}

func TestCreateUser_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO finance\.users`).
		WithArgs("u-1", "ana@example.com", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	u := &models.User{ID: "u-1", Email: "ana@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	assert.Equal(t, now, u.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_Duplicate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO finance\.users`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateUser(context.Background(), &models.User{ID: "u-1", Email: "a@b.c"})
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestFindUserByEmail_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT id, email, password_hash, created_at, updated_at\s+FROM finance\.users\s+WHERE email = \$1`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindUserByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFindUserByEmail_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM finance\.users`).WillReturnError(errors.New("db down"))

	_, err := repo.FindUserByEmail(context.Background(), "a@b.c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to find user: db down")
}

func TestDeleteTransaction_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`DELETE FROM finance\.transactions WHERE id = \$1 AND user_id = \$2`).
		WithArgs("t-1", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteTransaction(context.Background(), "u-1", "t-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteTransactionSeries(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`DELETE FROM finance\.transactions WHERE user_id = \$1 AND \(parent_recurrence_id = \$2 OR id = \$2\)`).
		WithArgs("u-1", "p-1").
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := repo.DeleteTransactionSeries(context.Background(), "u-1", "p-1")
	require.NoError(t, err)
	assert.EqualValues(t, 12, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func transactionRow(id string, parent *string) []driver.Value {
	day := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	var p driver.Value
	if parent != nil {
		p = *parent
	}
	return []driver.Value{id, "u-1", "Rent", "1200.50", "expense", "housing", day, nil, nil, parent != nil, nil, nil, p, nil, day, day}
}

var transactionCols = []string{"id", "user_id", "description", "amount", "type", "category", "date",
	"bank_account_id", "credit_card_id", "is_recurring", "recurrence_frequency", "recurrence_end_date",
	"parent_recurrence_id", "scheduled_transaction_id", "created_at", "updated_at"}

func TestListTransactions_Filters(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recurring := true
	parent := "p-1"

	mock.ExpectQuery(`WHERE user_id = \$1 AND date >= \$2 AND type = \$3 AND is_recurring = \$4 ORDER BY date DESC, created_at DESC LIMIT \$5 OFFSET \$6`).
		WithArgs("u-1", from, models.TransactionExpense, true, 50, 0).
		WillReturnRows(sqlmock.NewRows(transactionCols).AddRow(transactionRow("t-1", &parent)...))

	out, err := repo.ListTransactions(context.Background(), "u-1", models.TransactionFilter{
		From: &from, Type: models.TransactionExpense, Recurring: &recurring,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].Amount.Equal(decimal.RequireFromString("1200.50")))
	require.NotNil(t, out[0].ParentRecurrenceID)
	assert.Equal(t, "p-1", *out[0].ParentRecurrenceID)
	assert.Nil(t, out[0].BankAccountID)
}

func TestInTx_CommitsOnSuccess(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM finance\.goals`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.InTx(context.Background(), func(ctx context.Context) error {
		return repo.DeleteGoal(ctx, "u-1", "g-1")
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_RollbackOnError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM finance\.goals`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.InTx(context.Background(), func(ctx context.Context) error {
		return repo.DeleteGoal(ctx, "u-1", "missing")
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_NestedJoinsOuter(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := repo.InTx(context.Background(), func(ctx context.Context) error {
		return repo.InTx(ctx, func(ctx context.Context) error { return nil })
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_RollbackOnPanic(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = repo.InTx(context.Background(), func(ctx context.Context) error { panic("kaput") })
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHasActiveSubscription(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("u-1", now).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.HasActiveSubscription(context.Background(), "u-1", now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMonthlySummary(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT category, type, SUM\(amount\)`).
		WithArgs("u-1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{"category", "type", "sum"}).
			AddRow("food", "expense", "300.00").
			AddRow("rent", "expense", "1000.00").
			AddRow("salary", "income", "5000.00"))

	s, err := repo.MonthlySummary(context.Background(), "u-1", 2026, time.March)
	require.NoError(t, err)
	assert.True(t, s.Income.Equal(decimal.NewFromInt(5000)))
	assert.True(t, s.Expense.Equal(decimal.NewFromInt(1300)))
	assert.True(t, s.NetBalance.Equal(decimal.NewFromInt(3700)))
	assert.Len(t, s.ByCategory, 3)
}

func TestListUsers_SearchAndPaging(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`WHERE lower\(u\.email\) LIKE \$1 OR lower\(p\.full_name\) LIKE \$1 ORDER BY u\.created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("%ana%", 10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "phone", "role", "has_profile",
			"status", "plan_name", "current_period_end", "created_at"}).
			AddRow("u-1", "ana@example.com", "Ana", "", "user", true, "active", "Monthly", nil, now).
			AddRow("u-2", "anabel@example.com", "", "", "user", false, nil, "", nil, now))

	users, err := repo.ListUsers(context.Background(), models.UserFilter{Search: " Ana ", Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.NotNil(t, users[0].SubscriptionStatus)
	assert.Equal(t, models.SubscriptionActive, *users[0].SubscriptionStatus)
	assert.Nil(t, users[1].SubscriptionStatus)
	assert.False(t, users[1].HasProfile)
}

func TestMigrate_UsesSeam(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUp
	defer func() { gooseUp = orig }()

	called := false
	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
		called = true
		assert.Equal(t, ".", dir)
		return nil
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.True(t, called)

	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error { return errors.New("boom") }
	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

var scheduledCols = []string{"id", "user_id", "description", "amount", "type", "category", "frequency",
	"next_date", "anchor_day", "end_date", "bank_account_id", "credit_card_id", "active", "created_at", "updated_at"}

func TestScheduledTransaction_AnchorDayRoundTrip(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()
	next := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	st := &models.ScheduledTransaction{
		ID: "s-1", UserID: "u-1", Description: "Rent", Amount: decimal.NewFromInt(1800),
		Type: models.TransactionExpense, Frequency: models.FrequencyMonthly,
		NextDate: next, AnchorDay: 31, Active: true,
	}
	mock.ExpectQuery(`INSERT INTO finance\.scheduled_transactions .*anchor_day`).
		WithArgs("s-1", "u-1", "Rent", st.Amount, st.Type, "", st.Frequency, next, 31,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	require.NoError(t, repo.CreateScheduledTransaction(context.Background(), st))

	mock.ExpectQuery(`SELECT id, .*anchor_day.* FROM finance\.scheduled_transactions WHERE id = \$1 AND user_id = \$2`).
		WithArgs("s-1", "u-1").
		WillReturnRows(sqlmock.NewRows(scheduledCols).AddRow("s-1", "u-1", "Rent", "1800", "expense", "",
			"monthly", next, int64(31), nil, nil, nil, true, now, now))
	got, err := repo.FindScheduledTransaction(context.Background(), "u-1", "s-1")
	require.NoError(t, err)
	assert.Equal(t, 31, got.AnchorDay)
	assert.Equal(t, next, got.NextDate)
	require.NoError(t, mock.ExpectationsWereMet())
}
