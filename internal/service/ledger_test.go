package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goal(current, target int64) *models.Goal {
	return &models.Goal{ID: "g1", UserID: "u1", Name: "Trip", CurrentAmount: decimal.NewFromInt(current), TargetAmount: decimal.NewFromInt(target)}
}

func TestProjectGoal_ZeroRate(t *testing.T) {
	p := projectGoal(goal(0, 1000), decimal.NewFromInt(100), decimal.Zero, testNow)
	require.True(t, p.Reachable)
	assert.Equal(t, 10, p.Months)
	assert.Equal(t, testNow.AddDate(0, 10, 0), *p.ReachedBy)
	assert.True(t, p.Remaining.Equal(decimal.NewFromInt(1000)))
}

func TestProjectGoal_InterestShortensTime(t *testing.T) {
	flat := projectGoal(goal(10000, 20000), decimal.NewFromInt(100), decimal.Zero, testNow)
	withRate := projectGoal(goal(10000, 20000), decimal.NewFromInt(100), decimal.NewFromInt(12), testNow)

	require.True(t, flat.Reachable)
	require.True(t, withRate.Reachable)
	assert.Equal(t, 100, flat.Months)
	assert.Less(t, withRate.Months, flat.Months)
}

func TestProjectGoal_AlreadyReached(t *testing.T) {
	p := projectGoal(goal(1500, 1000), decimal.Zero, decimal.Zero, testNow)
	assert.True(t, p.Reachable)
	assert.Zero(t, p.Months)
	assert.True(t, p.Remaining.IsZero())
}

func TestProjectGoal_Unreachable(t *testing.T) {
	p := projectGoal(goal(100, 1000), decimal.Zero, decimal.Zero, testNow)
	assert.False(t, p.Reachable)
	assert.Nil(t, p.ReachedBy)

	p = projectGoal(goal(0, 1000000000), decimal.NewFromInt(1), decimal.Zero, testNow)
	assert.False(t, p.Reachable)
}

func TestProjectGoal_RateFallback(t *testing.T) {
	env := newTestEnv(t)
	env.store.goals["g1"] = goal(0, 1000)
	env.svc.rates = fakeRates{err: errors.New("bcb down")}

	p, err := env.svc.ProjectGoal(context.Background(), "u1", "g1", decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, p.AnnualRate.IsZero())
	assert.Equal(t, 10, p.Months)

	env.svc.rates = fakeRates{rate: decimal.RequireFromString("10.5")}
	p, err = env.svc.ProjectGoal(context.Background(), "u1", "g1", decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, p.AnnualRate.Equal(decimal.RequireFromString("10.5")))

	_, err = env.svc.ProjectGoal(context.Background(), "u2", "g1", decimal.NewFromInt(100))
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = env.svc.ProjectGoal(context.Background(), "u1", "g1", decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, common.ErrValidation)
}
