package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/models"
	"github.com/Dan9191/finance-service/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxProjectionMonths bounds the goal projection (50 years)
const maxProjectionMonths = 600

// CreateBankAccount creates a bank account for the user
func (s *Service) CreateBankAccount(ctx context.Context, userID string, a *models.BankAccount) (*models.BankAccount, error) {
	a.ID, a.UserID = uuid.NewString(), userID
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateBankAccount(ctx, a); err != nil {
		return nil, err
	}
	s.log.Infof("Bank account %s created for user %s", a.ID, userID)
	return a, nil
}

// GetBankAccount returns one of the user's bank accounts
func (s *Service) GetBankAccount(ctx context.Context, userID, id string) (*models.BankAccount, error) {
	return s.repo.FindBankAccount(ctx, userID, id)
}

// ListBankAccounts lists the user's bank accounts
func (s *Service) ListBankAccounts(ctx context.Context, userID string) ([]models.BankAccount, error) {
	return s.repo.ListBankAccounts(ctx, userID)
}

// UpdateBankAccount replaces the editable fields of a bank account
func (s *Service) UpdateBankAccount(ctx context.Context, userID, id string, a *models.BankAccount) (*models.BankAccount, error) {
	a.ID, a.UserID = id, userID
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateBankAccount(ctx, a); err != nil {
		return nil, err
	}
	s.log.Infof("Bank account %s updated for user %s", id, userID)
	return a, nil
}

// DeleteBankAccount deletes a bank account
func (s *Service) DeleteBankAccount(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteBankAccount(ctx, userID, id); err != nil {
		return err
	}
	s.log.Infof("Bank account %s deleted for user %s", id, userID)
	return nil
}

// CreateCreditCard creates a credit card. When the full number is supplied only
// its last four digits are kept.
func (s *Service) CreateCreditCard(ctx context.Context, userID string, c *models.CreditCard, number string) (*models.CreditCard, error) {
	c.ID, c.UserID = uuid.NewString(), userID
	if number != "" {
		c.LastFour = utils.LastFour(number)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateCreditCard(ctx, c); err != nil {
		return nil, err
	}
	s.log.Infof("Credit card %s created for user %s", c.ID, userID)
	return c, nil
}

// GetCreditCard returns one of the user's credit cards
func (s *Service) GetCreditCard(ctx context.Context, userID, id string) (*models.CreditCard, error) {
	return s.repo.FindCreditCard(ctx, userID, id)
}

// ListCreditCards lists the user's credit cards
func (s *Service) ListCreditCards(ctx context.Context, userID string) ([]models.CreditCard, error) {
	return s.repo.ListCreditCards(ctx, userID)
}

// UpdateCreditCard replaces the editable fields of a credit card
func (s *Service) UpdateCreditCard(ctx context.Context, userID, id string, c *models.CreditCard, number string) (*models.CreditCard, error) {
	c.ID, c.UserID = id, userID
	if number != "" {
		c.LastFour = utils.LastFour(number)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCreditCard(ctx, c); err != nil {
		return nil, err
	}
	s.log.Infof("Credit card %s updated for user %s", id, userID)
	return c, nil
}

// DeleteCreditCard deletes a credit card
func (s *Service) DeleteCreditCard(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteCreditCard(ctx, userID, id); err != nil {
		return err
	}
	s.log.Infof("Credit card %s deleted for user %s", id, userID)
	return nil
}

// CreateGoal creates a savings goal
func (s *Service) CreateGoal(ctx context.Context, userID string, g *models.Goal) (*models.Goal, error) {
	g.ID, g.UserID = uuid.NewString(), userID
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateGoal(ctx, g); err != nil {
		return nil, err
	}
	s.log.Infof("Goal %s created for user %s", g.ID, userID)
	return g, nil
}

// GetGoal returns one of the user's goals
func (s *Service) GetGoal(ctx context.Context, userID, id string) (*models.Goal, error) {
	return s.repo.FindGoal(ctx, userID, id)
}

// ListGoals lists the user's goals
func (s *Service) ListGoals(ctx context.Context, userID string) ([]models.Goal, error) {
	return s.repo.ListGoals(ctx, userID)
}

// UpdateGoal replaces the editable fields of a goal
func (s *Service) UpdateGoal(ctx context.Context, userID, id string, g *models.Goal) (*models.Goal, error) {
	g.ID, g.UserID = id, userID
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateGoal(ctx, g); err != nil {
		return nil, err
	}
	s.log.Infof("Goal %s updated for user %s", id, userID)
	return g, nil
}

// DeleteGoal deletes a goal
func (s *Service) DeleteGoal(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteGoal(ctx, userID, id); err != nil {
		return err
	}
	s.log.Infof("Goal %s deleted for user %s", id, userID)
	return nil
}

// ContributeToGoal adds money to a goal
func (s *Service) ContributeToGoal(ctx context.Context, userID, id string, amount decimal.Decimal) (*models.Goal, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", common.ErrValidation)
	}
	g, err := s.repo.AddGoalContribution(ctx, userID, id, amount)
	if err != nil {
		return nil, err
	}
	s.log.Infof("Contribution of %s added to goal %s", amount.String(), id)
	return g, nil
}

// ProjectGoal estimates how many months of a fixed contribution reach the goal,
// with the balance compounding monthly at the Selic rate. Without a rate it assumes 0%.
func (s *Service) ProjectGoal(ctx context.Context, userID, id string, monthly decimal.Decimal) (*models.GoalProjection, error) {
	if monthly.IsNegative() {
		return nil, fmt.Errorf("%w: monthly contribution must not be negative", common.ErrValidation)
	}
	g, err := s.repo.FindGoal(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	annual := decimal.Zero
	if s.rates != nil {
		if rate, err := s.rates.GetSelicRate(ctx); err != nil {
			s.log.Warnf("Selic rate unavailable, projecting goal %s at 0%%: %v", id, err)
		} else {
			annual = rate
		}
	}

	return projectGoal(g, monthly, annual, s.now()), nil
}

func projectGoal(g *models.Goal, monthly, annualPercent decimal.Decimal, now time.Time) *models.GoalProjection {
	p := &models.GoalProjection{
		GoalID:              g.ID,
		Remaining:           decimal.Max(g.TargetAmount.Sub(g.CurrentAmount), decimal.Zero),
		MonthlyContribution: monthly,
		AnnualRate:          annualPercent,
	}
	if !p.Remaining.IsPositive() {
		p.Reachable = true
		p.ReachedBy = &now
		return p
	}

	annual, _ := annualPercent.Div(decimal.NewFromInt(100)).Float64()
	growth := decimal.NewFromFloat(math.Pow(1+annual, 1.0/12))
	if !monthly.IsPositive() && (g.CurrentAmount.IsZero() || annual <= 0) {
		return p
	}

	balance := g.CurrentAmount
	for months := 1; months <= maxProjectionMonths; months++ {
		balance = balance.Mul(growth).Add(monthly)
		if balance.GreaterThanOrEqual(g.TargetAmount) {
			reached := now.AddDate(0, months, 0)
			p.Months, p.Reachable, p.ReachedBy = months, true, &reached
			return p
		}
	}
	return p
}
