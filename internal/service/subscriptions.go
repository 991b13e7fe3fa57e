package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/models"
	"github.com/google/uuid"
)

// ListPlans lists plans, optionally only those on sale
func (s *Service) ListPlans(ctx context.Context, activeOnly bool) ([]models.Plan, error) {
	return s.repo.ListPlans(ctx, activeOnly)
}

// CreatePlan creates a subscription plan
func (s *Service) CreatePlan(ctx context.Context, p *models.Plan) (*models.Plan, error) {
	p.ID = uuid.NewString()
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	if !p.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive", common.ErrValidation)
	}
	if p.IntervalMonths == 0 {
		p.IntervalMonths = 1
	}
	if p.IntervalMonths < 1 || p.IntervalMonths > 36 {
		return nil, fmt.Errorf("%w: interval_months must be between 1 and 36", common.ErrValidation)
	}
	if err := s.repo.CreatePlan(ctx, p); err != nil {
		return nil, err
	}
	s.log.Infof("Plan created: %s (%s every %d months)", p.Name, p.Price.String(), p.IntervalMonths)
	return p, nil
}

// GetSubscription returns the user's subscription; a user without one gets an empty, inactive result
func (s *Service) GetSubscription(ctx context.Context, userID string) (*models.SubscriptionDetails, error) {
	sub, err := s.repo.FindSubscriptionByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return &models.SubscriptionDetails{}, nil
		}
		return nil, err
	}

	details := &models.SubscriptionDetails{Subscription: sub, Active: sub.ActiveAt(s.now())}
	if plan, err := s.repo.FindPlan(ctx, sub.PlanID); err == nil {
		details.Plan = plan
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	return details, nil
}

// CancelSubscription cancels the user's subscription
func (s *Service) CancelSubscription(ctx context.Context, userID string) error {
	if err := s.repo.UpdateSubscriptionStatus(ctx, userID, models.SubscriptionCanceled); err != nil {
		return err
	}
	s.log.Infof("Subscription canceled for user %s", userID)
	return nil
}

// activateSubscription starts or renews the user's subscription on plan.
// A renewal of a still running period extends it from its end.
func (s *Service) activateSubscription(ctx context.Context, userID string, plan *models.Plan) (*models.Subscription, error) {
	now := s.now()
	start := now

	sub, err := s.repo.FindSubscriptionByUser(ctx, userID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		sub = &models.Subscription{ID: uuid.NewString(), UserID: userID}
	case err != nil:
		return nil, err
	case sub.ActiveAt(now) && sub.CurrentPeriodEnd != nil:
		start = *sub.CurrentPeriodEnd
	}

	end := models.AddMonthsClamped(start, plan.IntervalMonths)
	sub.PlanID = plan.ID
	sub.Status = models.SubscriptionActive
	sub.CurrentPeriodStart = &start
	sub.CurrentPeriodEnd = &end
	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		return nil, err
	}

	s.log.Infof("Subscription active for user %s on plan %s until %s", userID, plan.Name, end.Format(time.RFC3339))
	return sub, nil
}

// AdminSubscriptionUpdate is an admin override of a user's subscription
type AdminSubscriptionUpdate struct {
	Status    models.SubscriptionStatus `json:"status"`
	PlanID    string                    `json:"plan_id"`
	PeriodEnd *time.Time                `json:"period_end"`
}

// AdminUpdateSubscription sets a user's subscription state directly
func (s *Service) AdminUpdateSubscription(ctx context.Context, userID string, in AdminSubscriptionUpdate) (*models.Subscription, error) {
	if !in.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", common.ErrValidation, in.Status)
	}
	if _, err := s.repo.FindUserByID(ctx, userID); err != nil {
		return nil, err
	}

	sub, err := s.repo.FindSubscriptionByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		if in.PlanID == "" {
			return nil, fmt.Errorf("%w: plan_id is required for a new subscription", common.ErrValidation)
		}
		sub = &models.Subscription{ID: uuid.NewString(), UserID: userID}
	}

	if in.PlanID != "" {
		if _, err := s.repo.FindPlan(ctx, in.PlanID); err != nil {
			return nil, err
		}
		sub.PlanID = in.PlanID
	}
	sub.Status = in.Status
	if in.PeriodEnd != nil {
		if sub.CurrentPeriodStart == nil {
			now := s.now()
			sub.CurrentPeriodStart = &now
		}
		sub.CurrentPeriodEnd = in.PeriodEnd
	}
	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		return nil, err
	}

	s.log.Infof("Subscription of user %s set to %s by admin", userID, sub.Status)
	return sub, nil
}

// SweepPastDue moves active subscriptions whose period ended (plus the grace
// period) to past_due and emails each user. It returns how many were moved.
func (s *Service) SweepPastDue(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.config.PastDueGrace)
	expired, err := s.repo.ListExpiredActiveSubscriptions(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	smtpCfg := s.smtpSettings(ctx)
	moved := 0
	for _, sub := range expired {
		if err := s.repo.UpdateSubscriptionStatus(ctx, sub.UserID, models.SubscriptionPastDue); err != nil {
			s.log.Errorf("Failed to mark subscription of user %s past due: %v", sub.UserID, err)
			continue
		}
		moved++
		s.notifyPastDue(ctx, smtpCfg, sub)
	}

	s.log.Infof("Past due sweep moved %d subscriptions", moved)
	return moved, nil
}

func (s *Service) notifyPastDue(ctx context.Context, smtpCfg models.SMTPSettings, sub models.Subscription) {
	if s.mailer == nil {
		return
	}
	user, err := s.repo.FindUserByID(ctx, sub.UserID)
	if err != nil {
		s.log.Warnf("Past due notice skipped for user %s: %v", sub.UserID, err)
		return
	}
	name := user.Email
	if profile, err := s.findProfile(ctx, sub.UserID); err == nil && profile != nil && profile.FullName != "" {
		name = profile.FullName
	}
	planName := "your"
	if plan, err := s.repo.FindPlan(ctx, sub.PlanID); err == nil {
		planName = plan.Name
	}
	periodEnd := s.now()
	if sub.CurrentPeriodEnd != nil {
		periodEnd = *sub.CurrentPeriodEnd
	}
	if err := s.mailer.SendPastDueNotice(smtpCfg, user.Email, name, planName, periodEnd); err != nil {
		s.log.Warnf("Past due notice to %s failed: %v", user.Email, err)
	}
}
