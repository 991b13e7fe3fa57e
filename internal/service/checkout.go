package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/finance-service/internal/checkout"
	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/integrations/asaas"
	"github.com/Dan9191/finance-service/internal/models"
	"github.com/google/uuid"
)

// CheckoutStart opens a checkout for a plan. Contact fields are used for anonymous visitors.
type CheckoutStart struct {
	PlanID string `json:"plan_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

// CheckoutState is where a checkout stands after a transition
type CheckoutState struct {
	CartID    string              `json:"cart_id,omitempty"`
	Step      models.CheckoutStep `json:"step"`
	Plan      *models.Plan        `json:"plan,omitempty"`
	SignedOut bool                `json:"signed_out,omitempty"`
}

// PaymentInput pays a checkout
type PaymentInput struct {
	PlanID     string                      `json:"plan_id"`
	Method     models.PaymentMethod        `json:"method"`
	TaxID      string                      `json:"tax_id"`
	Card       *asaas.CreditCard           `json:"card,omitempty"`
	CardHolder *asaas.CreditCardHolderInfo `json:"card_holder,omitempty"`
	RemoteIP   string                      `json:"-"`
}

// PixCharge is what the client needs to show a PIX QR code
type PixCharge struct {
	Payload      string `json:"payload"`
	EncodedImage string `json:"encoded_image"`
	ExpiresAt    string `json:"expires_at"`
}

// PaymentResult reports a payment and whether it activated the subscription
type PaymentResult struct {
	PaymentID         string               `json:"payment_id"`
	ProviderPaymentID string               `json:"provider_payment_id"`
	Method            models.PaymentMethod `json:"method"`
	Status            models.PaymentStatus `json:"status"`
	Pix               *PixCharge           `json:"pix,omitempty"`
	SubscriptionEnd   *time.Time           `json:"subscription_end,omitempty"`
}

func (s *Service) activePlan(ctx context.Context, planID string) (*models.Plan, error) {
	if planID == "" {
		return nil, fmt.Errorf("%w: plan_id is required", common.ErrValidation)
	}
	plan, err := s.repo.FindPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, fmt.Errorf("%w: plan is not available", common.ErrValidation)
	}
	return plan, nil
}

// StartCheckout selects a plan. Anonymous callers go to auth, callers with a profile
// go to checkout, and callers signed in without a profile are signed out and sent
// back to plan selection.
func (s *Service) StartCheckout(ctx context.Context, p *Principal, in CheckoutStart) (*CheckoutState, error) {
	plan, err := s.activePlan(ctx, in.PlanID)
	if err != nil {
		return nil, err
	}

	flow := checkout.New()
	res, err := flow.SelectPlan(plan.ID, checkout.Session{Authenticated: p != nil, HasProfile: p != nil && p.HasProfile})
	if err != nil {
		return nil, err
	}
	if res.SignOut {
		if err := s.SignOut(ctx, p.SessionID); err != nil {
			return nil, err
		}
		s.log.Warnf("User %s has no profile, signed out at plan selection", p.UserID)
		return &CheckoutState{Step: res.Step, SignedOut: true}, nil
	}

	cart := models.CartSession{
		ID:       uuid.NewString(),
		Email:    in.Email,
		Name:     strings.TrimSpace(in.Name),
		Phone:    strings.TrimSpace(in.Phone),
		PlanID:   plan.ID,
		PlanName: plan.Name,
		Amount:   plan.Price,
		Step:     res.Step,
	}
	if p != nil {
		cart.UserID = p.UserID
		if user, err := s.repo.FindUserByID(ctx, p.UserID); err == nil {
			cart.Email = user.Email
		}
		if profile, err := s.findProfile(ctx, p.UserID); err == nil && profile != nil {
			cart.Name, cart.Phone = profile.FullName, profile.Phone
		}
	}
	s.carts.Track(cart)

	s.log.Infof("Checkout %s started for plan %s at step %s", cart.ID, plan.Name, res.Step)
	return &CheckoutState{CartID: cart.ID, Step: res.Step, Plan: plan}, nil
}

// CompleteAuth moves a checkout waiting on auth to the payment step
func (s *Service) CompleteAuth(ctx context.Context, p *Principal, cartID, planID string) (*CheckoutState, error) {
	if p == nil {
		return nil, common.ErrUnauthorized
	}
	plan, err := s.activePlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	flow, err := checkout.Restore(models.StepAuth, plan.ID)
	if err != nil {
		return nil, err
	}
	res, err := flow.Authenticated()
	if err != nil {
		return nil, err
	}

	email := ""
	if user, err := s.repo.FindUserByID(ctx, p.UserID); err == nil {
		email = user.Email
	}
	s.carts.Link(cartID, p.UserID, email)
	s.carts.Step(cartID, res.Step, "")

	return &CheckoutState{CartID: cartID, Step: res.Step, Plan: plan}, nil
}

// ensureCustomer returns the processor customer id of the user, creating it on first payment
func (s *Service) ensureCustomer(ctx context.Context, userID, taxID string) (string, error) {
	profile, err := s.repo.FindProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrProfileMissing
		}
		return "", err
	}
	if profile.PaymentCustomerID != "" {
		return profile.PaymentCustomerID, nil
	}

	if taxID == "" {
		taxID = profile.TaxID
	}
	taxID = digitsOnly(taxID)
	if len(taxID) != 11 && len(taxID) != 14 {
		return "", fmt.Errorf("%w: tax_id must be a CPF or CNPJ", common.ErrValidation)
	}

	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	customer, err := s.payments.CreateCustomer(ctx, asaas.Customer{
		Name:        profile.FullName,
		Email:       user.Email,
		CpfCnpj:     taxID,
		MobilePhone: digitsOnly(profile.Phone),
	})
	if err != nil {
		return "", err
	}
	if err := s.repo.SetPaymentCustomerID(ctx, userID, customer.ID); err != nil {
		return "", err
	}
	return customer.ID, nil
}

// Pay charges the plan through the processor. PIX returns a QR code to be paid
// later; a card charge confirmed on the spot activates the subscription at once.
func (s *Service) Pay(ctx context.Context, p *Principal, cartID string, in PaymentInput) (*PaymentResult, error) {
	if p == nil {
		return nil, common.ErrUnauthorized
	}
	if !p.HasProfile {
		return nil, common.ErrProfileMissing
	}
	flow, err := checkout.Restore(models.StepCheckout, in.PlanID)
	if err != nil {
		return nil, err
	}
	if !flow.CanPay() {
		return nil, fmt.Errorf("%w: plan_id is required", common.ErrValidation)
	}
	plan, err := s.activePlan(ctx, in.PlanID)
	if err != nil {
		return nil, err
	}

	req := asaas.PaymentRequest{
		Value:             plan.Price.InexactFloat64(),
		DueDate:           s.now().AddDate(0, 0, 1).Format("2006-01-02"),
		Description:       plan.Name,
		ExternalReference: cartID,
	}
	switch in.Method {
	case models.PaymentPIX:
		req.BillingType = asaas.BillingPIX
	case models.PaymentCreditCard:
		if in.Card == nil || in.CardHolder == nil {
			return nil, fmt.Errorf("%w: card and card_holder are required", common.ErrValidation)
		}
		req.BillingType = asaas.BillingCreditCard
		req.CreditCard, req.CreditCardHolderInfo, req.RemoteIP = in.Card, in.CardHolder, in.RemoteIP
	default:
		return nil, fmt.Errorf("%w: method must be PIX or CREDIT_CARD", common.ErrValidation)
	}

	if req.Customer, err = s.ensureCustomer(ctx, p.UserID, in.TaxID); err != nil {
		return nil, err
	}
	charge, err := s.payments.CreatePayment(ctx, req)
	if err != nil {
		return nil, err
	}

	payment := &models.SubscriptionPayment{
		ID:                uuid.NewString(),
		UserID:            p.UserID,
		PlanID:            plan.ID,
		ProviderPaymentID: charge.ID,
		Method:            in.Method,
		Amount:            plan.Price,
		Status:            models.PaymentPending,
		CartSessionID:     cartID,
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}
	s.carts.Step(cartID, models.StepCheckout, in.Method)
	s.log.Infof("Payment %s (%s) created for user %s", payment.ID, in.Method, p.UserID)

	result := &PaymentResult{
		PaymentID:         payment.ID,
		ProviderPaymentID: charge.ID,
		Method:            in.Method,
		Status:            payment.Status,
	}

	if in.Method == models.PaymentPIX {
		qr, err := s.payments.GetPixQRCode(ctx, charge.ID)
		if err != nil {
			return nil, err
		}
		result.Pix = &PixCharge{Payload: qr.Payload, EncodedImage: qr.EncodedImage, ExpiresAt: qr.ExpirationDate}
		return result, nil
	}

	if charge.Confirmed() {
		sub, _, err := s.confirmPayment(ctx, charge.ID)
		if err != nil {
			return nil, err
		}
		result.Status = models.PaymentConfirmed
		result.SubscriptionEnd = sub.CurrentPeriodEnd
	} else if charge.Failed() {
		if err := s.repo.MarkPaymentStatus(ctx, payment.ID, models.PaymentFailed, nil); err != nil {
			return nil, err
		}
		result.Status = models.PaymentFailed
	}
	return result, nil
}

// PaymentStatus polls the processor for one of the caller's payments and applies a confirmation
func (s *Service) PaymentStatus(ctx context.Context, p *Principal, providerPaymentID string) (*PaymentResult, error) {
	payment, err := s.repo.FindPaymentByProviderID(ctx, providerPaymentID)
	if err != nil {
		return nil, err
	}
	if p == nil || payment.UserID != p.UserID {
		return nil, fmt.Errorf("payment: %w", common.ErrNotFound)
	}

	result := &PaymentResult{
		PaymentID:         payment.ID,
		ProviderPaymentID: payment.ProviderPaymentID,
		Method:            payment.Method,
		Status:            payment.Status,
	}
	if payment.Status != models.PaymentPending {
		return result, nil
	}

	charge, err := s.payments.GetPayment(ctx, providerPaymentID)
	if err != nil {
		return nil, err
	}
	switch {
	case charge.Confirmed():
		sub, _, err := s.confirmPayment(ctx, providerPaymentID)
		if err != nil {
			return nil, err
		}
		result.Status = models.PaymentConfirmed
		result.SubscriptionEnd = sub.CurrentPeriodEnd
	case charge.Failed():
		if err := s.repo.MarkPaymentStatus(ctx, payment.ID, models.PaymentFailed, nil); err != nil {
			return nil, err
		}
		result.Status = models.PaymentFailed
	}
	return result, nil
}

// HandleWebhook applies a processor callback. Unknown payments are acknowledged
// and ignored; a payment already confirmed is not applied twice. Confirmations
// are checked against the processor before the subscription is activated.
func (s *Service) HandleWebhook(ctx context.Context, token string, event asaas.WebhookEvent) error {
	if s.config.AsaasWebhookToken != "" && token != s.config.AsaasWebhookToken {
		return fmt.Errorf("%w: invalid webhook token", common.ErrUnauthorized)
	}
	if event.Payment == nil || event.Payment.ID == "" {
		return fmt.Errorf("%w: payment is required", common.ErrValidation)
	}

	switch event.Event {
	case "PAYMENT_CONFIRMED", "PAYMENT_RECEIVED":
		if _, err := s.repo.FindPaymentByProviderID(ctx, event.Payment.ID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				s.log.Warnf("Webhook %s for unknown payment %s ignored", event.Event, event.Payment.ID)
				return nil
			}
			return err
		}
		// The event body is not trusted, the processor status decides.
		charge, err := s.payments.GetPayment(ctx, event.Payment.ID)
		if err != nil {
			return err
		}
		if !charge.Confirmed() {
			s.log.Warnf("Webhook %s for payment %s ignored, processor reports %s", event.Event, event.Payment.ID, charge.Status)
			return nil
		}
		_, applied, err := s.confirmPayment(ctx, event.Payment.ID)
		if err != nil {
			return err
		}
		if !applied {
			s.log.Infof("Webhook %s for payment %s already applied", event.Event, event.Payment.ID)
		}
	case "PAYMENT_OVERDUE", "PAYMENT_REFUNDED", "PAYMENT_DELETED", "PAYMENT_CHARGEBACK_REQUESTED":
		payment, err := s.repo.FindPaymentByProviderID(ctx, event.Payment.ID)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if payment.Status == models.PaymentPending {
			if err := s.repo.MarkPaymentStatus(ctx, payment.ID, models.PaymentFailed, nil); err != nil {
				return err
			}
			s.log.Infof("Payment %s marked failed by webhook %s", payment.ID, event.Event)
		}
	default:
		s.log.Debugf("Webhook %s ignored", event.Event)
	}
	return nil
}

// confirmPayment activates the subscription paid by a payment, at most once.
// The payment row is locked for the duration of the transaction.
func (s *Service) confirmPayment(ctx context.Context, providerPaymentID string) (*models.Subscription, bool, error) {
	var (
		sub     *models.Subscription
		payment *models.SubscriptionPayment
		applied bool
	)
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.repo.FindPaymentByProviderID(ctx, providerPaymentID)
		if err != nil {
			return err
		}
		if payment.Status == models.PaymentConfirmed {
			sub, err = s.repo.FindSubscriptionByUser(ctx, payment.UserID)
			return err
		}

		plan, err := s.repo.FindPlan(ctx, payment.PlanID)
		if err != nil {
			return err
		}
		if sub, err = s.activateSubscription(ctx, payment.UserID, plan); err != nil {
			return err
		}
		paidAt := s.now()
		if err := s.repo.MarkPaymentStatus(ctx, payment.ID, models.PaymentConfirmed, &paidAt); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if applied {
		s.log.Infof("Payment %s confirmed for user %s", payment.ID, payment.UserID)
		if payment.CartSessionID != "" {
			s.carts.Convert(payment.CartSessionID, "")
		}
	}
	return sub, applied, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
