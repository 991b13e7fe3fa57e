package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/models"
)

// botSessionTTL is the lifetime of tokens handed to the WhatsApp bot
const botSessionTTL = time.Hour

// AccountsOverview lists a user's money containers
type AccountsOverview struct {
	UserID       string               `json:"user_id"`
	BankAccounts []models.BankAccount `json:"bank_accounts"`
	CreditCards  []models.CreditCard  `json:"credit_cards"`
}

// ListAccounts returns the bank accounts and credit cards of a user
func (s *Service) ListAccounts(ctx context.Context, userID string) (*AccountsOverview, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", common.ErrValidation)
	}
	if _, err := s.repo.FindUserByID(ctx, userID); err != nil {
		return nil, err
	}
	accounts, err := s.repo.ListBankAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	cards, err := s.repo.ListCreditCards(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &AccountsOverview{UserID: userID, BankAccounts: accounts, CreditCards: cards}, nil
}

// BotSession identifies a user to the WhatsApp bot
type BotSession struct {
	UserID             string    `json:"user_id"`
	FullName           string    `json:"full_name"`
	SubscriptionActive bool      `json:"subscription_active"`
	Token              string    `json:"token"`
	ExpiresAt          time.Time `json:"expires_at"`
}

// WhatsAppAuth finds the user owning a phone number and opens a short session for the bot
func (s *Service) WhatsAppAuth(ctx context.Context, phone string) (*BotSession, error) {
	digits := digitsOnly(phone)
	if len(digits) < 8 {
		return nil, fmt.Errorf("%w: a valid phone is required", common.ErrValidation)
	}

	profile, err := s.repo.FindProfileByPhone(ctx, digits)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("phone: %w", common.ErrNotFound)
		}
		return nil, err
	}

	active, err := s.repo.HasActiveSubscription(ctx, profile.UserID, s.now())
	if err != nil {
		return nil, err
	}
	res, err := s.openSession(ctx, profile.UserID, profile.Role, botSessionTTL)
	if err != nil {
		return nil, err
	}

	s.log.Infof("Bot session opened for user %s", profile.UserID)
	return &BotSession{
		UserID:             profile.UserID,
		FullName:           profile.FullName,
		SubscriptionActive: active,
		Token:              res.Token,
		ExpiresAt:          res.ExpiresAt,
	}, nil
}
