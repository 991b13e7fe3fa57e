package service

import (
	"context"
	"time"

	"github.com/Dan9191/finance-service/internal/config"
	"github.com/Dan9191/finance-service/internal/integrations/asaas"
	"github.com/Dan9191/finance-service/internal/models"
	"github.com/Dan9191/finance-service/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Store is the relational persistence the service needs.
// InTx carries the transaction in the context handed to fn.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	CreateProfile(ctx context.Context, p *models.Profile) error
	FindProfile(ctx context.Context, userID string) (*models.Profile, error)
	FindProfileByPhone(ctx context.Context, phone string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, p *models.Profile) error
	SetPaymentCustomerID(ctx context.Context, userID, customerID string) error
	CreateSession(ctx context.Context, s *models.Session) error
	FindSession(ctx context.Context, id string) (*models.Session, error)
	RevokeSession(ctx context.Context, id string) error
	RevokeUserSessions(ctx context.Context, userID string) error
	ListUsers(ctx context.Context, f models.UserFilter) ([]models.AdminUser, error)
	CreateAPIKey(ctx context.Context, k *models.APIKey) error
	FindActiveAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error)

	CreatePlan(ctx context.Context, p *models.Plan) error
	ListPlans(ctx context.Context, activeOnly bool) ([]models.Plan, error)
	FindPlan(ctx context.Context, id string) (*models.Plan, error)
	FindSubscriptionByUser(ctx context.Context, userID string) (*models.Subscription, error)
	UpsertSubscription(ctx context.Context, sub *models.Subscription) error
	UpdateSubscriptionStatus(ctx context.Context, userID string, status models.SubscriptionStatus) error
	HasActiveSubscription(ctx context.Context, userID string, now time.Time) (bool, error)
	ListExpiredActiveSubscriptions(ctx context.Context, before time.Time) ([]models.Subscription, error)
	CreatePayment(ctx context.Context, p *models.SubscriptionPayment) error
	FindPaymentByProviderID(ctx context.Context, providerID string) (*models.SubscriptionPayment, error)
	MarkPaymentStatus(ctx context.Context, id string, status models.PaymentStatus, paidAt *time.Time) error
	CountSubscriptionsByStatus(ctx context.Context) (map[models.SubscriptionStatus]int, error)
	CountUsers(ctx context.Context) (int, error)
	SignupsPerMonth(ctx context.Context, since time.Time) ([]models.MonthlyCount, error)
	RevenuePerMonth(ctx context.Context, since time.Time) ([]models.MonthlyAmount, error)

	CreateTransaction(ctx context.Context, t *models.Transaction) error
	FindTransaction(ctx context.Context, userID, id string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, t *models.Transaction) error
	ListTransactions(ctx context.Context, userID string, f models.TransactionFilter) ([]models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	DeleteTransactionSeries(ctx context.Context, userID, parentID string) (int64, error)
	MonthlySummary(ctx context.Context, userID string, year int, month time.Month) (*models.MonthlySummary, error)

	CreateBankAccount(ctx context.Context, a *models.BankAccount) error
	FindBankAccount(ctx context.Context, userID, id string) (*models.BankAccount, error)
	ListBankAccounts(ctx context.Context, userID string) ([]models.BankAccount, error)
	UpdateBankAccount(ctx context.Context, a *models.BankAccount) error
	DeleteBankAccount(ctx context.Context, userID, id string) error
	CreateCreditCard(ctx context.Context, c *models.CreditCard) error
	FindCreditCard(ctx context.Context, userID, id string) (*models.CreditCard, error)
	ListCreditCards(ctx context.Context, userID string) ([]models.CreditCard, error)
	UpdateCreditCard(ctx context.Context, c *models.CreditCard) error
	DeleteCreditCard(ctx context.Context, userID, id string) error
	CreateGoal(ctx context.Context, g *models.Goal) error
	FindGoal(ctx context.Context, userID, id string) (*models.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]models.Goal, error)
	UpdateGoal(ctx context.Context, g *models.Goal) error
	AddGoalContribution(ctx context.Context, userID, id string, amount decimal.Decimal) (*models.Goal, error)
	DeleteGoal(ctx context.Context, userID, id string) error

	CreateScheduledTransaction(ctx context.Context, st *models.ScheduledTransaction) error
	FindScheduledTransaction(ctx context.Context, userID, id string) (*models.ScheduledTransaction, error)
	ListScheduledTransactions(ctx context.Context, userID string) ([]models.ScheduledTransaction, error)
	ListDueScheduledTransactions(ctx context.Context, asOf time.Time) ([]models.ScheduledTransaction, error)
	UpdateScheduledTransaction(ctx context.Context, st *models.ScheduledTransaction) error
	AdvanceScheduledTransaction(ctx context.Context, id string, next time.Time, active bool) error
	DeleteScheduledTransaction(ctx context.Context, userID, id string) error

	GetAppSettings(ctx context.Context) (*models.AppSettings, error)
	SaveAppSettings(ctx context.Context, s *models.AppSettings) error
	GetPreferences(ctx context.Context, userID string) ([]models.StoredPreference, error)
	SavePreference(ctx context.Context, userID string, p models.StoredPreference) error
	DeletePreference(ctx context.Context, userID string, key models.PreferenceKey) error
}

// CartStore persists cart sessions for follow-up and analytics
type CartStore interface {
	Create(ctx context.Context, cart *models.CartSession) error
	UpdateStep(ctx context.Context, id string, step models.CheckoutStep, method models.PaymentMethod) error
	LinkUser(ctx context.Context, id, userID, email string) error
	MarkConverted(ctx context.Context, id, email string) (int64, error)
	ListAbandoned(ctx context.Context, olderThan time.Time, limit int64) ([]models.CartSession, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, f models.CartFilter) ([]models.CartSession, error)
}

// PaymentGateway is the payment processor
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, customer asaas.Customer) (*asaas.Customer, error)
	CreatePayment(ctx context.Context, req asaas.PaymentRequest) (*asaas.Payment, error)
	GetPayment(ctx context.Context, id string) (*asaas.Payment, error)
	GetPixQRCode(ctx context.Context, id string) (*asaas.PixQRCode, error)
}

// RateProvider returns the reference annual interest rate in percent
type RateProvider interface {
	GetSelicRate(ctx context.Context) (decimal.Decimal, error)
}

// Mailer sends the transactional emails
type Mailer interface {
	SendTest(cfg models.SMTPSettings, to string) error
	SendPastDueNotice(cfg models.SMTPSettings, to, name, planName string, periodEnd time.Time) error
	SendCartReminder(cfg models.SMTPSettings, to, name, planName, checkoutURL string) error
	SendWelcome(cfg models.SMTPSettings, to, name, loginURL string) error
}

// IconPresigner issues upload URLs for PWA icons
type IconPresigner interface {
	PresignIconUpload(ctx context.Context, contentType string) (*storage.IconUpload, error)
}

// Deps groups the collaborators beyond the relational store
type Deps struct {
	Carts    CartStore
	Payments PaymentGateway
	Rates    RateProvider
	Mailer   Mailer
	Icons    IconPresigner
}

// Service handles business logic
type Service struct {
	repo     Store
	carts    *CartTracker
	payments PaymentGateway
	rates    RateProvider
	mailer   Mailer
	icons    IconPresigner
	log      *logrus.Logger
	config   *config.Config
	now      func() time.Time
}

// NewService initializes a new service
func NewService(repo Store, deps Deps, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		repo:     repo,
		carts:    NewCartTracker(deps.Carts, log),
		payments: deps.Payments,
		rates:    deps.Rates,
		mailer:   deps.Mailer,
		icons:    deps.Icons,
		log:      log,
		config:   cfg,
		now:      time.Now,
	}
}

// Carts exposes the cart tracker, mainly so shutdown can wait for pending writes
func (s *Service) Carts() *CartTracker {
	return s.carts
}
