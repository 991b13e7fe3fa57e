package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/config"
	"github.com/Dan9191/finance-service/internal/integrations/asaas"
	"github.com/Dan9191/finance-service/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// fakeStore is an in-memory Store. Methods it does not override panic through the nil embedded interface.
type fakeStore struct {
	Store

	mu            sync.Mutex
	users         map[string]*models.User
	profiles      map[string]*models.Profile
	sessions      map[string]*models.Session
	plans         map[string]*models.Plan
	subs          map[string]*models.Subscription
	payments      map[string]*models.SubscriptionPayment
	transactions  map[string]*models.Transaction
	scheduled     map[string]*models.ScheduledTransaction
	goals         map[string]*models.Goal
	prefs         map[string]map[models.PreferenceKey]models.StoredPreference
	settings      *models.AppSettings
	upserts       int
	statusUpdates []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        map[string]*models.User{},
		profiles:     map[string]*models.Profile{},
		sessions:     map[string]*models.Session{},
		plans:        map[string]*models.Plan{},
		subs:         map[string]*models.Subscription{},
		payments:     map[string]*models.SubscriptionPayment{},
		transactions: map[string]*models.Transaction{},
		scheduled:    map[string]*models.ScheduledTransaction{},
		goals:        map[string]*models.Goal{},
		prefs:        map[string]map[models.PreferenceKey]models.StoredPreference{},
	}
}

func notFound(what string) error { return fmt.Errorf("%s: %w", what, common.ErrNotFound) }

func (f *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeStore) CreateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return fmt.Errorf("create user: %w", common.ErrAlreadyExists)
		}
	}
	u.CreatedAt = time.Now()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("find user")
}

func (f *fakeStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, notFound("find user")
}

func (f *fakeStore) CreateProfile(_ context.Context, p *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.profiles[p.UserID] = &cp
	return nil
}

func (f *fakeStore) FindProfile(_ context.Context, userID string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, notFound("find profile")
}

func (f *fakeStore) FindProfileByPhone(_ context.Context, phone string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if digitsOnly(p.Phone) == phone {
			cp := *p
			return &cp, nil
		}
	}
	return nil, notFound("find profile")
}

func (f *fakeStore) UpdateProfile(_ context.Context, p *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[p.UserID]; !ok {
		return notFound("update profile")
	}
	cp := *p
	f.profiles[p.UserID] = &cp
	return nil
}

func (f *fakeStore) SetPaymentCustomerID(_ context.Context, userID, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return notFound("set payment customer")
	}
	p.PaymentCustomerID = customerID
	return nil
}

func (f *fakeStore) CreateSession(_ context.Context, s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeStore) FindSession(_ context.Context, id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, notFound("find session")
}

func (f *fakeStore) RevokeSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.RevokedAt != nil {
		return notFound("revoke session")
	}
	now := time.Now()
	s.RevokedAt = &now
	return nil
}

func (f *fakeStore) RevokeUserSessions(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, s := range f.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

func (f *fakeStore) FindPlan(_ context.Context, id string) (*models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.plans[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, notFound("find plan")
}

func (f *fakeStore) FindSubscriptionByUser(_ context.Context, userID string) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.subs[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, notFound("find subscription")
}

func (f *fakeStore) UpsertSubscription(_ context.Context, sub *models.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	cp := *sub
	f.subs[sub.UserID] = &cp
	return nil
}

func (f *fakeStore) UpdateSubscriptionStatus(_ context.Context, userID string, status models.SubscriptionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[userID]
	if !ok {
		return notFound("update subscription")
	}
	s.Status = status
	f.statusUpdates = append(f.statusUpdates, userID)
	return nil
}

func (f *fakeStore) HasActiveSubscription(_ context.Context, userID string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[userID]
	return ok && s.ActiveAt(now), nil
}

func (f *fakeStore) ListExpiredActiveSubscriptions(_ context.Context, before time.Time) ([]models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Subscription{}
	for _, s := range f.subs {
		if s.Status == models.SubscriptionActive && s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.Before(before) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) CreatePayment(_ context.Context, p *models.SubscriptionPayment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.payments[p.ProviderPaymentID] = &cp
	return nil
}

func (f *fakeStore) FindPaymentByProviderID(_ context.Context, providerID string) (*models.SubscriptionPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.payments[providerID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, notFound("find payment")
}

func (f *fakeStore) MarkPaymentStatus(_ context.Context, id string, status models.PaymentStatus, paidAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.ID == id {
			p.Status, p.PaidAt = status, paidAt
			return nil
		}
	}
	return notFound("mark payment")
}

func (f *fakeStore) CreateTransaction(_ context.Context, t *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.transactions[t.ID] = &cp
	return nil
}

func (f *fakeStore) FindTransaction(_ context.Context, userID, id string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.transactions[id]; ok && t.UserID == userID {
		cp := *t
		return &cp, nil
	}
	return nil, notFound("find transaction")
}

func (f *fakeStore) DeleteTransaction(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.transactions[id]; ok && t.UserID == userID {
		delete(f.transactions, id)
		return nil
	}
	return notFound("delete transaction")
}

func (f *fakeStore) DeleteTransactionSeries(_ context.Context, userID, parentID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, t := range f.transactions {
		if t.UserID != userID {
			continue
		}
		if id == parentID || (t.ParentRecurrenceID != nil && *t.ParentRecurrenceID == parentID) {
			delete(f.transactions, id)
			n++
		}
	}
	return n, nil
}

// userTransactions returns the user's rows ordered by date
func (f *fakeStore) userTransactions(userID string) []models.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Transaction{}
	for _, t := range f.transactions {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (f *fakeStore) ListDueScheduledTransactions(_ context.Context, asOf time.Time) ([]models.ScheduledTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ScheduledTransaction{}
	for _, st := range f.scheduled {
		if st.Active && !st.NextDate.After(asOf) {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (f *fakeStore) AdvanceScheduledTransaction(_ context.Context, id string, next time.Time, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.scheduled[id]
	if !ok {
		return notFound("advance scheduled transaction")
	}
	st.NextDate, st.Active = next, active
	return nil
}

func (f *fakeStore) FindGoal(_ context.Context, userID, id string) (*models.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.goals[id]; ok && g.UserID == userID {
		cp := *g
		return &cp, nil
	}
	return nil, notFound("find goal")
}

func (f *fakeStore) GetAppSettings(_ context.Context) (*models.AppSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settings == nil {
		return nil, notFound("get app settings")
	}
	cp := *f.settings
	return &cp, nil
}

func (f *fakeStore) SaveAppSettings(_ context.Context, s *models.AppSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.settings = &cp
	return nil
}

func (f *fakeStore) GetPreferences(_ context.Context, userID string) ([]models.StoredPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.StoredPreference{}
	for _, p := range f.prefs[userID] {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) SavePreference(_ context.Context, userID string, p models.StoredPreference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prefs[userID] == nil {
		f.prefs[userID] = map[models.PreferenceKey]models.StoredPreference{}
	}
	f.prefs[userID][p.Key] = p
	return nil
}

func (f *fakeStore) DeletePreference(_ context.Context, userID string, key models.PreferenceKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.prefs[userID], key)
	return nil
}

type sentMail struct {
	kind string
	to   string
	cfg  models.SMTPSettings
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) record(kind, to string, cfg models.SMTPSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{kind: kind, to: to, cfg: cfg})
	return nil
}

func (m *fakeMailer) SendTest(cfg models.SMTPSettings, to string) error {
	return m.record("test", to, cfg)
}

func (m *fakeMailer) SendPastDueNotice(cfg models.SMTPSettings, to, _, _ string, _ time.Time) error {
	return m.record("past_due", to, cfg)
}

func (m *fakeMailer) SendCartReminder(cfg models.SMTPSettings, to, _, _, _ string) error {
	return m.record("cart", to, cfg)
}

func (m *fakeMailer) SendWelcome(cfg models.SMTPSettings, to, _, _ string) error {
	return m.record("welcome", to, cfg)
}

type fakeGateway struct {
	mu        sync.Mutex
	customers int
	status    map[string]string
	// createStatus is the status new charges start in
	createStatus string
	next         int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{status: map[string]string{}, createStatus: "PENDING"}
}

func (g *fakeGateway) CreateCustomer(_ context.Context, c asaas.Customer) (*asaas.Customer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.customers++
	c.ID = fmt.Sprintf("cus_%d", g.customers)
	return &c, nil
}

func (g *fakeGateway) CreatePayment(_ context.Context, req asaas.PaymentRequest) (*asaas.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	id := fmt.Sprintf("pay_%d", g.next)
	g.status[id] = g.createStatus
	return &asaas.Payment{ID: id, Customer: req.Customer, BillingType: req.BillingType, Status: g.createStatus}, nil
}

func (g *fakeGateway) GetPayment(_ context.Context, id string) (*asaas.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.status[id]
	if !ok {
		return nil, fmt.Errorf("%w: not found", common.ErrPaymentProvider)
	}
	return &asaas.Payment{ID: id, Status: st}, nil
}

func (g *fakeGateway) GetPixQRCode(_ context.Context, id string) (*asaas.PixQRCode, error) {
	return &asaas.PixQRCode{Payload: "00020126-" + id, EncodedImage: "aW1n", ExpirationDate: "2026-10-15 23:59:59"}, nil
}

type fakeCarts struct {
	mu        sync.Mutex
	carts     map[string]*models.CartSession
	reminded  []string
	converted []string
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{carts: map[string]*models.CartSession{}}
}

func (c *fakeCarts) Create(_ context.Context, cart *models.CartSession) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *cart
	c.carts[cart.ID] = &cp
	return nil
}

func (c *fakeCarts) UpdateStep(_ context.Context, id string, step models.CheckoutStep, method models.PaymentMethod) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cart, ok := c.carts[id]
	if !ok {
		return notFound("update cart step")
	}
	cart.Step = step
	if method != "" {
		cart.PaymentMethod = method
	}
	return nil
}

func (c *fakeCarts) LinkUser(_ context.Context, id, userID, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cart, ok := c.carts[id]
	if !ok {
		return notFound("link cart user")
	}
	cart.UserID = userID
	if email != "" {
		cart.Email = email
	}
	return nil
}

func (c *fakeCarts) MarkConverted(_ context.Context, id, email string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, cart := range c.carts {
		if (id != "" && cart.ID == id) || (id == "" && email != "" && cart.Email == email && !cart.Converted) {
			cart.Converted = true
			c.converted = append(c.converted, cart.ID)
			n++
		}
	}
	return n, nil
}

func (c *fakeCarts) ListAbandoned(_ context.Context, olderThan time.Time, _ int64) ([]models.CartSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []models.CartSession{}
	for _, cart := range c.carts {
		if !cart.Converted && cart.ReminderSentAt == nil && cart.Email != "" && cart.CreatedAt.Before(olderThan) {
			out = append(out, *cart)
		}
	}
	return out, nil
}

func (c *fakeCarts) MarkReminderSent(_ context.Context, id string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cart, ok := c.carts[id]
	if !ok {
		return notFound("mark cart reminder")
	}
	cart.ReminderSentAt = &at
	c.reminded = append(c.reminded, id)
	return nil
}

func (c *fakeCarts) List(_ context.Context, _ models.CartFilter) ([]models.CartSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []models.CartSession{}
	for _, cart := range c.carts {
		out = append(out, *cart)
	}
	return out, nil
}

type fakeRates struct {
	rate decimal.Decimal
	err  error
}

func (r fakeRates) GetSelicRate(context.Context) (decimal.Decimal, error) {
	return r.rate, r.err
}

var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	svc     *Service
	store   *fakeStore
	mailer  *fakeMailer
	gateway *fakeGateway
	carts   *fakeCarts
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		JWTSecret:         "test-secret",
		TokenTTL:          time.Hour,
		HMACSecret:        "hmac-secret",
		EncryptionKey:     []byte("0123456789abcdef0123456789abcdef"),
		PublicURL:         "http://localhost:8080",
		SMTPHost:          "localhost",
		SMTPPort:          "25",
		SenderEmail:       "no-reply@localhost",
		CartReminderAfter: 2 * time.Hour,
	}

	env := &testEnv{
		store:   newFakeStore(),
		mailer:  &fakeMailer{},
		gateway: newFakeGateway(),
		carts:   newFakeCarts(),
	}
	env.svc = NewService(env.store, Deps{
		Carts:    env.carts,
		Payments: env.gateway,
		Mailer:   env.mailer,
	}, log, cfg)
	env.svc.now = func() time.Time { return testNow }
	return env
}

// addUser stores a user, optionally with a profile, and returns its principal
func (e *testEnv) addUser(id, email string, withProfile bool, role models.Role) *Principal {
	e.store.users[id] = &models.User{ID: id, Email: email}
	if withProfile {
		e.store.profiles[id] = &models.Profile{UserID: id, FullName: "User " + id, Phone: "+55 11 98888-0000", TaxID: "12345678909", Role: role}
	}
	session := &models.Session{ID: "s-" + id, UserID: id, ExpiresAt: testNow.Add(time.Hour)}
	e.store.sessions[session.ID] = session
	return &Principal{UserID: id, SessionID: session.ID, Role: role, HasProfile: withProfile}
}

func (e *testEnv) addPlan(id string, price string, months int) *models.Plan {
	p := &models.Plan{ID: id, Name: "Plan " + id, Price: decimal.RequireFromString(price), IntervalMonths: months, Active: true}
	e.store.plans[id] = p
	return p
}
