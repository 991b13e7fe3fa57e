package service

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	trackTimeout  = 5 * time.Second
	reminderBatch = 100
)

// CartTracker records checkout progress without blocking the checkout itself.
// Writes run in the background with their own timeout and failures are only logged.
// Writes for the same cart are applied in the order they were issued.
// A nil store turns tracking into a no-op.
type CartTracker struct {
	store   CartStore
	log     *logrus.Logger
	timeout time.Duration
	wg      sync.WaitGroup

	mu    sync.Mutex
	tails map[string]chan struct{} // last queued write per cart
}

// NewCartTracker creates a tracker over store
func NewCartTracker(store CartStore, log *logrus.Logger) *CartTracker {
	return &CartTracker{store: store, log: log, timeout: trackTimeout, tails: map[string]chan struct{}{}}
}

// Enabled reports whether a cart store is configured
func (t *CartTracker) Enabled() bool {
	return t.store != nil
}

// async queues fn behind the previous write for key
func (t *CartTracker) async(key, what string, fn func(ctx context.Context, store CartStore) error) {
	if t.store == nil {
		return
	}
	done := make(chan struct{})
	t.mu.Lock()
	prev := t.tails[key]
	t.tails[key] = done
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.release(key, done)
		if prev != nil {
			<-prev
		}
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if err := fn(ctx, t.store); err != nil {
			t.log.Warnf("Cart tracking (%s) failed: %v", what, err)
		}
	}()
}

func (t *CartTracker) release(key string, done chan struct{}) {
	close(done)
	t.mu.Lock()
	if t.tails[key] == done {
		delete(t.tails, key)
	}
	t.mu.Unlock()
}

// Track stores a new cart session
func (t *CartTracker) Track(cart models.CartSession) {
	t.async(cart.ID, "create", func(ctx context.Context, store CartStore) error {
		return store.Create(ctx, &cart)
	})
}

// Step records the step a cart reached
func (t *CartTracker) Step(id string, step models.CheckoutStep, method models.PaymentMethod) {
	t.async(id, "step", func(ctx context.Context, store CartStore) error {
		return store.UpdateStep(ctx, id, step, method)
	})
}

// Link attaches a user to a cart
func (t *CartTracker) Link(id, userID, email string) {
	t.async(id, "link", func(ctx context.Context, store CartStore) error {
		return store.LinkUser(ctx, id, userID, email)
	})
}

// Convert marks carts converted in the background
func (t *CartTracker) Convert(id, email string) {
	key := id
	if key == "" {
		key = "email:" + email
	}
	t.async(key, "convert", func(ctx context.Context, store CartStore) error {
		_, err := store.MarkConverted(ctx, id, email)
		return err
	})
}

// MarkConverted marks carts converted and waits for the result
func (t *CartTracker) MarkConverted(ctx context.Context, id, email string) (int64, error) {
	if t.store == nil {
		return 0, fmt.Errorf("%w: cart tracking is not configured", common.ErrNotFound)
	}
	return t.store.MarkConverted(ctx, id, email)
}

// List returns carts for the admin console
func (t *CartTracker) List(ctx context.Context, f models.CartFilter) ([]models.CartSession, error) {
	if t.store == nil {
		return []models.CartSession{}, nil
	}
	return t.store.List(ctx, f)
}

// Wait blocks until every pending background write finished
func (t *CartTracker) Wait() {
	t.wg.Wait()
}

// MarkCartConverted is the synchronous conversion used by the function endpoint
func (s *Service) MarkCartConverted(ctx context.Context, cartID, email string) (int64, error) {
	n, err := s.carts.MarkConverted(ctx, cartID, email)
	if err != nil {
		return 0, err
	}
	s.log.Infof("Marked %d carts converted", n)
	return n, nil
}

// ListCarts lists cart sessions for the admin console
func (s *Service) ListCarts(ctx context.Context, f models.CartFilter) ([]models.CartSession, error) {
	return s.carts.List(ctx, f)
}

// SendCartReminders emails the owners of abandoned carts once.
// It returns how many reminders went out.
func (s *Service) SendCartReminders(ctx context.Context) (int, error) {
	if !s.carts.Enabled() || s.mailer == nil {
		return 0, nil
	}

	carts, err := s.carts.store.ListAbandoned(ctx, s.now().Add(-s.config.CartReminderAfter), reminderBatch)
	if err != nil {
		return 0, err
	}

	smtpCfg := s.smtpSettings(ctx)
	sent := 0
	for _, cart := range carts {
		link := fmt.Sprintf("%s/subscription?plan=%s", s.config.PublicURL, url.QueryEscape(cart.PlanID))
		if err := s.mailer.SendCartReminder(smtpCfg, cart.Email, cart.Name, cart.PlanName, link); err != nil {
			s.log.Warnf("Cart reminder to %s failed: %v", cart.Email, err)
			continue
		}
		if err := s.carts.store.MarkReminderSent(ctx, cart.ID, s.now()); err != nil {
			s.log.Warnf("Failed to record reminder for cart %s: %v", cart.ID, err)
		}
		sent++
	}

	s.log.Infof("Sent %d abandoned cart reminders", sent)
	return sent, nil
}
