package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CartsCollection holds one document per checkout attempt
const CartsCollection = "cart_sessions"

// CartRepository persists cart sessions in MongoDB
type CartRepository struct {
	provider CollectionProvider
	now      func() time.Time
}

// NewCartRepository creates a new CartRepository
func NewCartRepository(provider CollectionProvider) *CartRepository {
	return &CartRepository{provider: provider, now: time.Now}
}

func (r *CartRepository) carts() DataStore {
	return r.provider.Collection(CartsCollection)
}

// Create stores a new cart session, assigning id and timestamps when missing
func (r *CartRepository) Create(ctx context.Context, cart *models.CartSession) error {
	if cart.ID == "" {
		cart.ID = uuid.NewString()
	}
	now := r.now().UTC()
	cart.CreatedAt, cart.UpdatedAt = now, now
	cart.Email = strings.ToLower(strings.TrimSpace(cart.Email))
	cart.AmountCents = cart.Amount.Shift(2).Round(0).IntPart()

	if _, err := r.carts().InsertOne(ctx, cart); err != nil {
		return fmt.Errorf("failed to create cart session: %w", err)
	}
	return nil
}

func (r *CartRepository) updateByID(ctx context.Context, id string, set bson.M, what string) error {
	set["updated_at"] = r.now().UTC()
	res, err := r.carts().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return nil
}

// UpdateStep records the checkout step reached and, once known, the payment method
func (r *CartRepository) UpdateStep(ctx context.Context, id string, step models.CheckoutStep, method models.PaymentMethod) error {
	set := bson.M{"step": step}
	if method != "" {
		set["payment_method"] = method
	}
	return r.updateByID(ctx, id, set, "update cart step")
}

// LinkUser attaches the signed-in user to the cart
func (r *CartRepository) LinkUser(ctx context.Context, id, userID, email string) error {
	set := bson.M{"user_id": userID}
	if email != "" {
		set["email"] = strings.ToLower(email)
	}
	return r.updateByID(ctx, id, set, "link cart user")
}

// MarkConverted flags carts as converted, by id when given, otherwise every open cart of the email
func (r *CartRepository) MarkConverted(ctx context.Context, id, email string) (int64, error) {
	var filter bson.M
	switch {
	case id != "":
		filter = bson.M{"_id": id}
	case email != "":
		filter = bson.M{"email": strings.ToLower(strings.TrimSpace(email)), "converted": false}
	default:
		return 0, fmt.Errorf("%w: cart id or email is required", common.ErrValidation)
	}

	now := r.now().UTC()
	res, err := r.carts().UpdateMany(ctx, filter, bson.M{"$set": bson.M{
		"converted": true, "converted_at": now, "updated_at": now,
	}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark cart converted: %w", err)
	}
	return res.ModifiedCount, nil
}

// ListAbandoned returns unconverted, unreminded carts with an email created before olderThan
func (r *CartRepository) ListAbandoned(ctx context.Context, olderThan time.Time, limit int64) ([]models.CartSession, error) {
	filter := bson.M{
		"converted":        false,
		"reminder_sent_at": bson.M{"$exists": false},
		"created_at":       bson.M{"$lt": olderThan.UTC()},
		"email":            bson.M{"$ne": ""},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return r.find(ctx, filter, opts, "list abandoned carts")
}

// MarkReminderSent records that the abandoned-cart email went out
func (r *CartRepository) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	return r.updateByID(ctx, id, bson.M{"reminder_sent_at": at.UTC()}, "mark cart reminder")
}

// List returns carts newest first for the admin console
func (r *CartRepository) List(ctx context.Context, f models.CartFilter) ([]models.CartSession, error) {
	filter := bson.M{}
	if f.Converted != nil {
		filter["converted"] = *f.Converted
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(max(f.Offset, 0))
	return r.find(ctx, filter, opts, "list carts")
}

func (r *CartRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions, what string) ([]models.CartSession, error) {
	carts := []models.CartSession{}
	if err := r.carts().FindAll(ctx, filter, &carts, opts); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	for i := range carts {
		carts[i].Amount = decimal.New(carts[i].AmountCents, -2)
	}
	return carts, nil
}
