package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mockDataStore struct {
	insertOneFunc  func(ctx context.Context, document any) (*mongo.InsertOneResult, error)
	updateOneFunc  func(ctx context.Context, filter, update any) (*mongo.UpdateResult, error)
	updateManyFunc func(ctx context.Context, filter, update any) (*mongo.UpdateResult, error)
	findAllFunc    func(ctx context.Context, filter any, out any, opts ...*options.FindOptions) error
}

func (m *mockDataStore) InsertOne(ctx context.Context, document any, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if m.insertOneFunc != nil {
		return m.insertOneFunc(ctx, document)
	}
	return &mongo.InsertOneResult{}, nil
}

func (m *mockDataStore) UpdateOne(ctx context.Context, filter, update any, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	if m.updateOneFunc != nil {
		return m.updateOneFunc(ctx, filter, update)
	}
	return &mongo.UpdateResult{MatchedCount: 1}, nil
}

func (m *mockDataStore) UpdateMany(ctx context.Context, filter, update any, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	if m.updateManyFunc != nil {
		return m.updateManyFunc(ctx, filter, update)
	}
	return &mongo.UpdateResult{}, nil
}

func (m *mockDataStore) FindAll(ctx context.Context, filter any, out any, opts ...*options.FindOptions) error {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, filter, out, opts...)
	}
	return nil
}

type mockCollectionProvider struct {
	store *mockDataStore
	names []string
}

func (m *mockCollectionProvider) Collection(name string) DataStore {
	m.names = append(m.names, name)
	return m.store
}

func newCartRepo(store *mockDataStore) (*CartRepository, *mockCollectionProvider) {
	provider := &mockCollectionProvider{store: store}
	repo := NewCartRepository(provider)
	repo.now = func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) }
	return repo, provider
}

func TestCartCreate(t *testing.T) {
	var inserted *models.CartSession
	repo, provider := newCartRepo(&mockDataStore{
		insertOneFunc: func(ctx context.Context, document any) (*mongo.InsertOneResult, error) {
			inserted = document.(*models.CartSession)
			return &mongo.InsertOneResult{InsertedID: inserted.ID}, nil
		},
	})

	cart := &models.CartSession{Email: " Ana@Example.com ", PlanID: "p-1", Amount: decimal.RequireFromString("29.90"),
		Step: models.StepPlanSelection}
	require.NoError(t, repo.Create(context.Background(), cart))

	require.NotNil(t, inserted)
	assert.NotEmpty(t, inserted.ID)
	assert.Equal(t, "ana@example.com", inserted.Email)
	assert.EqualValues(t, 2990, inserted.AmountCents)
	assert.Equal(t, repo.now(), inserted.CreatedAt)
	assert.Equal(t, []string{CartsCollection}, provider.names)
}

func TestCartCreate_Error(t *testing.T) {
	repo, _ := newCartRepo(&mockDataStore{
		insertOneFunc: func(ctx context.Context, document any) (*mongo.InsertOneResult, error) {
			return nil, errors.New("write failed")
		},
	})
	err := repo.Create(context.Background(), &models.CartSession{})
	assert.ErrorContains(t, err, "write failed")
}

func TestCartUpdateStep(t *testing.T) {
	repo, _ := newCartRepo(&mockDataStore{
		updateOneFunc: func(ctx context.Context, filter, update any) (*mongo.UpdateResult, error) {
			assert.Equal(t, bson.M{"_id": "c-1"}, filter)
			set := update.(bson.M)["$set"].(bson.M)
			assert.Equal(t, models.StepCheckout, set["step"])
			assert.Equal(t, models.PaymentPIX, set["payment_method"])
			return &mongo.UpdateResult{MatchedCount: 1}, nil
		},
	})
	require.NoError(t, repo.UpdateStep(context.Background(), "c-1", models.StepCheckout, models.PaymentPIX))
}

func TestCartUpdateStep_NotFound(t *testing.T) {
	repo, _ := newCartRepo(&mockDataStore{
		updateOneFunc: func(ctx context.Context, filter, update any) (*mongo.UpdateResult, error) {
			return &mongo.UpdateResult{}, nil
		},
	})
	err := repo.UpdateStep(context.Background(), "missing", models.StepAuth, "")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCartMarkConverted(t *testing.T) {
	var filters []any
	repo, _ := newCartRepo(&mockDataStore{
		updateManyFunc: func(ctx context.Context, filter, update any) (*mongo.UpdateResult, error) {
			filters = append(filters, filter)
			set := update.(bson.M)["$set"].(bson.M)
			assert.Equal(t, true, set["converted"])
			return &mongo.UpdateResult{ModifiedCount: 2}, nil
		},
	})

	n, err := repo.MarkConverted(context.Background(), "c-1", "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = repo.MarkConverted(context.Background(), "", "Ana@Example.com")
	require.NoError(t, err)

	_, err = repo.MarkConverted(context.Background(), "", "")
	assert.ErrorIs(t, err, common.ErrValidation)

	require.Len(t, filters, 2)
	assert.Equal(t, bson.M{"_id": "c-1"}, filters[0])
	assert.Equal(t, bson.M{"email": "ana@example.com", "converted": false}, filters[1])
}

func TestCartListAbandoned(t *testing.T) {
	cutoff := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	repo, _ := newCartRepo(&mockDataStore{
		findAllFunc: func(ctx context.Context, filter any, out any, opts ...*options.FindOptions) error {
			f := filter.(bson.M)
			assert.Equal(t, false, f["converted"])
			assert.Equal(t, bson.M{"$lt": cutoff}, f["created_at"])
			require.Len(t, opts, 1)
			assert.EqualValues(t, 100, *opts[0].Limit)

			carts := out.(*[]models.CartSession)
			*carts = append(*carts, models.CartSession{ID: "c-1", AmountCents: 4990})
			return nil
		},
	})

	carts, err := repo.ListAbandoned(context.Background(), cutoff, 100)
	require.NoError(t, err)
	require.Len(t, carts, 1)
	assert.True(t, carts[0].Amount.Equal(decimal.RequireFromString("49.90")))
}

func TestCartList_Filter(t *testing.T) {
	converted := true
	repo, _ := newCartRepo(&mockDataStore{
		findAllFunc: func(ctx context.Context, filter any, out any, opts ...*options.FindOptions) error {
			assert.Equal(t, bson.M{"converted": true}, filter)
			assert.EqualValues(t, 50, *opts[0].Limit)
			assert.EqualValues(t, 10, *opts[0].Skip)
			return nil
		},
	})

	carts, err := repo.List(context.Background(), models.CartFilter{Converted: &converted, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, carts)
}
