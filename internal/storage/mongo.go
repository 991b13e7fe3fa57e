package storage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DataStore is the part of a Mongo collection the repositories use
type DataStore interface {
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpdateMany(ctx context.Context, filter, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	// FindAll decodes every document matching filter into out, which must be a pointer to a slice
	FindAll(ctx context.Context, filter any, out any, opts ...*options.FindOptions) error
}

// CollectionProvider hands out collections by name
type CollectionProvider interface {
	Collection(name string) DataStore
}

// MongoCollection adapts *mongo.Collection to DataStore
type MongoCollection struct {
	*mongo.Collection
}

// InsertOne inserts a single document
func (c *MongoCollection) InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	res, err := c.Collection.InsertOne(ctx, document, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to perform InsertOne: %w", err)
	}
	return res, nil
}

// UpdateOne updates the first matching document
func (c *MongoCollection) UpdateOne(ctx context.Context, filter, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	res, err := c.Collection.UpdateOne(ctx, filter, update, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to perform UpdateOne: %w", err)
	}
	return res, nil
}

// UpdateMany updates every matching document
func (c *MongoCollection) UpdateMany(ctx context.Context, filter, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	res, err := c.Collection.UpdateMany(ctx, filter, update, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to perform UpdateMany: %w", err)
	}
	return res, nil
}

// FindAll runs Find and decodes the whole cursor
func (c *MongoCollection) FindAll(ctx context.Context, filter any, out any, opts ...*options.FindOptions) error {
	cur, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return fmt.Errorf("failed to perform Find: %w", err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode documents: %w", err)
	}
	return nil
}

// MongoProvider adapts *mongo.Client to CollectionProvider
type MongoProvider struct {
	client *mongo.Client
	dbName string
}

// NewMongoProvider creates a new MongoProvider over one database
func NewMongoProvider(client *mongo.Client, dbName string) *MongoProvider {
	return &MongoProvider{client: client, dbName: dbName}
}

// Collection returns a DataStore for the given collection name
func (p *MongoProvider) Collection(name string) DataStore {
	return &MongoCollection{p.client.Database(p.dbName).Collection(name)}
}

// ConnectToMongoDB establishes a connection to MongoDB
func ConnectToMongoDB(ctx context.Context, uri string, log *logrus.Logger) (*mongo.Client, error) {
	log.Debugf("Connecting to MongoDB at %s", uri)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Info("Successfully connected to MongoDB")
	return client, nil
}
