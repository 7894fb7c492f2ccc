// Package mongo implements the document store on top of a MongoDB server.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/songzhibin97/portfolio/internal/store"
)

// Server error codes reported for malformed operations
const (
	codeBadValue       = 2
	codeFailedToParse  = 9
	codeImmutableField = 66
)

// Config represents the MongoDB connection configuration
type Config struct {
	URI              string
	Database         string
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
}

// Database implements store.Database on a MongoDB database
type Database struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// Connect connects to the server and verifies the connection
func Connect(ctx context.Context, cfg Config) (*Database, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongodb URI cannot be empty")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongodb database cannot be empty")
	}

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Database{
		client:  client,
		db:      client.Database(cfg.Database),
		timeout: cfg.OperationTimeout,
	}, nil
}

// Collection returns a handle on the named collection
func (d *Database) Collection(name string) store.Collection {
	return &Collection{
		col:     d.db.Collection(name),
		timeout: d.timeout,
	}
}

// Ping checks connectivity with the primary
func (d *Database) Ping(ctx context.Context) error {
	return translateError(d.client.Ping(ctx, readpref.Primary()))
}

// Close disconnects the client
func (d *Database) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// Collection implements store.Collection on a MongoDB collection
type Collection struct {
	col     *mongo.Collection
	timeout time.Duration
}

// Name returns the collection name
func (c *Collection) Name() string {
	return c.col.Name()
}

// InsertOne inserts a document and returns its ObjectID
func (c *Collection) InsertOne(ctx context.Context, document interface{}) (primitive.ObjectID, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.col.InsertOne(ctx, document)
	if err != nil {
		return primitive.NilObjectID, translateError(err)
	}

	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return id, nil
}

// Find returns every document matching the filter
func (c *Collection) Find(ctx context.Context, filter bson.M) ([]bson.Raw, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	cursor, err := c.col.Find(ctx, normalizeFilter(filter))
	if err != nil {
		return nil, translateError(err)
	}
	defer cursor.Close(ctx)

	documents := make([]bson.Raw, 0)
	for cursor.Next(ctx) {
		// cursor.Current is reused by the next call to Next
		doc := make(bson.Raw, len(cursor.Current))
		copy(doc, cursor.Current)
		documents = append(documents, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, translateError(err)
	}
	return documents, nil
}

// FindOne returns the first document matching the filter
func (c *Collection) FindOne(ctx context.Context, filter bson.M) (bson.Raw, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	raw, err := c.col.FindOne(ctx, normalizeFilter(filter)).Raw()
	if err != nil {
		return nil, translateError(err)
	}
	return raw, nil
}

// UpdateOne applies a $set of the given fields to the first matching document
func (c *Collection) UpdateOne(ctx context.Context, filter bson.M, set bson.M) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.col.UpdateOne(ctx, normalizeFilter(filter), bson.M{"$set": set})
	if err != nil {
		return 0, translateError(err)
	}
	return result.MatchedCount, nil
}

// DeleteOne deletes the first matching document
func (c *Collection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.col.DeleteOne(ctx, normalizeFilter(filter))
	if err != nil {
		return 0, translateError(err)
	}
	return result.DeletedCount, nil
}

func (c *Collection) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// normalizeFilter turns a nil filter into an empty one, which the driver
// requires to match every document
func normalizeFilter(filter bson.M) bson.M {
	if filter == nil {
		return bson.M{}
	}
	return filter
}

// translateError maps driver errors onto the store sentinels
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNoDocuments
	case errors.Is(err, mongo.ErrClientDisconnected):
		return fmt.Errorf("%w: %v", store.ErrClosed, err)
	case errors.Is(err, mongo.ErrNilDocument),
		errors.Is(err, mongo.ErrNilValue),
		errors.Is(err, mongo.ErrEmptySlice):
		return fmt.Errorf("%w: %v", store.ErrInvalidArgument, err)
	}

	var noEncoder bsoncodec.ErrNoEncoder
	if errors.As(err, &noEncoder) {
		return fmt.Errorf("%w: %v", store.ErrInvalidArgument, err)
	}

	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		if serverErr.HasErrorCode(codeBadValue) ||
			serverErr.HasErrorCode(codeFailedToParse) ||
			serverErr.HasErrorCode(codeImmutableField) {
			return fmt.Errorf("%w: %v", store.ErrInvalidArgument, err)
		}
	}

	return err
}
