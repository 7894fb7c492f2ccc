package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection defines the document operations the service needs from a store
// collection. Filters are exact-match on every given field.
type Collection interface {
	// Name returns the collection name
	Name() string

	// InsertOne stores a document and returns its identifier. A document
	// without an _id gets one assigned by the store.
	InsertOne(ctx context.Context, document interface{}) (primitive.ObjectID, error)

	// Find returns every document matching the filter in store order
	Find(ctx context.Context, filter bson.M) ([]bson.Raw, error)

	// FindOne returns the first document matching the filter, or
	// ErrNoDocuments when nothing matches
	FindOne(ctx context.Context, filter bson.M) (bson.Raw, error)

	// UpdateOne sets the given fields on the first document matching the
	// filter and returns the number of matched documents
	UpdateOne(ctx context.Context, filter bson.M, set bson.M) (int64, error)

	// DeleteOne removes the first document matching the filter and returns
	// the number of deleted documents
	DeleteOne(ctx context.Context, filter bson.M) (int64, error)
}

// Database defines a store database holding named collections
type Database interface {
	// Collection returns a handle on the named collection
	Collection(name string) Collection

	// Ping checks connectivity with the store
	Ping(ctx context.Context) error

	// Close releases the connection to the store
	Close(ctx context.Context) error
}

// HealthStatus represents the health status of a store
type HealthStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Health pings the database and reports its status
func Health(ctx context.Context, db Database) HealthStatus {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
	}
	if err := db.Ping(ctx); err != nil {
		status.Status = "unhealthy"
		status.Message = err.Error()
	}
	return status
}
