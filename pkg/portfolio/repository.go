package portfolio

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repository defines the CRUD contract over one collection of records.
// Identifier-taking operations reject an empty or malformed identifier with a
// validation error before reaching the store.
type Repository[T any] interface {
	// Name returns the resource name the repository is bound to
	Name() string

	// Create stores a new record and returns its store-assigned identifier
	Create(ctx context.Context, record T) (primitive.ObjectID, error)

	// GetAll returns every record of the collection in store order
	GetAll(ctx context.Context) ([]T, error)

	// GetOne returns the record with the given identifier
	GetOne(ctx context.Context, id string) (T, error)

	// FindOne returns the first record matching every field of the filter
	FindOne(ctx context.Context, filter bson.M) (T, error)

	// Update sets the given fields on the record with the given identifier
	// and returns the number of matched records. Fields not present are left
	// untouched.
	Update(ctx context.Context, id string, fields bson.M) (int64, error)

	// Delete removes the record with the given identifier and returns the
	// number of deleted records.
	Delete(ctx context.Context, id string) (int64, error)
}
