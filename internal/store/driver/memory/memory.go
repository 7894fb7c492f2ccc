// Package memory provides an in-memory document store. Documents are kept as
// encoded BSON so records go through the same codec as with a real server.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/songzhibin97/portfolio/internal/store"
)

// Database implements store.Database using in-memory storage
type Database struct {
	mu          sync.RWMutex
	collections map[string]*Collection
	closed      bool
}

// New creates a new in-memory database
func New() *Database {
	return &Database{
		collections: make(map[string]*Collection),
	}
}

// Collection returns the named collection, creating it on first use
func (d *Database) Collection(name string) store.Collection {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, exists := d.collections[name]; exists {
		return c
	}

	c := &Collection{db: d, name: name}
	d.collections[name] = c
	return c
}

// Ping reports whether the database is open
func (d *Database) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.isClosed() {
		return store.ErrClosed
	}
	return nil
}

// Close closes the database and drops all documents
func (d *Database) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}

	for _, c := range d.collections {
		c.mu.Lock()
		c.documents = nil
		c.mu.Unlock()
	}
	d.closed = true
	return nil
}

func (d *Database) isClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

// Collection implements store.Collection. Documents are kept in insertion
// order.
type Collection struct {
	db        *Database
	name      string
	mu        sync.RWMutex
	documents []bson.Raw
}

// Name returns the collection name
func (c *Collection) Name() string {
	return c.name
}

// InsertOne stores a document, assigning an ObjectID when it has no _id
func (c *Collection) InsertOne(ctx context.Context, document interface{}) (primitive.ObjectID, error) {
	if err := c.check(ctx); err != nil {
		return primitive.NilObjectID, err
	}

	raw, err := bson.Marshal(document)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %v", store.ErrInvalidArgument, err)
	}

	id, raw, err := ensureID(raw)
	if err != nil {
		return primitive.NilObjectID, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range c.documents {
		if matches(doc, store.IDFilter(id)) {
			return primitive.NilObjectID, fmt.Errorf("duplicate key error: _id %s already exists in %s", id.Hex(), c.name)
		}
	}

	c.documents = append(c.documents, raw)
	return id, nil
}

// Find returns copies of every document matching the filter
func (c *Collection) Find(ctx context.Context, filter bson.M) ([]bson.Raw, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	results := make([]bson.Raw, 0, len(c.documents))
	for _, doc := range c.documents {
		if matches(doc, filter) {
			results = append(results, clone(doc))
		}
	}
	return results, nil
}

// FindOne returns a copy of the first document matching the filter
func (c *Collection) FindOne(ctx context.Context, filter bson.M) (bson.Raw, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, doc := range c.documents {
		if matches(doc, filter) {
			return clone(doc), nil
		}
	}
	return nil, store.ErrNoDocuments
}

// UpdateOne merges the given fields into the first matching document
func (c *Collection) UpdateOne(ctx context.Context, filter bson.M, set bson.M) (int64, error) {
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	if err := validateFilter(filter); err != nil {
		return 0, err
	}
	if len(set) == 0 {
		return 0, fmt.Errorf("%w: '$set' is empty", store.ErrInvalidArgument)
	}
	if _, ok := set["_id"]; ok {
		return 0, fmt.Errorf("%w: the (immutable) field '_id' cannot be updated", store.ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, doc := range c.documents {
		if !matches(doc, filter) {
			continue
		}

		updated, err := merge(doc, set)
		if err != nil {
			return 0, err
		}
		c.documents[i] = updated
		return 1, nil
	}
	return 0, nil
}

// DeleteOne removes the first matching document
func (c *Collection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	if err := validateFilter(filter); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, doc := range c.documents {
		if matches(doc, filter) {
			c.documents = append(c.documents[:i], c.documents[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (c *Collection) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.db.isClosed() {
		return store.ErrClosed
	}
	return nil
}

// ensureID returns the document's _id, prepending a new ObjectID when absent
func ensureID(raw bson.Raw) (primitive.ObjectID, bson.Raw, error) {
	value, err := raw.LookupErr("_id")
	if err == nil {
		id, ok := value.ObjectIDOK()
		if !ok {
			return primitive.NilObjectID, nil, fmt.Errorf("%w: _id must be an ObjectID", store.ErrInvalidArgument)
		}
		return id, raw, nil
	}

	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return primitive.NilObjectID, nil, fmt.Errorf("%w: %v", store.ErrInvalidArgument, err)
	}

	id := primitive.NewObjectID()
	withID, err := bson.Marshal(append(bson.D{{Key: "_id", Value: id}}, doc...))
	if err != nil {
		return primitive.NilObjectID, nil, fmt.Errorf("%w: %v", store.ErrInvalidArgument, err)
	}
	return id, withID, nil
}

// validateFilter rejects filters whose values cannot be encoded
func validateFilter(filter bson.M) error {
	for key, want := range filter {
		if _, _, err := bson.MarshalValue(want); err != nil {
			return fmt.Errorf("%w: filter field %q: %v", store.ErrInvalidArgument, key, err)
		}
	}
	return nil
}

// matches reports whether every filter field equals the document's field
// once both are encoded
func matches(doc bson.Raw, filter bson.M) bool {
	for key, want := range filter {
		got, err := doc.LookupErr(key)
		if err != nil {
			return false
		}

		typ, data, err := bson.MarshalValue(want)
		if err != nil {
			return false
		}
		if got.Type != typ || !bytes.Equal(got.Value, data) {
			return false
		}
	}
	return true
}

// merge replaces or appends the given fields, keeping existing field order
func merge(raw bson.Raw, set bson.M) (bson.Raw, error) {
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidArgument, err)
	}

	applied := make(map[string]bool, len(set))
	for i, elem := range doc {
		if value, ok := set[elem.Key]; ok {
			doc[i].Value = value
			applied[elem.Key] = true
		}
	}

	added := make([]string, 0, len(set))
	for key := range set {
		if !applied[key] {
			added = append(added, key)
		}
	}
	sort.Strings(added)
	for _, key := range added {
		doc = append(doc, bson.E{Key: key, Value: set[key]})
	}

	updated, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidArgument, err)
	}
	return updated, nil
}

func clone(raw bson.Raw) bson.Raw {
	out := make(bson.Raw, len(raw))
	copy(out, raw)
	return out
}
