// Package repository implements the generic CRUD repository over one store
// collection. It owns identifier parsing and turns every store failure into
// a *portfolio.Error whose message is qualified with the collection name.
package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/songzhibin97/portfolio/internal/store"
	"github.com/songzhibin97/portfolio/pkg/log"
	"github.com/songzhibin97/portfolio/pkg/portfolio"
)

// Operation names used in logs and metrics
const (
	OpCreate  = "create"
	OpGetAll  = "get_all"
	OpGetOne  = "get_one"
	OpFindOne = "find_one"
	OpUpdate  = "update"
	OpDelete  = "delete"
)

const tracerName = "github.com/songzhibin97/portfolio/internal/repository"

// Option configures a Repository
type Option func(*options)

type options struct {
	metrics        *Metrics
	logger         log.Logger
	tracerProvider trace.TracerProvider
}

// WithMetrics counts every operation in m
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLogger sets the logger used for operation traces
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracerProvider records a span per operation with tracers from tp. The
// global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// Repository implements portfolio.Repository for records of type T stored in
// one collection. It holds no mutable state and is safe for concurrent use.
type Repository[T portfolio.Record[T]] struct {
	collection store.Collection
	metrics    *Metrics
	logger     log.Logger
	tracer     trace.Tracer
}

var _ portfolio.Repository[portfolio.Detail] = (*Repository[portfolio.Detail])(nil)

// New creates a repository bound to collection
func New[T portfolio.Record[T]](collection store.Collection, opts ...Option) *Repository[T] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.Component("repository")
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}

	return &Repository[T]{
		collection: collection,
		metrics:    o.metrics,
		logger:     o.logger.With(log.String(log.FieldCollection, collection.Name())),
		tracer:     o.tracerProvider.Tracer(tracerName),
	}
}

// Name returns the collection name
func (r *Repository[T]) Name() string {
	return r.collection.Name()
}

// Create inserts record without its identifier and returns the identifier
// assigned by the store
func (r *Repository[T]) Create(ctx context.Context, record T) (id primitive.ObjectID, err error) {
	ctx, span := r.startSpan(ctx, OpCreate)
	defer r.trace(ctx, span, OpCreate, time.Now(), &err)

	id, err = r.collection.InsertOne(ctx, record.WithID(primitive.NilObjectID))
	if err != nil {
		return primitive.NilObjectID, r.storeError(err, "Failed to create record")
	}
	return id, nil
}

// GetAll returns every record in store order. An empty collection yields an
// empty, non-nil slice.
func (r *Repository[T]) GetAll(ctx context.Context) (records []T, err error) {
	ctx, span := r.startSpan(ctx, OpGetAll)
	defer r.trace(ctx, span, OpGetAll, time.Now(), &err)

	documents, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, r.storeError(err, "Failed to list records")
	}

	records = make([]T, 0, len(documents))
	for _, doc := range documents {
		record, err := r.decode(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// GetOne returns the record with the given identifier
func (r *Repository[T]) GetOne(ctx context.Context, id string) (record T, err error) {
	ctx, span := r.startSpan(ctx, OpGetOne)
	defer r.trace(ctx, span, OpGetOne, time.Now(), &err, log.String(log.FieldEntityID, id))

	oid, err := r.parseID(id)
	if err != nil {
		return record, err
	}

	doc, err := r.collection.FindOne(ctx, store.IDFilter(oid))
	if err != nil {
		if store.IsNoDocuments(err) {
			return record, r.notFound("Specified ID not found")
		}
		return record, r.storeError(err, "Failed to get record")
	}
	return r.decode(doc)
}

// FindOne returns the first record whose fields equal every field of filter
func (r *Repository[T]) FindOne(ctx context.Context, filter bson.M) (record T, err error) {
	ctx, span := r.startSpan(ctx, OpFindOne)
	defer r.trace(ctx, span, OpFindOne, time.Now(), &err)

	doc, err := r.collection.FindOne(ctx, filter)
	if err != nil {
		if store.IsNoDocuments(err) {
			return record, r.notFound("No matching record found")
		}
		return record, r.storeError(err, "Failed to find record")
	}
	return r.decode(doc)
}

// Update sets fields on the record with the given identifier, leaving every
// other field untouched, and returns the matched count. Zero matches is not
// an error here; callers decide how to report it.
func (r *Repository[T]) Update(ctx context.Context, id string, fields bson.M) (matched int64, err error) {
	ctx, span := r.startSpan(ctx, OpUpdate)
	defer r.trace(ctx, span, OpUpdate, time.Now(), &err, log.String(log.FieldEntityID, id))

	oid, err := r.parseID(id)
	if err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, r.validation("No schema data fields to update")
	}

	matched, err = r.collection.UpdateOne(ctx, store.IDFilter(oid), fields)
	if err != nil {
		return 0, r.storeError(err, "Failed to update record")
	}
	return matched, nil
}

// Delete removes the record with the given identifier and returns the
// deleted count
func (r *Repository[T]) Delete(ctx context.Context, id string) (deleted int64, err error) {
	ctx, span := r.startSpan(ctx, OpDelete)
	defer r.trace(ctx, span, OpDelete, time.Now(), &err, log.String(log.FieldEntityID, id))

	oid, err := r.parseID(id)
	if err != nil {
		return 0, err
	}

	deleted, err = r.collection.DeleteOne(ctx, store.IDFilter(oid))
	if err != nil {
		return 0, r.storeError(err, "Failed to delete record")
	}
	return deleted, nil
}

// parseID validates an identifier before any store call
func (r *Repository[T]) parseID(id string) (primitive.ObjectID, error) {
	if id == "" {
		return primitive.NilObjectID, r.validation("Invalid ID")
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, r.validation("Invalid ID")
	}
	return oid, nil
}

func (r *Repository[T]) decode(doc bson.Raw) (T, error) {
	var record T
	if err := bson.Unmarshal(doc, &record); err != nil {
		return record, portfolio.NewInternalError(r.message("Failed to decode record"), err)
	}
	return record, nil
}

func (r *Repository[T]) message(msg string) string {
	return fmt.Sprintf("%s repository error: %s", r.collection.Name(), msg)
}

func (r *Repository[T]) validation(msg string) error {
	return portfolio.NewValidationError(r.message(msg))
}

func (r *Repository[T]) notFound(msg string) error {
	return portfolio.NewNotFoundError(r.message(msg))
}

// storeError collapses a store failure into a client or server error
func (r *Repository[T]) storeError(err error, msg string) error {
	if store.IsInvalidArgument(err) {
		return portfolio.NewValidationError(r.message(err.Error()))
	}
	return portfolio.NewInternalError(r.message(msg), err)
}

func (r *Repository[T]) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, r.collection.Name()+"."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "mongodb"),
			attribute.String("db.collection.name", r.collection.Name()),
			attribute.String("db.operation.name", op),
		),
	)
}

func (r *Repository[T]) trace(ctx context.Context, span trace.Span, op string, start time.Time, errp *error, fields ...log.Field) {
	defer span.End()

	err := *errp
	r.metrics.observe(r.collection.Name(), op, err)
	span.SetAttributes(attribute.String(log.FieldOutcome, outcome(err)))

	logger := r.logger.WithContext(ctx)
	fields = append(fields,
		log.String(log.FieldOperation, op),
		log.String(log.FieldOutcome, outcome(err)),
		log.Duration(log.FieldLatency, time.Since(start)),
	)

	if portfolio.IsInternalError(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, portfolio.Message(err))
		logger.Error("Repository operation failed", append(fields, log.Error(err))...)
		return
	}
	logger.Debug("Repository operation", fields...)
}
