// Package handler exposes the portfolio resources over HTTP with gin.
//
// Every resource shares one generic CRUD handler. Error bodies are the
// client-facing message of the *portfolio.Error rendered as a JSON string.
package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/songzhibin97/portfolio/internal/store"
	"github.com/songzhibin97/portfolio/pkg/log"
	"github.com/songzhibin97/portfolio/pkg/portfolio"
)

// DeletedMessage is the plain-text body of a successful delete
const DeletedMessage = "Successfully deleted!"

// CRUDHandler serves create, list, get, update and delete for records of
// type T, decoding partial updates into U.
//
// Responses that return a record after a write read it back with a second
// repository call. The read is not atomic with the write: a concurrent
// delete in between yields 404 for a write that succeeded.
type CRUDHandler[T portfolio.Record[T], U any] struct {
	path   string
	repo   portfolio.Repository[T]
	logger log.Logger
}

// NewCRUDHandler creates a handler mounted at path (for example "/detail")
func NewCRUDHandler[T portfolio.Record[T], U any](path string, repo portfolio.Repository[T], logger log.Logger) *CRUDHandler[T, U] {
	if logger == nil {
		logger = log.Component("handler")
	}
	return &CRUDHandler[T, U]{
		path:   path,
		repo:   repo,
		logger: logger.With(log.String(log.FieldCollection, repo.Name())),
	}
}

// RegisterRoutes registers the resource routes
func (h *CRUDHandler[T, U]) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group(h.path)
	{
		group.POST("", h.Create)
		group.GET("", h.GetAll)
		group.GET("/:id", h.GetOne)
		group.PUT("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
	}
}

// Create handles POST /api/<resource>
func (h *CRUDHandler[T, U]) Create(c *gin.Context) {
	var record T
	if err := c.ShouldBindJSON(&record); err != nil {
		h.fail(c, h.invalidBody(err))
		return
	}
	h.create(c, record)
}

// create stores record with its identifier cleared and responds with the
// stored record
func (h *CRUDHandler[T, U]) create(c *gin.Context, record T) {
	ctx := c.Request.Context()

	record = record.WithID(primitive.NilObjectID)
	id, err := h.repo.Create(ctx, record)
	if err != nil {
		h.fail(c, err)
		return
	}

	created, err := h.repo.GetOne(ctx, id.Hex())
	if err != nil {
		h.logger.WithContext(ctx).Warn("Failed to read back created record",
			log.String(log.FieldEntityID, id.Hex()),
			log.Error(err))
		created = record.WithID(id)
	}

	c.JSON(http.StatusOK, present(created))
}

// GetAll handles GET /api/<resource>
func (h *CRUDHandler[T, U]) GetAll(c *gin.Context) {
	records, err := h.repo.GetAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]T, 0, len(records))
	for _, record := range records {
		out = append(out, present(record))
	}
	c.JSON(http.StatusOK, out)
}

// GetOne handles GET /api/<resource>/:id
func (h *CRUDHandler[T, U]) GetOne(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	record, err := h.repo.GetOne(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, present(record))
}

// Update handles PUT /api/<resource>/:id
func (h *CRUDHandler[T, U]) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var partial U
	if err := c.ShouldBindJSON(&partial); err != nil {
		h.fail(c, h.invalidBody(err))
		return
	}

	fields, err := store.ToFields(partial)
	if err != nil {
		h.fail(c, h.invalidBody(err))
		return
	}

	matched, err := h.repo.Update(c.Request.Context(), id, fields)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondUpdated(c, id, matched)
}

// respondUpdated reads back the record after an update matched it
func (h *CRUDHandler[T, U]) respondUpdated(c *gin.Context, id string, matched int64) {
	if matched == 0 {
		h.fail(c, h.notFound())
		return
	}

	record, err := h.repo.GetOne(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, present(record))
}

// Delete handles DELETE /api/<resource>/:id
func (h *CRUDHandler[T, U]) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	deleted, err := h.repo.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	switch deleted {
	case 1:
		c.String(http.StatusOK, DeletedMessage)
	case 0:
		h.fail(c, h.notFound())
	default:
		h.fail(c, portfolio.NewInternalError(h.message("Unexpected deleted count"), fmt.Errorf("deleted %d records", deleted)))
	}
}

// pathID returns the :id path parameter, responding 400 when it is empty
func (h *CRUDHandler[T, U]) pathID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if id == "" {
		h.fail(c, portfolio.NewValidationError(h.message("Invalid ID")))
		return "", false
	}
	return id, true
}

func (h *CRUDHandler[T, U]) message(msg string) string {
	return fmt.Sprintf("%s repository error: %s", h.repo.Name(), msg)
}

func (h *CRUDHandler[T, U]) notFound() error {
	return portfolio.NewNotFoundError(h.message("Specified ID not found"))
}

func (h *CRUDHandler[T, U]) invalidBody(err error) error {
	return portfolio.NewValidationError(h.message(fmt.Sprintf("Invalid request body: %v", err)))
}

// fail renders err as its status code and message
func (h *CRUDHandler[T, U]) fail(c *gin.Context, err error) {
	status := portfolio.StatusCode(err)
	logger := h.logger.WithContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			log.String(log.FieldMethod, c.Request.Method),
			log.String(log.FieldPath, c.FullPath()),
			log.Error(err))
	} else {
		logger.Debug("Request rejected",
			log.String(log.FieldMethod, c.Request.Method),
			log.String(log.FieldPath, c.FullPath()),
			log.Int(log.FieldStatusCode, status))
	}

	_ = c.Error(err)
	c.JSON(status, portfolio.Message(err))
}

// present strips secrets from records that carry them
func present[T any](record T) T {
	if r, ok := any(record).(portfolio.Redactor[T]); ok {
		return r.Redacted()
	}
	return record
}
