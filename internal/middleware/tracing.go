package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/songzhibin97/portfolio/pkg/log"
)

const tracerName = "github.com/songzhibin97/portfolio/internal/middleware"

// Tracing starts a server span for every request, continuing any trace
// carried by the incoming headers. The span context is placed on the request
// context so repository spans become its children.
func Tracing(tp trace.TracerProvider, propagator propagation.TextMapPropagator) gin.HandlerFunc {
	tracer := tp.Tracer(tracerName)

	return func(c *gin.Context) {
		r := c.Request
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeOf(c)
		ctx, span := tracer.Start(ctx, r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("url.path", r.URL.Path),
				attribute.String("user_agent.original", r.UserAgent()),
				attribute.String("client.address", c.ClientIP()),
			),
		)
		defer span.End()

		if requestID := log.RequestIDFromContext(ctx); requestID != "" {
			span.SetAttributes(attribute.String("request.id", requestID))
		}
		if r.ContentLength > 0 {
			span.SetAttributes(attribute.Int64("http.request.body.size", r.ContentLength))
		}

		c.Request = r.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if size := c.Writer.Size(); size > 0 {
			span.SetAttributes(attribute.Int("http.response.body.size", size))
		}

		if status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
			if status >= http.StatusInternalServerError {
				if last := c.Errors.Last(); last != nil {
					span.RecordError(last.Err)
				}
			}
		}
	}
}
