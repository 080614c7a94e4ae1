package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"live-class/auth"
	"live-class/errs"
)

const (
	HeaderRequestID = "X-Request-ID"
	identityKey     = "identity"
)

// RequestLogger attaches a request scoped logger and span to the request
// context and logs every request once it completes.
func RequestLogger(base zerolog.Logger) gin.HandlerFunc {
	tracer := otel.Tracer("live-class/handler")
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		logger := base.With().Str("request_id", requestID).Logger()
		ctx := logger.WithContext(c.Request.Context())
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+c.FullPath(), trace.WithAttributes(
			attribute.String("http.request_id", requestID),
		))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		ev := logger.Info()
		if status >= 500 {
			ev = logger.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// Authenticate resolves the bearer credential when one is present. Requests
// without one continue as anonymous; an invalid one is rejected.
func Authenticate(resolver auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			respondError(c, errs.ErrUnauthenticated)
			return
		}
		id, err := resolver.Resolve(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(identityKey, id)
		logger := zerolog.Ctx(c.Request.Context()).With().Str("user_id", id.UserID).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	}
}

// RequireIdentity rejects anonymous callers.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identity(c).Authenticated() {
			respondError(c, errs.ErrUnauthenticated)
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Identity{}
}
