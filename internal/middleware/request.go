package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const (
	RequestIDHeader = "X-Request-Id"
	requestIDKey    = "requestID"
)

// RequestID returns the id assigned to the request by Handle.
func RequestID(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue(requestIDKey).(string)
	return id
}

type RequestMiddleware struct{}

func NewRequestMiddleware() *RequestMiddleware {
	return &RequestMiddleware{}
}

// Handle tags each request with an id, logs it once it completes and turns a
// handler panic into a 500.
func (rm *RequestMiddleware) Handle(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()

		requestID := string(ctx.Request.Header.Peek(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx.SetUserValue(requestIDKey, requestID)
		ctx.Response.Header.Set(RequestIDHeader, requestID)

		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("requestId", requestID).
					Msg("Panic recovered")
				ctx.ResetBody()
				ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
			}
			logRequest(ctx, requestID, time.Since(start))
		}()

		next(ctx)
	}
}

func logRequest(ctx *fasthttp.RequestCtx, requestID string, latency time.Duration) {
	status := ctx.Response.StatusCode()

	var event *zerolog.Event
	switch {
	case status >= fasthttp.StatusInternalServerError:
		event = log.Error()
	case status >= fasthttp.StatusBadRequest:
		event = log.Warn()
	default:
		event = log.Info()
	}

	event.
		Str("method", string(ctx.Method())).
		Str("path", string(ctx.Path())).
		Int("status", status).
		Dur("latency", latency).
		Str("requestId", requestID).
		Msg("HTTP request")
}
