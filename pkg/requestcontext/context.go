// Package requestcontext carries request-scoped values through context.Context
// so services read them without importing net/http. Middleware writes them;
// tests inject them directly with the With* functions.
package requestcontext

import (
	"context"
	"time"
)

type key int

const (
	keyClientIP key = iota
	keyUserAgent
	keyRequestID
	keyRequestTime
)

func stringValue(ctx context.Context, k key) string {
	s, _ := ctx.Value(k).(string)
	return s
}

// ClientIP is the caller address resolved by the client metadata middleware.
func ClientIP(ctx context.Context) string { return stringValue(ctx, keyClientIP) }

// UserAgent is the raw User-Agent header of the request.
func UserAgent(ctx context.Context) string { return stringValue(ctx, keyUserAgent) }

// RequestID is the chi request ID, empty outside HTTP requests.
func RequestID(ctx context.Context) string { return stringValue(ctx, keyRequestID) }

func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	return context.WithValue(context.WithValue(ctx, keyClientIP, clientIP), keyUserAgent, userAgent)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// Now returns the time stamped on the request, so every decision in one
// request shares a clock reading. Outside a request it is time.Now().
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(keyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, keyRequestTime, t)
}
