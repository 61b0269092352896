package internal

import (
	"context"
	"time"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	companyIDKey
)

const defaultTimeout = 5 * time.Second

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns "" outside an authenticated request.
func UserIDFromContext(ctx context.Context) string {
	return stringValue(ctx, userIDKey)
}

func ContextWithCompanyID(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, companyIDKey, companyID)
}

func CompanyIDFromContext(ctx context.Context) string {
	return stringValue(ctx, companyIDKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// WithTimeout bounds ctx by d, or by five seconds when d is not positive.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
