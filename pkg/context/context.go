// Package context carries request-scoped values through handlers and import jobs
package context

import "context"

type ContextKey string

var (
	RequestIDKey = ContextKey("X-Request-Id")
	RouteKey     = ContextKey("X-Route")
	UserIDKey    = ContextKey("X-User-Id")
	JobIDKey     = ContextKey("X-Job-Id")
)

// logFields maps keys to the field names they are logged under
var logFields = []struct {
	key   ContextKey
	field string
}{
	{RequestIDKey, "request_id"},
	{UserIDKey, "user_id"},
	{JobIDKey, "job_id"},
	{RouteKey, "route"},
}

func getString(ctx context.Context, key ContextKey) string {
	value, _ := ctx.Value(key).(string)
	return value
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	return getString(ctx, RequestIDKey)
}

// SetUserID records the submitter; jobs keep it as SubmittedBy
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func GetUserID(ctx context.Context) string {
	return getString(ctx, UserIDKey)
}

func SetRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, RouteKey, route)
}

func GetRoute(ctx context.Context) string {
	return getString(ctx, RouteKey)
}

// SetJobID tags ctx with the import job it runs for
func SetJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, JobIDKey, jobID)
}

func GetJobID(ctx context.Context) string {
	return getString(ctx, JobIDKey)
}

// Fields returns the values set on ctx as log fields, skipping empty ones
func Fields(ctx context.Context) map[string]any {
	fields := make(map[string]any, len(logFields))
	for _, f := range logFields {
		if value := getString(ctx, f.key); value != "" {
			fields[f.field] = value
		}
	}
	return fields
}

// Detach returns a context that keeps the values of ctx (request id, user id, trace)
// but none of its deadline or cancellation. Import jobs outlive their request.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
