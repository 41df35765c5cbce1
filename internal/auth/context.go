package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const operatorIDKey contextKey = "operatorID"

// OperatorHeader names the header the upstream session layer uses to identify
// the operator driving an import.
const OperatorHeader = "X-Operator-Id"

// ContextWithOperatorID returns a new context carrying the operator identity.
func ContextWithOperatorID(ctx context.Context, id uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, operatorIDKey, id)
}

// OperatorIDFromContext retrieves the operator identity, if any.
func OperatorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	value := ctx.Value(operatorIDKey)
	if value == nil {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// Middleware lifts the operator header into the request context. Requests
// without the header pass through; audit entries then record a nil operator.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(OperatorHeader))
		if raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				r = r.WithContext(ContextWithOperatorID(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}
