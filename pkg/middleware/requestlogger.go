package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Jis87-63/moz-digital-store/pkg/logger"
)

// SessionHeader carries the anonymous browsing session a cart belongs to.
const SessionHeader = "X-Cart-Session"

// RequestLogger builds a request-scoped logger enriched with correlation_id,
// user_id, session_id, trace_id and span_id and stores it in the context.
// Handlers retrieve it with logger.FromContext.
//
// Mount it after RequestLogging, Tracing and OptionalAuth.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if userID := UserIDFromContext(ctx); userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}
			if session := r.Header.Get(SessionHeader); session != "" {
				ctx = logger.WithSessionID(ctx, session)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
