package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Jis87-63/moz-digital-store/internal/cart"
	"github.com/Jis87-63/moz-digital-store/internal/identity"
	"github.com/Jis87-63/moz-digital-store/internal/notify"
	apperrors "github.com/Jis87-63/moz-digital-store/pkg/errors"
	"github.com/Jis87-63/moz-digital-store/pkg/logger"
	"github.com/Jis87-63/moz-digital-store/pkg/middleware"
)

type contextKey int

const (
	sessionKey contextKey = iota
	identityKey
)

// Sessions attaches the shopper's cart session to the request. The session id
// comes from the X-Cart-Session header; a missing or malformed id starts a new
// session. The id in use is echoed back in the same header.
func Sessions(registry *cart.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(middleware.SessionHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set(middleware.SessionHeader, id)

			ctx := r.Context()
			sess, release := registry.Acquire(ctx, id)
			defer release()

			ctx = context.WithValue(ctx, sessionKey, sess)
			ctx = notify.WithNotifier(ctx, sess.Inbox)
			ctx = logger.WithSessionID(ctx, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Identities resolves validated token claims to the shopper's identity.
// Mount it after middleware.OptionalAuth or middleware.Auth.
func Identities(gate *identity.Gate, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := middleware.ClaimsFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			id, err := gate.ResolveClaims(r.Context(), claims)
			if err != nil {
				// A token outliving its profile is as good as a revoked one.
				if errors.Is(err, apperrors.ErrNotFound) {
					err = identity.ErrInvalidSession
				}
				writeError(w, r, err, l)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin admits only identities carrying the admin flag.
func RequireAdmin(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := identityFrom(r.Context())
			if id == nil {
				writeError(w, r, apperrors.AuthRequired("authentication required"), l)
				return
			}
			if !id.IsAdmin() {
				logger.FromContext(r.Context()).WarnContext(r.Context(), "admin route denied",
					slog.String("user_id", id.UserID),
					slog.String("path", r.URL.Path),
				)
				writeError(w, r, apperrors.Forbidden("admin access required"), l)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionFrom(ctx context.Context) *cart.Session {
	sess, _ := ctx.Value(sessionKey).(*cart.Session)
	return sess
}

func identityFrom(ctx context.Context) *identity.Identity {
	id, _ := ctx.Value(identityKey).(*identity.Identity)
	return id
}
