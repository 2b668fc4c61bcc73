package middleware

import (
	"context"
	"net/http"

	"github.com/billbatista/acasinha-finance/httpx"
	"github.com/billbatista/acasinha-finance/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	CompanyIDKey contextKey = "company_id"
)

// SessionLookup is the part of session.Repository the middleware needs.
type SessionLookup interface {
	GetByToken(ctx context.Context, token string) (*session.Session, error)
}

// AuthMiddleware checks if user has a valid session
func AuthMiddleware(sessionRepo SessionLookup, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(session.CookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessionRepo.GetByToken(r.Context(), cookie.Value)
			if err != nil {
				log.Debug("invalid or expired session", zap.Error(err))
				http.SetCookie(w, session.ExpiredCookie())
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, sess.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects unauthenticated requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAuthenticated(r.Context()) {
			httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// IsAuthenticated checks if user is authenticated
func IsAuthenticated(ctx context.Context) bool {
	_, ok := GetUserID(ctx)
	return ok
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}
