package middleware

import (
	"context"
	"net/http"

	"github.com/billbatista/acasinha-finance/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MembershipChecker answers whether a user may act on a company.
type MembershipChecker interface {
	IsMember(ctx context.Context, companyID string, userID uuid.UUID) (bool, error)
}

// Tenant scopes everything below it to the {companyID} route parameter.
// Requests from users who are not members of that company get 403.
func Tenant(members MembershipChecker, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			companyID := chi.URLParam(r, "companyID")
			userID, ok := GetUserID(r.Context())
			if !ok {
				httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				return
			}

			member, err := members.IsMember(r.Context(), companyID, userID)
			if err != nil {
				log.Error("checking company membership", zap.Error(err), zap.String("company_id", companyID))
				httpx.JSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				return
			}
			if !member {
				httpx.JSON(w, http.StatusForbidden, map[string]string{"error": "not a member of this company"})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCompanyID(r.Context(), companyID)))
		})
	}
}

// GetCompanyID returns the company the request is scoped to.
func GetCompanyID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(CompanyIDKey).(string)
	return id, ok && id != ""
}

func WithCompanyID(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, CompanyIDKey, companyID)
}

// Actor returns the user and company of a tenant-scoped request.
func Actor(ctx context.Context) (uuid.UUID, string) {
	userID, _ := GetUserID(ctx)
	companyID, _ := GetCompanyID(ctx)
	return userID, companyID
}
