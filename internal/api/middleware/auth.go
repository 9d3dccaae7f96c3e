package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"autosolver/internal/common"
	"autosolver/internal/common/security"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const JobIDCtxKey contextKey = "jobID"

// DispatchAuthenticator admits requests carrying a valid dispatch token and puts
// its job id on the context. Run jwtauth.Verifier first.
func DispatchAuthenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())

		if err != nil {
			if strings.Contains(err.Error(), "token not found") || token == nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			} else {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
			}
			return
		}

		if token == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		jobID, err := security.GetJobIDFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), JobIDCtxKey, jobID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CronSecret guards scheduled endpoints with a shared bearer secret. An empty
// secret locks the routes rather than opening them.
func CronSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if secret == "" || !ok || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				common.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetJobIDFromContext(ctx context.Context) (string, bool) {
	jobID, ok := ctx.Value(JobIDCtxKey).(string)
	return jobID, ok
}
