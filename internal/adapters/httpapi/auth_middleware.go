package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/movement-pass/public-api/internal/platform/auth/tokenissuer"
)

// TokenVerifier validates a bearer token and reports who it belongs to.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (tokenissuer.Identity, error)
}

// NewAuthMiddleware enforces Authorization: Bearer <token> and stores the applicant id in
// the request context.
func NewAuthMiddleware(v TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if authz == "" {
				writeErrors(w, r, http.StatusForbidden, msgMissingAuth)
				return
			}
			parts := strings.Fields(authz)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeErrors(w, r, http.StatusForbidden, msgInvalidAuthFormat)
				return
			}

			who, err := v.Verify(r.Context(), parts[1])
			if err != nil {
				if errors.Is(err, tokenissuer.ErrUnauthorized) {
					writeErrors(w, r, http.StatusUnauthorized, msgUnauthorized)
					return
				}
				writeInternal(w, r, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithApplicant(r.Context(), who.ApplicantID)))
		})
	}
}
