package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/carebridge/telehealth-platform/internal/credits"
	"github.com/carebridge/telehealth-platform/internal/identity"
	"github.com/carebridge/telehealth-platform/internal/users"
	"github.com/carebridge/telehealth-platform/pkg/logging"
)

// SessionClaims is the HMAC-signed session token payload. Subject carries
// the user id; Role and Plan are snapshots taken at sign-in.
type SessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
	Plan string `json:"plan,omitempty"`
}

// Auth verifies the bearer token and puts the resolved principal on the
// request context. When the token carries a subscription plan, the month's
// credit allowance is granted lazily on first authenticated request; grant
// failures are logged and ignored so a credits hiccup never blocks
// sign-in.
func Auth(secret string, creditsRepo *credits.Repository, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := SessionClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				http.Error(w, "invalid token subject", http.StatusUnauthorized)
				return
			}

			principal := identity.Principal{
				UserID: userID,
				Role:   users.Role(claims.Role),
			}

			if claims.Plan != "" && creditsRepo != nil {
				if _, err := creditsRepo.AllocateMonthly(r.Context(), userID, claims.Plan); err != nil {
					logger.Warn("monthly credit grant failed",
						"error", err, "user_id", userID, "plan", claims.Plan)
				}
			}

			next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), principal)))
		})
	}
}
