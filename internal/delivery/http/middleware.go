package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hospiq/patient-queue/pkg/logger"
)

type staffIDKey struct{}

// StaffIDFromContext returns the authenticated staff/terminal identity, or ""
// when the request was unauthenticated.
func StaffIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(staffIDKey{}).(string)
	return id
}

// StaffAuth validates a bearer token and stores its subject claim as the staff
// identity. With an empty secret the middleware is a pass-through: kiosk
// deployments terminate auth at the gateway.
func StaffAuth(secret string, l logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				unauthorized(w, "Missing bearer token")
				return
			}

			token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				l.Debugf(r.Context(), "delivery.http.StaffAuth: %v", err)
				unauthorized(w, "Invalid token")
				return
			}

			sub, err := token.Claims.GetSubject()
			if err != nil || sub == "" {
				unauthorized(w, "Token has no subject")
				return
			}

			ctx := context.WithValue(r.Context(), staffIDKey{}, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": message,
		"code":  http.StatusUnauthorized,
	})
}
