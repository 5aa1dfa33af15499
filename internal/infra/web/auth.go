package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims is the token shape minted by the external admin surface; this
// service only verifies.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type adminCtxKey struct{}

// AdminSubject returns the authenticated admin identity from the request
// context, or "admin" when the middleware did not attach one.
func AdminSubject(ctx context.Context) string {
	if v, ok := ctx.Value(adminCtxKey{}).(string); ok && v != "" {
		return v
	}
	return "admin"
}

// adminAuth verifies an HS256 bearer token with role=admin.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.jwtSecret) == 0 {
			s.log.Error().Msg("admin JWT secret is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims := &AdminClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return s.jwtSecret, nil
		})
		if err != nil || !token.Valid || claims.Role != "admin" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		subject := claims.Subject
		if subject == "" {
			subject = "admin"
		}
		ctx := context.WithValue(r.Context(), adminCtxKey{}, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
