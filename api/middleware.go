package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/linesmerrill/civic-report-api/config"
	"github.com/linesmerrill/civic-report-api/store"
)

// ErrUnauthorized is returned when a request carries no usable bearer token
var ErrUnauthorized = errors.New("unauthorized")

// Authenticator resolves the acting user from an HS256 bearer token whose
// subject is the user id
type Authenticator struct {
	Secret []byte
	Users  store.UserDirectory
}

// Middleware rejects requests without a valid token and stores the acting
// user in the request context
func (a Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.subject(r)
		if err != nil {
			zap.S().Debugw("unauthorized", "url", r.URL.Path, "error", err)
			config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, err)
			return
		}

		ctx, cancel := WithQueryTimeout(r.Context())
		user, err := a.Users.Get(ctx, userID)
		cancel()
		if err != nil {
			config.ErrorStatus("unknown user", http.StatusUnauthorized, w, err)
			return
		}
		zap.S().Debugf("user %s authenticated", user.ID)
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Token signs a bearer token for userID
func (a Authenticator) Token(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
}

func (a Authenticator) subject(r *http.Request) (string, error) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" {
		// browsers cannot set headers on a websocket upgrade
		raw = r.URL.Query().Get("access_token")
	}
	if raw == "" {
		return "", errors.Wrap(ErrUnauthorized, "missing bearer token")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return a.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", errors.Wrap(ErrUnauthorized, "invalid token")
	}
	if claims.Subject == "" {
		return "", errors.Wrap(ErrUnauthorized, "token has no subject")
	}
	return claims.Subject, nil
}

// RequireAuthority only lets AUTHORITY users through
func RequireAuthority(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || !user.IsAuthority() {
			config.ErrorStatus("forbidden", http.StatusForbidden, w, errors.Errorf("role %q cannot manage reports", user.Role))
			return
		}
		next.ServeHTTP(w, r)
	})
}
