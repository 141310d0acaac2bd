package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fundledger/internal/domain"
)

// TokenIssuer is the iss claim on every caller token.
const TokenIssuer = "fundledger"

type callerKey struct{}

// SignToken issues an HS256 token whose subject is the caller address.
func SignToken(secret string, caller domain.Address, ttl time.Duration, now time.Time) (string, error) {
	if err := caller.Validate(); err != nil {
		return "", err
	}
	claims := jwt.RegisteredClaims{
		Subject:   caller.String(),
		Issuer:    TokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ErrTokenLifetime rejects tokens issued for longer than the server allows.
var ErrTokenLifetime = errors.New("token lifetime exceeds limit")

// ParseToken verifies token and returns the caller it names. A positive
// maxLifetime also rejects tokens whose exp is further than that from iat.
func ParseToken(secret, token string, maxLifetime time.Duration) (domain.Address, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if maxLifetime > 0 {
		if claims.IssuedAt == nil {
			return "", fmt.Errorf("%w: missing iat", ErrTokenLifetime)
		}
		if lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time); lifetime > maxLifetime {
			return "", fmt.Errorf("%w: %s > %s", ErrTokenLifetime, lifetime, maxLifetime)
		}
	}
	caller, err := domain.RequireAddress(claims.Subject)
	if err != nil {
		return "", fmt.Errorf("subject: %w", err)
	}
	return caller, nil
}

// AuthJWT requires a bearer token and stores its caller in the request
// context. Tokens minted for longer than maxLifetime are refused.
func AuthJWT(secret string, maxLifetime time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "missing authorization")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid authorization")
				return
			}
			caller, err := ParseToken(secret, strings.TrimSpace(parts[1]), maxLifetime)
			if err != nil {
				msg := "invalid token"
				switch {
				case errors.Is(err, jwt.ErrTokenExpired):
					msg = "token expired"
				case errors.Is(err, ErrTokenLifetime):
					msg = "token lifetime too long"
				}
				writeError(w, http.StatusUnauthorized, "unauthenticated", msg)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithCaller(r.Context(), caller)))
		})
	}
}

// CallerFromContext returns the authenticated caller, empty when there is none.
func CallerFromContext(ctx context.Context) domain.Address {
	if v, ok := ctx.Value(callerKey{}).(domain.Address); ok {
		return v
	}
	return ""
}

func ContextWithCaller(ctx context.Context, caller domain.Address) context.Context {
	if caller == "" {
		return ctx
	}
	return context.WithValue(ctx, callerKey{}, caller)
}
