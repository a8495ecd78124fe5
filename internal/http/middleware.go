package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/MrJamesThe3rd/stockbook/internal/http/render"
	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
)

func rateLimit(formatted string) (func(http.Handler) http.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("parsing rate limit %q: %w", formatted, err)
	}

	instance := limiter.New(memory.NewStore(), rate)

	return stdlib.NewMiddleware(instance).Handler, nil
}

// operator resolves who is acting on the request. With an empty secret every
// request passes and the operator stays anonymous. Otherwise an HS256 bearer
// token is required and its subject becomes the operator.
func operator(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := verify(r.Header.Get("Authorization"), []byte(secret))
			if err != nil {
				render.JSON(w, http.StatusUnauthorized, render.ErrorResponse{Error: "unauthorized", Message: err.Error()})
				return
			}

			next.ServeHTTP(w, r.WithContext(inventory.WithOperator(r.Context(), subject)))
		})
	}
}

func verify(header string, secret []byte) (string, error) {
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return "", errors.New("bearer token required")
	}

	var claims jwt.RegisteredClaims

	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", errors.New("invalid or expired token")
	}

	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}

	return claims.Subject, nil
}
