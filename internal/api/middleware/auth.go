package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/queueease/booking-service/internal/api/handlers"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserIDHeader заголовок с ID пользователя, который выставляет API gateway
const UserIDHeader = "X-User-ID"

const (
	msgMissingUser  = "missing user identity"
	msgInvalidToken = "invalid bearer token"
	msgMissingToken = "missing bearer token"
)

var errInvalidToken = errors.New("invalid token")

// AuthOptions параметры проверки bearer токенов. Пустой Secret отключает JWT
type AuthOptions struct {
	Secret string
	Issuer string
}

// Auth извлекает ID пользователя из заголовка X-User-ID
func Auth(next http.Handler) http.Handler {
	return NewAuth(AuthOptions{})(next)
}

// NewAuth извлекает ID пользователя из bearer JWT (claim sub, HS256), если
// задан секрет. Без секрета доверяет заголовку X-User-ID от API gateway
func NewAuth(opts AuthOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID string

			if opts.Secret != "" {
				// С секретом принимаем только bearer токен, X-User-ID игнорируется
				header := r.Header.Get("Authorization")
				if !strings.HasPrefix(header, "Bearer ") {
					handlers.RespondUnauthorized(w, msgMissingToken)
					return
				}
				sub, err := parseToken(strings.TrimPrefix(header, "Bearer "), opts)
				if err != nil {
					handlers.RespondUnauthorized(w, msgInvalidToken)
					return
				}
				userID = sub
			} else {
				userID = strings.TrimSpace(r.Header.Get(UserIDHeader))
			}

			if userID == "" {
				handlers.RespondUnauthorized(w, msgMissingUser)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func parseToken(raw string, opts AuthOptions) (string, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(opts.Secret), nil
	}, parserOpts...)
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}
	if claims.Subject == "" {
		return "", errInvalidToken
	}

	return claims.Subject, nil
}

// WithUserID кладёт ID пользователя в контекст
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID возвращает ID пользователя из контекста
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}
