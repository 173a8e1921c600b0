package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey     contextKey = "user_id"
	UserScopesKey contextKey = "user_scopes"
)

// Claims are the token claims the document service reads.
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	// SigningKey is the shared HMAC secret tokens are signed with.
	SigningKey []byte
	// Skipper bypasses authentication for a request. Defaults to AuthSkipper.
	Skipper func(c echo.Context) bool
}

// JWTMiddleware requires a valid HS256 bearer token on every request the
// skipper does not exempt.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	skip := cfg.Skipper
	if skip == nil {
		skip = AuthSkipper
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		return cfg.SigningKey, nil
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, UserScopesKey, claims.Scopes)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func ScopesFromContext(ctx context.Context) []string {
	scopes, _ := ctx.Value(UserScopesKey).([]string)
	return scopes
}
