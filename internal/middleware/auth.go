package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const userIDContextKey = "userID"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Authenticator resolves a bearer token to a local user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uint, error)
}

// Authenticators tries each authenticator in order and accepts the first match.
type Authenticators []Authenticator

// A failure other than ErrInvalidToken takes precedence in the result.
func (as Authenticators) Authenticate(ctx context.Context, token string) (uint, error) {
	err := ErrInvalidToken
	for _, a := range as {
		id, aerr := a.Authenticate(ctx, token)
		if aerr == nil {
			return id, nil
		}
		if errors.Is(err, ErrInvalidToken) {
			err = aerr
		}
	}
	return 0, err
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(a Authenticator) echo.MiddlewareFunc {
	return authMiddleware(a, true)
}

// OptionalAuth lets anonymous requests through but still rejects a bad token.
func OptionalAuth(a Authenticator) echo.MiddlewareFunc {
	return authMiddleware(a, false)
}

func authMiddleware(a Authenticator, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c.Request())
			if errors.Is(err, ErrMissingToken) && !required {
				return next(c)
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			userID, err := a.Authenticate(c.Request().Context(), token)
			if err != nil && !errors.Is(err, ErrInvalidToken) {
				logrus.WithField("route", c.Path()).WithError(err).Error("Failed to resolve token user")
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to authenticate")
			}
			if err != nil || userID == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}
			c.Set(userIDContextKey, userID)
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", errors.New("Authorization header must be in Bearer format")
	}
	return parts[1], nil
}

// CurrentUserID returns the authenticated user id, or 0 and false for an
// anonymous request.
func CurrentUserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(userIDContextKey).(uint)
	return id, ok && id != 0
}
