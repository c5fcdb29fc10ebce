package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/anonto42/tilehub/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
)

// JWTAuthenticator issues and verifies the service's own HS256 tokens
type JWTAuthenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTAuthenticator(secret string, ttl time.Duration) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for user
func (a *JWTAuthenticator) Issue(user *models.User) (string, error) {
	now := a.now()
	claims := &models.JwtCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (uint, error) {
	claims := &models.JwtCustomClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UserID == 0 {
		return 0, ErrInvalidToken
	}
	return claims.UserID, nil
}
