package middleware

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/tilehub/backend/internal/models"
	"github.com/anonto42/tilehub/backend/internal/repositories"
)

// TokenVerifier is the part of *auth.Client used here
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseUserLookup maps a Firebase uid to a local user
type FirebaseUserLookup interface {
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
}

// FirebaseAuthenticator accepts Firebase ID tokens for users that have
// already been linked through the firebase-login endpoint.
type FirebaseAuthenticator struct {
	verifier TokenVerifier
	users    FirebaseUserLookup
}

func NewFirebaseAuthenticator(verifier TokenVerifier, users FirebaseUserLookup) *FirebaseAuthenticator {
	return &FirebaseAuthenticator{verifier: verifier, users: users}
}

func (a *FirebaseAuthenticator) Authenticate(ctx context.Context, token string) (uint, error) {
	verified, err := a.verifier.VerifyIDToken(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	user, err := a.users.GetUserByFirebaseUID(ctx, verified.UID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return 0, fmt.Errorf("%w: firebase uid %s is not linked", ErrInvalidToken, verified.UID)
	}
	if err != nil {
		return 0, fmt.Errorf("firebase uid %s: %w", verified.UID, err)
	}
	return user.ID, nil
}
