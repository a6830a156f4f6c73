package handlers

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
)

// FirebaseAuthService implements AuthService using the Firebase Admin
// SDK. Students and lecturers sign in through Firebase Auth on the web
// frontend and send their ID token as a bearer token.
type FirebaseAuthService struct {
	client *auth.Client
}

// NewFirebaseAuthService creates a new Firebase auth service.
// Uses GOOGLE_APPLICATION_CREDENTIALS or the default service account in GCP.
func NewFirebaseAuthService(ctx context.Context, projectID string) (*FirebaseAuthService, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get firebase auth client: %w", err)
	}

	return &FirebaseAuthService{client: client}, nil
}

// VerifyToken verifies a Firebase ID token and returns the user identity.
func (s *FirebaseAuthService) VerifyToken(ctx context.Context, token string) (*AuthInfo, error) {
	decoded, err := s.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}

	info := &AuthInfo{UserID: decoded.UID}
	if email, ok := decoded.Claims["email"].(string); ok {
		info.Email = email
	}
	return info, nil
}
