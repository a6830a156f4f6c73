package handlers

import (
	"context"
	"errors"
)

// MockAuthService is a token-to-user lookup for testing.
type MockAuthService struct {
	// Tokens maps bearer token -> user ID.
	Tokens map[string]string
	Err    error
}

func NewMockAuthService() *MockAuthService {
	return &MockAuthService{Tokens: make(map[string]string)}
}

func (m *MockAuthService) VerifyToken(ctx context.Context, token string) (*AuthInfo, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	userID, ok := m.Tokens[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &AuthInfo{UserID: userID}, nil
}
