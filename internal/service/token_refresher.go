package service

import (
	"context"
	"errors"
	"fmt"

	"saasbooks/internal/domain"
)

var (
	// ErrGoogleReauthPolicy: la politica de la organizacion exige volver a
	// autenticarse (invalid_rapt). No se reintenta.
	ErrGoogleReauthPolicy = errors.New("google requires re-authentication due to organization policy")
	// ErrGoogleRefreshRevoked: refresh token revocado o vencido.
	ErrGoogleRefreshRevoked = errors.New("google refresh token expired or revoked")
)

// TokenRefresher renueva access tokens de Google.
type TokenRefresher interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (domain.GoogleTokens, error)
}

type googleTokenRefresher struct {
	provider OAuthProvider
}

func NewTokenRefresher(provider OAuthProvider) TokenRefresher {
	return &googleTokenRefresher{provider: provider}
}

func (r *googleTokenRefresher) RefreshAccessToken(ctx context.Context, refreshToken string) (domain.GoogleTokens, error) {
	tokens, err := r.provider.Refresh(ctx, refreshToken)
	if err == nil {
		return tokens, nil
	}
	switch domain.KindOf(err) {
	case domain.KindPolicyRevoked:
		return domain.GoogleTokens{}, fmt.Errorf("%w: %w", ErrGoogleReauthPolicy, err)
	case domain.KindInvalidGrant:
		return domain.GoogleTokens{}, fmt.Errorf("%w: %w", ErrGoogleRefreshRevoked, err)
	default:
		return domain.GoogleTokens{}, fmt.Errorf("refresh google token: %w", err)
	}
}
