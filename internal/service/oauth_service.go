package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"saasbooks/internal/domain"
)

var (
	ErrOAuthMissingCode     = errors.New("missing authorization code")
	ErrOAuthStateMismatch   = errors.New("oauth state mismatch")
	ErrOAuthMissingVerifier = errors.New("missing pkce code verifier")
)

// OAuthProvider es el contrato del adaptador OAuth de Google.
type OAuthProvider interface {
	AuthCodeURL(state, codeVerifier string) string
	Exchange(ctx context.Context, code, codeVerifier string) (domain.GoogleTokens, error)
	Refresh(ctx context.Context, refreshToken string) (domain.GoogleTokens, error)
	UserInfo(ctx context.Context, tokens domain.GoogleTokens) (domain.GoogleIdentity, error)
}

// AuthorizationRequest es lo que el handler necesita para redirigir y dejar
// las cookies de state y verifier.
type AuthorizationRequest struct {
	URL          string
	State        string
	CodeVerifier string
}

type CallbackInput struct {
	Code         string
	State        string
	StoredState  string
	CodeVerifier string
}

type LoginResult struct {
	User         domain.User
	SessionToken string
	Session      domain.Session
}

// OAuthService implementa el login con Google (authorization code + PKCE).
type OAuthService struct {
	logger    *zap.Logger
	provider  OAuthProvider
	users     *UserService
	sessions  *SessionService
	drive     *DriveService
	refresher TokenRefresher
}

func NewOAuthService(logger *zap.Logger, provider OAuthProvider, users *UserService, sessions *SessionService, drive *DriveService) *OAuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OAuthService{
		logger:    logger,
		provider:  provider,
		users:     users,
		sessions:  sessions,
		drive:     drive,
		refresher: NewTokenRefresher(provider),
	}
}

// GenerateState devuelve 16 bytes aleatorios en hex.
func GenerateState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func GenerateCodeVerifier() string {
	return oauth2.GenerateVerifier()
}

// CodeChallenge es base64url(sha256(verifier)) sin padding.
func CodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (s *OAuthService) Begin() (AuthorizationRequest, error) {
	state, err := GenerateState()
	if err != nil {
		return AuthorizationRequest{}, err
	}
	verifier := GenerateCodeVerifier()
	return AuthorizationRequest{
		URL:          s.provider.AuthCodeURL(state, verifier),
		State:        state,
		CodeVerifier: verifier,
	}, nil
}

// ValidateCallback revisa code, state y verifier antes de tocar la red.
func ValidateCallback(in CallbackInput) error {
	if in.Code == "" {
		return ErrOAuthMissingCode
	}
	if in.StoredState == "" || in.State == "" ||
		subtle.ConstantTimeCompare([]byte(in.StoredState), []byte(in.State)) != 1 {
		return ErrOAuthStateMismatch
	}
	if in.CodeVerifier == "" {
		return ErrOAuthMissingVerifier
	}
	return nil
}

// Complete canjea el codigo, resuelve el usuario, guarda la configuracion de
// Drive y abre una sesion.
func (s *OAuthService) Complete(ctx context.Context, in CallbackInput) (LoginResult, error) {
	if err := ValidateCallback(in); err != nil {
		return LoginResult{}, err
	}

	tokens, err := s.provider.Exchange(ctx, in.Code, in.CodeVerifier)
	if err != nil {
		return LoginResult{}, fmt.Errorf("exchange code: %w", err)
	}
	s.logger.Info("obtained google tokens",
		zap.Bool("access_token", tokens.AccessToken != ""),
		zap.Bool("refresh_token", tokens.RefreshToken != ""),
	)
	if tokens.RefreshToken == "" {
		s.logger.Warn("no refresh token received from google, user may need to revoke app access and sign in again")
	}

	identity, err := s.provider.UserInfo(ctx, tokens)
	if err != nil {
		return LoginResult{}, fmt.Errorf("fetch google identity: %w", err)
	}
	if identity.ID == "" || identity.Email == "" {
		return LoginResult{}, ErrOAuthIdentityIncomplete
	}

	user, err := s.users.ResolveGoogleUser(ctx, identity)
	if err != nil {
		return LoginResult{}, fmt.Errorf("resolve google user: %w", err)
	}

	if s.drive != nil {
		if err := s.drive.ProvisionForLogin(ctx, user.ID, tokens); err != nil {
			return LoginResult{}, fmt.Errorf("provision drive: %w", err)
		}
	}

	token, err := GenerateSessionToken()
	if err != nil {
		return LoginResult{}, err
	}
	session, err := s.sessions.CreateSession(ctx, token, user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: user, SessionToken: token, Session: session}, nil
}

func (s *OAuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (domain.GoogleTokens, error) {
	return s.refresher.RefreshAccessToken(ctx, refreshToken)
}
