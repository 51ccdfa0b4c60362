// Package google adapta los endpoints OAuth2 de Google y la API de Drive a
// los contratos del servicio. Los errores salen clasificados como
// domain.ExternalError.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"saasbooks/internal/domain"
)

const (
	serviceName    = "google"
	DriveFileScope = "https://www.googleapis.com/auth/drive.file"
)

// DefaultScopes combina identidad con acceso a los archivos creados por la app.
var DefaultScopes = []string{"openid", "profile", "email", DriveFileScope}

// OAuthClient envuelve oauth2.Config. Se construye explicitamente y se
// inyecta; no hay cliente global.
type OAuthClient struct {
	config      *oauth2.Config
	httpClient  *http.Client
	apiEndpoint string
}

func NewOAuthClient(clientID, clientSecret, redirectURI string, timeout time.Duration) *OAuthClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OAuthClient{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Endpoint:     googleoauth.Endpoint,
			Scopes:       DefaultScopes,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithEndpoints permite apuntar a servidores de prueba. apiEndpoint es la
// base de la API userinfo.
func (c *OAuthClient) WithEndpoints(authURL, tokenURL, apiEndpoint string) *OAuthClient {
	c.config.Endpoint = oauth2.Endpoint{
		AuthURL:   authURL,
		TokenURL:  tokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}
	c.apiEndpoint = apiEndpoint
	return c
}

// AuthCodeURL arma la URL de autorizacion con PKCE S256 y acceso offline.
func (c *OAuthClient) AuthCodeURL(state, codeVerifier string) string {
	return c.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(codeVerifier),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

func (c *OAuthClient) Exchange(ctx context.Context, code, codeVerifier string) (domain.GoogleTokens, error) {
	tok, err := c.config.Exchange(c.withHTTPClient(ctx), code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return domain.GoogleTokens{}, classifyTokenError(err)
	}
	return tokensFrom(tok), nil
}

// Refresh pide un access token nuevo. El refresh token original se conserva
// cuando Google no entrega otro.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (domain.GoogleTokens, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return domain.GoogleTokens{}, &domain.ExternalError{Service: serviceName, Kind: domain.KindInvalidGrant, Err: errors.New("no refresh token")}
	}
	src := c.config.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return domain.GoogleTokens{}, classifyTokenError(err)
	}
	tokens := tokensFrom(tok)
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}
	return tokens, nil
}

// UserInfo consulta el endpoint userinfo. Si falla y la respuesta de tokens
// trajo un id_token, usa sus claims.
func (c *OAuthClient) UserInfo(ctx context.Context, tokens domain.GoogleTokens) (domain.GoogleIdentity, error) {
	identity, err := c.fetchUserInfo(ctx, tokens.AccessToken)
	if err == nil {
		return identity, nil
	}
	if tokens.IDToken != "" {
		if fromToken, idErr := IdentityFromIDToken(tokens.IDToken); idErr == nil {
			return fromToken, nil
		}
	}
	return domain.GoogleIdentity{}, err
}

func (c *OAuthClient) fetchUserInfo(ctx context.Context, accessToken string) (domain.GoogleIdentity, error) {
	httpClient := &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   c.httpClient.Transport,
		},
	}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(c.apiEndpoint))
	}
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return domain.GoogleIdentity{}, fmt.Errorf("create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return domain.GoogleIdentity{}, classifyAPIError(serviceName, err)
	}
	return domain.GoogleIdentity{
		ID:      info.Id,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}

func (c *OAuthClient) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func tokensFrom(tok *oauth2.Token) domain.GoogleTokens {
	tokens := domain.GoogleTokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		tokens.IDToken = idToken
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		tokens.Scopes = strings.Fields(scope)
	}
	return tokens
}

// classifyTokenError distingue invalid_grant por politica de la organizacion
// (invalid_rapt) de un refresh token revocado o vencido.
func classifyTokenError(err error) error {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) {
		return &domain.ExternalError{Service: serviceName, Kind: domain.KindUnknown, Err: err}
	}
	kind := domain.KindUnknown
	switch {
	case rerr.ErrorCode == "invalid_grant" && strings.Contains(rerr.ErrorDescription+string(rerr.Body), "invalid_rapt"):
		kind = domain.KindPolicyRevoked
	case rerr.ErrorCode == "invalid_grant":
		kind = domain.KindInvalidGrant
	case rerr.Response != nil:
		kind = kindForStatus(rerr.Response.StatusCode)
	}
	return &domain.ExternalError{Service: serviceName, Kind: kind, Err: err}
}

func kindForStatus(status int) domain.ExternalErrorKind {
	switch status {
	case http.StatusUnauthorized:
		return domain.KindUnauthorized
	case http.StatusForbidden:
		return domain.KindPermissionDenied
	case http.StatusNotFound:
		return domain.KindNotFound
	case http.StatusTooManyRequests:
		return domain.KindRateLimited
	default:
		return domain.KindUnknown
	}
}
