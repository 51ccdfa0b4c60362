package google

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"saasbooks/internal/domain"
)

type idTokenClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// IdentityFromIDToken lee las claims de un id_token sin verificar la firma.
// Solo es valido para tokens recibidos directamente del endpoint de tokens
// por TLS.
func IdentityFromIDToken(raw string) (domain.GoogleIdentity, error) {
	var claims idTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return domain.GoogleIdentity{}, fmt.Errorf("parse id token: %w", err)
	}
	if claims.Subject == "" {
		return domain.GoogleIdentity{}, errors.New("id token without subject")
	}
	return domain.GoogleIdentity{
		ID:      claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}
