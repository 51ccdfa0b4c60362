package domain

import "time"

// GoogleTokens agrupa las credenciales devueltas por el endpoint de tokens.
type GoogleTokens struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	Expiry       time.Time
	Scopes       []string
}

// Expired indica si el access token ya no sirve. Un Expiry cero se
// considera vigente.
func (t GoogleTokens) Expired(now time.Time) bool {
	if t.Expiry.IsZero() {
		return false
	}
	return !now.Before(t.Expiry)
}

type GoogleIdentity struct {
	ID      string
	Email   string
	Name    string
	Picture string
}
