package domain

import "time"

// Session representa una sesion persistida. ID es el hash SHA-256 del token;
// el token en claro nunca se guarda.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionValidation es el resultado de validar un token de sesion.
// Session y User son nil cuando el token no corresponde a una sesion activa.
type SessionValidation struct {
	Session *Session
	User    *User
	Renewed bool
}

func (v SessionValidation) Valid() bool {
	return v.Session != nil && v.User != nil
}
