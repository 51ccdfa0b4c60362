package domain

import "time"

// MaskedAPIKey reemplaza la API key en cualquier respuesta.
const MaskedAPIKey = "•••••••••••••••••••••"

// StripeAccount es una cuenta de Stripe conectada. APIKey contiene el texto
// cifrado (iv:ciphertext) salvo en las vistas enmascaradas.
type StripeAccount struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	StripeAccountID string    `json:"stripe_account_id"`
	APIKey          string    `json:"api_key"`
	BusinessName    string    `json:"business_name,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Masked devuelve una copia apta para salir del servicio.
func (a StripeAccount) Masked() StripeAccount {
	a.APIKey = MaskedAPIKey
	return a
}

type StripeAccountInfo struct {
	StripeAccountID string
	BusinessName    string
}

// BalanceTransaction es la vista minima de un movimiento de saldo.
// Los importes van en unidades menores de la moneda.
type BalanceTransaction struct {
	ID                string
	Amount            int64
	Fee               int64
	Net               int64
	Currency          string
	Type              string
	Status            string
	ReportingCategory string
	Description       string
	SourceID          string
	Created           time.Time
	AvailableOn       time.Time
}

// VolumeData es un punto de la serie diaria.
type VolumeData struct {
	Date   string `json:"date"`
	Amount int64  `json:"amount"`
}

// BalanceTransactionQuery acota el listado de movimientos. Max corta la
// paginacion; 0 significa sin limite.
type BalanceTransactionQuery struct {
	Since        time.Time
	Type         string
	Max          int
	ExpandSource bool
}

type BalanceTransactionPage struct {
	Transactions []BalanceTransaction
	Truncated    bool
}
