package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"saasbooks/internal/domain"
)

// StripeAccountRepository accede a cuentas de Stripe. Toda lectura y
// mutacion individual va acotada por (id, user_id).
type StripeAccountRepository interface {
	Create(ctx context.Context, account domain.StripeAccount) error
	ListByUserID(ctx context.Context, userID string) ([]domain.StripeAccount, error)
	GetForUser(ctx context.Context, id, userID string) (domain.StripeAccount, error)
	Update(ctx context.Context, account domain.StripeAccount) error
	Delete(ctx context.Context, id, userID string) error
}

type PgStripeAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPgStripeAccountRepository(pool *pgxpool.Pool) *PgStripeAccountRepository {
	return &PgStripeAccountRepository{pool: pool}
}

const stripeAccountColumns = `id, user_id, name, stripe_account_id, api_key, business_name, is_active, created_at, updated_at`

func (r *PgStripeAccountRepository) Create(ctx context.Context, account domain.StripeAccount) error {
	const query = `
		INSERT INTO stripe_accounts (` + stripeAccountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.UserID,
		account.Name,
		account.StripeAccountID,
		account.APIKey,
		nullString(account.BusinessName),
		account.IsActive,
		account.CreatedAt,
		account.UpdatedAt,
	)
	return err
}

func (r *PgStripeAccountRepository) ListByUserID(ctx context.Context, userID string) ([]domain.StripeAccount, error) {
	const query = `
		SELECT ` + stripeAccountColumns + `
		FROM stripe_accounts
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.StripeAccount
	for rows.Next() {
		account, err := scanStripeAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *PgStripeAccountRepository) GetForUser(ctx context.Context, id, userID string) (domain.StripeAccount, error) {
	const query = `
		SELECT ` + stripeAccountColumns + `
		FROM stripe_accounts
		WHERE id = $1 AND user_id = $2
	`
	account, err := scanStripeAccount(r.pool.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StripeAccount{}, err
	}
	return account, err
}

func (r *PgStripeAccountRepository) Update(ctx context.Context, account domain.StripeAccount) error {
	const query = `
		UPDATE stripe_accounts
		SET name = $3,
		    stripe_account_id = $4,
		    api_key = $5,
		    business_name = $6,
		    is_active = $7,
		    updated_at = $8
		WHERE id = $1 AND user_id = $2
	`
	tag, err := r.pool.Exec(ctx, query,
		account.ID,
		account.UserID,
		account.Name,
		account.StripeAccountID,
		account.APIKey,
		nullString(account.BusinessName),
		account.IsActive,
		account.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgStripeAccountRepository) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM stripe_accounts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanStripeAccount(row pgx.Row) (domain.StripeAccount, error) {
	var (
		a            domain.StripeAccount
		businessName *string
	)
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&a.StripeAccountID,
		&a.APIKey,
		&businessName,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.StripeAccount{}, err
	}
	a.BusinessName = derefString(businessName)
	return a, nil
}
