package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"saasbooks/internal/domain"
	"saasbooks/internal/repository"
)

var (
	ErrStripeAccountNotFound   = errors.New("stripe account not found")
	ErrInvalidStripeKey        = errors.New("invalid stripe api key")
	ErrStripeMissingPermission = errors.New(`the api key is missing required permissions, ensure it has "Balance transaction source read" (rak_balance_transaction_source_read)`)
	ErrInvalidPeriod           = errors.New("invalid period")
	ErrInvalidAccountName      = errors.New("account name is required")
)

var stripeKeyPattern = regexp.MustCompile(`^(sk|rk)_(test|live)_[0-9A-Za-z]+$`)

// Periodos aceptados por los endpoints de volumen.
const (
	Period7Days  = "7d"
	Period30Days = "30d"
	Period90Days = "90d"
	PeriodYTD    = "ytd"
	PeriodAll    = "all"
)

const defaultMaxTransactions = 10000

// StripeGateway es el contrato del adaptador de Stripe, construido por key.
type StripeGateway interface {
	RetrieveAccount(ctx context.Context) (domain.StripeAccountInfo, error)
	ListBalanceTransactions(ctx context.Context, q domain.BalanceTransactionQuery) (domain.BalanceTransactionPage, error)
}

type StripeClientFactory func(apiKey string) StripeGateway

// SecretBox cifra las API keys en reposo.
type SecretBox interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(token string) (string, error)
}

// StripeService administra cuentas conectadas y agrega su volumen. Toda
// operacion sobre una cuenta va acotada al usuario dueño.
type StripeService struct {
	logger    *zap.Logger
	accounts  repository.StripeAccountRepository
	vault     SecretBox
	newClient StripeClientFactory
	maxTx     int
	now       func() time.Time
}

func NewStripeService(logger *zap.Logger, accounts repository.StripeAccountRepository, vault SecretBox, newClient StripeClientFactory, maxTransactions int) *StripeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxTransactions <= 0 {
		maxTransactions = defaultMaxTransactions
	}
	return &StripeService{
		logger:    logger,
		accounts:  accounts,
		vault:     vault,
		newClient: newClient,
		maxTx:     maxTransactions,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type StripeAccountUpdate struct {
	Name     *string
	APIKey   *string
	IsActive *bool
}

func (s *StripeService) ListAccounts(ctx context.Context, userID string) ([]domain.StripeAccount, error) {
	accounts, err := s.accounts.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list stripe accounts: %w", err)
	}
	out := make([]domain.StripeAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Masked())
	}
	return out, nil
}

func (s *StripeService) GetAccount(ctx context.Context, accountID, userID string) (domain.StripeAccount, error) {
	account, err := s.getOwned(ctx, accountID, userID)
	if err != nil {
		return domain.StripeAccount{}, err
	}
	return account.Masked(), nil
}

// GetAccountWithKey devuelve la cuenta enmascarada y la key en claro por
// separado. La key no debe guardarse ni loguearse.
func (s *StripeService) GetAccountWithKey(ctx context.Context, accountID, userID string) (domain.StripeAccount, string, error) {
	account, err := s.getOwned(ctx, accountID, userID)
	if err != nil {
		return domain.StripeAccount{}, "", err
	}
	key, err := s.vault.Decrypt(account.APIKey)
	if err != nil {
		return domain.StripeAccount{}, "", fmt.Errorf("decrypt stripe key: %w", err)
	}
	return account.Masked(), key, nil
}

func (s *StripeService) getOwned(ctx context.Context, accountID, userID string) (domain.StripeAccount, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return domain.StripeAccount{}, ErrStripeAccountNotFound
	}
	account, err := s.accounts.GetForUser(ctx, accountID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StripeAccount{}, ErrStripeAccountNotFound
		}
		return domain.StripeAccount{}, fmt.Errorf("get stripe account: %w", err)
	}
	return account, nil
}

func (s *StripeService) AddAccount(ctx context.Context, userID, name, apiKey string) (domain.StripeAccount, error) {
	name = strings.TrimSpace(name)
	apiKey = strings.TrimSpace(apiKey)
	if name == "" {
		return domain.StripeAccount{}, ErrInvalidAccountName
	}

	info, err := s.verifyKey(ctx, apiKey)
	if err != nil {
		return domain.StripeAccount{}, err
	}
	encrypted, err := s.vault.Encrypt(apiKey)
	if err != nil {
		return domain.StripeAccount{}, fmt.Errorf("encrypt stripe key: %w", err)
	}

	now := s.now()
	account := domain.StripeAccount{
		ID:              uuid.NewString(),
		UserID:          userID,
		Name:            name,
		StripeAccountID: info.StripeAccountID,
		APIKey:          encrypted,
		BusinessName:    info.BusinessName,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return domain.StripeAccount{}, fmt.Errorf("create stripe account: %w", err)
	}
	s.logger.Info("stripe account connected", zap.String("user_id", userID), zap.String("account_id", account.ID))
	return account.Masked(), nil
}

func (s *StripeService) UpdateAccount(ctx context.Context, accountID, userID string, update StripeAccountUpdate) (domain.StripeAccount, error) {
	account, err := s.getOwned(ctx, accountID, userID)
	if err != nil {
		return domain.StripeAccount{}, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return domain.StripeAccount{}, ErrInvalidAccountName
		}
		account.Name = name
	}
	if update.IsActive != nil {
		account.IsActive = *update.IsActive
	}
	if update.APIKey != nil {
		key := strings.TrimSpace(*update.APIKey)
		info, err := s.verifyKey(ctx, key)
		if err != nil {
			return domain.StripeAccount{}, err
		}
		encrypted, err := s.vault.Encrypt(key)
		if err != nil {
			return domain.StripeAccount{}, fmt.Errorf("encrypt stripe key: %w", err)
		}
		account.APIKey = encrypted
		account.StripeAccountID = info.StripeAccountID
		account.BusinessName = info.BusinessName
	}
	account.UpdatedAt = s.now()

	if err := s.accounts.Update(ctx, account); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StripeAccount{}, ErrStripeAccountNotFound
		}
		return domain.StripeAccount{}, fmt.Errorf("update stripe account: %w", err)
	}
	return account.Masked(), nil
}

func (s *StripeService) DeleteAccount(ctx context.Context, accountID, userID string) error {
	if _, err := uuid.Parse(accountID); err != nil {
		return ErrStripeAccountNotFound
	}
	if err := s.accounts.Delete(ctx, accountID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStripeAccountNotFound
		}
		return fmt.Errorf("delete stripe account: %w", err)
	}
	return nil
}

// verifyKey comprueba forma, acceso a la cuenta y el permiso de lectura de
// movimientos con source expandido. Solo un 401 invalida la key; los fallos
// transitorios de Stripe se devuelven tal cual.
func (s *StripeService) verifyKey(ctx context.Context, apiKey string) (domain.StripeAccountInfo, error) {
	if !stripeKeyPattern.MatchString(apiKey) {
		return domain.StripeAccountInfo{}, ErrInvalidStripeKey
	}
	client := s.newClient(apiKey)

	info, err := client.RetrieveAccount(ctx)
	if err != nil {
		return domain.StripeAccountInfo{}, s.keyCheckError("retrieve account", err)
	}

	_, err = client.ListBalanceTransactions(ctx, domain.BalanceTransactionQuery{Max: 1, ExpandSource: true})
	if err != nil {
		return domain.StripeAccountInfo{}, s.keyCheckError("list balance transactions", err)
	}
	return info, nil
}

func (s *StripeService) keyCheckError(step string, err error) error {
	kind := domain.KindOf(err)
	s.logger.Warn("stripe key verification failed", zap.String("step", step), zap.String("kind", kind.String()))
	switch kind {
	case domain.KindPermissionDenied:
		return ErrStripeMissingPermission
	case domain.KindUnauthorized:
		return fmt.Errorf("%w: %w", ErrInvalidStripeKey, err)
	default:
		return fmt.Errorf("verify stripe key (%s): %w", step, err)
	}
}

// PeriodStart devuelve el inicio del periodo en UTC. "all" devuelve el
// tiempo cero (sin filtro).
func PeriodStart(period string, now time.Time) (time.Time, error) {
	now = now.UTC()
	switch period {
	case "", Period30Days:
		return now.AddDate(0, 0, -30), nil
	case Period7Days:
		return now.AddDate(0, 0, -7), nil
	case Period90Days:
		return now.AddDate(0, 0, -90), nil
	case PeriodYTD:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), nil
	case PeriodAll:
		return time.Time{}, nil
	default:
		return time.Time{}, ErrInvalidPeriod
	}
}

// BucketDaily suma Net por fecha UTC y ordena ascendente.
func BucketDaily(txs []domain.BalanceTransaction) []domain.VolumeData {
	sums := make(map[string]int64)
	for _, tx := range txs {
		day := tx.Created.UTC().Format("2006-01-02")
		sums[day] += tx.Net
	}
	out := make([]domain.VolumeData, 0, len(sums))
	for day, amount := range sums {
		out = append(out, domain.VolumeData{Date: day, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (s *StripeService) DailyVolume(ctx context.Context, apiKey, period string) ([]domain.VolumeData, error) {
	txs, err := s.fetch(ctx, apiKey, period, "", true)
	if err != nil {
		return nil, err
	}
	return BucketDaily(txs), nil
}

// GrossVolume suma el neto de los cargos del periodo.
func (s *StripeService) GrossVolume(ctx context.Context, apiKey, period string) (int64, error) {
	txs, err := s.fetch(ctx, apiKey, period, "charge", false)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, tx := range txs {
		total += tx.Net
	}
	return total, nil
}

func (s *StripeService) VolumeForAccount(ctx context.Context, accountID, userID, period string) ([]domain.VolumeData, error) {
	if _, err := PeriodStart(period, s.now()); err != nil {
		return nil, err
	}
	_, key, err := s.GetAccountWithKey(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	return s.DailyVolume(ctx, key, period)
}

func (s *StripeService) GrossVolumeForAccount(ctx context.Context, accountID, userID, period string) (int64, error) {
	if _, err := PeriodStart(period, s.now()); err != nil {
		return 0, err
	}
	_, key, err := s.GetAccountWithKey(ctx, accountID, userID)
	if err != nil {
		return 0, err
	}
	return s.GrossVolume(ctx, key, period)
}

func (s *StripeService) fetch(ctx context.Context, apiKey, period, txType string, expand bool) ([]domain.BalanceTransaction, error) {
	since, err := PeriodStart(period, s.now())
	if err != nil {
		return nil, err
	}
	page, err := s.newClient(apiKey).ListBalanceTransactions(ctx, domain.BalanceTransactionQuery{
		Since:        since,
		Type:         txType,
		Max:          s.maxTx,
		ExpandSource: expand,
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindPermissionDenied {
			return nil, ErrStripeMissingPermission
		}
		return nil, fmt.Errorf("list balance transactions: %w", err)
	}
	if page.Truncated {
		s.logger.Warn("balance transaction cap reached",
			zap.String("period", period),
			zap.Int("max", s.maxTx),
		)
	}
	return page.Transactions, nil
}
