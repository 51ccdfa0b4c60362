package http

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"saasbooks/internal/domain"
	"saasbooks/internal/service"
	"saasbooks/internal/vault"
)

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockUserRepo) GetByGoogleID(_ context.Context, googleID string) (domain.User, error) {
	for _, u := range m.usersByID {
		if u.GoogleID == googleID {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) LinkGoogle(_ context.Context, id, googleID, image string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.GoogleID = googleID
	user.Image = image
	m.usersByID[id] = user
	return nil
}

type mockSessionRepo struct {
	sessions      map[string]domain.Session
	expiryUpdates int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]domain.Session)}
}

func (m *mockSessionRepo) Create(_ context.Context, s domain.Session) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (domain.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, pgx.ErrNoRows
	}
	return s, nil
}

func (m *mockSessionRepo) UpdateExpiry(_ context.Context, id string, expiresAt time.Time) error {
	m.expiryUpdates++
	s, ok := m.sessions[id]
	if ok && s.ExpiresAt.Before(expiresAt) {
		s.ExpiresAt = expiresAt
		m.sessions[id] = s
	}
	return nil
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(_ context.Context, userID string) (int64, error) {
	var n int64
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type mockStripeAccountRepo struct {
	accounts map[string]domain.StripeAccount
}

func (m *mockStripeAccountRepo) Create(_ context.Context, a domain.StripeAccount) error {
	m.accounts[a.ID] = a
	return nil
}

func (m *mockStripeAccountRepo) ListByUserID(_ context.Context, userID string) ([]domain.StripeAccount, error) {
	var out []domain.StripeAccount
	for _, a := range m.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockStripeAccountRepo) GetForUser(_ context.Context, id, userID string) (domain.StripeAccount, error) {
	a, ok := m.accounts[id]
	if !ok || a.UserID != userID {
		return domain.StripeAccount{}, pgx.ErrNoRows
	}
	return a, nil
}

func (m *mockStripeAccountRepo) Update(_ context.Context, a domain.StripeAccount) error {
	cur, ok := m.accounts[a.ID]
	if !ok || cur.UserID != a.UserID {
		return pgx.ErrNoRows
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *mockStripeAccountRepo) Delete(_ context.Context, id, userID string) error {
	a, ok := m.accounts[id]
	if !ok || a.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(m.accounts, id)
	return nil
}

type mockDriveConfigRepo struct {
	configs map[string]domain.DriveConfig
}

func (m *mockDriveConfigRepo) Create(_ context.Context, cfg domain.DriveConfig) error {
	m.configs[cfg.UserID] = cfg
	return nil
}

func (m *mockDriveConfigRepo) GetByUserID(_ context.Context, userID string) (domain.DriveConfig, error) {
	cfg, ok := m.configs[userID]
	if !ok {
		return domain.DriveConfig{}, pgx.ErrNoRows
	}
	return cfg, nil
}

func (m *mockDriveConfigRepo) UpdateTokens(_ context.Context, userID, accessToken, refreshToken string, expiry time.Time) error {
	return nil
}

func (m *mockDriveConfigRepo) UpdateFolder(_ context.Context, userID, folderID string) error {
	return nil
}

type fakeStripeGateway struct {
	txs         []domain.BalanceTransaction
	retrieveErr error
}

func (f *fakeStripeGateway) RetrieveAccount(_ context.Context) (domain.StripeAccountInfo, error) {
	if f.retrieveErr != nil {
		return domain.StripeAccountInfo{}, f.retrieveErr
	}
	return domain.StripeAccountInfo{StripeAccountID: "acct_1"}, nil
}

func (f *fakeStripeGateway) ListBalanceTransactions(_ context.Context, q domain.BalanceTransactionQuery) (domain.BalanceTransactionPage, error) {
	var page domain.BalanceTransactionPage
	for _, tx := range f.txs {
		if q.Type != "" && tx.Type != q.Type {
			continue
		}
		page.Transactions = append(page.Transactions, tx)
	}
	return page, nil
}

type fakeOAuthProvider struct{}

func (fakeOAuthProvider) AuthCodeURL(state, codeVerifier string) string {
	return "https://accounts.google.com/o/oauth2/v2/auth?state=" + state + "&code_challenge=" + service.CodeChallenge(codeVerifier)
}

func (fakeOAuthProvider) Exchange(_ context.Context, _, _ string) (domain.GoogleTokens, error) {
	return domain.GoogleTokens{AccessToken: "at"}, nil
}

func (fakeOAuthProvider) Refresh(_ context.Context, _ string) (domain.GoogleTokens, error) {
	return domain.GoogleTokens{}, nil
}

func (fakeOAuthProvider) UserInfo(_ context.Context, _ domain.GoogleTokens) (domain.GoogleIdentity, error) {
	return domain.GoogleIdentity{ID: "g-1", Email: "g@example.com"}, nil
}

// testApp arma el router completo sobre repositorios en memoria.
type testApp struct {
	users    *mockUserRepo
	sessions *mockSessionRepo
	accounts *mockStripeAccountRepo
	drive    *mockDriveConfigRepo
	gateway  *fakeStripeGateway
	session  *service.SessionService
	stripe   *service.StripeService
	now      time.Time
	deps     RouterDeps
}

func newTestApp() *testApp {
	logger := zap.NewNop()
	a := &testApp{
		users:    newMockUserRepo(),
		sessions: newMockSessionRepo(),
		accounts: &mockStripeAccountRepo{accounts: make(map[string]domain.StripeAccount)},
		drive:    &mockDriveConfigRepo{configs: make(map[string]domain.DriveConfig)},
		gateway:  &fakeStripeGateway{},
		now:      time.Now().UTC(),
	}
	a.session = service.NewSessionService(logger, a.sessions, a.users).WithClock(func() time.Time { return a.now })
	userSvc := service.NewUserService(logger, a.users, nil)
	a.stripe = service.NewStripeService(logger, a.accounts, vault.New("0123456789abcdef0123456789abcdef"),
		func(string) service.StripeGateway { return a.gateway }, 0)
	driveSvc := service.NewDriveService(logger, a.drive, nil, nil, service.DriveServiceConfig{})
	oauthSvc := service.NewOAuthService(logger, fakeOAuthProvider{}, userSvc, a.session, nil)

	cookies := NewCookieWriter(false)
	a.deps = RouterDeps{
		Logger:    logger,
		Sessions:  a.session,
		Cookies:   cookies,
		Gate:      NewAccessGate([]string{"/app"}, "/auth/login"),
		LoginPath: "/auth/login",
		Auth:      NewAuthHandler(logger, userSvc, a.session, cookies),
		OAuth:     NewOAuthHandler(logger, oauthSvc, cookies, "/app/dashboard"),
		Stripe:    NewStripeHandler(logger, a.stripe),
		Drive:     NewDriveHandler(logger, driveSvc),
		App:       NewAppHandler(logger, a.stripe, driveSvc),
	}
	return a
}

// login crea un usuario con sesion y devuelve el token.
func (a *testApp) login(userID, email string) string {
	_ = a.users.Create(context.Background(), domain.User{ID: userID, Email: email, Name: userID})
	token, _ := service.GenerateSessionToken()
	_, _ = a.session.CreateSession(context.Background(), token, userID)
	return token
}
