package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"saasbooks/internal/domain"
)

type mockUserRepo struct {
	usersByID     map[string]domain.User
	usersByEmail  map[string]string
	usersByGoogle map[string]string
	createErr     error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:     make(map[string]domain.User),
		usersByEmail:  make(map[string]string),
		usersByGoogle: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.usersByID[user.ID] = user
	if user.Email != "" {
		m.usersByEmail[user.Email] = user.ID
	}
	if user.GoogleID != "" {
		m.usersByGoogle[user.GoogleID] = user.ID
	}
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
	id, ok := m.usersByGoogle[googleID]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockUserRepo) LinkGoogle(_ context.Context, id, googleID, image string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.GoogleID = googleID
	user.Image = image
	m.usersByID[id] = user
	m.usersByGoogle[googleID] = id
	return nil
}

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	deleted  []string
	updates  int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]domain.Session)}
}

func (m *mockSessionRepo) Create(_ context.Context, session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, pgx.ErrNoRows
	}
	return s, nil
}

func (m *mockSessionRepo) UpdateExpiry(_ context.Context, id string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	if s.ExpiresAt.Before(expiresAt) {
		s.ExpiresAt = expiresAt
		m.sessions[id] = s
	}
	m.updates++
	return nil
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

type mockDriveConfigRepo struct {
	configs map[string]domain.DriveConfig
}

func newMockDriveConfigRepo() *mockDriveConfigRepo {
	return &mockDriveConfigRepo{configs: make(map[string]domain.DriveConfig)}
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
	cfg, ok := m.configs[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	cfg.AccessToken = accessToken
	if refreshToken != "" {
		cfg.RefreshToken = refreshToken
	}
	cfg.ExpiryDate = expiry
	m.configs[userID] = cfg
	return nil
}

func (m *mockDriveConfigRepo) UpdateFolder(_ context.Context, userID, folderID string) error {
	cfg, ok := m.configs[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	cfg.FolderID = folderID
	m.configs[userID] = cfg
	return nil
}

type mockStripeAccountRepo struct {
	accounts map[string]domain.StripeAccount
}

func newMockStripeAccountRepo() *mockStripeAccountRepo {
	return &mockStripeAccountRepo{accounts: make(map[string]domain.StripeAccount)}
}

func (m *mockStripeAccountRepo) Create(_ context.Context, account domain.StripeAccount) error {
	m.accounts[account.ID] = account
	return nil
}

func (m *mockStripeAccountRepo) ListByUserID(_ context.Context, userID string) ([]domain.StripeAccount, error) {
	var out []domain.StripeAccount
	for _, a := range m.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
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

func (m *mockStripeAccountRepo) Update(_ context.Context, account domain.StripeAccount) error {
	a, ok := m.accounts[account.ID]
	if !ok || a.UserID != account.UserID {
		return pgx.ErrNoRows
	}
	m.accounts[account.ID] = account
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

// fakeDriveAPI simula Drive en memoria.
type fakeDriveAPI struct {
	files           map[string]domain.DriveFile
	parents         map[string]string
	contents        map[string][]byte
	nextID          int
	getErr          error
	listErr         error
	mediaErr        error
	multipartErr    error
	createFolderErr error
	multipartCalls  int
	lastMultipart   []byte
	lastContentType string
	queries         []string
}

func newFakeDriveAPI() *fakeDriveAPI {
	return &fakeDriveAPI{
		files:    make(map[string]domain.DriveFile),
		parents:  make(map[string]string),
		contents: make(map[string][]byte),
	}
}

func (f *fakeDriveAPI) addFile(id, name, mime, parent string) {
	f.files[id] = domain.DriveFile{ID: id, Name: name, MimeType: mime}
	f.parents[id] = parent
}

func (f *fakeDriveAPI) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeDriveAPI) GetFile(_ context.Context, fileID string) (domain.DriveFile, error) {
	if f.getErr != nil {
		return domain.DriveFile{}, f.getErr
	}
	file, ok := f.files[fileID]
	if !ok {
		return domain.DriveFile{}, &domain.ExternalError{Service: "drive", Kind: domain.KindNotFound, Err: io.EOF}
	}
	return file, nil
}

// ListFiles entiende el subconjunto de consultas que arma el gateway.
func (f *fakeDriveAPI) ListFiles(_ context.Context, query string, pageSize int) ([]domain.DriveFile, error) {
	f.queries = append(f.queries, query)
	if f.listErr != nil {
		return nil, f.listErr
	}
	parent := between(query, "'", "' in parents")
	name := between(query, "name='", "'")
	var out []domain.DriveFile
	for id, file := range f.files {
		if f.parents[id] != parent {
			continue
		}
		if name != "" && file.Name != name {
			continue
		}
		if strings.Contains(query, "mimeType='") && !file.IsFolder() {
			continue
		}
		out = append(out, file)
		if pageSize > 0 && len(out) >= pageSize {
			break
		}
	}
	return out, nil
}

func (f *fakeDriveAPI) CreateFolder(_ context.Context, name, parentID string) (string, error) {
	if f.createFolderErr != nil {
		return "", f.createFolderErr
	}
	id := f.newID("folder")
	f.addFile(id, name, domain.DriveFolderMimeType, parentID)
	return id, nil
}

func (f *fakeDriveAPI) UploadMedia(_ context.Context, name, mimeType, parentID string, content io.Reader) (string, error) {
	if f.mediaErr != nil {
		return "", f.mediaErr
	}
	data, _ := io.ReadAll(content)
	id := f.newID("file")
	f.addFile(id, name, mimeType, parentID)
	f.contents[id] = data
	return id, nil
}

func (f *fakeDriveAPI) UploadMultipart(_ context.Context, contentType string, body []byte) (string, error) {
	f.multipartCalls++
	f.lastMultipart = bytes.Clone(body)
	f.lastContentType = contentType
	if f.multipartErr != nil {
		return "", f.multipartErr
	}
	return f.newID("file"), nil
}

func (f *fakeDriveAPI) DeleteFile(_ context.Context, fileID string) error {
	delete(f.files, fileID)
	return nil
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return ""
	}
	return rest[:j]
}

type fakeOAuthProvider struct {
	tokens      domain.GoogleTokens
	identity    domain.GoogleIdentity
	exchangeErr error
	userInfoErr error
	refreshErr  error
	refreshed   domain.GoogleTokens
	lastCode    string
	lastVerif   string
	refreshes   int
}

func (f *fakeOAuthProvider) AuthCodeURL(state, codeVerifier string) string {
	return "https://accounts.example.com/auth?state=" + state + "&code_challenge=" + CodeChallenge(codeVerifier)
}

func (f *fakeOAuthProvider) Exchange(_ context.Context, code, codeVerifier string) (domain.GoogleTokens, error) {
	f.lastCode = code
	f.lastVerif = codeVerifier
	return f.tokens, f.exchangeErr
}

func (f *fakeOAuthProvider) Refresh(_ context.Context, _ string) (domain.GoogleTokens, error) {
	f.refreshes++
	return f.refreshed, f.refreshErr
}

func (f *fakeOAuthProvider) UserInfo(_ context.Context, _ domain.GoogleTokens) (domain.GoogleIdentity, error) {
	return f.identity, f.userInfoErr
}

type fakeStripeGateway struct {
	info        domain.StripeAccountInfo
	txs         []domain.BalanceTransaction
	retrieveErr error
	listErr     error
	queries     []domain.BalanceTransactionQuery
}

func (f *fakeStripeGateway) RetrieveAccount(_ context.Context) (domain.StripeAccountInfo, error) {
	return f.info, f.retrieveErr
}

func (f *fakeStripeGateway) ListBalanceTransactions(_ context.Context, q domain.BalanceTransactionQuery) (domain.BalanceTransactionPage, error) {
	f.queries = append(f.queries, q)
	if f.listErr != nil {
		return domain.BalanceTransactionPage{}, f.listErr
	}
	var page domain.BalanceTransactionPage
	for _, tx := range f.txs {
		if !q.Since.IsZero() && tx.Created.Before(q.Since) {
			continue
		}
		if q.Type != "" && tx.Type != q.Type {
			continue
		}
		if q.Max > 0 && len(page.Transactions) >= q.Max {
			page.Truncated = true
			break
		}
		page.Transactions = append(page.Transactions, tx)
	}
	return page, nil
}
