package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"saasbooks/internal/domain"
	"saasbooks/internal/repository"
)

const (
	SessionTTL         = 30 * 24 * time.Hour
	SessionRenewWindow = 15 * 24 * time.Hour
	sessionTokenBytes  = 20
)

var sessionTokenEncoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// SessionService emite y valida sesiones opacas. El token en claro solo
// viaja en la cookie; la base guarda su hash.
type SessionService struct {
	logger   *zap.Logger
	sessions repository.SessionRepository
	users    repository.UserRepository
	now      func() time.Time
}

func NewSessionService(logger *zap.Logger, sessions repository.SessionRepository, users repository.UserRepository) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		logger:   logger,
		sessions: sessions,
		users:    users,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock reemplaza el reloj; pensado para tests.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// GenerateSessionToken devuelve 20 bytes aleatorios en base32 minuscula sin
// padding (32 caracteres).
func GenerateSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return sessionTokenEncoding.EncodeToString(buf), nil
}

func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IsPlausibleSessionToken revisa solo la forma del token, sin tocar la base.
func IsPlausibleSessionToken(token string) bool {
	if len(token) != sessionTokenEncoding.EncodedLen(sessionTokenBytes) {
		return false
	}
	for _, r := range token {
		if !(r >= 'a' && r <= 'z') && !(r >= '2' && r <= '7') {
			return false
		}
	}
	return true
}

func (s *SessionService) CreateSession(ctx context.Context, token, userID string) (domain.Session, error) {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(userID) == "" {
		return domain.Session{}, errors.New("token and user id are required")
	}
	now := s.now()
	session := domain.Session{
		ID:        HashSessionToken(token),
		UserID:    userID,
		ExpiresAt: now.Add(SessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// ValidateSessionToken resuelve el token. Una sesion vencida se borra; una
// sesion a menos de 15 dias de vencer se extiende 30 dias desde ahora.
func (s *SessionService) ValidateSessionToken(ctx context.Context, token string) (domain.SessionValidation, error) {
	if token == "" {
		return domain.SessionValidation{}, nil
	}
	id := HashSessionToken(token)
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SessionValidation{}, nil
		}
		return domain.SessionValidation{}, fmt.Errorf("get session: %w", err)
	}

	now := s.now()
	if !now.Before(session.ExpiresAt) {
		if err := s.sessions.Delete(ctx, id); err != nil {
			s.logger.Warn("delete expired session failed", zap.Error(err))
		}
		return domain.SessionValidation{}, nil
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SessionValidation{}, nil
		}
		return domain.SessionValidation{}, fmt.Errorf("get session user: %w", err)
	}

	renewed := false
	if !now.Before(session.ExpiresAt.Add(-SessionRenewWindow)) {
		session.ExpiresAt = now.Add(SessionTTL)
		if err := s.sessions.UpdateExpiry(ctx, id, session.ExpiresAt); err != nil {
			return domain.SessionValidation{}, fmt.Errorf("renew session: %w", err)
		}
		renewed = true
	}

	return domain.SessionValidation{Session: &session, User: &user, Renewed: renewed}, nil
}

func (s *SessionService) InvalidateSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionService) InvalidateAllSessions(ctx context.Context, userID string) (int64, error) {
	n, err := s.sessions.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	return n, nil
}

func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	return n, nil
}
