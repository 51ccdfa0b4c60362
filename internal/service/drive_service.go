package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"saasbooks/internal/domain"
	"saasbooks/internal/repository"
)

var (
	ErrDriveNotConfigured  = errors.New("no drive configuration found")
	ErrDriveReauthRequired = errors.New("google drive access expired, sign in with google again")
	errNoDriveAPI          = errors.New("drive client not configured")
)

const defaultTokenLifetime = time.Hour

// DriveService resuelve credenciales por usuario y arma gateways sobre su
// carpeta. Los tokens refrescados se persisten antes de usarse.
type DriveService struct {
	logger        *zap.Logger
	configs       repository.DriveConfigRepository
	newClient     DriveClientFactory
	refresher     TokenRefresher
	folderName    string
	uploadTimeout time.Duration
	now           func() time.Time
}

type DriveServiceConfig struct {
	FolderName    string
	UploadTimeout time.Duration
}

func NewDriveService(logger *zap.Logger, configs repository.DriveConfigRepository, newClient DriveClientFactory, refresher TokenRefresher, cfg DriveServiceConfig) *DriveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FolderName == "" {
		cfg.FolderName = "SaaSBooks"
	}
	return &DriveService{
		logger:        logger,
		configs:       configs,
		newClient:     newClient,
		refresher:     refresher,
		folderName:    cfg.FolderName,
		uploadTimeout: cfg.UploadTimeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// VerifyReport describe el resultado de VerifyOrRepair.
type VerifyReport struct {
	Message     string              `json:"message"`
	Repaired    bool                `json:"repaired"`
	OldFolderID string              `json:"oldFolderId,omitempty"`
	NewFolderID string              `json:"newFolderId,omitempty"`
	FolderInfo  *FolderVerification `json:"folderInfo,omitempty"`
	Readme      ReadmeStatus        `json:"readme"`
}

// ForUser devuelve el gateway del usuario. Si el access token vencio y hay
// refresh token, lo renueva y persiste.
func (s *DriveService) ForUser(ctx context.Context, userID string) (*DriveGateway, error) {
	api, cfg, err := s.clientFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewDriveGateway(api, cfg.FolderID, s.uploadTimeout, s.logger), nil
}

func (s *DriveService) clientFor(ctx context.Context, userID string) (DriveAPI, domain.DriveConfig, error) {
	cfg, err := s.configs.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.DriveConfig{}, ErrDriveNotConfigured
		}
		return nil, domain.DriveConfig{}, fmt.Errorf("get drive config: %w", err)
	}

	tokens := cfg.Tokens()
	if tokens.Expired(s.now()) {
		if tokens.RefreshToken == "" || s.refresher == nil {
			s.logger.Warn("drive access token expired without refresh token", zap.String("user_id", userID))
			return nil, domain.DriveConfig{}, ErrDriveReauthRequired
		}
		refreshed, err := s.refresher.RefreshAccessToken(ctx, tokens.RefreshToken)
		if err != nil {
			return nil, domain.DriveConfig{}, fmt.Errorf("%w: %w", ErrDriveReauthRequired, err)
		}
		expiry := s.expiryOrDefault(refreshed.Expiry)
		if err := s.configs.UpdateTokens(ctx, userID, refreshed.AccessToken, refreshed.RefreshToken, expiry); err != nil {
			return nil, domain.DriveConfig{}, fmt.Errorf("persist refreshed tokens: %w", err)
		}
		cfg.AccessToken = refreshed.AccessToken
		if refreshed.RefreshToken != "" {
			cfg.RefreshToken = refreshed.RefreshToken
		}
		cfg.ExpiryDate = expiry
		s.logger.Info("refreshed google access token", zap.String("user_id", userID))
	}

	if s.newClient == nil {
		return nil, domain.DriveConfig{}, errNoDriveAPI
	}
	api, err := s.newClient(ctx, cfg.AccessToken)
	if err != nil {
		return nil, domain.DriveConfig{}, fmt.Errorf("create drive client: %w", err)
	}
	return api, cfg, nil
}

// EnsureUserReadme devuelve false si el usuario no tiene Drive configurado
// o si no se pudo resolver el cliente.
func (s *DriveService) EnsureUserReadme(ctx context.Context, userID string) bool {
	gw, err := s.ForUser(ctx, userID)
	if err != nil {
		s.logger.Info("skip readme check", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	outcome := gw.EnsureReadme(ctx)
	s.logger.Info("readme check", zap.String("user_id", userID), zap.String("status", string(outcome.Status)))
	return true
}

// ProvisionForLogin guarda los tokens del login. Si el usuario no tenia
// configuracion crea la carpeta y el README; solo la carpeta es obligatoria.
func (s *DriveService) ProvisionForLogin(ctx context.Context, userID string, tokens domain.GoogleTokens) error {
	expiry := s.expiryOrDefault(tokens.Expiry)

	_, err := s.configs.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		if err := s.configs.UpdateTokens(ctx, userID, tokens.AccessToken, tokens.RefreshToken, expiry); err != nil {
			return fmt.Errorf("update drive tokens: %w", err)
		}
		return nil
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("get drive config: %w", err)
	}

	if s.newClient == nil {
		return errNoDriveAPI
	}
	api, err := s.newClient(ctx, tokens.AccessToken)
	if err != nil {
		return fmt.Errorf("create drive client: %w", err)
	}
	folderID, err := CreateFolder(ctx, api, s.folderName, driveRootFolderID)
	if err != nil {
		return err
	}
	cfg := domain.DriveConfig{
		UserID:       userID,
		FolderID:     folderID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiryDate:   expiry,
		UpdatedAt:    s.now(),
	}
	if err := s.configs.Create(ctx, cfg); err != nil {
		return fmt.Errorf("create drive config: %w", err)
	}

	outcome := NewDriveGateway(api, folderID, s.uploadTimeout, s.logger).EnsureReadme(ctx)
	s.logger.Info("provisioned drive folder",
		zap.String("user_id", userID),
		zap.String("folder_id", folderID),
		zap.String("readme", string(outcome.Status)),
	)
	return nil
}

// VerifyOrRepair revisa la carpeta del usuario; si ya no es valida crea
// una nueva, la persiste y deja el README.
func (s *DriveService) VerifyOrRepair(ctx context.Context, userID string) (VerifyReport, error) {
	api, cfg, err := s.clientFor(ctx, userID)
	if err != nil {
		return VerifyReport{}, err
	}

	gw := NewDriveGateway(api, cfg.FolderID, s.uploadTimeout, s.logger)
	info := gw.VerifyFolder(ctx)
	if info.Valid {
		outcome := gw.EnsureReadme(ctx)
		return VerifyReport{
			Message:    "Folder verified and README ensured",
			FolderInfo: &info,
			Readme:     outcome.Status,
		}, nil
	}

	newFolderID, err := CreateFolder(ctx, api, s.folderName, driveRootFolderID)
	if err != nil {
		return VerifyReport{}, err
	}
	if err := s.configs.UpdateFolder(ctx, userID, newFolderID); err != nil {
		return VerifyReport{}, fmt.Errorf("update drive folder: %w", err)
	}
	s.logger.Info("replaced drive folder",
		zap.String("user_id", userID),
		zap.String("old_folder_id", cfg.FolderID),
		zap.String("new_folder_id", newFolderID),
	)

	outcome := NewDriveGateway(api, newFolderID, s.uploadTimeout, s.logger).EnsureReadme(ctx)
	return VerifyReport{
		Message:     "Created new SaaSBooks folder and README file",
		Repaired:    true,
		OldFolderID: cfg.FolderID,
		NewFolderID: newFolderID,
		Readme:      outcome.Status,
	}, nil
}

func (s *DriveService) expiryOrDefault(expiry time.Time) time.Time {
	if expiry.IsZero() {
		return s.now().Add(defaultTokenLifetime)
	}
	return expiry.UTC()
}
