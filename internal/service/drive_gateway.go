package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"saasbooks/internal/domain"
)

const (
	ReadmeFileName     = "README.md"
	readmeMimeType     = "text/markdown"
	multipartBoundary  = "-------314159265358979323846"
	driveRootFolderID  = "root"
	defaultUploadLimit = 2 * time.Minute
)

const readmeContent = `# SaaSBooks

Welcome to SaaSBooks - Your SaaS business financial management platform.

This folder contains files and data related to your SaaSBooks account.
`

// DriveAPI son las capacidades de Drive que usa el gateway. Los errores
// llegan ya clasificados como domain.ExternalError.
type DriveAPI interface {
	GetFile(ctx context.Context, fileID string) (domain.DriveFile, error)
	ListFiles(ctx context.Context, query string, pageSize int) ([]domain.DriveFile, error)
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
	UploadMedia(ctx context.Context, name, mimeType, parentID string, content io.Reader) (string, error)
	UploadMultipart(ctx context.Context, contentType string, body []byte) (string, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// DriveClientFactory construye un cliente de Drive por llamada.
type DriveClientFactory func(ctx context.Context, accessToken string) (DriveAPI, error)

// FolderVerification es un resultado blando: Valid=false cubre tanto una
// carpeta inexistente como un error de acceso.
type FolderVerification struct {
	Valid      bool   `json:"valid"`
	FolderID   string `json:"folderId,omitempty"`
	FolderName string `json:"folderName,omitempty"`
}

type ReadmeStatus string

const (
	ReadmeCreated       ReadmeStatus = "created"
	ReadmeAlreadyExists ReadmeStatus = "already_exists"
	ReadmeFolderInvalid ReadmeStatus = "folder_invalid"
	ReadmeFailed        ReadmeStatus = "failed"
)

type ReadmeOutcome struct {
	Status ReadmeStatus
	FileID string
	Err    error
}

func (o ReadmeOutcome) OK() bool {
	return o.Status == ReadmeCreated || o.Status == ReadmeAlreadyExists
}

// DriveGateway opera sobre la carpeta de un usuario.
type DriveGateway struct {
	api           DriveAPI
	folderID      string
	uploadTimeout time.Duration
	logger        *zap.Logger
}

func NewDriveGateway(api DriveAPI, folderID string, uploadTimeout time.Duration, logger *zap.Logger) *DriveGateway {
	if uploadTimeout <= 0 {
		uploadTimeout = defaultUploadLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DriveGateway{api: api, folderID: folderID, uploadTimeout: uploadTimeout, logger: logger}
}

func (g *DriveGateway) FolderID() string {
	return g.folderID
}

// VerifyFolder nunca devuelve error.
func (g *DriveGateway) VerifyFolder(ctx context.Context) FolderVerification {
	if strings.TrimSpace(g.folderID) == "" {
		return FolderVerification{}
	}
	f, err := g.api.GetFile(ctx, g.folderID)
	if err != nil {
		g.logger.Warn("verify drive folder failed", zap.String("folder_id", g.folderID), zap.Error(err))
		return FolderVerification{}
	}
	return FolderVerification{Valid: f.IsFolder(), FolderID: f.ID, FolderName: f.Name}
}

// FileExists trata cualquier error como "no existe".
func (g *DriveGateway) FileExists(ctx context.Context, name string) bool {
	q := fmt.Sprintf("'%s' in parents and name='%s' and trashed=false", escapeQuery(g.folderID), escapeQuery(name))
	files, err := g.api.ListFiles(ctx, q, 1)
	if err != nil {
		g.logger.Warn("drive file lookup failed", zap.String("name", name), zap.Error(err))
		return false
	}
	return len(files) > 0
}

// UploadFile intenta la subida media y, si el adaptador la reporta como
// no soportada, reintenta con un cuerpo multipart/related armado a mano.
func (g *DriveGateway) UploadFile(ctx context.Context, content []byte, name, mimeType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.uploadTimeout)
	defer cancel()

	id, err := g.api.UploadMedia(ctx, name, mimeType, g.folderID, bytes.NewReader(content))
	if err == nil {
		return id, nil
	}
	if domain.KindOf(err) != domain.KindStreamUnsupported {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}

	g.logger.Info("media upload unsupported, using multipart fallback", zap.String("name", name))
	body, contentType, err := buildMultipartBody(content, name, mimeType, g.folderID)
	if err != nil {
		return "", err
	}
	id, err = g.api.UploadMultipart(ctx, contentType, body)
	if err != nil {
		return "", fmt.Errorf("upload %s (multipart): %w", name, err)
	}
	return id, nil
}

// EnsureReadme deja un README en la carpeta si falta. Nunca falla: el
// resultado indica que paso.
func (g *DriveGateway) EnsureReadme(ctx context.Context) ReadmeOutcome {
	if !g.VerifyFolder(ctx).Valid {
		return ReadmeOutcome{Status: ReadmeFolderInvalid}
	}
	if g.FileExists(ctx, ReadmeFileName) {
		return ReadmeOutcome{Status: ReadmeAlreadyExists}
	}
	id, err := g.UploadFile(ctx, []byte(readmeContent), ReadmeFileName, readmeMimeType)
	if err != nil {
		g.logger.Warn("create readme failed", zap.String("folder_id", g.folderID), zap.Error(err))
		return ReadmeOutcome{Status: ReadmeFailed, Err: err}
	}
	return ReadmeOutcome{Status: ReadmeCreated, FileID: id}
}

func (g *DriveGateway) ListFiles(ctx context.Context, pageSize int) ([]domain.DriveFile, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	q := fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(g.folderID))
	return g.api.ListFiles(ctx, q, pageSize)
}

func (g *DriveGateway) GetFile(ctx context.Context, fileID string) (domain.DriveFile, error) {
	return g.api.GetFile(ctx, fileID)
}

func (g *DriveGateway) DeleteFile(ctx context.Context, fileID string) error {
	return g.api.DeleteFile(ctx, fileID)
}

// CreateFolder crea una carpeta bajo parentID ("root" si viene vacio).
func CreateFolder(ctx context.Context, api DriveAPI, name, parentID string) (string, error) {
	if parentID == "" {
		parentID = driveRootFolderID
	}
	id, err := api.CreateFolder(ctx, name, parentID)
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}
	return id, nil
}

// FindFolderByName devuelve "" si no hay coincidencia o si la consulta falla.
func FindFolderByName(ctx context.Context, api DriveAPI, name, parentID string) string {
	if parentID == "" {
		parentID = driveRootFolderID
	}
	q := fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
		escapeQuery(parentID), escapeQuery(name), domain.DriveFolderMimeType)
	files, err := api.ListFiles(ctx, q, 1)
	if err != nil || len(files) == 0 {
		return ""
	}
	return files[0].ID
}

func FindOrCreateFolder(ctx context.Context, api DriveAPI, name, parentID string) (string, error) {
	if id := FindFolderByName(ctx, api, name, parentID); id != "" {
		return id, nil
	}
	return CreateFolder(ctx, api, name, parentID)
}

func buildMultipartBody(content []byte, name, mimeType, folderID string) ([]byte, string, error) {
	metadata, err := json.Marshal(struct {
		Name    string   `json:"name"`
		Parents []string `json:"parents"`
	}{Name: name, Parents: []string{folderID}})
	if err != nil {
		return nil, "", fmt.Errorf("marshal upload metadata: %w", err)
	}

	delimiter := "\r\n--" + multipartBoundary + "\r\n"
	closeDelimiter := "\r\n--" + multipartBoundary + "--"

	var b strings.Builder
	b.WriteString(delimiter)
	b.WriteString("Content-Type: application/json\r\n\r\n")
	b.Write(metadata)
	b.WriteString(delimiter)
	b.WriteString("Content-Type: " + mimeType + "\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	b.WriteString(base64.StdEncoding.EncodeToString(content))
	b.WriteString(closeDelimiter)

	return []byte(b.String()), "multipart/related; boundary=" + multipartBoundary, nil
}

// escapeQuery escapa comillas y barras para el lenguaje de consultas de Drive.
func escapeQuery(v string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
}
