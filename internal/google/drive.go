package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"saasbooks/internal/domain"
)

const (
	driveServiceName    = "drive"
	defaultMultipartURL = "https://www.googleapis.com/upload/drive/v3/files?uploadType=multipart&fields=id"
	driveFileFields     = "id, name, mimeType, size, createdTime, modifiedTime"
	driveFileListFields = "files(id, name, mimeType, size, createdTime, modifiedTime)"
)

// DriveClient opera sobre Drive v3 con un access token ya resuelto. El
// refresco de tokens lo hace el servicio para poder persistirlo.
type DriveClient struct {
	files        *drive.FilesService
	httpClient   *http.Client
	multipartURL string
	callTimeout  time.Duration
}

// NewDriveClient construye un cliente por llamada a partir del access token.
func NewDriveClient(ctx context.Context, accessToken string, opts ...option.ClientOption) (*DriveClient, error) {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &DriveClient{
		files:        svc.Files,
		httpClient:   httpClient,
		multipartURL: defaultMultipartURL,
	}, nil
}

// WithCallTimeout acota las llamadas de metadatos. Las subidas quedan
// acotadas por el contexto que arma el gateway.
func (c *DriveClient) WithCallTimeout(d time.Duration) *DriveClient {
	c.callTimeout = d
	return c
}

func (c *DriveClient) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

func (c *DriveClient) GetFile(ctx context.Context, fileID string) (domain.DriveFile, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	f, err := c.files.Get(fileID).Fields(driveFileFields).Context(ctx).Do()
	if err != nil {
		return domain.DriveFile{}, classifyDriveError(err)
	}
	return fileFrom(f), nil
}

func (c *DriveClient) ListFiles(ctx context.Context, query string, pageSize int) ([]domain.DriveFile, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	call := c.files.List().Q(query).Fields(driveFileListFields).Context(ctx)
	if pageSize > 0 {
		call = call.PageSize(int64(pageSize))
	}
	list, err := call.Do()
	if err != nil {
		return nil, classifyDriveError(err)
	}
	files := make([]domain.DriveFile, 0, len(list.Files))
	for _, f := range list.Files {
		files = append(files, fileFrom(f))
	}
	return files, nil
}

func (c *DriveClient) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	f, err := c.files.Create(&drive.File{
		Name:     name,
		MimeType: domain.DriveFolderMimeType,
		Parents:  []string{parentID},
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", classifyDriveError(err)
	}
	return f.Id, nil
}

// UploadMedia sube el contenido por la ruta media de la libreria.
func (c *DriveClient) UploadMedia(ctx context.Context, name, mimeType, parentID string, content io.Reader) (string, error) {
	f, err := c.files.Create(&drive.File{
		Name:    name,
		Parents: []string{parentID},
	}).Media(content, googleapi.ContentType(mimeType)).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", classifyDriveError(err)
	}
	return f.Id, nil
}

// UploadMultipart envia un cuerpo multipart/related ya armado.
func (c *DriveClient) UploadMultipart(ctx context.Context, contentType string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.multipartURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.ExternalError{Service: driveServiceName, Kind: domain.KindUnknown, Err: err}
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return "", classifyDriveError(err)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if created.ID == "" {
		return "", errors.New("drive upload returned no id")
	}
	return created.ID, nil
}

func (c *DriveClient) DeleteFile(ctx context.Context, fileID string) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	if err := c.files.Delete(fileID).Context(ctx).Do(); err != nil {
		return classifyDriveError(err)
	}
	return nil
}

func fileFrom(f *drive.File) domain.DriveFile {
	out := domain.DriveFile{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Size:     f.Size,
	}
	if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		out.CreatedTime = t
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		out.ModifiedTime = t
	}
	return out
}

func classifyDriveError(err error) error {
	return classifyAPIError(driveServiceName, err)
}

// classifyAPIError mapea googleapi.Error a un tipo de error externo. Un
// 400 badContent/mediaTypeNotSupported o un 501 sobre la ruta media se
// reporta como KindStreamUnsupported para que el servicio use la subida
// multipart manual.
func classifyAPIError(service string, err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return &domain.ExternalError{Service: service, Kind: domain.KindUnknown, Err: err}
	}
	kind := kindForStatus(gerr.Code)
	switch {
	case gerr.Code == http.StatusNotImplemented:
		kind = domain.KindStreamUnsupported
	case gerr.Code == http.StatusBadRequest && hasReason(gerr, "badContent", "mediaTypeNotSupported"):
		kind = domain.KindStreamUnsupported
	case gerr.Code == http.StatusForbidden && hasReason(gerr, "rateLimitExceeded", "userRateLimitExceeded"):
		kind = domain.KindRateLimited
	}
	return &domain.ExternalError{Service: service, Kind: kind, Err: err}
}

func hasReason(gerr *googleapi.Error, reasons ...string) bool {
	for _, item := range gerr.Errors {
		for _, r := range reasons {
			if item.Reason == r {
				return true
			}
		}
	}
	return false
}
