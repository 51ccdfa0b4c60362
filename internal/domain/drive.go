package domain

import "time"

// DriveFolderMimeType es el tipo que Google Drive asigna a las carpetas.
const DriveFolderMimeType = "application/vnd.google-apps.folder"

// DriveConfig guarda las credenciales de Google y la carpeta del usuario.
type DriveConfig struct {
	UserID       string    `json:"user_id"`
	FolderID     string    `json:"folder_id"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiryDate   time.Time `json:"expiry_date"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c DriveConfig) Tokens() GoogleTokens {
	return GoogleTokens{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		Expiry:       c.ExpiryDate,
	}
}

type DriveFile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size,omitempty"`
	CreatedTime  time.Time `json:"created_time,omitempty"`
	ModifiedTime time.Time `json:"modified_time,omitempty"`
}

func (f DriveFile) IsFolder() bool {
	return f.MimeType == DriveFolderMimeType
}
