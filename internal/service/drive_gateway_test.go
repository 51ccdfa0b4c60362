package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"saasbooks/internal/domain"
)

func TestVerifyFolder(t *testing.T) {
	ctx := context.Background()
	api := newFakeDriveAPI()
	api.addFile("folder-ok", "SaaSBooks", domain.DriveFolderMimeType, "root")
	api.addFile("doc", "notes.txt", "text/plain", "root")

	if v := NewDriveGateway(api, "folder-ok", 0, zap.NewNop()).VerifyFolder(ctx); !v.Valid || v.FolderName != "SaaSBooks" {
		t.Fatalf("expected valid folder, got %+v", v)
	}
	if v := NewDriveGateway(api, "doc", 0, zap.NewNop()).VerifyFolder(ctx); v.Valid {
		t.Fatalf("expected non-folder to be invalid")
	}
	if v := NewDriveGateway(api, "missing", 0, zap.NewNop()).VerifyFolder(ctx); v.Valid {
		t.Fatalf("expected missing folder to be invalid")
	}
}

func TestFileExists_ErrorIsFalse(t *testing.T) {
	api := newFakeDriveAPI()
	api.listErr = errors.New("boom")
	gw := NewDriveGateway(api, "f", 0, zap.NewNop())
	if gw.FileExists(context.Background(), "README.md") {
		t.Fatalf("expected false on list error")
	}
}

func TestEnsureReadme(t *testing.T) {
	ctx := context.Background()

	t.Run("creates when missing", func(t *testing.T) {
		api := newFakeDriveAPI()
		api.addFile("f", "SaaSBooks", domain.DriveFolderMimeType, "root")
		out := NewDriveGateway(api, "f", 0, zap.NewNop()).EnsureReadme(ctx)
		if out.Status != ReadmeCreated || out.FileID == "" {
			t.Fatalf("expected created, got %+v", out)
		}
		content := string(api.contents[out.FileID])
		if !strings.HasPrefix(content, "# SaaSBooks") {
			t.Fatalf("unexpected readme content %q", content)
		}
		if api.files[out.FileID].MimeType != "text/markdown" {
			t.Fatalf("expected text/markdown")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		api := newFakeDriveAPI()
		api.addFile("f", "SaaSBooks", domain.DriveFolderMimeType, "root")
		gw := NewDriveGateway(api, "f", 0, zap.NewNop())
		_ = gw.EnsureReadme(ctx)
		out := gw.EnsureReadme(ctx)
		if out.Status != ReadmeAlreadyExists {
			t.Fatalf("expected already exists, got %+v", out)
		}
		count := 0
		for _, f := range api.files {
			if f.Name == ReadmeFileName {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("expected a single readme, got %d", count)
		}
	})

	t.Run("invalid folder", func(t *testing.T) {
		api := newFakeDriveAPI()
		out := NewDriveGateway(api, "missing", 0, zap.NewNop()).EnsureReadme(ctx)
		if out.Status != ReadmeFolderInvalid || out.OK() {
			t.Fatalf("expected folder invalid, got %+v", out)
		}
	})

	t.Run("upload failure is soft", func(t *testing.T) {
		api := newFakeDriveAPI()
		api.addFile("f", "SaaSBooks", domain.DriveFolderMimeType, "root")
		api.mediaErr = &domain.ExternalError{Service: "drive", Kind: domain.KindPermissionDenied, Err: errors.New("denied")}
		out := NewDriveGateway(api, "f", 0, zap.NewNop()).EnsureReadme(ctx)
		if out.Status != ReadmeFailed || out.Err == nil {
			t.Fatalf("expected failed outcome, got %+v", out)
		}
		if api.multipartCalls != 0 {
			t.Fatalf("permission errors must not trigger the multipart fallback")
		}
	})
}

func TestUploadFile_MultipartFallback(t *testing.T) {
	api := newFakeDriveAPI()
	api.mediaErr = &domain.ExternalError{Service: "drive", Kind: domain.KindStreamUnsupported, Err: errors.New("501")}
	gw := NewDriveGateway(api, "folder-1", 0, zap.NewNop())

	id, err := gw.UploadFile(context.Background(), []byte("hola"), "a.txt", "text/plain")
	if err != nil {
		t.Fatalf("expected fallback success, got %v", err)
	}
	if id == "" || api.multipartCalls != 1 {
		t.Fatalf("expected one multipart call, got %d", api.multipartCalls)
	}
	if api.lastContentType != "multipart/related; boundary=-------314159265358979323846" {
		t.Fatalf("unexpected content type %s", api.lastContentType)
	}
	body := string(api.lastMultipart)
	if !strings.Contains(body, `{"name":"a.txt","parents":["folder-1"]}`) {
		t.Fatalf("expected metadata part, got %q", body)
	}
	if !strings.Contains(body, base64.StdEncoding.EncodeToString([]byte("hola"))) {
		t.Fatalf("expected base64 payload")
	}
	if !strings.HasSuffix(body, "\r\n---------314159265358979323846--") {
		t.Fatalf("expected closing delimiter, got %q", body)
	}
}

func TestUploadFile_OtherErrorsPropagate(t *testing.T) {
	api := newFakeDriveAPI()
	api.mediaErr = &domain.ExternalError{Service: "drive", Kind: domain.KindRateLimited, Err: errors.New("slow down")}
	gw := NewDriveGateway(api, "folder-1", 0, zap.NewNop())

	_, err := gw.UploadFile(context.Background(), []byte("x"), "a.txt", "text/plain")
	if domain.KindOf(err) != domain.KindRateLimited {
		t.Fatalf("expected rate limited error, got %v", err)
	}
}

func TestFindOrCreateFolder(t *testing.T) {
	ctx := context.Background()
	api := newFakeDriveAPI()
	api.addFile("existing", "SaaSBooks", domain.DriveFolderMimeType, "root")

	id, err := FindOrCreateFolder(ctx, api, "SaaSBooks", "")
	if err != nil || id != "existing" {
		t.Fatalf("expected existing folder, got %s %v", id, err)
	}

	id, err = FindOrCreateFolder(ctx, api, "Reports", "")
	if err != nil || id == "" || id == "existing" {
		t.Fatalf("expected new folder, got %s %v", id, err)
	}
	if !api.files[id].IsFolder() {
		t.Fatalf("expected folder mime type")
	}
}

func TestFindFolderByName_EscapesQuotes(t *testing.T) {
	api := newFakeDriveAPI()
	_ = FindFolderByName(context.Background(), api, "O'Brien", "root")
	if len(api.queries) != 1 || !strings.Contains(api.queries[0], `name='O\'Brien'`) {
		t.Fatalf("expected escaped name in query, got %v", api.queries)
	}
}
