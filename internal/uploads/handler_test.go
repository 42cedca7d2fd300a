package uploads

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-review/internal/shared/storage/object/local"
	"resume-review/internal/versions"
)

func newRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := &Service{
		Store:    local.New(t.TempDir()),
		Versions: &versions.Service{Repo: versions.NewMemoryRepo()},
	}
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r, svc
}

func multipartRequest(t *testing.T, fields map[string]string, fileName string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadCreatesVersion(t *testing.T) {
	r, svc := newRouter(t)
	req := multipartRequest(t, map[string]string{"documentId": "doc-1", "targetDescription": "Go role"}, "cv.txt", []byte("SUMMARY\nGo engineer\nSKILLS\nGo"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var out struct {
		StorageKey string `json:"storageKey"`
		Version    struct {
			VersionID string `json:"versionId"`
		} `json:"version"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	current, err := svc.Versions.GetCurrentVersion(req.Context(), "doc-1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current.ID != out.Version.VersionID {
		t.Fatalf("uploaded version should be current")
	}
	if current.Content != "SUMMARY\nGo engineer\nSKILLS\nGo" {
		t.Fatalf("unexpected content %q", current.Content)
	}
	if current.Metadata["storageKey"] != out.StorageKey || current.Metadata["source"] != "upload" {
		t.Fatalf("unexpected metadata %v", current.Metadata)
	}
	if current.TargetDescription == nil || *current.TargetDescription != "Go role" {
		t.Fatalf("expected target description")
	}
}

func TestUploadValidation(t *testing.T) {
	r, _ := newRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, multipartRequest(t, map[string]string{}, "cv.txt", []byte("x")))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without documentId, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, multipartRequest(t, map[string]string{"documentId": "doc"}, "", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without file, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, multipartRequest(t, map[string]string{"documentId": "doc"}, "image.png", []byte("\x89PNG\r\n\x1a\n0000")))
	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415 for png, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, multipartRequest(t, map[string]string{"documentId": "doc"}, "blank.txt", []byte("   \n  ")))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for blank document, got %d", resp.Code)
	}
}
