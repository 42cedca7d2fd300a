package versions_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-review/internal/versions"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc := &versions.Service{Repo: versions.NewMemoryRepo()}
	versions.NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestVersionsCreateCompareAndHistory(t *testing.T) {
	r := newRouter()

	resp := do(t, r, http.MethodPost, "/api/v1/documents/doc-1/versions", map[string]any{"content": "SUMMARY\nHello", "score": 60})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var first struct {
		VersionID string `json:"versionId"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}

	resp = do(t, r, http.MethodPost, "/api/v1/documents/doc-1/versions", map[string]any{"content": "SUMMARY\nHello\nSKILLS\nGo", "score": 75})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var second struct {
		VersionID string `json:"versionId"`
		Sections  []struct {
			Name string `json:"name"`
		} `json:"sections"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(second.Sections) != 3 || second.Sections[2].Name != "Skills" {
		t.Fatalf("unexpected sections %+v", second.Sections)
	}

	resp = do(t, r, http.MethodGet, "/api/v1/versions/compare?from="+first.VersionID+"&to="+second.VersionID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var d struct {
		Changes []struct {
			Kind        string `json:"kind"`
			SectionName string `json:"sectionName"`
		} `json:"changes"`
		ScoreDelta *float64 `json:"scoreDelta"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode diff: %v", err)
	}
	if len(d.Changes) != 1 || d.Changes[0].Kind != "addition" || d.ScoreDelta == nil || *d.ScoreDelta != 15 {
		t.Fatalf("unexpected diff %+v", d)
	}

	resp = do(t, r, http.MethodGet, "/api/v1/documents/doc-1/history", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var hist struct {
		History []struct {
			VersionID string `json:"versionId"`
		} `json:"history"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.History) != 2 || hist.History[0].VersionID != second.VersionID {
		t.Fatalf("unexpected history %+v", hist.History)
	}

	resp = do(t, r, http.MethodGet, "/api/v1/documents/doc-1/improvement", nil)
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte(`"overallImprovement":15`)) {
		t.Fatalf("unexpected improvement response %d %s", resp.Code, resp.Body.String())
	}
}

func TestVersionsNotFound(t *testing.T) {
	r := newRouter()
	for _, path := range []string{
		"/api/v1/versions/missing",
		"/api/v1/documents/missing/versions/current",
		"/api/v1/documents/missing/history",
	} {
		resp := do(t, r, http.MethodGet, path, nil)
		if resp.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.Code)
		}
	}
}

func TestVersionsRestore(t *testing.T) {
	r := newRouter()
	resp := do(t, r, http.MethodPost, "/api/v1/documents/doc-1/versions", map[string]any{"content": "SUMMARY\nA"})
	var first struct {
		VersionID string `json:"versionId"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &first)
	do(t, r, http.MethodPost, "/api/v1/documents/doc-1/versions", map[string]any{"content": "SUMMARY\nB"})

	resp = do(t, r, http.MethodPost, "/api/v1/versions/"+first.VersionID+"/restore", nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	resp = do(t, r, http.MethodGet, "/api/v1/documents/doc-1/versions/current", nil)
	var cur struct {
		Content  string         `json:"content"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &cur); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cur.Content != "SUMMARY\nA" || cur.Metadata["restoredFrom"] != first.VersionID {
		t.Fatalf("unexpected current %+v", cur)
	}
}

func TestVersionsCreateRequiresContent(t *testing.T) {
	r := newRouter()
	resp := do(t, r, http.MethodPost, "/api/v1/documents/doc-1/versions", map[string]any{"content": "  "})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
