package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-review/internal/shared/config"
	"resume-review/internal/versions"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := &versions.Service{Repo: versions.NewMemoryRepo()}
	return NewRouter(RouterDeps{
		Config:          config.Config{RateLimitRPS: 100, RateLimitBurst: 100},
		VersionsHandler: versions.NewHandler(svc),
		Health: func() map[string]any {
			return map[string]any{"analyzer": "closed"}
		},
	})
}

func TestHealthIncludesDependencyStatus(t *testing.T) {
	r := testRouter()
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["ok"] != true || body["analyzer"] != "closed" {
		t.Fatalf("unexpected health body %v", body)
	}
	if resp.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := testRouter()
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestSkippedHandlersReturn404(t *testing.T) {
	r := testRouter()
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/reviews", strings.NewReader(`{}`)))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without reviews handler, got %d", resp.Code)
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q)=%q want %q", in, got, want)
		}
	}
}
