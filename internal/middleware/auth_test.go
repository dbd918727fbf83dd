package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditlog/internal/httputil"
	"github.com/persistorai/auditlog/internal/middleware"
	"github.com/persistorai/auditlog/internal/models"
	"github.com/persistorai/auditlog/internal/security"
)

const (
	goodKey  = "comp001-key-aaaaaaaaaaaa"
	otherKey = "comp002-key-bbbbbbbbbbbb"
)

func testKeyRing() *security.KeyRing {
	return security.NewKeyRing(map[string]string{"COMP001": goodKey, "COMP002": otherKey})
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// newAuthRouter mounts TenantAuth in front of handlers that echo the tenant
// and, for POST, re-bind the cached body.
func newAuthRouter(guard *security.BruteForceGuard) *gin.Engine {
	r := gin.New()
	r.Use(middleware.TenantAuth(testKeyRing(), guard, quietLogger()))
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(httputil.TenantIDKey))
	})
	r.POST("/test", func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindBodyWithJSON(&req); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, "%s:%d", c.GetString(httputil.TenantIDKey), len(req.Logs))
	})
	return r
}

func serve(r http.Handler, method, target, key, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, http.NoBody)
	}
	if key != "" {
		req.Header.Set(middleware.APIKeyHeader, key)
	}
	req.RemoteAddr = "10.1.1.1:5000"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTenantAuth_Reads(t *testing.T) {
	r := newAuthRouter(nil)

	tests := []struct {
		name     string
		target   string
		key      string
		wantCode int
		wantErr  string
	}{
		{"valid key", "/test?comp_code=COMP001", goodKey, http.StatusOK, ""},
		{"trimmed tenant", "/test?comp_code=%20COMP001%20", goodKey, http.StatusOK, ""},
		{"missing key", "/test?comp_code=COMP001", "", http.StatusUnauthorized, "unauthorized"},
		{"missing tenant", "/test", goodKey, http.StatusBadRequest, "missing_tenant"},
		{"another tenant's key", "/test?comp_code=COMP001", otherKey, http.StatusUnauthorized, "unauthorized"},
		{"unknown tenant", "/test?comp_code=NOPE", goodKey, http.StatusUnauthorized, "unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, tt.target, tt.key, "")

			if w.Code != tt.wantCode {
				t.Fatalf("got %d, want %d (%s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantCode == http.StatusOK && w.Body.String() != "COMP001" {
				t.Errorf("tenant = %q, want COMP001", w.Body.String())
			}
			if tt.wantErr != "" {
				var resp httputil.ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("invalid JSON: %v", err)
				}
				if resp.Code != tt.wantErr {
					t.Errorf("code = %q, want %q", resp.Code, tt.wantErr)
				}
			}
		})
	}
}

func TestTenantAuth_Writes(t *testing.T) {
	r := newAuthRouter(nil)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
	}{
		{"valid batch", `{"logs":[{"comp_code":"COMP001","source_app":"HR","action":"A"},{"comp_code":"COMP001","source_app":"HR","action":"B"}]}`, http.StatusOK, "COMP001:2"},
		{"missing comp_code", `{"logs":[{"source_app":"HR","action":"A"}]}`, http.StatusBadRequest, ""},
		{"mixed tenants", `{"logs":[{"comp_code":"COMP001","source_app":"HR","action":"A"},{"comp_code":"COMP002","source_app":"HR","action":"A"}]}`, http.StatusBadRequest, ""},
		{"empty batch", `{"logs":[]}`, http.StatusBadRequest, ""},
		{"malformed JSON", `{"logs":`, http.StatusBadRequest, ""},
		{"foreign tenant", `{"logs":[{"comp_code":"COMP002","source_app":"HR","action":"A"}]}`, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, http.MethodPost, "/test", goodKey, tt.body)

			if w.Code != tt.wantCode {
				t.Fatalf("got %d, want %d (%s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestTenantAuth_LocksOutRepeatedFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	guard := security.NewBruteForceGuard(ctx, security.LockoutPolicy{
		MaxAttempts: 2, Window: time.Minute, Lockout: time.Minute,
	}, quietLogger())
	r := newAuthRouter(guard)

	for range 2 {
		if w := serve(r, http.MethodGet, "/test?comp_code=COMP001", "wrong-key", ""); w.Code != http.StatusUnauthorized {
			t.Fatalf("got %d, want 401", w.Code)
		}
	}

	// Locked out even with the right key.
	if w := serve(r, http.MethodGet, "/test?comp_code=COMP001", goodKey, ""); w.Code != http.StatusTooManyRequests {
		t.Fatalf("got %d, want 429", w.Code)
	}
}

func TestTenantAuth_TimingFloorOnRejection(t *testing.T) {
	r := newAuthRouter(nil)

	start := time.Now()
	w := serve(r, http.MethodGet, "/test?comp_code=COMP001", "wrong-key", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want 401", w.Code)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("rejection took %s, want at least 50ms", elapsed)
	}
}
