package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestOriginRefererCheckMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		method         string
		headers        map[string]string
		host           string
		expectedStatus int
	}{
		{"GET allowed", http.MethodGet, nil, "example.com", http.StatusOK},
		{"HEAD allowed", http.MethodHead, nil, "example.com", http.StatusOK},
		{"Origin matches", http.MethodPost, map[string]string{"Origin": "http://localhost:8080"}, "localhost:8080", http.StatusOK},
		{"Origin mismatch", http.MethodPost, map[string]string{"Origin": "https://evil.com"}, "example.com", http.StatusForbidden},
		{"Origin wins over Referer", http.MethodPost, map[string]string{"Origin": "https://evil.com", "Referer": "https://example.com/screen"}, "example.com", http.StatusForbidden},
		{"Referer matches", http.MethodPost, map[string]string{"Referer": "https://example.com/screen?JobHandle=x"}, "example.com", http.StatusOK},
		{"Referer mismatch", http.MethodPost, map[string]string{"Referer": "https://evil.com/page"}, "example.com", http.StatusForbidden},
		{"Unparseable Origin", http.MethodPost, map[string]string{"Origin": "http://[::1"}, "example.com", http.StatusForbidden},
		{"Neither header", http.MethodPost, nil, "example.com", http.StatusForbidden},
		{"Case insensitive host", http.MethodPost, map[string]string{"Origin": "https://EXAMPLE.COM"}, "example.com", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(OriginRefererCheckMiddleware())
			r.Any("/", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/", nil)
			req.Host = tt.host
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeadersMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, h := range []string{"X-Frame-Options", "X-Content-Type-Options", "Referrer-Policy", "Content-Security-Policy"} {
		if w.Header().Get(h) == "" {
			t.Errorf("header %s missing", h)
		}
	}
}

func TestIsSafeMethod(t *testing.T) {
	for _, m := range []string{"GET", "HEAD", "OPTIONS", "TRACE"} {
		if !isSafeMethod(m) {
			t.Errorf("isSafeMethod(%q) = false, want true", m)
		}
	}
	for _, m := range []string{"POST", "PUT", "DELETE", "PATCH", "CONNECT"} {
		if isSafeMethod(m) {
			t.Errorf("isSafeMethod(%q) = true, want false", m)
		}
	}
}
