package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBrowserRequest(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		accept string
		want   bool
	}{
		{
			name:   "api path is never a browser",
			path:   "/api/auth/login",
			accept: "text/html",
			want:   false,
		},
		{
			name:   "html accept header",
			path:   "/dashboard",
			accept: "text/html,application/xhtml+xml",
			want:   true,
		},
		{
			name:   "json accept header",
			path:   "/dashboard",
			accept: "application/json",
			want:   false,
		},
		{
			name: "missing accept header defaults to browser",
			path: "/dashboard",
			want: true,
		},
		{
			name:   "root path with html accept",
			path:   "/",
			accept: "text/html",
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			assert.Equal(t, tt.want, isBrowserRequest(req))
		})
	}
}

func TestBrowserDetectionSetsContext(t *testing.T) {
	var seen bool
	handler := BrowserDetection()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IsBrowserRequest(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "text/html")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, seen)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/whoami", nil)
	req.Header.Set("Accept", "text/html")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, seen)
}

func TestIsBrowserRequestWithoutMiddleware(t *testing.T) {
	// Falls back to direct detection when BrowserDetection never ran.
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "text/html")
	assert.True(t, IsBrowserRequest(req))

	req = httptest.NewRequest(http.MethodGet, "/api/users", nil)
	assert.False(t, IsBrowserRequest(req))
}
