package admin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireAdminToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	cases := []struct {
		name     string
		expected string
		header   string
		want     int
	}{
		{"match", "s3cret", "s3cret", http.StatusNoContent},
		{"mismatch", "s3cret", "nope", http.StatusUnauthorized},
		{"prefix only", "s3cret", "s3c", http.StatusUnauthorized},
		{"missing", "s3cret", "", http.StatusUnauthorized},
		{"disabled when unconfigured", "", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/admin/audit/recent", nil)
			if tc.header != "" {
				r.Header.Set(HeaderAdminToken, tc.header)
			}
			w := httptest.NewRecorder()
			RequireAdminToken(tc.expected, nil)(ok).ServeHTTP(w, r)
			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), `"error":"unauthorized"`)
			}
		})
	}
}
