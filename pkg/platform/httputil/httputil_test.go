package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "dcaf/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})

	t.Run("uncoded error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "boom")
	})

	t.Run("secure login failure hides upstream detail", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Wrap(errors.New("dial tcp 10.0.0.3:443"), dErrors.CodeSecureLoginFailed, "secure login failed"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "secure_login_failed")
		assert.NotContains(t, w.Body.String(), "10.0.0.3")
	})
}

func TestStatusFor(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeValidation:                http.StatusBadRequest,
		dErrors.CodeUnauthorized:              http.StatusUnauthorized,
		dErrors.CodeChallengeReused:           http.StatusConflict,
		dErrors.CodeIncompleteConfidenceInput: http.StatusUnprocessableEntity,
		dErrors.CodeProfileUnavailable:        http.StatusBadGateway,
		dErrors.CodeSecureLoginFailed:         http.StatusInternalServerError,
		dErrors.CodeTimeout:                   http.StatusGatewayTimeout,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusFor(code), string(code))
	}
}

type sampleRequest struct {
	Name string `json:"name"`
}

func (r *sampleRequest) Normalize() { r.Name = strings.TrimSpace(r.Name) }

func (r *sampleRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	decode := func(body string) (*sampleRequest, *httptest.ResponseRecorder, bool) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req, ok := DecodeAndPrepare[sampleRequest](w, r, nil, r.Context(), "req-1")
		return req, w, ok
	}

	t.Run("normalizes then validates", func(t *testing.T) {
		req, _, ok := decode(`{"name":"  phillip  "}`)
		require.True(t, ok)
		assert.Equal(t, "phillip", req.Name)
	})

	t.Run("validation error", func(t *testing.T) {
		_, w, ok := decode(`{"name":"   "}`)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "validation_error")
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, w, ok := decode(`{"name":`)
		require.False(t, ok)
		assert.Contains(t, w.Body.String(), "bad_request")
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		_, w, ok := decode(`{"name":"x","admin":true}`)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		_, w, ok := decode(``)
		require.False(t, ok)
		assert.Contains(t, w.Body.String(), "request body is required")
	})
}
