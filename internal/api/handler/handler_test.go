package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
)

func TestWriteError(t *testing.T) {
	h := New(Deps{})
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"client error", apperrors.New(apperrors.ErrInvalidQuery, http.StatusBadRequest, "searchText is required"), http.StatusBadRequest, "searchText is required"},
		{"app server error", apperrors.New(apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable, "restaurant store unavailable"), http.StatusServiceUnavailable, "restaurant store unavailable"},
		{"plain error hides detail", errors.New("dial tcp 10.0.0.1:5432: connection refused"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["error"] != tt.message {
				t.Errorf("message = %q, want %q", body["error"], tt.message)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	var v struct{ Name string }
	rec := httptest.NewRecorder()

	err := decode(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &v)
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("empty body: err = %v, want ErrInvalidInput", err)
	}
	err = decode(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Name":`)), &v)
	if apperrors.HTTPStatusCode(err) != http.StatusBadRequest {
		t.Errorf("truncated body: status = %d, want 400", apperrors.HTTPStatusCode(err))
	}
	if err := decode(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Name":"x"}`)), &v); err != nil || v.Name != "x" {
		t.Errorf("valid body: err = %v, name = %q", err, v.Name)
	}
}

func TestPointFromHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("latitude", " 12.5 ")
	req.Header.Set("longitude", "77.25")
	p, err := pointFromHeaders(req)
	if err != nil {
		t.Fatal(err)
	}
	if p.Latitude != 12.5 || p.Longitude != 77.25 {
		t.Errorf("point = %+v", p)
	}

	req.Header.Del("longitude")
	if _, err := pointFromHeaders(req); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("missing longitude: err = %v", err)
	}
}

func TestBoolParam(t *testing.T) {
	for target, want := range map[string]bool{
		"/?onlyActive=true": true,
		"/?onlyActive=1":    true,
		"/?onlyActive=no":   false,
		"/":                 false,
	} {
		if got := boolParam(httptest.NewRequest(http.MethodGet, target, nil), "onlyActive"); got != want {
			t.Errorf("%s: got %v, want %v", target, got, want)
		}
	}
}
