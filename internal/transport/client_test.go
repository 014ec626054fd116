package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	pkgerrors "github.com/rajtan/qtoggleserver/pkg/errors"
)

// TestNew tests base URL validation.
func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"http URL", "http://qtoggle.local:8888", false},
		{"https URL", "https://qtoggle.example.com", false},
		{"trailing slash stripped", "http://qtoggle.local/", false},
		{"missing scheme", "qtoggle.local", true},
		{"unsupported scheme", "ftp://qtoggle.local", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(tc.baseURL, nil)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got client %v", tc.baseURL, c)
				}
				if !errors.Is(err, pkgerrors.ErrInvalidInput) {
					t.Errorf("Expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
		})
	}
}

// TestClientGet tests path resolution and query encoding.
func TestClientGet(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		if accept := r.Header.Get("Accept"); accept != "application/json" {
			t.Errorf("Expected Accept application/json, got %q", accept)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c, err := New(server.URL, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	query := url.Values{}
	query.Set("session_id", "qtoggle-test")
	query.Set("timeout", "1")

	resp, err := c.Get(context.Background(), "/listen", query)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	_ = resp.Body.Close()

	if gotPath != "/listen" {
		t.Errorf("Expected path /listen, got %q", gotPath)
	}
	parsed, _ := url.ParseQuery(gotQuery)
	if parsed.Get("session_id") != "qtoggle-test" {
		t.Errorf("Expected session_id query param, got %q", gotQuery)
	}
	if parsed.Get("timeout") != "1" {
		t.Errorf("Expected timeout query param, got %q", gotQuery)
	}
}

// TestClientPatch tests JSON body encoding and content type.
func TestClientPatch(t *testing.T) {
	var gotMethod, gotContentType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c, err := New(server.URL, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	body := map[string]any{"enabled": true, "port": 8080}
	if err := c.PatchJSON(context.Background(), "/webhooks", body, nil); err != nil {
		t.Fatalf("PatchJSON: %v", err)
	}

	if gotMethod != http.MethodPatch {
		t.Errorf("Expected PATCH, got %s", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Errorf("Expected JSON content type, got %q", gotContentType)
	}

	var decoded map[string]any
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("Request body is not JSON: %v", err)
	}
	if decoded["enabled"] != true {
		t.Errorf("Expected enabled=true in body, got %v", decoded)
	}
}

// TestClientContextCancellation tests that requests honor context deadlines.
func TestClientContextCancellation(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	c, err := New(server.URL, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Get(ctx, "/listen", nil)
	if err == nil {
		t.Fatal("Expected error from canceled context")
	}

	var apiErr *pkgerrors.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("Expected APIError wrapper, got %T: %v", err, err)
	}
}

// TestBaseURL tests that the base path is preserved when resolving requests.
func TestBaseURL(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c, err := New(server.URL+"/api/v1/", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := c.Get(context.Background(), "/webhooks", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	_ = resp.Body.Close()

	if gotPath != "/api/v1/webhooks" {
		t.Errorf("Expected path /api/v1/webhooks, got %q", gotPath)
	}
}
