package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rajtan/qtoggleserver"
)

// TestLoadWebhookParamsFromFile verifies the YAML file path.
func TestLoadWebhookParamsFromFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "webhooks.yaml")
	content := `enabled: true
scheme: https
host: hub.example.com
port: 8443
path: /hooks
timeout: 5
retries: 3
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write params file: %v", err)
	}

	webhooksFile = file
	defer func() { webhooksFile = "" }()

	params, err := loadWebhookParams(webhooksSetCmd)
	if err != nil {
		t.Fatalf("loadWebhookParams failed: %v", err)
	}

	want := qtoggleserver.WebhookParams{
		Enabled: true,
		Scheme:  "https",
		Host:    "hub.example.com",
		Port:    8443,
		Path:    "/hooks",
		Timeout: 5,
		Retries: 3,
	}
	if *params != want {
		t.Errorf("loadWebhookParams() = %+v, want %+v", *params, want)
	}
}

// TestLoadWebhookParamsFromJSONFile verifies that JSON payloads decode too.
func TestLoadWebhookParamsFromJSONFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "webhooks.json")
	content := `{"enabled": false, "scheme": "http", "host": "192.168.1.50", "port": 8080, "path": "/qtoggle", "timeout": 10, "retries": 1}`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write params file: %v", err)
	}

	webhooksFile = file
	defer func() { webhooksFile = "" }()

	params, err := loadWebhookParams(webhooksSetCmd)
	if err != nil {
		t.Fatalf("loadWebhookParams failed: %v", err)
	}

	if params.Host != "192.168.1.50" || params.Port != 8080 {
		t.Errorf("loadWebhookParams() = %+v", *params)
	}
}

// TestLoadWebhookParamsBadFile verifies the error paths.
func TestLoadWebhookParamsBadFile(t *testing.T) {
	webhooksFile = filepath.Join(t.TempDir(), "missing.yaml")
	defer func() { webhooksFile = "" }()

	if _, err := loadWebhookParams(webhooksSetCmd); err == nil {
		t.Error("Expected an error for a missing file")
	}

	file := filepath.Join(t.TempDir(), "invalid.yaml")
	if err := os.WriteFile(file, []byte("{not yaml: ["), 0o644); err != nil {
		t.Fatalf("Failed to write params file: %v", err)
	}
	webhooksFile = file

	if _, err := loadWebhookParams(webhooksSetCmd); err == nil {
		t.Error("Expected an error for an invalid file")
	}
}
