package api

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/antigravity-dev/foreman/internal/config"
)

func TestExtractToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"Bearer a b", ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := extractToken(req); got != tc.want {
			t.Errorf("extractToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestTruncateToken(t *testing.T) {
	if got := truncateToken("short"); got != "*****" {
		t.Errorf("short token = %q", got)
	}
	if got := truncateToken("abcdefghijkl"); got != "abcd****" {
		t.Errorf("long token = %q", got)
	}
}

func TestIsLocalRequest(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5000":   true,
		"[::1]:5000":       true,
		"192.168.1.9:5000": true,
		"203.0.113.7:5000": false,
		"not-an-addr":      false,
	}
	for addr, want := range cases {
		if got := isLocalRequest(addr); got != want {
			t.Errorf("isLocalRequest(%q) = %v, want %v", addr, got, want)
		}
	}
}

func TestAuditLogRecordsDecision(t *testing.T) {
	auditPath := filepath.Join(t.TempDir(), "audit.jsonl")
	cfg := &config.Serve{
		AuthEnabled:   true,
		AllowedTokens: []string{"secret"},
		AuditLog:      auditPath,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	am, err := NewAuthMiddleware(cfg, logger)
	if err != nil {
		t.Fatalf("NewAuthMiddleware failed: %v", err)
	}
	defer am.Close()

	handler := am.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/schedule", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	f, err := os.Open(auditPath)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("audit log is empty")
	}
	var event AuditEvent
	if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
		t.Fatalf("parse audit event: %v", err)
	}
	if event.Authorized {
		t.Error("event should record a denied request")
	}
	if event.Path != "/schedule" {
		t.Errorf("path = %q", event.Path)
	}
	if event.Token != "wron****" {
		t.Errorf("token = %q, want redacted prefix", event.Token)
	}
}
