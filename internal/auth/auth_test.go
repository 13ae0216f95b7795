package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ai-speech-proxy-service/internal/apperrs"
	"ai-speech-proxy-service/internal/audit"
)

func testClients() []ClientPolicy {
	return []ClientPolicy{
		{ClientID: "felix_test", APIKey: "sk-1234felix", SaveRecordings: true, AllowCloud: true},
		{ClientID: "alice456", APIKey: "sk-client-alice456", SaveRecordings: true, AllowCloud: false},
		{ClientID: "charlie789", APIKey: "sk-client-charlie789", SaveRecordings: false, AllowCloud: true},
	}
}

func TestAuthenticate_ValidTokens(t *testing.T) {
	r := NewRegistry(testClients(), nil)

	for _, want := range testClients() {
		t.Run(want.ClientID, func(t *testing.T) {
			got, err := r.Authenticate(want.APIKey)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ClientID != want.ClientID {
				t.Errorf("expected client %q, got %q", want.ClientID, got.ClientID)
			}
			if got.SaveRecordings != want.SaveRecordings {
				t.Errorf("save_recordings mismatch for %s", want.ClientID)
			}
			if got.AllowCloud != want.AllowCloud {
				t.Errorf("allow_cloud mismatch for %s", want.ClientID)
			}
		})
	}
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	r := NewRegistry(testClients(), nil)

	tests := []string{
		"",
		"sk-unknown",
		"sk-1234feli",         // prefix of a valid key
		"sk-1234felixx",       // valid key plus a suffix
		"SK-1234FELIX",        // case differs
		" sk-1234felix",       // leading space
		"sk-client-alice456 ", // trailing space
	}
	for _, token := range tests {
		t.Run("token="+token, func(t *testing.T) {
			policy, err := r.Authenticate(token)
			if policy != nil {
				t.Error("no policy may be returned for an invalid token")
			}
			var appErr *apperrs.AppError
			if !errors.As(err, &appErr) || appErr.Code != apperrs.CodeInvalidCredential {
				t.Errorf("expected invalid credential error, got %v", err)
			}
		})
	}
}

func TestAuthenticate_AuditsTruncatedPrefix(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "audit.log")
	r := NewRegistry(testClients(), audit.New(logPath))

	secret := "sk-very-long-secret-token-value"
	if _, err := r.Authenticate(secret); err == nil {
		t.Fatal("expected an error")
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("audit file not written: %v", err)
	}
	entry := string(data)
	if !strings.Contains(entry, "[unknown]") {
		t.Errorf("expected unknown client tag, got %q", entry)
	}
	if !strings.Contains(entry, secret[:8]) {
		t.Errorf("expected truncated prefix in audit entry, got %q", entry)
	}
	if strings.Contains(entry, secret) {
		t.Error("the full secret must never appear in the audit log")
	}
}

func TestRegistry_Len(t *testing.T) {
	r := NewRegistry(testClients(), nil)
	if r.Len() != 3 {
		t.Errorf("expected 3 clients, got %d", r.Len())
	}
}
