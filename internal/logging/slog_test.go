package logging

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestWithHelpers(t *testing.T) {
	logger := slog.Default()
	if WithTool(logger, "graph_get_profile") == nil {
		t.Error("WithTool returned nil")
	}
	if WithService(logger, "graph") == nil {
		t.Error("WithService returned nil")
	}
}

func TestStringAttrs(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"operation", Operation("graph.calendar_view"), KeyOperation, "graph.calendar_view"},
		{"tool", Tool("graph_create_event"), KeyTool, "graph_create_event"},
		{"status", Status(StatusSuccess), KeyStatus, StatusSuccess},
		{"scopes", Scopes([]string{"User.Read", "Calendars.ReadWrite"}), KeyScopes, "User.Read,Calendars.ReadWrite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if tt.attr.Value.String() != tt.wantVal {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
			}
		})
	}
}

func TestStatusCodeAttr(t *testing.T) {
	attr := StatusCode(404)
	if attr.Key != KeyStatusCode || attr.Value.Int64() != 404 {
		t.Errorf("StatusCode(404) = %v", attr)
	}
}

func TestDurationAttr(t *testing.T) {
	attr := Duration(1500 * time.Millisecond)
	if attr.Key != KeyDuration || attr.Value.Duration() != 1500*time.Millisecond {
		t.Errorf("Duration attr = %v", attr)
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("test error"))
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "test error" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "test error")
	}

	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestAnonymizeUser(t *testing.T) {
	tests := []struct {
		userID   string
		wantLen  int
		hasValue bool
	}{
		{"adele@contoso.com", 21, true},
		{"00000000-0000-0000-66f3-3332eca7ea81.9188040d-6c67-4c5b-b112-36a304b66dad", 21, true},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.userID, func(t *testing.T) {
			result := AnonymizeUser(tt.userID)
			if tt.hasValue {
				if len(result) != tt.wantLen {
					t.Errorf("AnonymizeUser(%q) length = %d, want %d", tt.userID, len(result), tt.wantLen)
				}
				if result[:5] != "user:" {
					t.Errorf("AnonymizeUser(%q) should start with 'user:', got %q", tt.userID, result)
				}
			} else if result != "" {
				t.Errorf("AnonymizeUser(%q) = %q, want empty string", tt.userID, result)
			}
		})
	}

	if AnonymizeUser("a@contoso.com") != AnonymizeUser("a@contoso.com") {
		t.Error("AnonymizeUser should be deterministic")
	}
	if AnonymizeUser("a@contoso.com") == AnonymizeUser("b@contoso.com") {
		t.Error("different users should produce different hashes")
	}
}

func TestUserHash(t *testing.T) {
	attr := UserHash("adele@contoso.com")
	if attr.Key != KeyUserHash {
		t.Errorf("UserHash key = %q, want %q", attr.Key, KeyUserHash)
	}
	if len(attr.Value.String()) != 21 {
		t.Errorf("UserHash value length = %d, want 21", len(attr.Value.String()))
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[token:6 chars]"},
		{"eyJ0eXAiOiJKV1QiLCJub25jZSI6", "[token:28 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.expected {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.expected)
			}
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		upn      string
		expected string
	}{
		{"adele@contoso.onmicrosoft.com", "contoso.onmicrosoft.com"},
		{"invalid", ""},
		{"", ""},
		{"@", ""},
		{"user@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.upn, func(t *testing.T) {
			if got := ExtractDomain(tt.upn); got != tt.expected {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tt.upn, got, tt.expected)
			}
		})
	}
}

func TestDomain(t *testing.T) {
	attr := Domain("adele@contoso.com")
	if attr.Key != "user_domain" || attr.Value.String() != "contoso.com" {
		t.Errorf("Domain attr = %v", attr)
	}
}
