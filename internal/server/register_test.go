package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func postJSON(t *testing.T, handler http.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestRegisterHandler_Success(t *testing.T) {
	users := newFakeUserStore()
	cfg := Config{Users: users}

	rr := postJSON(t, cfg.registerHandler, "/register", map[string]string{
		"email":    "alice@example.com",
		"password": "correct horse",
		"fullname": "Alice Example",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp RegisterResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Email != "alice@example.com" || resp.Fullname != "Alice Example" {
		t.Errorf("unexpected response fields: %+v", resp)
	}

	stored, err := users.FindByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("account not persisted: %v", err)
	}
	if stored.PasswordHash == "correct horse" {
		t.Error("password stored in the clear")
	}
	if !verifyPassword("correct horse", stored.PasswordHash) {
		t.Error("stored hash does not verify against the password")
	}
}

func TestRegisterHandler_NeverReturnsHash(t *testing.T) {
	cfg := Config{Users: newFakeUserStore()}

	rr := postJSON(t, cfg.registerHandler, "/register", map[string]string{
		"email":    "bob@example.com",
		"password": "hunter2hunter2",
		"fullname": "Bob",
	})

	if strings.Contains(rr.Body.String(), "$2a$") || strings.Contains(rr.Body.String(), "hash") {
		t.Errorf("response leaks hash material: %s", rr.Body.String())
	}
}

func TestRegisterHandler_Validation(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]string
	}{
		{"missing email", map[string]string{"password": "longenough1", "fullname": "X"}},
		{"missing password", map[string]string{"email": "a@b.co", "fullname": "X"}},
		{"missing fullname", map[string]string{"email": "a@b.co", "password": "longenough"}},
		{"malformed email", map[string]string{"email": "not-an-email", "password": "longenough", "fullname": "X"}},
		{"no tld", map[string]string{"email": "a@b", "password": "longenough", "fullname": "X"}},
		{"short password", map[string]string{"email": "a@b.co", "password": "short", "fullname": "X"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Users: newFakeUserStore()}
			rr := postJSON(t, cfg.registerHandler, "/register", tt.payload)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestRegisterHandler_DuplicateEmail(t *testing.T) {
	users := newFakeUserStore()
	cfg := Config{Users: users}

	payload := map[string]string{
		"email":    "carol@example.com",
		"password": "a fine password",
		"fullname": "Carol",
	}

	if rr := postJSON(t, cfg.registerHandler, "/register", payload); rr.Code != http.StatusCreated {
		t.Fatalf("first registration failed: %d", rr.Code)
	}
	rr := postJSON(t, cfg.registerHandler, "/register", payload)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rr.Code)
	}

	if len(users.users) != 1 {
		t.Errorf("expected exactly one account, got %d", len(users.users))
	}
}

func TestRegisterHandler_EmailNormalised(t *testing.T) {
	users := newFakeUserStore()
	cfg := Config{Users: users}

	rr := postJSON(t, cfg.registerHandler, "/register", map[string]string{
		"email":    "  Dave@Example.COM ",
		"password": "a fine password",
		"fullname": "Dave",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}

	if _, err := users.FindByEmail(context.Background(), "dave@example.com"); err != nil {
		t.Error("email was not lowercased and trimmed before storage")
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b.co", "first.last@sub.domain.org", "x+tag@y.io"}
	invalid := []string{"", "plain", "@no-local.com", "no-domain@", "a@b", "spaces in@x.com"}

	for _, e := range valid {
		if !validateEmail(e) {
			t.Errorf("expected %q to be valid", e)
		}
	}
	for _, e := range invalid {
		if validateEmail(e) {
			t.Errorf("expected %q to be invalid", e)
		}
	}
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := hashPassword("s3cret-enough")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !verifyPassword("s3cret-enough", hash) {
		t.Error("correct password did not verify")
	}
	if verifyPassword("wrong password", hash) {
		t.Error("wrong password verified")
	}
}
