package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest represents the JSON payload for user registration
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Fullname string `json:"fullname"`
}

// RegisterResponse is the JSON response after successful registration.
// The password hash is never included.
type RegisterResponse struct {
	Message  string `json:"message"`
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// validateEmail checks if an email address is valid
func validateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// validatePassword checks password strength requirements
func validatePassword(password string) (bool, string) {
	if len(password) < 8 {
		return false, "Password must be at least 8 characters long"
	}
	if len(password) > 128 {
		return false, "Password must be less than 128 characters"
	}
	return true, ""
}

// hashPassword generates a bcrypt hash of the password
func hashPassword(password string) (string, error) {
	// bcrypt cost of 12 is a good balance of security and performance
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// verifyPassword compares a password with its hash
func verifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// registerHandler handles POST /register requests for user registration.
// Duplicate emails are caught twice: a pre-check read gives the common
// case a friendly path, and the unique index on email closes the race
// between two concurrent registrations (surfaced as ErrEmailTaken).
func (cfg Config) registerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Fullname = strings.TrimSpace(req.Fullname)
	req.Password = strings.TrimSpace(req.Password)

	if req.Email == "" || req.Password == "" || req.Fullname == "" {
		http.Error(w, "Email, password and fullname are required", http.StatusBadRequest)
		return
	}
	if !validateEmail(req.Email) {
		http.Error(w, "Invalid email address", http.StatusBadRequest)
		return
	}
	if valid, msg := validatePassword(req.Password); !valid {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// Pre-check for an existing account.
	if _, err := cfg.Users.FindByEmail(ctx, req.Email); err == nil {
		http.Error(w, "Email already registered", http.StatusConflict)
		return
	} else if !errors.Is(err, ErrUserNotFound) {
		log.Error().Err(err).Msg("register: existence check failed")
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("register: hash failed")
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	user := &UserAccount{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: passwordHash,
		FullName:     req.Fullname,
		CreatedAt:    time.Now().UTC(),
	}

	if err := cfg.Users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			// Lost the race against a concurrent registration.
			http.Error(w, "Email already registered", http.StatusConflict)
			return
		}
		log.Error().Err(err).Msg("register: insert failed")
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	log.Info().Str("email", user.Email).Msg("user registered")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(RegisterResponse{
		Message:  "Registration successful",
		Email:    user.Email,
		Fullname: user.FullName,
	})
}
