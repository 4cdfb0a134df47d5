package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// LoginRequest represents the JSON payload for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the JSON response after successful login
type LoginResponse struct {
	Message string    `json:"message"`
	User    loginUser `json:"user"`
}

type loginUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
}

// invalidCredentials is the single message returned for both an unknown
// email and a wrong password, so responses carry no enumeration signal.
const invalidCredentials = "Invalid email or password"

// loginHandler handles POST /login. It verifies the submitted password
// against the stored bcrypt hash and returns the account's identity
// fields. No session or token is issued.
func (cfg Config) loginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Password = strings.TrimSpace(req.Password)

	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}
	if !validateEmail(req.Email) {
		http.Error(w, "Invalid email address", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user, err := cfg.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, invalidCredentials, http.StatusUnauthorized)
			return
		}
		log.Error().Err(err).Msg("login: lookup failed")
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	if !verifyPassword(req.Password, user.PasswordHash) {
		http.Error(w, invalidCredentials, http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(LoginResponse{
		Message: "Login successful",
		User: loginUser{
			ID:       user.ID.String(),
			Email:    user.Email,
			Fullname: user.FullName,
		},
	})
}
