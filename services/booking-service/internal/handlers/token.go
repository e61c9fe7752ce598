package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/glowstudio/studio/libs/auth"
	"golang.org/x/crypto/bcrypt"
)

type TokenHandler struct {
	email        string
	passwordHash []byte
	secret       string
	ttl          time.Duration
	logger       *slog.Logger
}

type TokenConfig struct {
	AdminEmail        string
	AdminPasswordHash string
	JWTSecret         string
	TTL               time.Duration
}

func NewTokenHandler(cfg TokenConfig, logger *slog.Logger) *TokenHandler {
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	return &TokenHandler{
		email:        strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		passwordHash: []byte(strings.TrimSpace(cfg.AdminPasswordHash)),
		secret:       cfg.JWTSecret,
		ttl:          cfg.TTL,
		logger:       logger,
	}
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Issue exchanges the admin credentials for a short-lived bearer token.
func (h *TokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if h.email == "" || len(h.passwordHash) == 0 || h.secret == "" {
		http.Error(w, "admin login not configured", http.StatusServiceUnavailable)
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		http.Error(w, "email and password required", http.StatusBadRequest)
		return
	}

	// Compared unconditionally: both failure paths pay the bcrypt cost.
	pwErr := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password))
	if email != h.email || pwErr != nil {
		h.logger.Warn("admin login rejected")
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.Issue(h.email, auth.RoleAdmin, h.ttl, h.secret)
	if err != nil {
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.ttl.Seconds()),
	})
}
