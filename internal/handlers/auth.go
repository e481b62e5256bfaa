package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/authz"
	"github.com/whilber-ai/alert-engine/internal/config"
	"github.com/whilber-ai/alert-engine/internal/models"
	"github.com/whilber-ai/alert-engine/internal/repository"
)

type AuthHandler struct {
	subscribers repository.SubscriberRepository
	jwtSecret   string
	logger      zerolog.Logger
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewAuthHandler(db *sql.DB, cfg *config.Config, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		subscribers: repository.NewSubscriberRepository(db),
		jwtSecret:   cfg.JWTSecret,
		logger:      logger,
	}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	// Everyone starts on the free tier; upgrades only arrive through the
	// admin-gated billing hook.
	sub, err := h.subscribers.Create(r.Context(), req.Email, req.Password, models.PlanFree, models.RoleSubscriber)
	if err != nil {
		http.Error(w, "Failed to create subscriber: "+err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sub, err := h.subscribers.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub.ID,
		"role": string(sub.Role),
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	})
	tokenString, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": tokenString})
}

func (h *AuthHandler) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
			return
		}
		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !claims.VerifyExpiresAt(time.Now().Unix(), true) {
			http.Error(w, "Token expired", http.StatusUnauthorized)
			return
		}
		subscriberID, ok := claims["sub"].(string)
		if !ok || subscriberID == "" {
			http.Error(w, "Missing token claim", http.StatusUnauthorized)
			return
		}
		role := models.RoleSubscriber
		if raw, ok := claims["role"].(string); ok && models.IsValidRole(models.Role(raw)) {
			role = models.Role(raw)
		}
		ctx := authz.WithIdentity(r.Context(), subscriberID, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
