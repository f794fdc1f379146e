package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avery-hart/librarysysbackend/config"
	"github.com/avery-hart/librarysysbackend/repository"
)

const tokenIssuer = "librarysysbackend"

type AuthHandler struct {
	UserRepo repository.UserRepository
	Cfg      config.Config
}

func NewAuthHandler(userRepo repository.UserRepository, cfg config.Config) *AuthHandler {
	return &AuthHandler{UserRepo: userRepo, Cfg: cfg}
}

type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// CreateAccessToken signs an HS256 access token whose subject is the user ID.
func CreateAccessToken(userID string, cfg config.Config) (string, error) {
	now := time.Now()
	claims := &jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.JWTExpiryHours) * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    tokenIssuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// LoginAccessToken exchanges email and password for a bearer token.
func (h *AuthHandler) LoginAccessToken(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request payload")
		return
	}

	email, err := validateEmail(payload.Email)
	if err != nil {
		WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
		return
	}

	user, err := h.UserRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			WriteAPIError(w, http.StatusUnauthorized, ErrCodeAuthenticationFailed, "Incorrect email or password")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to authenticate")
		}
		return
	}
	if !user.CheckPassword(payload.Password) {
		WriteAPIError(w, http.StatusUnauthorized, ErrCodeAuthenticationFailed, "Incorrect email or password")
		return
	}
	if !user.IsActive {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeInactiveUser, "Inactive user")
		return
	}

	tokenString, err := CreateAccessToken(user.ID, h.Cfg)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: tokenString, TokenType: "bearer"})
}

// TestToken returns the user the presented token resolves to. It is useful
// as a cheap probe for token validity.
func (h *AuthHandler) TestToken(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "User not found in context")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}
