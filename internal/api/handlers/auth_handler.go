package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

// AuthHandler exchanges client credentials for a bearer token.
type AuthHandler struct {
	clientID   string
	secretHash []byte
	jwtSecret  []byte
	now        func() time.Time
}

func NewAuthHandler(clientID, clientSecretHash, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		clientID:   clientID,
		secretHash: []byte(clientSecretHash),
		jwtSecret:  []byte(jwtSecret),
		now:        time.Now,
	}
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body", Kind: "invalid_request"})
		return
	}

	idOK := subtle.ConstantTimeCompare([]byte(req.ClientID), []byte(h.clientID)) == 1
	if !idOK || bcrypt.CompareHashAndPassword(h.secretHash, []byte(req.ClientSecret)) != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials", Kind: "unauthorized"})
		return
	}

	token, err := h.generateJWT(req.ClientID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not sign token", Kind: "internal"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// generateJWT creates a signed token with the client ID as subject.
func (h *AuthHandler) generateJWT(clientID string) (string, error) {
	now := h.now()
	claims := jwt.RegisteredClaims{
		Subject:   clientID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
}
