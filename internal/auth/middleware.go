// Package auth guards the API with a single shared bearer token whose
// bcrypt hash is configured through API_TOKEN_HASH.
package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingToken = errors.New("missing authorization header")
	ErrMalformed    = errors.New("invalid authorization header format")
	ErrInvalidToken = errors.New("invalid api token")
)

// Service verifies bearer tokens against a bcrypt hash. The zero hash
// disables authentication.
type Service struct {
	tokenHash []byte
}

// NewService creates an auth service. An empty hash allows every request.
func NewService(tokenHash string) *Service {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		log.Warn().Msg("API_TOKEN_HASH not set, API authentication disabled")
		return &Service{}
	}
	return &Service{tokenHash: []byte(tokenHash)}
}

// Enabled reports whether requests must carry a token.
func (s *Service) Enabled() bool {
	return len(s.tokenHash) > 0
}

// ValidateToken checks a plain token against the configured hash.
func (s *Service) ValidateToken(token string) error {
	if !s.Enabled() {
		return nil
	}
	if token == "" {
		return ErrMissingToken
	}
	if err := bcrypt.CompareHashAndPassword(s.tokenHash, []byte(token)); err != nil {
		return ErrInvalidToken
	}
	return nil
}

// Authorize validates the Authorization header of r.
func (s *Service) Authorize(r *http.Request) error {
	if !s.Enabled() {
		return nil
	}
	token, err := BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return err
	}
	return s.ValidateToken(token)
}

// Middleware rejects requests without a valid bearer token with 401.
func (s *Service) Middleware(next http.Handler) http.Handler {
	if !s.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.Authorize(r); err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected request")
			writeJSONError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", ErrMalformed
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// HashToken returns the bcrypt hash to put in API_TOKEN_HASH.
func HashToken(token string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
