package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/arhamfareed106/Social-Network-Platform/internal/core"
)

// ErrMissingToken is returned when a request carries no bearer token.
var ErrMissingToken = errors.New("missing token")

// Service turns bearer tokens into principals. Users and passwords live with the
// external identity provider; this service only verifies what it signed.
type Service struct {
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(jwtConfig *JWTConfig) *Service {
	return &Service{jwtConfig: jwtConfig}
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// IssueToken mints a token for subject. ttl overrides the configured lifetime when positive.
func (s *Service) IssueToken(subject, name string, ttl time.Duration) (string, error) {
	cfg := *s.jwtConfig
	if ttl > 0 {
		cfg.TTL = ttl
	}
	return GenerateToken(&cfg, strings.TrimSpace(subject), strings.TrimSpace(name))
}

// Principal resolves a token to a principal. An invalid or empty token yields
// an unauthenticated principal together with the reason.
func (s *Service) Principal(tokenString string) (core.Principal, error) {
	if tokenString == "" {
		return core.Principal{}, ErrMissingToken
	}
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return core.Principal{}, err
	}
	return PrincipalFromClaims(claims), nil
}

// PrincipalFromClaims builds an authenticated principal from validated claims.
func PrincipalFromClaims(claims *Claims) core.Principal {
	name := claims.Name
	if name == "" {
		name = claims.Subject
	}
	return core.Principal{
		UserID:        claims.Subject,
		Username:      name,
		Authenticated: true,
	}
}
