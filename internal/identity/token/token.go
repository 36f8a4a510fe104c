// Package token issues and validates the HS256 access tokens that carry a
// caller's identity between requests.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "github.com/sou1357/bloodbankapp/pkg/domain-errors"
	"github.com/sou1357/bloodbankapp/pkg/domain"
)

// Claims carries the authenticated identity inside the JWT.
type Claims struct {
	Role             string `json:"role"`
	OrganizationKind string `json:"organization_kind,omitempty"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewService(signingKey string, ttl time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     "bloodbankapp",
		ttl:        ttl,
	}
}

// Generate signs a token for the given identity.
func (s *Service) Generate(caller domain.Identity) (string, error) {
	now := time.Now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             caller.Role.String(),
		OrganizationKind: caller.OrganizationKind.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	return newToken.SignedString(s.signingKey)
}

// ValidateToken parses and verifies a token, returning the identity it proves.
// Implements middleware.TokenValidator.
func (s *Service) ValidateToken(tokenString string) (domain.Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return domain.Identity{
		ID:               claims.Subject,
		Role:             domain.Role(claims.Role),
		OrganizationKind: domain.OrganizationKind(claims.OrganizationKind),
	}, nil
}
