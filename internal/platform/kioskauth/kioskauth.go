// Package kioskauth issues and validates the bearer tokens kiosks present to
// the checkpoint API.
package kioskauth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "ballotgate/pkg/domain-errors"
)

const audience = "ballotgate-checkpoint"

// Claims are the JWT claims carried by kiosk tokens.
type Claims struct {
	KioskID string `json:"kiosk_id"`
	jwt.RegisteredClaims
}

// Service signs and validates HS256 kiosk tokens.
type Service struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

func New(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer, now: time.Now}
}

// Issue mints a token for kioskID valid for ttl.
func (s *Service) Issue(kioskID string, ttl time.Duration) (string, error) {
	if kioskID == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "kiosk id is required")
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		KioskID: kioskID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   kioskID,
			Issuer:    s.issuer,
			Audience:  []string{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateKioskToken satisfies middleware.KioskValidator.
func (s *Service) ValidateKioskToken(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.KioskID == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims.KioskID, nil
}
