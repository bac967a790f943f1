package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yourname/skilltracker/internal"
)

// Provider issues and verifies the bearer tokens that carry the owner id.
// The rest of the system only ever sees the verified owner id.
type Provider interface {
	IssueToken(userID string) (string, error)
	ValidateToken(token string) (string, error)
}

type JWTProvider struct {
	secret []byte
	ttl    time.Duration
	logger internal.Logger
}

func NewJWTProvider(secret string, ttl time.Duration, logger internal.Logger) *JWTProvider {
	return &JWTProvider{secret: []byte(secret), ttl: ttl, logger: logger}
}

func (p *JWTProvider) IssueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *JWTProvider) ValidateToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	})
	if err != nil {
		p.logger.Warnf("invalid token: %v", err)
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("invalid token claims")
	}
	return claims.Subject, nil
}

var _ Provider = (*JWTProvider)(nil)
