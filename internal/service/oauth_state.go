package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const stateIssuer = "aisessions-oauth"

// StateSigner issues and checks the OAuth state parameter. States are
// self-contained HS256 tokens, so no server-side state table is needed.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewStateSigner(secret string, ttl time.Duration) *StateSigner {
	return &StateSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed state token and its nonce. Callers bind the nonce to
// the browser so a state minted for someone else is rejected.
func (s *StateSigner) Issue() (token string, nonce string, err error) {
	now := s.now()
	nonce = uuid.NewString()
	claims := jwt.RegisteredClaims{
		ID:        nonce,
		Issuer:    stateIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign state: %w", err)
	}
	return signed, nonce, nil
}

// Verify parses token and returns its nonce.
func (s *StateSigner) Verify(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("state is empty")
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(stateIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("parse state: %w", err)
	}
	if !parsed.Valid || claims.ID == "" {
		return "", fmt.Errorf("invalid state claims")
	}
	return claims.ID, nil
}
