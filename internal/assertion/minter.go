// Package assertion mints the short-lived signed tokens that assert a
// federated account id. A web client receives one at the end of a successful
// sign-in and consumes it once to establish its own session.
package assertion

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Minter struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewMinter(signingKey []byte, issuer string, ttl time.Duration) *Minter {
	return &Minter{
		signingKey: signingKey,
		issuer:     issuer,
		ttl:        ttl,
	}
}

// Mint issues a signed assertion bound to the given account id
func (m *Minter) Mint(uid string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signingKey)
}

// Verify checks an assertion's signature and expiry and returns the account
// id it's bound to
func (m *Minter) Verify(assertion string) (string, error) {
	token, err := jwt.ParseWithClaims(assertion, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.signingKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to verify assertion: %w", err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("assertion carries no subject")
	}
	return claims.Subject, nil
}
