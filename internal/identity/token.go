// Package identity issues and verifies the bearer tokens that carry a caller's principal.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/parking-ledger/internal/application"
)

// Issuer is written into and required from every token.
const Issuer = "parking-ledger"

var (
	// ErrInvalidToken reports a token that is malformed, forged, or carries no principal.
	ErrInvalidToken = errors.New("identity: invalid token")
	// ErrTokenExpired reports a token whose expiry has passed.
	ErrTokenExpired = errors.New("identity: token expired")
	// ErrEmptySecret reports a signer or verifier constructed without a key.
	ErrEmptySecret = errors.New("identity: secret is required")
)

// Signer mints HS256 tokens whose subject is the principal.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner returns a Signer keyed by secret.
func NewSigner(secret []byte, now func() time.Time) (*Signer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if now == nil {
		now = time.Now
	}
	return &Signer{secret: secret, now: now}, nil
}

// Issue returns a signed token for principal that expires after ttl.
func (s *Signer) Issue(principal application.Principal, ttl time.Duration) (string, time.Time, error) {
	if principal.IsZero() {
		return "", time.Time{}, fmt.Errorf("%w: principal is required", ErrInvalidToken)
	}
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("identity: ttl must be positive, got %s", ttl)
	}

	now := s.now()
	expires := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   principal.String(),
		Issuer:    Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("identity: sign token: %w", err)
	}
	return token, expires, nil
}

// Verifier checks tokens minted by a Signer with the same secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier returns a Verifier keyed by secret.
func NewVerifier(secret []byte, now func() time.Time) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if now == nil {
		now = time.Now
	}
	return &Verifier{secret: secret, now: now}, nil
}

// Verify validates the signature, issuer and expiry of token and returns its principal.
func (v *Verifier) Verify(token string) (application.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return "", ErrInvalidToken
	}

	principal := application.Principal(claims.Subject)
	if principal.IsZero() {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return principal, nil
}
