package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned for a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for tokens that fail to parse or verify.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims identify a server-side session.
type Claims struct {
	jwt.RegisteredClaims
}

// Signer signs and verifies HS256 session tokens.
type Signer struct {
	secret []byte
	issuer string
}

// NewSigner builds a token signer.
func NewSigner(secret, issuer string) *Signer {
	return &Signer{secret: []byte(secret), issuer: issuer}
}

// Sign issues a token for session sessionID of userID.
func (s *Signer) Sign(sessionID, userID string, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        sessionID,
		Subject:   userID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns its claims.
func (s *Signer) Parse(token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(s.issuer))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return Claims{}, ErrTokenExpired
	}
	if err != nil || claims.ID == "" {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}
