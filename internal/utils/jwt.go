package utils // package utils provides helpers for token creation and hashing

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails parsing, signature
// or expiry checks.
var ErrInvalidToken = errors.New("invalid token")

// SessionToken is a signed JWT together with its expiry.
type SessionToken struct {
	Token string
	Exp   time.Time
}

// TokenSigner issues and verifies HS256 session tokens.  The only claim
// the API relies on is the subject, which carries the user id.
type TokenSigner struct {
	secret []byte
	now    func() time.Time
}

// NewTokenSigner returns a signer keyed with secret.
func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret), now: time.Now}
}

// Sign builds a token for userID that expires after ttl.
func (s *TokenSigner) Sign(userID uint64, ttl time.Duration) (SessionToken, error) {
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// Verify checks raw and returns the user id it was issued for.
func (s *TokenSigner) Verify(raw string) (uint64, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !tok.Valid {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// RandomHex returns n bytes of crypto/rand output, hex encoded.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
