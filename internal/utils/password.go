package utils

import "golang.org/x/crypto/bcrypt"

// Hasher wraps bcrypt with a fixed cost.  It is used for both account
// passwords and password-reset tokens.
type Hasher struct{ Cost int }

// NewHasher returns a Hasher; a cost outside bcrypt's range falls back to
// bcrypt.DefaultCost.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Hasher{Cost: cost}
}

// Hash returns the bcrypt hash of plain.
func (h Hasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare safely compares a bcrypt hash with a plain value.
func (h Hasher) Compare(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
