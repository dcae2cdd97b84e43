package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyKey = errors.New("empty access key")

// HashKey hashes an access key for storage. cost <= 0 uses bcrypt.DefaultCost.
func HashKey(plain string, cost int) (string, error) {
	if plain == "" {
		return "", ErrEmptyKey
	}
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CompareKey reports whether plain matches the stored hash.
func CompareKey(hash, plain string) bool {
	if hash == "" || plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
