package auth

import (
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
)

var ErrLoginDisabled = errors.New("operator login is not configured")

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// CheckPassword compares password against an argon2id hash. An empty hash
// means operator login is switched off.
func CheckPassword(password, hash string) (bool, error) {
	if hash == "" {
		return false, ErrLoginDisabled
	}
	ok, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("compare password: %w", err)
	}
	return ok, nil
}
